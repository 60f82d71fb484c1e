package registrar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/store"
)

func generic(line string) message.Generic {
	g, err := message.ParseLine(line + "\r\n")
	if err != nil {
		panic(err)
	}
	return g
}

func TestRegistrationHappyPath(t *testing.T) {
	s := store.New("irc.example.org")
	c := New()

	r := c.Handle(message.KindPass, generic("PASS secret"), s)
	assert.Equal(t, NoResponse, r.Outcome)
	assert.Equal(t, PasswordSet, c.State)

	r = c.Handle(message.KindNick, generic("NICK alice"), s)
	assert.Equal(t, Reply, r.Outcome)
	assert.Equal(t, message.ReplyNickSet, r.Reply)
	assert.Equal(t, NickSet, c.State)

	r = c.Handle(message.KindUser, generic("USER alice host irc.example.org :Alice A"), s)
	assert.Equal(t, Upgrade, r.Outcome)
	assert.Equal(t, TargetClient, c.Target)
}

func TestCommandBeforePassRefused(t *testing.T) {
	s := store.New("irc.example.org")
	c := New()
	r := c.Handle(message.KindNick, generic("NICK alice"), s)
	assert.Equal(t, Reply, r.Outcome)
	assert.Equal(t, message.ErrRegMissing, r.Reply)
}

func TestServerAfterNickRefused(t *testing.T) {
	s := store.New("irc.example.org")
	c := New()
	c.Handle(message.KindPass, generic("PASS secret"), s)
	c.Handle(message.KindNick, generic("NICK alice"), s)
	r := c.Handle(message.KindServer, generic("SERVER leaf.example.org 1 :a leaf"), s)
	assert.Equal(t, Reply, r.Outcome)
}

func TestServerHandshakeUpgrades(t *testing.T) {
	s := store.New("irc.example.org")
	c := New()
	c.Handle(message.KindPass, generic("PASS secret"), s)
	r := c.Handle(message.KindServer, generic("SERVER leaf.example.org 1 :a leaf"), s)
	assert.Equal(t, Upgrade, r.Outcome)
	assert.Equal(t, TargetServer, c.Target)
	assert.Equal(t, "leaf.example.org", c.Servername)
}

func TestNickRefusedWhenAlreadyLive(t *testing.T) {
	s := store.New("irc.example.org")
	s.AddClient(store.NewClient("wiz", "u", "h", "irc.example.org", "Wiz", "", nil))

	c := New()
	c.Handle(message.KindPass, generic("PASS secret"), s)
	r := c.Handle(message.KindNick, generic("NICK wiz"), s)
	assert.Equal(t, Reply, r.Outcome)
	assert.Equal(t, message.ErrNicknameInUse, r.Reply)
}

func TestCanLogInRejectsUsernameCollisionUnderDifferentNick(t *testing.T) {
	s := store.New("irc.example.org")
	s.AddAccount(store.NewClientAccount("alice", "aliceuser", "pw"))

	require.False(t, CanLogIn(s, "bob", "aliceuser", "pw"))
	require.True(t, CanLogIn(s, "alice", "aliceuser", "pw"))
	require.True(t, CanLogIn(s, "carol", "caroluser", "pw"))
}

func TestServerBeforePassRefused(t *testing.T) {
	s := store.New("irc.example.org")
	c := New()
	r := c.Handle(message.KindServer, generic("SERVER leaf.example.org 1 :a leaf"), s)
	assert.Equal(t, Reply, r.Outcome)
	assert.Equal(t, message.ErrRegMissing, r.Reply)
}

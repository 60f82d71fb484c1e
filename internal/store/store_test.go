package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddAndGetClient(t *testing.T) {
	s := New("irc.example.org")
	c := NewClient("Alice", "alice", "host.example", "irc.example.org", "Alice A", "", nil)
	s.AddClient(c)

	got, ok := s.GetClient("alice")
	require.True(t, ok)
	assert.Equal(t, "Alice", got.Nickname())
}

func TestRenameClientRekeysChannels(t *testing.T) {
	s := New("irc.example.org")
	c := NewClient("alice", "alice", "host", "irc.example.org", "Alice A", "", nil)
	s.AddClient(c)

	ch, created := s.GetOrCreateChannel("#general")
	require.True(t, created)
	require.True(t, ch.AddMember(CanonicalNick("alice"), "alice", true))
	c.JoinChannel(CanonicalChannel("#general"), true)

	s.RenameClient(c, "alicia")

	_, stillOldKey := s.GetClient("alice")
	assert.False(t, stillOldKey)

	got, ok := s.GetClient("alicia")
	require.True(t, ok)
	assert.Equal(t, "alicia", got.Nickname())

	assert.True(t, ch.IsOp(CanonicalNick("alicia")))
	assert.False(t, ch.HasMember(CanonicalNick("alice")))
	assert.True(t, ch.HasMember(CanonicalNick("alicia")))
}

func TestChannelDestroyedWhenEmpty(t *testing.T) {
	s := New("irc.example.org")
	c := NewClient("bob", "bob", "host", "irc.example.org", "Bob B", "", nil)
	s.AddClient(c)

	ch, _ := s.GetOrCreateChannel("#empty")
	require.True(t, ch.AddMember(CanonicalNick("bob"), "bob", true))
	c.JoinChannel(CanonicalChannel("#empty"), true)

	s.PartChannel(c, ch)

	_, ok := s.GetChannel("#empty")
	assert.False(t, ok)
}

func TestChannelLimitRejectsOverCap(t *testing.T) {
	ch := NewChannel("#full")
	ch.SetLimit(1)
	require.True(t, ch.AddMember("a", "a", false))
	assert.False(t, ch.AddMember("b", "b", false))
}

func TestRegisteredOpReacquiresOnRejoin(t *testing.T) {
	ch := NewChannel("#persist")
	require.True(t, ch.AddMember("op", "op", true))
	ch.SetOp("op", true)
	ch.RemoveMember("op")
	assert.False(t, ch.HasMember("op"))

	require.True(t, ch.AddMember("op", "op", false))
	assert.True(t, ch.IsOp("op"))
}

func TestDescendantsWalksUplinkChain(t *testing.T) {
	s := New("hub")
	s.AddPeer(NewPeerLink("left", 1, "", nil))
	s.AddPeer(NewPeerLink("leaf1", 2, "left", nil))
	s.AddPeer(NewPeerLink("leaf2", 3, "leaf1", nil))
	s.AddPeer(NewPeerLink("right", 1, "", nil))

	names := func(peers []*PeerLink) map[string]bool {
		m := make(map[string]bool, len(peers))
		for _, p := range peers {
			m[p.Servername()] = true
		}
		return m
	}

	got := names(s.Descendants("left"))
	assert.True(t, got["left"])
	assert.True(t, got["leaf1"])
	assert.True(t, got["leaf2"])
	assert.False(t, got["right"])
}

package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catboxd/ircd/internal/store"
)

func TestAccountsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := AccountsFile(dir, "6667")

	s := store.New("irc.example.org")
	s.AddAccount(store.NewClientAccount("alice", "aliceuser", "secret"))
	s.AddAccount(store.NewClientAccount("ghost", "ghostuser", "")) // no password: not persisted

	require.NoError(t, SaveAccounts(s, path))

	loaded := store.New("irc.example.org")
	require.NoError(t, LoadAccounts(loaded, path))

	a, ok := loaded.GetAccount("alice")
	require.True(t, ok)
	assert.Equal(t, "aliceuser", a.Username())
	assert.Equal(t, "secret", a.Password())

	_, ok = loaded.GetAccount("ghost")
	assert.False(t, ok, "passwordless accounts must not be persisted")
}

func TestChannelsRoundTripRestoresRegisteredOps(t *testing.T) {
	dir := t.TempDir()
	path := ChannelsFile(dir, "6667")

	s := store.New("irc.example.org")
	ch, _ := s.GetOrCreateChannel("#c")
	ch.SetTopic("the topic")
	ch.SetKey("hunter2")
	ch.SetInviteOnly(true)
	ch.SetModerated(true)
	ch.SetLimit(25)
	ch.RestoreRegisteredOp("alice")
	ch.RestoreRegisteredOp("bob")

	empty, _ := s.GetOrCreateChannel("#noops") // no registered ops: not persisted
	_ = empty

	require.NoError(t, SaveChannels(s, path))

	loaded := store.New("irc.example.org")
	require.NoError(t, LoadChannels(loaded, path))

	got, ok := loaded.GetChannel("#c")
	require.True(t, ok)
	topic, _ := got.Topic()
	assert.Equal(t, "the topic", topic)
	assert.Equal(t, "hunter2", got.Key())
	assert.True(t, got.InviteOnly())
	assert.True(t, got.Moderated())
	limit, has := got.Limit()
	require.True(t, has)
	assert.Equal(t, 25, limit)
	assert.True(t, got.IsRegisteredOp("alice"))
	assert.True(t, got.IsRegisteredOp("bob"))

	_, ok = loaded.GetChannel("#noops")
	assert.False(t, ok)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	s := store.New("irc.example.org")
	assert.NoError(t, LoadAccounts(s, filepath.Join(t.TempDir(), "absent")))
	assert.NoError(t, LoadChannels(s, filepath.Join(t.TempDir(), "absent")))
}

func TestLoadMalformedLineAbortsWithError(t *testing.T) {
	dir := t.TempDir()
	path := AccountsFile(dir, "6667")
	require.NoError(t, os.WriteFile(path, []byte("only,two\n"), 0o644))

	s := store.New("irc.example.org")
	assert.Error(t, LoadAccounts(s, path))
}

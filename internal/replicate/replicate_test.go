package replicate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catboxd/ircd/internal/store"
)

type recordingSocket struct {
	lines []string
}

func (r *recordingSocket) WriteLine(line string) error {
	r.lines = append(r.lines, line)
	return nil
}

func TestToAllPeersSkipsTransitive(t *testing.T) {
	s := store.New("hub")
	direct := &recordingSocket{}
	s.AddPeer(store.NewPeerLink("leaf", 1, "", direct))
	s.AddPeer(store.NewPeerLink("grandleaf", 2, "leaf", nil))

	f := New(s)
	f.ToAllPeers("PING :hub\r\n")

	assert.Equal(t, []string{"PING :hub\r\n"}, direct.lines)
}

func TestToAllPeersExceptSkipsOrigin(t *testing.T) {
	s := store.New("hub")
	a := &recordingSocket{}
	b := &recordingSocket{}
	s.AddPeer(store.NewPeerLink("a", 1, "", a))
	s.AddPeer(store.NewPeerLink("b", 1, "", b))

	f := New(s)
	f.ToAllPeersExcept("NICK :x\r\n", "a")

	assert.Empty(t, a.lines)
	assert.Equal(t, []string{"NICK :x\r\n"}, b.lines)
}

func TestRouteToPeerWalksUplinkChain(t *testing.T) {
	s := store.New("hub")
	direct := &recordingSocket{}
	s.AddPeer(store.NewPeerLink("leaf", 1, "", direct))
	s.AddPeer(store.NewPeerLink("grandleaf", 2, "leaf", nil))

	f := New(s)
	f.RouteToPeer("PRIVMSG x :hi\r\n", "grandleaf", "")

	assert.Equal(t, []string{"PRIVMSG x :hi\r\n"}, direct.lines)
}

func TestSquitCascadeQuitsHomedClients(t *testing.T) {
	s := store.New("hub")
	s.AddPeer(store.NewPeerLink("leaf", 1, "", &recordingSocket{}))
	s.AddPeer(store.NewPeerLink("grandleaf", 2, "leaf", nil))

	c := store.NewClient("remote", "remote", "host", "grandleaf", "Remote", "", nil)
	s.AddClient(c)

	var quit []string
	f := New(s)
	detached := f.SquitCascade("leaf", func(c *store.Client, reason string) {
		quit = append(quit, c.Nickname()+":"+reason)
	})

	require.Contains(t, detached, "leaf")
	require.Contains(t, detached, "grandleaf")
	assert.Equal(t, []string{"remote:Connection to server lost"}, quit)

	_, stillThere := s.GetClient("remote")
	assert.False(t, stillThere)
}

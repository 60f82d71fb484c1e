package dcc

import (
	"bytes"
	"io"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingActor captures lifecycle notifications and delivered events for
// assertions. Deliver/Notify are called from the worker goroutine, so
// access is mutex-guarded.
type recordingActor struct {
	mu       sync.Mutex
	actions  []DccAction
	messages []IncomingMessage
}

func (a *recordingActor) Notify(action DccAction) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, action)
}

func (a *recordingActor) Deliver(msg IncomingMessage) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.messages = append(a.messages, msg)
}

func (a *recordingActor) snapshot() []IncomingMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]IncomingMessage, len(a.messages))
	copy(out, a.messages)
	return out
}

// TestSenderResumesFromOffset drives the SEND sender state machine through
// a resume: the receiver already holds 400 of 1000 bytes, so the sender
// must seek to 400 and stream exactly the remainder, reporting progress
// monotonically up to the full size.
func TestSenderResumesFromOffset(t *testing.T) {
	dir := t.TempDir()
	content := bytes.Repeat([]byte("0123456789"), 100) // 1000 bytes
	path := filepath.Join(dir, "f.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := NewRelay(dir, dir)
	actor := &recordingActor{}
	sess := &session{ucid: 7, remoteNick: "bob", actor: actor, control: make(chan controlMsg, 4)}
	r.sessions[7] = sess

	sess.control <- controlMsg{kind: controlResume, offset: 400}

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.runSender(7, sess, ln, path, uint64(len(content)))
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	received, err := io.ReadAll(conn)
	require.NoError(t, err)
	_ = conn.Close()
	<-done

	assert.Equal(t, content[400:], received)

	msgs := actor.snapshot()
	require.NotEmpty(t, msgs)
	prev := uint64(400)
	for _, m := range msgs {
		require.Equal(t, IncomingClientFile, m.Kind)
		assert.Equal(t, uint64(1000), m.Total)
		assert.GreaterOrEqual(t, m.Done, prev)
		prev = m.Done
	}
	assert.Equal(t, uint64(1000), msgs[len(msgs)-1].Done)

	_, exists := r.sessions[7]
	assert.False(t, exists, "finished session must be removed from the map")
}

// TestSenderStartsAtZeroWithoutResume covers the WaitingForInformation ->
// From(0) fall-through when no RESUME arrives before streaming begins.
func TestSenderStartsAtZeroWithoutResume(t *testing.T) {
	dir := t.TempDir()
	content := []byte("hello, receiver")
	path := filepath.Join(dir, "g.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	r := NewRelay(dir, dir)
	actor := &recordingActor{}
	sess := &session{ucid: 9, remoteNick: "bob", actor: actor, control: make(chan controlMsg, 4)}
	r.sessions[9] = sess

	done := make(chan struct{})
	go func() {
		defer close(done)
		r.runSender(9, sess, ln, path, uint64(len(content)))
	}()

	conn, err := net.Dial("tcp", ln.Addr().String())
	require.NoError(t, err)
	received, err := io.ReadAll(conn)
	require.NoError(t, err)
	_ = conn.Close()
	<-done

	assert.Equal(t, content, received)
}

// TestCloseByNickTearsDownSession checks the relay's CLOSE path: the
// session is removed and the actor told Destroy.
func TestCloseByNickTearsDownSession(t *testing.T) {
	r := NewRelay(t.TempDir(), t.TempDir())
	actor := &recordingActor{}
	sess := &session{ucid: 3, remoteNick: "bob", actor: actor, control: make(chan controlMsg, 4)}
	r.sessions[3] = sess

	r.closeByNick("bob")

	_, exists := r.sessions[3]
	assert.False(t, exists)
	assert.Contains(t, actor.actions, DccDestroy)
}

// TestMintUcidUnique checks that mintUcid never returns an id already in
// the session map: each of 100 mints is registered and must differ from
// every earlier one.
func TestMintUcidUnique(t *testing.T) {
	r := NewRelay(t.TempDir(), t.TempDir())
	seen := make(map[uint64]bool)
	for i := 0; i < 100; i++ {
		id := r.mintUcid()
		require.False(t, seen[id])
		seen[id] = true
		r.sessions[id] = &session{ucid: id}
	}
}

package dcc

import (
	"crypto/rand"
	"encoding/binary"
	"net"
	"path/filepath"
	"sync"

	"github.com/sourcegraph/conc"
)

// session tracks one live DCC exchange: the remote nick, its GUI actor,
// and the control channel its worker goroutine listens on.
type session struct {
	ucid       uint64
	remoteNick string
	actor      Actor
	control    chan controlMsg

	// outbound carries GUI-originated chat text to a CHAT worker's socket.
	outbound chan string
}

type controlKind int

const (
	controlClose controlKind = iota
	controlResume
)

type controlMsg struct {
	kind   controlKind
	offset uint64
}

// Relay is the CTCP/DCC relay: it mints session ids, spawns workers,
// and owns the ucid -> session map. One Relay exists per local client
// connection, the way a GUI window-set corresponds to a single IRC
// session.
type Relay struct {
	mu       sync.Mutex
	sessions map[uint64]*session

	wg *conc.WaitGroup

	uploadsDir   string
	downloadsDir string

	// ToIRC is where rendered NOTICE lines destined for the normal
	// PRIVMSG/NOTICE routing path are queued.
	ToIRC chan GuiMessage
}

// NewRelay constructs a Relay rooted at the given upload/download
// directories.
func NewRelay(uploadsDir, downloadsDir string) *Relay {
	return &Relay{
		sessions:     make(map[uint64]*session),
		wg:           conc.NewWaitGroup(),
		uploadsDir:   uploadsDir,
		downloadsDir: downloadsDir,
		ToIRC:        make(chan GuiMessage, 16),
	}
}

// Wait blocks until every spawned worker goroutine has returned, for
// supervisor shutdown.
func (r *Relay) Wait() {
	r.wg.Wait()
}

// mintUcid generates a random session id, regenerating until it does not
// collide with a live session.
func (r *Relay) mintUcid() uint64 {
	for {
		var buf [8]byte
		if _, err := rand.Read(buf[:]); err != nil {
			continue
		}
		id := binary.BigEndian.Uint64(buf[:])
		if id == 0 {
			continue
		}
		if _, exists := r.sessions[id]; !exists {
			return id
		}
	}
}

// StartNewClient handles the outgoing path: the GUI wants to initiate CHAT
// or SEND. It mints a ucid, builds the Actor via factory, queues the
// rendered NOTICE for IRC delivery, and returns the ucid so the GUI can
// correlate further IncomingMessage traffic.
func (r *Relay) StartNewClient(remoteNick, renderedNotice string, factory ActorFactory) uint64 {
	r.mu.Lock()
	ucid := r.mintUcid()
	actor := factory(ucid, remoteNick)
	sess := &session{ucid: ucid, remoteNick: remoteNick, actor: actor, control: make(chan controlMsg, 4), outbound: make(chan string, 16)}
	r.sessions[ucid] = sess
	r.mu.Unlock()

	actor.Notify(DccNew)
	r.ToIRC <- GuiMessage{Kind: GuiMessageIRC, Text: renderedNotice}
	return ucid
}

// StartSend is the sender-side half of an outgoing SEND offer: it opens
// the filename under the relay's uploads root, mints a session, renders
// the SEND notice for IRC delivery, and spawns the sender worker to
// accept the remote's connection and stream the file.
func (r *Relay) StartSend(remoteNick, filename string, ip net.IP, port int, factory ActorFactory, listen func(ip net.IP, port int) (net.Listener, error)) (uint64, error) {
	path := filepath.Join(r.uploadsDir, filepath.Base(filename))
	info, err := statSize(path)
	if err != nil {
		return 0, err
	}

	ln, err := listen(ip, port)
	if err != nil {
		return 0, err
	}

	r.mu.Lock()
	ucid := r.mintUcid()
	actor := factory(ucid, remoteNick)
	sess := &session{ucid: ucid, remoteNick: remoteNick, actor: actor, control: make(chan controlMsg, 4), outbound: make(chan string, 16)}
	r.sessions[ucid] = sess
	r.mu.Unlock()

	actor.Notify(DccNew)
	req := Request{Verb: VerbSend, Filename: filename, IP: ip, Port: port, Size: info}
	r.ToIRC <- GuiMessage{Kind: GuiMessageIRC, Text: "NOTICE " + remoteNick + " :" + Render(req)}
	r.wg.Go(func() { r.runSender(ucid, sess, ln, path, info) })
	return ucid, nil
}

// HandleIncomingNotice handles the incoming path: a server-delivered
// NOTICE whose text is a CTCP/DCC envelope. senderNick is extracted by
// the caller from the notice's prefix.
func (r *Relay) HandleIncomingNotice(senderNick, text string, factory ActorFactory, connect func(ip net.IP, port int) (net.Conn, error)) {
	req, ok := ParseNotice(text)
	if !ok {
		return
	}

	switch req.Verb {
	case VerbClose:
		r.closeByNick(senderNick)
	case VerbResume:
		r.deliverResume(senderNick, req)
	case VerbChat:
		r.mu.Lock()
		ucid := r.mintUcid()
		actor := factory(ucid, senderNick)
		sess := &session{ucid: ucid, remoteNick: senderNick, actor: actor, control: make(chan controlMsg, 4), outbound: make(chan string, 16)}
		r.sessions[ucid] = sess
		r.mu.Unlock()
		actor.Notify(DccNew)
		r.wg.Go(func() { r.runChat(ucid, sess, req, connect) })
	case VerbSend:
		r.mu.Lock()
		ucid := r.mintUcid()
		actor := factory(ucid, senderNick)
		sess := &session{ucid: ucid, remoteNick: senderNick, actor: actor, control: make(chan controlMsg, 4), outbound: make(chan string, 16)}
		r.sessions[ucid] = sess
		r.mu.Unlock()
		actor.Notify(DccNew)
		path := filepath.Join(r.downloadsDir, filepath.Base(req.Filename))
		r.wg.Go(func() { r.runReceiver(ucid, sess, req, path, connect) })
	}
}

// closeByNick tears down the session associated with a remote nick; a
// CLOSE request carries no session id, only the sender's identity.
func (r *Relay) closeByNick(nick string) {
	r.mu.Lock()
	var found *session
	for _, s := range r.sessions {
		if s.remoteNick == nick {
			found = s
			break
		}
	}
	if found != nil {
		delete(r.sessions, found.ucid)
	}
	r.mu.Unlock()

	if found == nil {
		return
	}
	found.control <- controlMsg{kind: controlClose}
	found.actor.Notify(DccDestroy)
}

// deliverResume routes a RESUME request to the prior session for
// senderNick, if one exists, causing the sender worker to seek.
func (r *Relay) deliverResume(nick string, req Request) {
	r.mu.Lock()
	var found *session
	for _, s := range r.sessions {
		if s.remoteNick == nick {
			found = s
			break
		}
	}
	r.mu.Unlock()
	if found == nil {
		return
	}
	select {
	case found.control <- controlMsg{kind: controlResume, offset: req.Offset}:
	default:
	}
}

// HandleGui dispatches a GUI-originated message for an existing session:
// Close tears the session down, OutgoingDCC queues chat text for the CHAT
// worker's socket. MessageIRC never reaches here (it is queued on ToIRC at
// session creation); IncomingDCC is a GUI-side acknowledgement with no
// core action.
func (r *Relay) HandleGui(gm GuiMessage) {
	r.mu.Lock()
	sess, ok := r.sessions[gm.Ucid]
	if ok && gm.Kind == GuiClose {
		delete(r.sessions, gm.Ucid)
	}
	r.mu.Unlock()
	if !ok {
		return
	}

	switch gm.Kind {
	case GuiClose:
		sess.control <- controlMsg{kind: controlClose}
		sess.actor.Notify(DccDestroy)
	case GuiOutgoingDCC:
		select {
		case sess.outbound <- gm.Text:
		default:
		}
	}
}

// remove deletes ucid's session entry without touching its worker (the
// worker removes itself from the caller's perspective by returning).
func (r *Relay) remove(ucid uint64) {
	r.mu.Lock()
	delete(r.sessions, ucid)
	r.mu.Unlock()
}

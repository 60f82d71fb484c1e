package supervisor

import (
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/catboxd/ircd/internal/dcc"
	"github.com/catboxd/ircd/internal/exec"
	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/registrar"
	"github.com/catboxd/ircd/internal/store"
)

// registerAndServe drives c through registrar.Connection until it's
// rejected, quits, or upgrades to a full Client or PeerLink, then hands
// off to the matching line-loop.
func (s *Supervisor) registerAndServe(c *Conn) {
	reg := registrar.New()
	if c.Initiated {
		// We dialed this connection and already sent our own PASS, so the
		// remote's answering SERVER is legal immediately.
		reg.State = registrar.PasswordSet
	}

	for {
		line, err := c.ReadLine()
		if err != nil {
			if !isTimeoutErr(err) {
				return
			}
			// idle deadline hit during registration: keep waiting, the
			// registration window has no separate ping/pong grace period.
			continue
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		g, perr := message.ParseLine(line)
		if perr != nil {
			_ = c.WriteLine(regReply(s.Config.ServerName, message.ErrUnknownCommand, "*", perr.Detail))
			continue
		}
		kind, ok := message.KindOf(g.Command)
		if !ok {
			_ = c.WriteLine(regReply(s.Config.ServerName, message.ErrUnknownCommand, "*", g.Command))
			continue
		}

		result := reg.Handle(kind, g, s.Store)
		if result.Reply != "" {
			target := "*"
			if reg.Nickname != "" {
				target = reg.Nickname
			}
			_ = c.WriteLine(regReply(s.Config.ServerName, result.Reply, target, result.Detail))
		}

		switch result.Outcome {
		case registrar.Quit:
			return
		case registrar.Upgrade:
			switch reg.Target {
			case registrar.TargetClient:
				s.serveClient(c, reg)
			case registrar.TargetServer:
				s.servePeer(c, reg)
			}
			return
		}
	}
}

// serveClient constructs a store.Client from a completed registration and
// drives its line-loop until QUIT or I/O failure.
func (s *Supervisor) serveClient(c *Conn, reg *registrar.Connection) {
	cl := store.NewClient(reg.Nickname, reg.Username, c.RemoteIP.String(), s.Config.ServerName, reg.RealName, reg.Password, c)
	s.Store.AddClient(cl)
	// Accounts exist iff the client registered with a non-empty password.
	if reg.Password != "" {
		if _, exists := s.Store.GetAccount(reg.Nickname); !exists {
			s.Store.AddAccount(store.NewClientAccount(reg.Nickname, reg.Username, reg.Password))
		}
	}
	relay := dcc.NewRelay(s.Config.UploadsDir, s.Config.DownloadsDir)

	for _, line := range exec.Welcome(s.Ctx, cl).Lines {
		_ = c.WriteLine(line)
	}

	defer func() {
		s.Store.RemoveClient(cl)
		g := message.Generic{Prefix: cl.Nickname(), Command: "QUIT", Params: []string{"Connection reset"}}
		quitLine, _ := g.Encode()
		s.Fabric.ToAllPeers(quitLine)
	}()

	for {
		select {
		case gm := <-relay.ToIRC:
			s.routeDccToIRC(cl, gm)
		default:
		}

		line, err := c.ReadLine()
		if err != nil {
			if isTimeoutErr(err) {
				continue
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		g, perr := message.ParseLine(line)
		if perr != nil {
			_ = c.WriteLine(regReply(s.Config.ServerName, message.ErrUnknownCommand, cl.Nickname(), perr.Detail))
			continue
		}
		kind, ok := message.KindOf(g.Command)
		if !ok {
			_ = c.WriteLine(numericLine(s.Config.ServerName, message.ErrUnknownCommand, cl.Nickname(), g.Command, "Unknown command"))
			continue
		}

		if kind == message.KindNotice && s.interceptDCC(cl, relay, g) {
			continue
		}

		outcome := exec.Client(s.Ctx, cl, kind, g)
		for _, l := range outcome.Lines {
			_ = c.WriteLine(l)
		}
		if outcome.Quit {
			return
		}
	}
}

// servePeer constructs a store.PeerLink from a completed SERVER
// registration and drives its line-loop, dispatching every inbound line
// through exec.Peer.
func (s *Supervisor) servePeer(c *Conn, reg *registrar.Connection) {
	peer := store.NewPeerLink(reg.Servername, reg.HopCount, "", c)
	s.Store.AddPeer(peer)

	// Accepting side identifies itself back so the dialer's registrar can
	// complete its own upgrade.
	if !c.Initiated {
		_ = c.WriteLine(fmt.Sprintf("SERVER %s 1 :%s\r\n", s.Config.ServerName, s.Config.ServerInfo))
	}

	// Burst: teach the new link the rest of the tree, and announce the new
	// link to every other peer, each with the hopcount incremented.
	for _, p := range s.Store.Peers.Values() {
		if p.Servername() == peer.Servername() {
			continue
		}
		ann := message.Server{Name: p.Servername(), HopCount: p.HopCount() + 1, Description: ""}
		g := ann.ToGeneric()
		g.Prefix = s.Config.ServerName
		if l, err := g.Encode(); err == nil {
			_ = peer.Write(l)
		}
	}
	newAnn := message.Server{Name: peer.Servername(), HopCount: 2, Description: reg.Descr}
	ng := newAnn.ToGeneric()
	ng.Prefix = s.Config.ServerName
	if l, err := ng.Encode(); err == nil {
		s.Fabric.ToAllPeersExcept(l, peer.Servername())
	}

	// A lost link runs the SQUIT descent locally: every transitive peer
	// behind this one goes too, and clients homed on any of them are quit
	// with the fixed reason.
	defer func() {
		if !s.Store.Peers.Exists(peer.Servername()) {
			return // already detached by an explicit SQUIT
		}
		detached := s.Fabric.SquitCascade(peer.Servername(), func(cl *store.Client, reason string) {
			g := message.Generic{Prefix: cl.Nickname(), Command: "QUIT", Params: []string{reason}}
			if l, err := g.Encode(); err == nil {
				s.Fabric.ToAllPeersExcept(l, peer.Servername())
			}
		})
		for _, name := range detached {
			g := message.Generic{Prefix: s.Config.ServerName, Command: "SQUIT", Params: []string{name, "Connection lost"}}
			if l, err := g.Encode(); err == nil {
				s.Fabric.ToAllPeersExcept(l, peer.Servername())
			}
		}
	}()

	for {
		line, err := c.ReadLine()
		if err != nil {
			if isTimeoutErr(err) {
				continue
			}
			return
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			continue
		}

		g, perr := message.ParseLine(line)
		if perr != nil {
			continue
		}
		kind, ok := message.KindOf(g.Command)
		if !ok {
			continue
		}

		outcome := exec.Peer(s.Ctx, peer, kind, g)
		for _, l := range outcome.Lines {
			_ = c.WriteLine(l)
		}
		if outcome.Quit {
			return
		}
	}
}

// dccDialTimeout bounds outbound DCC connect attempts the relay makes on a
// client's behalf (accepting a SEND/CHAT offer).
const dccDialTimeout = 5 * time.Second

func dialDCC(ip net.IP, port int) (net.Conn, error) {
	return net.DialTimeout("tcp", fmt.Sprintf("%s:%d", ip, port), dccDialTimeout)
}

// interceptDCC diverts a NOTICE whose trailing text is a CTCP/DCC
// envelope to the relay instead of ordinary message routing.
func (s *Supervisor) interceptDCC(cl *store.Client, relay *dcc.Relay, g message.Generic) bool {
	if len(g.Params) < 2 {
		return false
	}
	text := g.Params[len(g.Params)-1]
	if _, ok := dcc.ParseNotice(text); !ok {
		return false
	}
	relay.HandleIncomingNotice(cl.Nickname(), text, noGuiFactory, dialDCC)
	return true
}

// routeDccToIRC forwards a relay-queued GuiMessage onto ordinary client
// execution, the way a rendered CTCP NOTICE is delivered once the GUI
// asks for it to go out over IRC.
func (s *Supervisor) routeDccToIRC(cl *store.Client, gm dcc.GuiMessage) {
	if gm.Kind != dcc.GuiMessageIRC {
		return
	}
	g, perr := message.ParseLine(gm.Text)
	if perr != nil {
		return
	}
	kind, ok := message.KindOf(g.Command)
	if !ok {
		return
	}
	exec.Client(s.Ctx, cl, kind, g)
}

// noGuiFactory is used when no GUI collaborator is attached to this
// connection (client-no-gui mode, or a peer-originated notice with no
// local actor). It returns a no-op Actor.
func noGuiFactory(ucid uint64, remoteNick string) dcc.Actor {
	return noopActor{}
}

type noopActor struct{}

func (noopActor) Notify(dcc.DccAction)        {}
func (noopActor) Deliver(dcc.IncomingMessage) {}

// regReply renders a registrar Result into a wire line. Symbolic codes
// (RPL_*/ERR_* without a numeric form) are sent as NOTICE text; numeric
// codes render as ordinary numeric replies.
func regReply(serverName, code, target, detail string) string {
	if message.IsNumericCommand(code) {
		return numericLine(serverName, code, target, detail)
	}
	g := message.Generic{Prefix: serverName, Command: "NOTICE", Params: []string{target, code + ": " + detail}}
	line, _ := g.Encode()
	return line
}

func numericLine(serverName, code, target string, params ...string) string {
	g := message.Generic{Prefix: serverName, Command: code, Params: append([]string{target}, params...)}
	line, _ := g.Encode()
	return line
}

func isTimeoutErr(err error) bool {
	type timeouter interface{ Timeout() bool }
	te, ok := err.(timeouter)
	return ok && te.Timeout()
}

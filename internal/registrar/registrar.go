// Package registrar implements the per-connection registration state
// machine: it accumulates PASS/NICK/USER/SERVER fields before a
// connection is promoted to a full Client or PeerLink.
package registrar

import (
	"github.com/catboxd/ircd/internal/message"
	"github.com/catboxd/ircd/internal/store"
)

// State is a registration step.
type State int

const (
	PasswordNotSet State = iota
	PasswordSet
	NickSet
)

// TargetKind discriminates what a Connection is registering as.
type TargetKind int

const (
	TargetUnknown TargetKind = iota
	TargetClient
	TargetServer
)

// Outcome tells the caller what to do after feeding a line to the
// registrar.
type Outcome int

const (
	// NoResponse: command accepted, nothing to send, registration continues.
	NoResponse Outcome = iota
	// Reply: a single reply line (registrar-generated numeric) should be
	// sent to the connection.
	Reply
	// Quit: the connection should be closed (QUIT, or a fatal rejection).
	Quit
	// Upgrade: registration is complete; caller should hand the socket to
	// the client or peer line-loop per Connection.Target.
	Upgrade
)

// Connection is the transient per-socket registration record.
type Connection struct {
	State  State
	Target TargetKind

	Password string

	// Client-bound fields.
	Nickname string
	Username string
	Hostname string
	RealName string

	// Server-bound fields.
	Servername string
	HopCount   int
	Descr      string
}

// New constructs a fresh registration record.
func New() *Connection {
	return &Connection{State: PasswordNotSet, Target: TargetUnknown}
}

// Result carries the reply text (if any) and the resulting Outcome back to
// the line-loop driving registration.
type Result struct {
	Outcome Outcome
	Reply   string // numeric code, e.g. message.ErrRegMissing
	Detail  string
}

// Handle feeds one parsed, registration-legal command into the state
// machine. Commands other than PASS, NICK, USER, SERVER, QUIT are
// refused. s is consulted by NICK, to refuse a nickname already in use,
// and by USER, to apply the CanLogIn rule.
func (c *Connection) Handle(kind message.Kind, g message.Generic, s *store.Store) Result {
	switch kind {
	case message.KindQuit:
		c.Target = TargetUnknown
		return Result{Outcome: Quit}
	case message.KindPass:
		return c.handlePass(g)
	case message.KindNick:
		return c.handleNick(g, s)
	case message.KindUser:
		return c.handleUser(g, s)
	case message.KindServer:
		return c.handleServer(g)
	default:
		return Result{Outcome: Reply, Reply: message.ErrRegMissing, Detail: string(kind)}
	}
}

func (c *Connection) handlePass(g message.Generic) Result {
	p, err := message.PassFromGeneric(g)
	if err != nil {
		return Result{Outcome: Reply, Reply: err.Code, Detail: err.Detail}
	}
	c.Password = p.Password
	c.State = PasswordSet
	return Result{Outcome: NoResponse}
}

func (c *Connection) handleNick(g message.Generic, s *store.Store) Result {
	if c.State != PasswordSet && c.State != NickSet {
		return Result{Outcome: Reply, Reply: message.ErrRegMissing, Detail: "PASS required first"}
	}
	n, err := message.NickFromGeneric(g)
	if err != nil {
		return Result{Outcome: Reply, Reply: err.Code, Detail: err.Detail}
	}
	if _, live := s.GetClient(n.Nickname); live {
		return Result{Outcome: Reply, Reply: message.ErrNicknameInUse, Detail: n.Nickname}
	}
	c.Nickname = n.Nickname
	c.State = NickSet
	return Result{Outcome: Reply, Reply: message.ReplyNickSet, Detail: n.Nickname}
}

func (c *Connection) handleUser(g message.Generic, s *store.Store) Result {
	if c.State != NickSet {
		return Result{Outcome: Reply, Reply: message.ErrRegMissing, Detail: "NICK required first"}
	}
	u, err := message.UserFromGeneric(g)
	if err != nil {
		return Result{Outcome: Reply, Reply: err.Code, Detail: err.Detail}
	}
	if !CanLogIn(s, c.Nickname, u.Username, c.Password) {
		return Result{Outcome: Reply, Reply: message.ErrNicknameInUse, Detail: c.Nickname}
	}
	c.Username = u.Username
	c.Hostname = u.Hostname
	c.RealName = u.RealName
	c.Target = TargetClient
	return Result{Outcome: Upgrade, Reply: message.ReplySucLogin}
}

func (c *Connection) handleServer(g message.Generic) Result {
	if c.State == PasswordNotSet {
		return Result{Outcome: Reply, Reply: message.ErrRegMissing, Detail: "PASS required first"}
	}
	if c.State == NickSet {
		// NICK already captured on this connection: a server cannot register.
		return Result{Outcome: Reply, Reply: message.ErrRegMissing, Detail: "NICK already set"}
	}
	s, err := message.ServerFromGeneric(g)
	if err != nil {
		return Result{Outcome: Reply, Reply: err.Code, Detail: err.Detail}
	}
	c.Servername = s.Name
	c.HopCount = 1
	c.Descr = s.Description
	c.Target = TargetServer
	return Result{Outcome: Upgrade, Reply: message.ReplyRegistered}
}

// CanLogIn decides whether a registration may complete: let N be the
// pending nickname, U the offered username, P the offered password. An
// existing account keyed N must match both U and P; with no such account,
// U must not collide with any other account's username.
func CanLogIn(s *store.Store, nickname, username, password string) bool {
	if account, ok := s.GetAccount(nickname); ok {
		return account.Matches(username, password)
	}
	_, collides := s.AccountByUsername(username)
	return !collides
}

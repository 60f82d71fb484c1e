package message

import "strconv"

// Pass is the PASS command: only valid during registration.
type Pass struct {
	Password string
}

// PassFromGeneric validates and extracts a PASS command.
func PassFromGeneric(g Generic) (*Pass, *Error) {
	if err := validateParamsLen(g, 1, 1); err != nil {
		return nil, err
	}
	return &Pass{Password: g.Params[0]}, nil
}

// ToGeneric renders Pass back to wire form.
func (p Pass) ToGeneric() Generic {
	return Generic{Command: string(KindPass), Params: []string{p.Password}}
}

// Nick is the NICK command, used both at registration and afterward.
type Nick struct {
	Nickname string
}

// NickFromGeneric validates and extracts a NICK command.
func NickFromGeneric(g Generic) (*Nick, *Error) {
	if len(g.Params) == 0 {
		return nil, IRCError(ErrNoNicknameGiven, "no nickname given")
	}
	if !ValidNick(g.Params[0]) {
		return nil, IRCError(ErrErroneusNickname, g.Params[0])
	}
	return &Nick{Nickname: g.Params[0]}, nil
}

// ToGeneric renders Nick back to wire form.
func (n Nick) ToGeneric() Generic {
	return Generic{Command: string(KindNick), Params: []string{n.Nickname}}
}

// User is the USER command, only valid during registration.
type User struct {
	Username string
	Hostname string // unused mode field in RFC 2812's 4-parameter form
	Servername string
	RealName string
}

// UserFromGeneric validates and extracts a USER command.
//
// Parameters: <username> <hostname> <servername> :<realname>
func UserFromGeneric(g Generic) (*User, *Error) {
	if err := validateParamsLen(g, 4, 4); err != nil {
		return nil, err
	}
	if !ValidUser(g.Params[0]) {
		return nil, IRCError(ErrNeedMoreParams, "invalid username")
	}
	return &User{
		Username:   g.Params[0],
		Hostname:   g.Params[1],
		Servername: g.Params[2],
		RealName:   g.Params[3],
	}, nil
}

// ToGeneric renders User back to wire form.
func (u User) ToGeneric() Generic {
	return Generic{Command: string(KindUser), Params: []string{
		u.Username, u.Hostname, u.Servername, u.RealName,
	}}
}

// Server is the SERVER command: registers a peer link, or (from an
// already-linked peer) announces a transitive peer.
type Server struct {
	Name        string
	HopCount    int
	Description string
}

// ServerFromGeneric validates and extracts a SERVER command.
//
// Parameters: <servername> <hopcount> :<description>
func ServerFromGeneric(g Generic) (*Server, *Error) {
	if err := validateParamsLen(g, 3, 3); err != nil {
		return nil, err
	}
	if !ValidHostname(g.Params[0]) {
		return nil, IRCError(ErrNeedMoreParams, "invalid servername")
	}
	hop, err := strconv.Atoi(g.Params[1])
	if err != nil || hop < 1 {
		return nil, IRCError(ErrNeedMoreParams, "invalid hopcount")
	}
	return &Server{Name: g.Params[0], HopCount: hop, Description: g.Params[2]}, nil
}

// ToGeneric renders Server back to wire form.
func (s Server) ToGeneric() Generic {
	return Generic{Command: string(KindServer), Params: []string{
		s.Name, strconv.Itoa(s.HopCount), s.Description,
	}}
}

// Squit is the SQUIT command: detach a peer and its descendants.
type Squit struct {
	Server string
	Reason string
}

// SquitFromGeneric validates and extracts a SQUIT command.
func SquitFromGeneric(g Generic) (*Squit, *Error) {
	if err := validateParamsLen(g, 1, 2); err != nil {
		return nil, err
	}
	reason := ""
	if len(g.Params) == 2 {
		reason = g.Params[1]
	}
	return &Squit{Server: g.Params[0], Reason: reason}, nil
}

// ToGeneric renders Squit back to wire form.
func (s Squit) ToGeneric() Generic {
	return Generic{Command: string(KindSquit), Params: []string{s.Server, s.Reason}}
}

// Oper is the OPER command: request server-operator status.
type Oper struct {
	Username string
	Password string
}

// OperFromGeneric validates and extracts an OPER command.
func OperFromGeneric(g Generic) (*Oper, *Error) {
	if err := validateParamsLen(g, 2, 2); err != nil {
		return nil, err
	}
	return &Oper{Username: g.Params[0], Password: g.Params[1]}, nil
}

// ToGeneric renders Oper back to wire form.
func (o Oper) ToGeneric() Generic {
	return Generic{Command: string(KindOper), Params: []string{o.Username, o.Password}}
}

// Quit is the QUIT command.
type Quit struct {
	Message string
}

// QuitFromGeneric validates and extracts a QUIT command.
func QuitFromGeneric(g Generic) (*Quit, *Error) {
	msg := ""
	if len(g.Params) > 0 {
		msg = g.Params[0]
	}
	return &Quit{Message: msg}, nil
}

// ToGeneric renders Quit back to wire form.
func (q Quit) ToGeneric() Generic {
	if q.Message == "" {
		return Generic{Command: string(KindQuit)}
	}
	return Generic{Command: string(KindQuit), Params: []string{q.Message}}
}

// Ping/Pong carry a single origin/token parameter.
type Ping struct{ Token string }
type Pong struct{ Token string }

// PingFromGeneric validates and extracts a PING command.
func PingFromGeneric(g Generic) (*Ping, *Error) {
	if err := validateParamsLen(g, 1, 1); err != nil {
		return nil, err
	}
	return &Ping{Token: g.Params[0]}, nil
}

// ToGeneric renders Ping back to wire form.
func (p Ping) ToGeneric() Generic {
	return Generic{Command: string(KindPing), Params: []string{p.Token}}
}

// PongFromGeneric validates and extracts a PONG command.
func PongFromGeneric(g Generic) (*Pong, *Error) {
	if err := validateParamsLen(g, 1, 1); err != nil {
		return nil, err
	}
	return &Pong{Token: g.Params[0]}, nil
}

// ToGeneric renders Pong back to wire form.
func (p Pong) ToGeneric() Generic {
	return Generic{Command: string(KindPong), Params: []string{p.Token}}
}

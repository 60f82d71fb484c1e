package message

// Kind tags which typed command a Generic message decodes to. The
// executor dispatches on this tag with free functions; commands carry no
// behavior of their own.
type Kind string

// Client and federation command kinds. Federation-only commands (SERVER,
// SQUIT) and the prefix-carrying variants of client commands share the same
// Kind; internal/exec's three execution modes decide what's legal to see in
// which state.
const (
	KindPass    Kind = "PASS"
	KindNick    Kind = "NICK"
	KindUser    Kind = "USER"
	KindServer  Kind = "SERVER"
	KindSquit   Kind = "SQUIT"
	KindOper    Kind = "OPER"
	KindQuit    Kind = "QUIT"
	KindPing    Kind = "PING"
	KindPong    Kind = "PONG"
	KindJoin    Kind = "JOIN"
	KindPart    Kind = "PART"
	KindKick    Kind = "KICK"
	KindMode    Kind = "MODE"
	KindTopic   Kind = "TOPIC"
	KindInvite  Kind = "INVITE"
	KindNames   Kind = "NAMES"
	KindList    Kind = "LIST"
	KindWho     Kind = "WHO"
	KindWhois   Kind = "WHOIS"
	KindPrivmsg Kind = "PRIVMSG"
	KindNotice  Kind = "NOTICE"
	KindAway    Kind = "AWAY"
	KindMotd    Kind = "MOTD"
	KindLusers  Kind = "LUSERS"
)

// KindOf returns the Kind for a generic message's command token, and
// whether the command is recognized at all.
func KindOf(command string) (Kind, bool) {
	k := Kind(command)
	switch k {
	case KindPass, KindNick, KindUser, KindServer, KindSquit, KindOper,
		KindQuit, KindPing, KindPong, KindJoin, KindPart, KindKick, KindMode,
		KindTopic, KindInvite, KindNames, KindList, KindWho, KindWhois,
		KindPrivmsg, KindNotice, KindAway, KindMotd, KindLusers:
		return k, true
	default:
		return "", false
	}
}

// Replicable reports whether successful client execution of this kind of
// command should be forwarded to peers.
func (k Kind) Replicable() bool {
	switch k {
	case KindNick, KindJoin, KindPart, KindKick, KindMode, KindTopic,
		KindQuit, KindPrivmsg, KindNotice, KindOper, KindSquit, KindServer:
		return true
	default:
		return false
	}
}

// validateParamsLen is the shared bounds check every typed command's
// FromGeneric calls. max<0 means no upper bound.
func validateParamsLen(g Generic, min, max int) *Error {
	n := len(g.Params)
	if n < min || (max >= 0 && n > max) {
		return IRCError(ErrNeedMoreParams, string(g.Command)+": not enough parameters")
	}
	return nil
}

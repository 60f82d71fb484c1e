package message

import "strings"

// Privmsg is the PRIVMSG command.
type Privmsg struct {
	Targets []string
	Text    string
}

// PrivmsgFromGeneric validates and extracts a PRIVMSG command.
func PrivmsgFromGeneric(g Generic) (*Privmsg, *Error) {
	if len(g.Params) == 0 {
		return nil, IRCError(ErrNoRecipient, "PRIVMSG")
	}
	if len(g.Params) == 1 {
		return nil, IRCError(ErrNoTextToSend, "no text to send")
	}
	targets := strings.Split(g.Params[0], ",")
	if HasEmptyElement(targets) {
		return nil, IRCError(ErrNoRecipient, "empty receiver in list")
	}
	return &Privmsg{Targets: targets, Text: g.Params[1]}, nil
}

// ToGeneric renders Privmsg back to wire form.
func (p Privmsg) ToGeneric() Generic {
	return Generic{Command: string(KindPrivmsg), Params: []string{
		strings.Join(p.Targets, ","), p.Text,
	}}
}

// Notice is the NOTICE command: same shape as PRIVMSG, but errors in
// response to a NOTICE are never sent.
type Notice struct {
	Targets []string
	Text    string
}

// NoticeFromGeneric validates and extracts a NOTICE command.
func NoticeFromGeneric(g Generic) (*Notice, *Error) {
	if err := validateParamsLen(g, 2, 2); err != nil {
		return nil, err
	}
	targets := strings.Split(g.Params[0], ",")
	if HasEmptyElement(targets) {
		return nil, IRCError(ErrNoRecipient, "empty receiver in list")
	}
	return &Notice{Targets: targets, Text: g.Params[1]}, nil
}

// ToGeneric renders Notice back to wire form.
func (n Notice) ToGeneric() Generic {
	return Generic{Command: string(KindNotice), Params: []string{
		strings.Join(n.Targets, ","), n.Text,
	}}
}

// Away is the AWAY command. Message == "" clears away status.
type Away struct {
	Message string
}

// AwayFromGeneric validates and extracts an AWAY command.
func AwayFromGeneric(g Generic) (*Away, *Error) {
	msg := ""
	if len(g.Params) > 0 {
		msg = g.Params[0]
	}
	return &Away{Message: msg}, nil
}

// ToGeneric renders Away back to wire form.
func (a Away) ToGeneric() Generic {
	if a.Message == "" {
		return Generic{Command: string(KindAway)}
	}
	return Generic{Command: string(KindAway), Params: []string{a.Message}}
}

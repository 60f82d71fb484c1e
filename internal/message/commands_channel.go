package message

import "strings"

// ChannelKey pairs a channel name with its optional join key.
type ChannelKey struct {
	Channel string
	Key     string
}

// Join is the JOIN command: a CSV list of channels, each with an optional
// CSV-aligned key.
type Join struct {
	Channels []ChannelKey
}

// JoinFromGeneric validates and extracts a JOIN command.
//
// Parameters: <channel>{,<channel>} [<key>{,<key>}]
func JoinFromGeneric(g Generic) (*Join, *Error) {
	if err := validateParamsLen(g, 1, 2); err != nil {
		return nil, err
	}
	channels := splitCSL(g.Params[0])
	if len(channels) == 0 {
		return nil, IRCError(ErrNeedMoreParams, "empty channel list")
	}
	var keys []string
	if len(g.Params) == 2 {
		keys = splitCSL(g.Params[1])
	}
	var out []ChannelKey
	for i, ch := range channels {
		if !ValidChannel(ch) {
			return nil, IRCError(ErrNoSuchChannel, ch)
		}
		key := ""
		if i < len(keys) {
			key = keys[i]
		}
		out = append(out, ChannelKey{Channel: ch, Key: key})
	}
	return &Join{Channels: out}, nil
}

// ToGeneric renders Join back to wire form.
func (j Join) ToGeneric() Generic {
	chans := make([]string, len(j.Channels))
	keys := make([]string, len(j.Channels))
	anyKey := false
	for i, c := range j.Channels {
		chans[i] = c.Channel
		keys[i] = c.Key
		if c.Key != "" {
			anyKey = true
		}
	}
	params := []string{strings.Join(chans, ",")}
	if anyKey {
		params = append(params, strings.Join(keys, ","))
	}
	return Generic{Command: string(KindJoin), Params: params}
}

// Part is the PART command.
type Part struct {
	Channels []string
	Message  string
}

// PartFromGeneric validates and extracts a PART command.
func PartFromGeneric(g Generic) (*Part, *Error) {
	if err := validateParamsLen(g, 1, 2); err != nil {
		return nil, err
	}
	channels := splitCSL(g.Params[0])
	if len(channels) == 0 {
		return nil, IRCError(ErrNeedMoreParams, "empty channel list")
	}
	msg := ""
	if len(g.Params) == 2 {
		msg = g.Params[1]
	}
	return &Part{Channels: channels, Message: msg}, nil
}

// ToGeneric renders Part back to wire form.
func (p Part) ToGeneric() Generic {
	params := []string{strings.Join(p.Channels, ",")}
	if p.Message != "" {
		params = append(params, p.Message)
	}
	return Generic{Command: string(KindPart), Params: params}
}

// Kick is the KICK command.
type Kick struct {
	Channel string
	Nick    string
	Comment string
}

// KickFromGeneric validates and extracts a KICK command.
func KickFromGeneric(g Generic) (*Kick, *Error) {
	if err := validateParamsLen(g, 2, 3); err != nil {
		return nil, err
	}
	if !ValidChannel(g.Params[0]) {
		return nil, IRCError(ErrNoSuchChannel, g.Params[0])
	}
	comment := ""
	if len(g.Params) == 3 {
		comment = g.Params[2]
	}
	return &Kick{Channel: g.Params[0], Nick: g.Params[1], Comment: comment}, nil
}

// ToGeneric renders Kick back to wire form.
func (k Kick) ToGeneric() Generic {
	params := []string{k.Channel, k.Nick}
	if k.Comment != "" {
		params = append(params, k.Comment)
	}
	return Generic{Command: string(KindKick), Params: params}
}

// Mode is the MODE command, covering both channel and user mode forms.
// internal/mode owns interpreting ModeString/Args; this type only carries
// the raw target plus whatever trailed it.
type Mode struct {
	Target     string
	ModeString string
	Args       []string
}

// ModeFromGeneric validates and extracts a MODE command.
func ModeFromGeneric(g Generic) (*Mode, *Error) {
	if err := validateParamsLen(g, 1, -1); err != nil {
		return nil, err
	}
	m := &Mode{Target: g.Params[0]}
	if len(g.Params) > 1 {
		m.ModeString = g.Params[1]
		m.Args = g.Params[2:]
	}
	return m, nil
}

// ToGeneric renders Mode back to wire form.
func (m Mode) ToGeneric() Generic {
	params := []string{m.Target}
	if m.ModeString != "" {
		params = append(params, m.ModeString)
		params = append(params, m.Args...)
	}
	return Generic{Command: string(KindMode), Params: params}
}

// Topic is the TOPIC command. Text == nil means "read the current topic".
type Topic struct {
	Channel string
	Text    *string
}

// TopicFromGeneric validates and extracts a TOPIC command.
func TopicFromGeneric(g Generic) (*Topic, *Error) {
	if err := validateParamsLen(g, 1, 2); err != nil {
		return nil, err
	}
	if !ValidChannel(g.Params[0]) {
		return nil, IRCError(ErrNoSuchChannel, g.Params[0])
	}
	t := &Topic{Channel: g.Params[0]}
	if len(g.Params) == 2 {
		text := g.Params[1]
		t.Text = &text
	}
	return t, nil
}

// ToGeneric renders Topic back to wire form.
func (t Topic) ToGeneric() Generic {
	params := []string{t.Channel}
	if t.Text != nil {
		params = append(params, *t.Text)
	}
	return Generic{Command: string(KindTopic), Params: params}
}

// Invite is the INVITE command.
type Invite struct {
	Nick    string
	Channel string
}

// InviteFromGeneric validates and extracts an INVITE command.
func InviteFromGeneric(g Generic) (*Invite, *Error) {
	if err := validateParamsLen(g, 2, 2); err != nil {
		return nil, err
	}
	if !ValidChannel(g.Params[1]) {
		return nil, IRCError(ErrNoSuchChannel, g.Params[1])
	}
	return &Invite{Nick: g.Params[0], Channel: g.Params[1]}, nil
}

// ToGeneric renders Invite back to wire form.
func (i Invite) ToGeneric() Generic {
	return Generic{Command: string(KindInvite), Params: []string{i.Nick, i.Channel}}
}

// Names is the NAMES command. Empty Channels means "all channels".
type Names struct {
	Channels []string
}

// NamesFromGeneric validates and extracts a NAMES command.
func NamesFromGeneric(g Generic) (*Names, *Error) {
	if len(g.Params) == 0 {
		return &Names{}, nil
	}
	return &Names{Channels: splitCSL(g.Params[0])}, nil
}

// ToGeneric renders Names back to wire form.
func (n Names) ToGeneric() Generic {
	if len(n.Channels) == 0 {
		return Generic{Command: string(KindNames)}
	}
	return Generic{Command: string(KindNames), Params: []string{strings.Join(n.Channels, ",")}}
}

// List is the LIST command. Empty Channels means "all channels".
type List struct {
	Channels []string
}

// ListFromGeneric validates and extracts a LIST command.
func ListFromGeneric(g Generic) (*List, *Error) {
	if len(g.Params) == 0 {
		return &List{}, nil
	}
	return &List{Channels: splitCSL(g.Params[0])}, nil
}

// ToGeneric renders List back to wire form.
func (l List) ToGeneric() Generic {
	if len(l.Channels) == 0 {
		return Generic{Command: string(KindList)}
	}
	return Generic{Command: string(KindList), Params: []string{strings.Join(l.Channels, ",")}}
}

// Who is the WHO command.
type Who struct {
	Mask string
}

// WhoFromGeneric validates and extracts a WHO command.
func WhoFromGeneric(g Generic) (*Who, *Error) {
	if len(g.Params) == 0 {
		return &Who{}, nil
	}
	return &Who{Mask: g.Params[0]}, nil
}

// ToGeneric renders Who back to wire form.
func (w Who) ToGeneric() Generic {
	if w.Mask == "" {
		return Generic{Command: string(KindWho)}
	}
	return Generic{Command: string(KindWho), Params: []string{w.Mask}}
}

// Whois is the WHOIS command.
type Whois struct {
	Nicks []string
}

// WhoisFromGeneric validates and extracts a WHOIS command.
func WhoisFromGeneric(g Generic) (*Whois, *Error) {
	if err := validateParamsLen(g, 1, 2); err != nil {
		return nil, err
	}
	// Accept either "WHOIS nick" or "WHOIS server nick"; we only federate a
	// single local server so the mask parameter (if present) is the nick list.
	target := g.Params[len(g.Params)-1]
	return &Whois{Nicks: splitCSL(target)}, nil
}

// ToGeneric renders Whois back to wire form.
func (w Whois) ToGeneric() Generic {
	return Generic{Command: string(KindWhois), Params: []string{strings.Join(w.Nicks, ",")}}
}

// splitCSL splits a comma-separated list. An empty element anywhere
// makes the list malformed; callers that need to reject it check for a ""
// entry in the result.
func splitCSL(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

// HasEmptyElement reports whether a split CSL contains a malformed empty
// entry.
func HasEmptyElement(items []string) bool {
	for _, item := range items {
		if item == "" {
			return true
		}
	}
	return false
}

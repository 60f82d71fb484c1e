// Package mode implements the channel and user mode algebra: bitmask
// flags, per-letter argument arity, and parsing of a MODE command's
// mode-string into a sequence of add/remove actions.
package mode

import "github.com/catboxd/ircd/internal/message"

// Channel mode bitmasks.
const (
	ChanOperator uint32 = 1 << iota // not a persistent flag; tracked per-member instead
	ChanPrivate
	ChanSecret
	ChanInviteOnly
	ChanTopicOpsOnly
	ChanNoMsgOutside
	ChanModerated
	ChanLimit
	ChanVoice // not a persistent channel flag; tracked per-member instead
	ChanKey
)

// User mode bitmasks.
const (
	UserInvisible uint32 = 1 << iota
	UserServerNotices
	UserOperator
)

// letterToChanFlag maps a channel mode letter to its bitmask, for the
// letters that are genuinely persistent channel-wide flags. 'o' and 'v' are
// per-member and handled separately by the caller since they carry a nick
// argument rather than toggling a channel-wide bit.
var letterToChanFlag = map[byte]uint32{
	'p': ChanPrivate,
	's': ChanSecret,
	'i': ChanInviteOnly,
	't': ChanTopicOpsOnly,
	'n': ChanNoMsgOutside,
	'm': ChanModerated,
	'l': ChanLimit,
	'k': ChanKey,
}

var letterToUserFlag = map[byte]uint32{
	'i': UserInvisible,
	's': UserServerNotices,
	'o': UserOperator,
}

// channelArgArity reports whether a channel mode letter consumes an
// argument, and whether it needs one only when being added (+) versus both
// directions.
//
//	0 = never takes an argument
//	1 = takes an argument when adding, never when removing (l, k)
//	2 = always takes an argument (o, v)
func channelArgArity(letter byte) int {
	switch letter {
	case 'l', 'k':
		return 1
	case 'o', 'v':
		return 2
	default:
		return 0
	}
}

// Action is a single parsed mode change: Add=false means removal.
type Action struct {
	Add    bool
	Letter byte
	Arg    string
}

// IsChannelMember reports whether the letter is 'o' or 'v': per-member
// modes that carry a nick argument rather than toggling a channel bit.
func (a Action) IsChannelMember() bool {
	return a.Letter == 'o' || a.Letter == 'v'
}

// ChannelFlag returns the bitmask for a channel-wide (non-member) letter,
// and whether the letter is recognized as such.
func ChannelFlag(letter byte) (uint32, bool) {
	f, ok := letterToChanFlag[letter]
	return f, ok
}

// UserFlag returns the bitmask for a user mode letter, and whether the
// letter is recognized.
func UserFlag(letter byte) (uint32, bool) {
	f, ok := letterToUserFlag[letter]
	return f, ok
}

// ParseChannel parses a channel MODE string ("+nt-l", etc.) plus its
// trailing arguments into a sequence of Actions. Unknown letters yield
// message.IRCError(ErrUnknownMode).
func ParseChannel(modeString string, args []string) ([]Action, *message.Error) {
	return parse(modeString, args, func(b byte) bool {
		if _, ok := letterToChanFlag[b]; ok {
			return true
		}
		return b == 'o' || b == 'v'
	}, func(add bool, b byte) int {
		arity := channelArgArity(b)
		if arity == 2 {
			return 1
		}
		if arity == 1 && add {
			return 1
		}
		return 0
	})
}

// ParseUser parses a user MODE string ("+i-s") into a sequence of Actions.
// None of the user mode letters take arguments.
func ParseUser(modeString string) ([]Action, *message.Error) {
	return parse(modeString, nil, func(b byte) bool {
		_, ok := letterToUserFlag[b]
		return ok
	}, func(add bool, b byte) int {
		return 0
	})
}

// parse walks a "+xy-z" mode string, consuming arguments from args in order
// per needsArg(add, letter).
func parse(modeString string, args []string, known func(byte) bool, needsArg func(add bool, letter byte) int) ([]Action, *message.Error) {
	var actions []Action
	add := true
	argIdx := 0
	sawSign := false

	for i := 0; i < len(modeString); i++ {
		c := modeString[i]
		switch c {
		case '+':
			add = true
			sawSign = true
			continue
		case '-':
			add = false
			sawSign = true
			continue
		}
		if !sawSign {
			// Mode strings normally begin with a sign; treat a bare leading
			// letter as implicitly additive.
			add = true
		}
		if !known(c) {
			return nil, message.IRCError(message.ErrUnknownMode, string(c))
		}
		arg := ""
		if needsArg(add, c) == 1 {
			if argIdx < len(args) {
				arg = args[argIdx]
				argIdx++
			}
		}
		actions = append(actions, Action{Add: add, Letter: c, Arg: arg})
	}
	return actions, nil
}

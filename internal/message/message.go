// Package message implements the wire grammar: turning raw bytes into a
// generic (prefix, command, params) triple and back, plus the per-command
// typed views executor code actually wants to work with.
//
// Parsing reports failures through the typed Error variants so callers
// can turn a violation directly into a wire reply. Encoding delegates to
// github.com/horgh/irc's Message.Encode, whose truncation-aware assembly
// there is no behavioral reason to duplicate.
package message

import (
	"fmt"
	"strings"

	"github.com/horgh/irc"
)

// MaxLineOctets is the maximum number of octets a line may contain before
// the terminating CRLF.
const MaxLineOctets = 510

// MaxParams is the maximum number of parameters a message may carry (RFC
// 1459/2812).
const MaxParams = 15

// Generic is a parsed protocol line with no command-specific validation
// applied yet.
type Generic struct {
	Prefix  string
	Command string
	Params  []string
}

func (m Generic) String() string {
	return fmt.Sprintf("prefix=%q command=%q params=%q", m.Prefix, m.Command, m.Params)
}

// IsNumeric reports whether Command is a 3-digit numeric reply code.
func (m Generic) IsNumeric() bool {
	return IsNumericCommand(m.Command)
}

// IsNumericCommand reports whether a command token is a 3-digit numeric.
func IsNumericCommand(command string) bool {
	if len(command) != 3 {
		return false
	}
	for _, b := range []byte(command) {
		if b < '0' || b > '9' {
			return false
		}
	}
	return true
}

// ParseLine parses a single CRLF-terminated (or bare-LF) line into a Generic
// message.
//
// Grammar (RFC 1459 section 2.3.1):
//
//	message = [ ":" prefix SPACE ] command [ params ] crlf
//	prefix  = servername / ( nickname [ [ "!" user ] "@" host ] )
//	command = 1*letter / 3digit
//	params  = *14( SPACE middle ) [ SPACE ":" trailing ]
func ParseLine(line string) (Generic, *Error) {
	if len(line) == 0 {
		return Generic{}, newError(EmptyMessage, "")
	}

	payload, err := stripLineEnding(line)
	if err != nil {
		return Generic{}, newError(InvalidFormat, err.Error())
	}

	if len(payload) > MaxLineOctets {
		return Generic{}, newError(MessageTooLong, fmt.Sprintf("%d octets", len(payload)))
	}
	if len(payload) == 0 {
		return Generic{}, newError(EmptyMessage, "")
	}

	var msg Generic
	index := 0

	if payload[0] == ':' {
		prefix, next, perr := parsePrefix(payload)
		if perr != nil {
			return Generic{}, newError(InvalidFormat, perr.Error())
		}
		msg.Prefix = prefix
		index = next
		if index >= len(payload) {
			return Generic{}, newError(InvalidFormat, "prefix only")
		}
	}

	command, index, cerr := parseCommand(payload, index)
	if cerr != nil {
		return Generic{}, newError(InvalidCommand, cerr.Error())
	}
	msg.Command = command

	params, perr := parseParams(payload, index)
	if perr != nil {
		return Generic{}, newError(InvalidFormat, perr.Error())
	}
	if len(params) > MaxParams {
		return Generic{}, newError(TooManyParams, fmt.Sprintf("%d", len(params)))
	}
	msg.Params = params

	return msg, nil
}

// stripLineEnding removes a trailing CRLF or bare LF, returning the
// payload before it. Callers already split on newlines upstream
// (bufio.Scanner/ReadString), so what remains here is just the octets
// before the line terminator.
func stripLineEnding(line string) (string, error) {
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, nil
}

func parsePrefix(line string) (string, int, error) {
	pos := 0
	for pos < len(line) {
		if line[pos] == ' ' {
			break
		}
		if line[pos] == '\x00' || line[pos] == '\r' || line[pos] == '\n' {
			return "", -1, fmt.Errorf("invalid character in prefix: %q", line[pos])
		}
		pos++
	}
	if pos == len(line) {
		return "", -1, fmt.Errorf("no space after prefix")
	}
	if pos == 1 {
		return "", -1, fmt.Errorf("empty prefix")
	}
	return line[1:pos], pos + 1, nil
}

func parseCommand(line string, index int) (string, int, error) {
	start := index
	for index < len(line) {
		c := line[index]
		isDigit := c >= '0' && c <= '9'
		isLetter := (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
		if isDigit || isLetter {
			index++
			continue
		}
		if c != ' ' {
			return "", -1, fmt.Errorf("unexpected character after command: %q", c)
		}
		break
	}
	if index == start {
		return "", -1, fmt.Errorf("zero length command")
	}
	return strings.ToUpper(line[start:index]), index, nil
}

func parseParams(line string, index int) ([]string, error) {
	var params []string

	for index < len(line) {
		if line[index] != ' ' {
			return nil, fmt.Errorf("unexpected character %q where space expected", line[index])
		}
		index++
		if index >= len(line) {
			// Trailing space with nothing after it: treat as end, RFC-strictness
			// aside plenty of real clients send this.
			return params, nil
		}

		if line[index] == ':' {
			params = append(params, line[index+1:])
			return params, nil
		}

		start := index
		for index < len(line) && line[index] != ' ' {
			if line[index] == '\x00' {
				return nil, fmt.Errorf("NUL in parameter")
			}
			index++
		}
		if start == index {
			continue
		}
		params = append(params, line[start:index])
	}

	return params, nil
}

// Encode renders the message back to wire form, terminated with CRLF, by
// delegating to irc.Message.Encode: the last parameter is prefixed
// with ':' whenever it contains a space, begins with ':', or is empty, so
// the round trip is lossless for the cases ParseLine can produce.
func (m Generic) Encode() (string, *Error) {
	line, err := irc.Message{Prefix: m.Prefix, Command: m.Command, Params: m.Params}.Encode()
	if err == nil {
		return line, nil
	}
	if err == irc.ErrTruncated {
		return "", newError(MessageTooLong, fmt.Sprintf("%d octets", len(line)))
	}
	return "", newError(InvalidFormat, err.Error())
}

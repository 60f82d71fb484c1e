package message

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantErr   bool
		expectErr ErrorKind
		prefix    string
		command   string
		params    []string
	}{
		{
			name:    "simple command",
			input:   "NICK alice\r\n",
			command: "NICK",
			params:  []string{"alice"},
		},
		{
			name:    "prefixed with trailing",
			input:   ":alice!a@host PRIVMSG #chan :hello there\r\n",
			prefix:  "alice!a@host",
			command: "PRIVMSG",
			params:  []string{"#chan", "hello there"},
		},
		{
			name:    "bare LF terminator",
			input:   "PING :token\n",
			command: "PING",
			params:  []string{"token"},
		},
		{
			name:      "empty line",
			input:     "\r\n",
			wantErr:   true,
			expectErr: EmptyMessage,
		},
		{
			name:      "too many params",
			input:     "PRIVMSG 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15 16\r\n",
			wantErr:   true,
			expectErr: TooManyParams,
		},
		{
			name:      "too long",
			input:     fmt.Sprint("PRIVMSG #c :", strings.Repeat("a", MaxLineOctets), "\r\n"),
			wantErr:   true,
			expectErr: MessageTooLong,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := ParseLine(tt.input)
			if tt.wantErr {
				require.NotNil(t, err)
				assert.Equal(t, tt.expectErr, err.Kind)
				return
			}
			require.Nil(t, err)
			assert.Equal(t, tt.prefix, g.Prefix)
			assert.Equal(t, tt.command, g.Command)
			assert.Equal(t, tt.params, g.Params)
		})
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	g := Generic{Command: "PRIVMSG", Params: []string{"#chan", "hello there"}}
	line, err := g.Encode()
	require.Nil(t, err)
	assert.Equal(t, "PRIVMSG #chan :hello there\r\n", line)

	decoded, perr := ParseLine(line)
	require.Nil(t, perr)
	assert.Equal(t, g.Command, decoded.Command)
	assert.Equal(t, g.Params, decoded.Params)
}

func TestJoinRoundTrip(t *testing.T) {
	g, err := ParseLine("JOIN #a,#b secret1,secret2\r\n")
	require.Nil(t, err)
	j, jerr := JoinFromGeneric(g)
	require.Nil(t, jerr)
	require.Len(t, j.Channels, 2)
	assert.Equal(t, "#a", j.Channels[0].Channel)
	assert.Equal(t, "secret1", j.Channels[0].Key)
	assert.Equal(t, "#b", j.Channels[1].Channel)
	assert.Equal(t, "secret2", j.Channels[1].Key)
}

func TestPrivmsgNoTextToSend(t *testing.T) {
	g, err := ParseLine("PRIVMSG #chan\r\n")
	require.Nil(t, err)
	_, perr := PrivmsgFromGeneric(g)
	require.NotNil(t, perr)
	assert.Equal(t, ErrNoTextToSend, perr.Code)
}

func TestValidNick(t *testing.T) {
	assert.True(t, ValidNick("alice"))
	assert.True(t, ValidNick("a-lice`"))
	assert.False(t, ValidNick("1alice"))
	assert.False(t, ValidNick(""))
}

func TestValidChannel(t *testing.T) {
	assert.True(t, ValidChannel("#general"))
	assert.True(t, ValidChannel("&local"))
	assert.False(t, ValidChannel("general"))
	assert.False(t, ValidChannel("#has space"))
}

func TestParseLineLengthBoundary(t *testing.T) {
	// "PING :" is 6 octets; pad the trailing parameter to land exactly on
	// the limit.
	payload := "PING :" + strings.Repeat("a", MaxLineOctets-6)
	require.Len(t, payload, MaxLineOctets)

	_, err := ParseLine(payload + "\r\n")
	assert.Nil(t, err, "a %d-octet line must parse", MaxLineOctets)

	_, err = ParseLine(payload + "a\r\n")
	require.NotNil(t, err)
	assert.Equal(t, MessageTooLong, err.Kind)
}

func TestValidHostnameLabelBoundaries(t *testing.T) {
	label63 := strings.Repeat("a", 63)
	assert.True(t, ValidHostname(label63))
	assert.False(t, ValidHostname(label63+"a"))

	host253 := label63 + "." + label63 + "." + label63 + "." + strings.Repeat("a", 61)
	require.Len(t, host253, 253)
	assert.True(t, ValidHostname(host253))
	assert.False(t, ValidHostname(host253+"a"))

	assert.True(t, ValidHostname("irc.example.org:6667"))
	assert.True(t, ValidHostname("[irc.example.org]:6667"))
	assert.False(t, ValidHostname(""))
}

func TestPrivmsgEmptyReceiverElementMalformed(t *testing.T) {
	g, err := ParseLine("PRIVMSG alice,,bob :hi\r\n")
	require.Nil(t, err)
	_, perr := PrivmsgFromGeneric(g)
	require.NotNil(t, perr)
	assert.Equal(t, ErrNoRecipient, perr.Code)
}

func TestModeRoundTrip(t *testing.T) {
	g, err := ParseLine("MODE #chan +ol alice 25\r\n")
	require.Nil(t, err)
	m, merr := ModeFromGeneric(g)
	require.Nil(t, merr)
	assert.Equal(t, "#chan", m.Target)
	assert.Equal(t, "+ol", m.ModeString)
	assert.Equal(t, []string{"alice", "25"}, m.Args)

	line, eerr := m.ToGeneric().Encode()
	require.Nil(t, eerr)
	reparsed, perr := ParseLine(line)
	require.Nil(t, perr)
	m2, merr := ModeFromGeneric(reparsed)
	require.Nil(t, merr)
	assert.Equal(t, m, m2)
}

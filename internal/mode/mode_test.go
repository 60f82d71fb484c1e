package mode

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseChannel(t *testing.T) {
	tests := []struct {
		name       string
		modeString string
		args       []string
		expected   []Action
	}{
		{
			name:       "add topic-ops-only and no-msg-outside",
			modeString: "+tn",
			expected:   []Action{{Add: true, Letter: 't'}, {Add: true, Letter: 'n'}},
		},
		{
			name:       "remove limit, no argument consumed",
			modeString: "-l",
			expected:   []Action{{Add: false, Letter: 'l'}},
		},
		{
			name:       "set limit takes an argument",
			modeString: "+l",
			args:       []string{"50"},
			expected:   []Action{{Add: true, Letter: 'l', Arg: "50"}},
		},
		{
			name:       "grant op takes a nick",
			modeString: "+o",
			args:       []string{"alice"},
			expected:   []Action{{Add: true, Letter: 'o', Arg: "alice"}},
		},
		{
			name:       "mixed signs",
			modeString: "+o-v",
			args:       []string{"alice", "bob"},
			expected: []Action{
				{Add: true, Letter: 'o', Arg: "alice"},
				{Add: false, Letter: 'v', Arg: "bob"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actions, err := ParseChannel(tt.modeString, tt.args)
			require.Nil(t, err)
			assert.Equal(t, tt.expected, actions)
		})
	}
}

func TestParseChannelUnknownLetter(t *testing.T) {
	_, err := ParseChannel("+z", nil)
	require.NotNil(t, err)
	assert.Equal(t, "z", err.Detail)
}

func TestParseUser(t *testing.T) {
	actions, err := ParseUser("+i-s")
	require.Nil(t, err)
	assert.Equal(t, []Action{
		{Add: true, Letter: 'i'},
		{Add: false, Letter: 's'},
	}, actions)
}

func TestIsChannelMember(t *testing.T) {
	assert.True(t, Action{Letter: 'o'}.IsChannelMember())
	assert.True(t, Action{Letter: 'v'}.IsChannelMember())
	assert.False(t, Action{Letter: 't'}.IsChannelMember())
}

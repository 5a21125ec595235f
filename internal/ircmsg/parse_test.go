package ircmsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_Basic(t *testing.T) {
	testCases := []struct {
		name    string
		raw     string
		source  string
		command string
		params  []string
	}{
		{"ping trailing", "PING :abc", "", "PING", []string{"abc"}},
		{"privmsg", ":nick!user@host PRIVMSG #chan :hello world", "nick!user@host", "PRIVMSG", []string{"#chan", "hello world"}},
		{"numeric", ":irc.example.net 001 me :Welcome", "irc.example.net", "001", []string{"me", "Welcome"}},
		{"no params", "QUIT", "", "QUIT", nil},
		{"lowercase command", "ping :x", "", "PING", []string{"x"}},
		{"empty trailing", "TOPIC #c :", "", "TOPIC", []string{"#c", ""}},
		{"colon inside trailing", "PRIVMSG #c :a :b", "", "PRIVMSG", []string{"#c", "a :b"}},
		{"extra spaces", "MODE  #c   +o  nick", "", "MODE", []string{"#c", "+o", "nick"}},
		{"carriage return stripped", "PING :abc\r", "", "PING", []string{"abc"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := Parse([]byte(tc.raw))
			require.NoError(t, err)
			assert.Equal(t, tc.source, msg.Source)
			assert.Equal(t, tc.command, msg.Command)
			assert.Equal(t, tc.params, msg.Params)
		})
	}
}

func TestParse_Tags(t *testing.T) {
	msg, err := Parse([]byte(`@time=2024-01-01T00:00:00Z;msgid=abc;+draft/flag;note=a\sb\:c\\d :n!u@h PRIVMSG #c :hi`))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"time":        "2024-01-01T00:00:00Z",
		"msgid":       "abc",
		"+draft/flag": "",
		"note":        `a b;c\d`,
	}, msg.Tags)
	assert.Equal(t, "PRIVMSG", msg.Command)
}

func TestParse_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
	}{
		{"empty", ""},
		{"only spaces", "   "},
		{"tags only", "@a=b"},
		{"source only", ":nick!user@host"},
		{"source then spaces", ":nick "},
		{"bad command", "PR1VMSG #c :x"},
		{"two digit numeric", "01 me"},
		{"nul byte", "PRIVMSG #c :a\x00b"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse([]byte(tc.raw))
			require.Error(t, err)
			var pe *ParseError
			assert.ErrorAs(t, err, &pe)
		})
	}
}

func TestParse_Latin1Fallback(t *testing.T) {
	// "café" with é encoded as Windows-1252 0xE9
	msg, err := Parse([]byte("PRIVMSG #c :caf\xe9"))
	require.NoError(t, err)

	assert.Equal(t, "café", msg.Trailing())
}

func TestMessage_Field(t *testing.T) {
	msg, err := Parse([]byte("@account=bob :bob!b@host PRIVMSG #go :hello there"))
	require.NoError(t, err)

	testCases := []struct {
		field string
		want  string
		ok    bool
	}{
		{"command", "PRIVMSG", true},
		{"source", "bob!b@host", true},
		{"nick", "bob", true},
		{"param0", "#go", true},
		{"param1", "hello there", true},
		{"param2", "", false},
		{"paramx", "", false},
		{"trailing", "hello there", true},
		{"tag:account", "bob", true},
		{"tag:missing", "", false},
		{"unknown", "", false},
	}

	for _, tc := range testCases {
		t.Run(tc.field, func(t *testing.T) {
			got, ok := msg.Field(tc.field)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestMessage_FieldWithoutSource(t *testing.T) {
	msg, err := Parse([]byte("PING"))
	require.NoError(t, err)

	_, ok := msg.Field("source")
	assert.False(t, ok)
	_, ok = msg.Field("nick")
	assert.False(t, ok)
	_, ok = msg.Field("trailing")
	assert.False(t, ok)
}

func TestMessage_NickForms(t *testing.T) {
	assert.Equal(t, "n", (&Message{Source: "n!u@h"}).Nick())
	assert.Equal(t, "n", (&Message{Source: "n@h"}).Nick())
	assert.Equal(t, "irc.example.net", (&Message{Source: "irc.example.net"}).Nick())
	assert.Equal(t, "", (&Message{}).Nick())
}

func TestKnownField(t *testing.T) {
	for _, name := range []string{"command", "source", "nick", "trailing", "param0", "param12", "tag:msgid"} {
		assert.True(t, KnownField(name), name)
	}
	for _, name := range []string{"", "cmd", "param", "param-1", "paramx", "tag:", "Command"} {
		assert.False(t, KnownField(name), name)
	}
}

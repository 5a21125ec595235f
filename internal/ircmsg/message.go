package ircmsg

import (
	"strconv"
	"strings"
)

// Message is a parsed IRC line.
type Message struct {
	// Tags holds IRCv3 message tags with values unescaped.
	// A tag sent without a value maps to "".
	Tags map[string]string

	// Source is the prefix without the leading ':' (e.g. "nick!user@host").
	Source string

	// Command is the upper-cased command or three-digit numeric.
	Command string

	// Params holds the middle params followed by the trailing param, if any.
	Params []string
}

// New creates a message with the given command and params.
func New(command string, params ...string) *Message {
	return &Message{Command: command, Params: params}
}

// Nick returns the nickname part of the source, or "" without a source.
func (m *Message) Nick() string {
	nick := m.Source
	if i := strings.IndexAny(nick, "!@"); i >= 0 {
		nick = nick[:i]
	}
	return nick
}

// Param returns params[i], or "" when out of range.
func (m *Message) Param(i int) string {
	if i < 0 || i >= len(m.Params) {
		return ""
	}
	return m.Params[i]
}

// Trailing returns the last param, or "" without params.
func (m *Message) Trailing() string {
	if len(m.Params) == 0 {
		return ""
	}
	return m.Params[len(m.Params)-1]
}

// Field exposes message parts to engine match specs.
//
// Supported names:
//   - command, source, nick, trailing
//   - param0 ... paramN
//   - tag:<name>
//
// Field reports false for absent parts: no source, a param index beyond
// the params, an unknown tag or an unknown name.
func (m *Message) Field(name string) (string, bool) {
	switch name {
	case "command":
		return m.Command, true
	case "source":
		return m.Source, m.Source != ""
	case "nick":
		return m.Nick(), m.Source != ""
	case "trailing":
		return m.Trailing(), len(m.Params) > 0
	}

	if tag, ok := strings.CutPrefix(name, "tag:"); ok {
		v, ok := m.Tags[tag]
		return v, ok
	}

	if idx, ok := strings.CutPrefix(name, "param"); ok {
		i, err := strconv.Atoi(idx)
		if err != nil || i < 0 || i >= len(m.Params) {
			return "", false
		}
		return m.Params[i], true
	}

	return "", false
}

// KnownField reports whether name is a field Field can resolve.
func KnownField(name string) bool {
	switch name {
	case "command", "source", "nick", "trailing":
		return true
	}
	if tag, ok := strings.CutPrefix(name, "tag:"); ok {
		return tag != ""
	}
	if idx, ok := strings.CutPrefix(name, "param"); ok {
		i, err := strconv.Atoi(idx)
		return err == nil && i >= 0
	}
	return false
}

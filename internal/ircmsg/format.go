package ircmsg

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrEmptyCommand is returned by Format for a message without a command.
var ErrEmptyCommand = errors.New("message has no command")

// Format renders m in wire form without a line delimiter.
//
// Tags are emitted in sorted key order. The last param is prefixed with
// ':' when it is empty, contains a space or starts with ':'. Other params
// must be non-empty single tokens. CR, LF and NUL are rejected everywhere.
func Format(m *Message) ([]byte, error) {
	if m.Command == "" {
		return nil, ErrEmptyCommand
	}
	if err := checkToken("command", m.Command); err != nil {
		return nil, err
	}

	var b strings.Builder

	if len(m.Tags) > 0 {
		keys := make([]string, 0, len(m.Tags))
		for k := range m.Tags {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		b.WriteByte('@')
		for i, k := range keys {
			if i > 0 {
				b.WriteByte(';')
			}
			b.WriteString(k)
			if v := m.Tags[k]; v != "" {
				b.WriteByte('=')
				b.WriteString(escapeTag(v))
			}
		}
		b.WriteByte(' ')
	}

	if m.Source != "" {
		if err := checkToken("source", m.Source); err != nil {
			return nil, err
		}
		b.WriteByte(':')
		b.WriteString(m.Source)
		b.WriteByte(' ')
	}

	b.WriteString(m.Command)

	for i, p := range m.Params {
		if strings.ContainsAny(p, "\r\n\x00") {
			return nil, fmt.Errorf("param %d contains a line break or NUL", i)
		}
		b.WriteByte(' ')
		last := i == len(m.Params)-1
		if last && (p == "" || strings.Contains(p, " ") || strings.HasPrefix(p, ":")) {
			b.WriteByte(':')
			b.WriteString(p)
			continue
		}
		if p == "" || strings.Contains(p, " ") || strings.HasPrefix(p, ":") {
			return nil, fmt.Errorf("param %d %q must be a single non-empty token", i, p)
		}
		b.WriteString(p)
	}

	return []byte(b.String()), nil
}

func checkToken(what, s string) error {
	if strings.ContainsAny(s, " \r\n\x00") {
		return fmt.Errorf("%s %q contains whitespace or NUL", what, s)
	}
	return nil
}

func escapeTag(v string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		";", `\:`,
		" ", `\s`,
		"\r", `\r`,
		"\n", `\n`,
	)
	return r.Replace(v)
}

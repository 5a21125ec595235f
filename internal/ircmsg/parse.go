package ircmsg

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// ParseError reports a line the tokenizer cannot make sense of.
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("malformed IRC line: %s", e.Reason)
}

// Parse tokenizes one raw IRC line (delimiter excluded).
//
// A single trailing '\r' is stripped so '\n'-delimited streams parse as
// well. Lines that are not valid UTF-8 are decoded as Windows-1252, the
// encoding legacy clients most often send. The command is upper-cased.
func Parse(raw []byte) (*Message, error) {
	raw = bytes.TrimSuffix(raw, []byte("\r"))

	if bytes.IndexByte(raw, 0) >= 0 {
		return nil, &ParseError{Reason: "contains NUL byte"}
	}
	if !utf8.Valid(raw) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(raw)
		if err != nil {
			return nil, &ParseError{Reason: fmt.Sprintf("undecodable bytes: %v", err)}
		}
		raw = decoded
	}

	s := strings.TrimLeft(string(raw), " ")
	if s == "" {
		return nil, &ParseError{Reason: "empty line"}
	}

	msg := &Message{}

	if s[0] == '@' {
		tags, rest, ok := strings.Cut(s[1:], " ")
		if !ok {
			return nil, &ParseError{Reason: "tags without command"}
		}
		msg.Tags = parseTags(tags)
		s = strings.TrimLeft(rest, " ")
	}

	if strings.HasPrefix(s, ":") {
		source, rest, ok := strings.Cut(s[1:], " ")
		if !ok || source == "" {
			return nil, &ParseError{Reason: "source without command"}
		}
		msg.Source = source
		s = strings.TrimLeft(rest, " ")
	}

	command, rest, _ := strings.Cut(s, " ")
	if command == "" {
		return nil, &ParseError{Reason: "missing command"}
	}
	if !validCommand(command) {
		return nil, &ParseError{Reason: fmt.Sprintf("invalid command %q", command)}
	}
	msg.Command = strings.ToUpper(command)

	for {
		rest = strings.TrimLeft(rest, " ")
		if rest == "" {
			break
		}
		if rest[0] == ':' {
			msg.Params = append(msg.Params, rest[1:])
			break
		}
		var param string
		param, rest, _ = strings.Cut(rest, " ")
		msg.Params = append(msg.Params, param)
	}

	return msg, nil
}

// validCommand accepts letters only, or exactly three digits.
func validCommand(c string) bool {
	if len(c) == 3 && isDigit(c[0]) && isDigit(c[1]) && isDigit(c[2]) {
		return true
	}
	for i := 0; i < len(c); i++ {
		ch := c[i]
		if !(ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z') {
			return false
		}
	}
	return true
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }

func parseTags(s string) map[string]string {
	tags := make(map[string]string)
	for _, part := range strings.Split(s, ";") {
		if part == "" {
			continue
		}
		key, value, _ := strings.Cut(part, "=")
		if key == "" {
			continue
		}
		tags[key] = unescapeTag(value)
	}
	return tags
}

func unescapeTag(v string) string {
	if !strings.Contains(v, `\`) {
		return v
	}
	var b strings.Builder
	for i := 0; i < len(v); i++ {
		if v[i] != '\\' {
			b.WriteByte(v[i])
			continue
		}
		i++
		if i >= len(v) {
			// a lone trailing backslash is dropped
			break
		}
		switch v[i] {
		case ':':
			b.WriteByte(';')
		case 's':
			b.WriteByte(' ')
		case 'r':
			b.WriteByte('\r')
		case 'n':
			b.WriteByte('\n')
		default:
			b.WriteByte(v[i])
		}
	}
	return b.String()
}

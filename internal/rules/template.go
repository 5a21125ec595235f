package rules

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/ircevents/internal/ircmsg"
)

// Template is a parsed reply template.
//
// The template text is split into IRC words when it is parsed, not when
// it is expanded: the first word is the command, later words are middle
// params and a word starting with ':' opens the trailing param. A field
// value always lands inside the word its placeholder sits in, whatever
// spaces or colons it contains.
type Template struct {
	src      string
	command  segment
	params   []segment
	trailing segment
	hasTrail bool
}

type templatePart struct {
	literal string
	field   string // empty for literal parts
}

// segment is one IRC word made of literals and placeholders.
type segment []templatePart

// lineBreaks replaces bytes a peer may smuggle into a field value but
// that can never appear inside an outbound param.
var lineBreaks = strings.NewReplacer("\r", " ", "\n", " ", "\x00", " ")

// ParseTemplate parses a reply template. Placeholders are {field} where
// field is a name ircmsg.KnownField accepts.
func ParseTemplate(src string) (Template, error) {
	if strings.ContainsAny(src, "\r\n\x00") {
		return Template{}, fmt.Errorf("template contains a line break or NUL")
	}
	parts, err := parseParts(src)
	if err != nil {
		return Template{}, err
	}

	t := Template{src: src}
	words, trailing, hasTrail := splitWords(parts)
	if len(words) == 0 {
		return Template{}, fmt.Errorf("template has no command")
	}
	if first := words[0][0]; first.field == "" && (first.literal[0] == ':' || first.literal[0] == '@') {
		return Template{}, fmt.Errorf("reply templates cannot carry a source or tags")
	}
	t.command = words[0]
	t.params = words[1:]
	t.trailing = trailing
	t.hasTrail = hasTrail
	return t, nil
}

// parseParts splits src into literals and validated placeholders.
func parseParts(src string) ([]templatePart, error) {
	var parts []templatePart
	rest := src
	for rest != "" {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			parts = append(parts, templatePart{literal: rest})
			break
		}
		if open > 0 {
			parts = append(parts, templatePart{literal: rest[:open]})
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return nil, fmt.Errorf("unclosed placeholder at offset %d", len(src)-len(rest)+open)
		}
		name := rest[open+1 : open+end]
		if !ircmsg.KnownField(name) {
			return nil, fmt.Errorf("unknown field %q", name)
		}
		parts = append(parts, templatePart{field: name})
		rest = rest[open+end+1:]
	}
	return parts, nil
}

// splitWords groups parts into space-separated words. A ':' opening any
// word after the command starts the trailing segment, which runs to the
// end of the template.
func splitWords(parts []templatePart) (words []segment, trailing segment, hasTrail bool) {
	var cur segment
	flush := func() {
		if len(cur) > 0 {
			words = append(words, cur)
			cur = nil
		}
	}

	for i, p := range parts {
		if p.field != "" {
			cur = append(cur, p)
			continue
		}
		lit := p.literal
		for j := 0; j < len(lit); j++ {
			switch {
			case lit[j] == ' ':
				flush()
			case lit[j] == ':' && len(cur) == 0 && len(words) > 0:
				trailing = segment{}
				if rest := lit[j+1:]; rest != "" {
					trailing = append(trailing, templatePart{literal: rest})
				}
				trailing = append(trailing, parts[i+1:]...)
				return words, trailing, true
			default:
				cur = cur.appendLiteral(lit[j : j+1])
			}
		}
	}
	flush()
	return words, nil, false
}

func (s segment) appendLiteral(lit string) segment {
	if n := len(s); n > 0 && s[n-1].field == "" {
		s[n-1].literal += lit
		return s
	}
	return append(s, templatePart{literal: lit})
}

// expand renders the segment. Absent fields expand to "" and CR, LF and
// NUL inside values become spaces.
func (s segment) expand(line *ircmsg.Message) string {
	var b strings.Builder
	for _, p := range s {
		if p.field == "" {
			b.WriteString(p.literal)
			continue
		}
		v, _ := line.Field(p.field)
		b.WriteString(lineBreaks.Replace(v))
	}
	return b.String()
}

// Build expands the template against line into a reply message.
//
// An error means the values in line cannot form a valid reply, for
// example an empty or space-containing value in a middle param.
func (t Template) Build(line *ircmsg.Message) (*ircmsg.Message, error) {
	reply := &ircmsg.Message{Command: t.command.expand(line)}
	if reply.Command == "" {
		return nil, errors.New("reply command expands to nothing")
	}
	for _, p := range t.params {
		reply.Params = append(reply.Params, p.expand(line))
	}
	if t.hasTrail {
		reply.Params = append(reply.Params, t.trailing.expand(line))
	}
	if _, err := ircmsg.Format(reply); err != nil {
		return nil, err
	}
	return reply, nil
}

// Fields returns the placeholder names in order of appearance.
func (t Template) Fields() []string {
	var out []string
	for _, s := range t.segments() {
		for _, p := range s {
			if p.field != "" {
				out = append(out, p.field)
			}
		}
	}
	return out
}

func (t Template) segments() []segment {
	out := append([]segment{t.command}, t.params...)
	if t.hasTrail {
		out = append(out, t.trailing)
	}
	return out
}

func (t Template) String() string {
	return t.src
}

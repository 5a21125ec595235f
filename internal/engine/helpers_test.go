package engine

import (
	"errors"
	"strings"
)

// testLine is a minimal parsed line: "COMMAND rest".
type testLine struct {
	Command string
	Rest    string
}

func (l testLine) Field(name string) (string, bool) {
	switch name {
	case "command":
		return l.Command, true
	case "rest":
		return l.Rest, l.Rest != ""
	default:
		return "", false
	}
}

var errMalformed = errors.New("malformed test line")

// parseTestLine rejects empty lines and lines starting with '!'.
func parseTestLine(raw []byte) (testLine, error) {
	s := string(raw)
	if s == "" || strings.HasPrefix(s, "!") {
		return testLine{}, errMalformed
	}
	cmd, rest, _ := strings.Cut(s, " ")
	return testLine{Command: cmd, Rest: rest}, nil
}

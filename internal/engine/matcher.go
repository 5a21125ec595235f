package engine

import "fmt"

// Line is the engine's view of a parsed line.
//
// The engine treats parsed lines as opaque records. Field is the only
// operation it needs: match specs look up a named field and compare it.
type Line interface {
	// Field returns the named field and whether the line carries it.
	Field(name string) (string, bool)
}

// MatchKind distinguishes the MatchSpec variants.
type MatchKind int

const (
	// MatchAlways matches every line.
	MatchAlways MatchKind = iota + 1
	// MatchFieldEquals matches lines whose field equals a value.
	MatchFieldEquals
)

// MatchSpec decides whether a handler runs for a parsed line.
//
// A MatchSpec is one of:
//   - Always(): matches every line
//   - FieldEquals(field, value): matches iff line.Field(field) == value
//
// Comparison is exact and case-sensitive; the engine performs no
// normalization. The zero MatchSpec matches nothing.
type MatchSpec struct {
	kind  MatchKind
	field string
	value string
}

// Always returns a MatchSpec that matches every line.
func Always() MatchSpec {
	return MatchSpec{kind: MatchAlways}
}

// FieldEquals returns a MatchSpec matching lines whose field equals value.
func FieldEquals(field, value string) MatchSpec {
	return MatchSpec{kind: MatchFieldEquals, field: field, value: value}
}

// Kind reports the variant.
func (m MatchSpec) Kind() MatchKind { return m.kind }

// Field returns the compared field name (empty for Always).
func (m MatchSpec) Field() string { return m.field }

// Value returns the expected field value (empty for Always).
func (m MatchSpec) Value() string { return m.value }

// Matches evaluates the spec against a line. It never mutates the line.
func (m MatchSpec) Matches(line Line) bool {
	switch m.kind {
	case MatchAlways:
		return true
	case MatchFieldEquals:
		got, ok := line.Field(m.field)
		return ok && got == m.value
	default:
		return false
	}
}

// String renders the spec for logs and errors.
func (m MatchSpec) String() string {
	switch m.kind {
	case MatchAlways:
		return "always"
	case MatchFieldEquals:
		return fmt.Sprintf("%s==%q", m.field, m.value)
	default:
		return "never"
	}
}

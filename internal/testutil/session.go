package testutil

// FixedSessionGenerator returns the same session ID every time.
//
// Engines built with it stamp identical session IDs on every run, which
// keeps golden traces and transcripts byte-identical across test runs.
//
// Thread-safety: FixedSessionGenerator is stateless and safe for concurrent use.
type FixedSessionGenerator struct {
	id string
}

// NewFixedSessionGenerator creates a generator returning id.
// If id is empty, Generate returns "test-session".
func NewFixedSessionGenerator(id string) *FixedSessionGenerator {
	if id == "" {
		id = "test-session"
	}
	return &FixedSessionGenerator{id: id}
}

// Generate returns the fixed session ID.
// Implements engine.SessionGenerator.
func (g *FixedSessionGenerator) Generate() string {
	return g.id
}

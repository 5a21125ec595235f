package engine

// HandlerFunc handles one parsed line. A returned error halts the run loop.
type HandlerFunc[L Line] func(line L, ns Accessor) error

// HandlerRecord is a registered handler.
//
// Records are created by Register and never change afterwards.
// ID is the 1-based registration order.
type HandlerRecord[L Line] struct {
	ID    int
	Name  string
	Match MatchSpec
	fn    HandlerFunc[L]
}

// Call invokes the handler.
func (r HandlerRecord[L]) Call(line L, ns Accessor) error {
	return r.fn(line, ns)
}

// Registry holds handlers in registration order.
//
// INVARIANTS:
//   - records order NEVER changes after Register appends
//   - Match returns matching records in registration order
//
// Registry is not safe for concurrent use; the engine registers handlers
// before Run and reads them only from the Run goroutine.
type Registry[L Line] struct {
	records []HandlerRecord[L]
}

// NewRegistry creates an empty registry.
func NewRegistry[L Line]() *Registry[L] {
	return &Registry[L]{}
}

// Register appends a handler. The returned record identifies it.
func (r *Registry[L]) Register(name string, spec MatchSpec, fn HandlerFunc[L]) HandlerRecord[L] {
	rec := HandlerRecord[L]{
		ID:    len(r.records) + 1,
		Name:  name,
		Match: spec,
		fn:    fn,
	}
	r.records = append(r.records, rec)
	return rec
}

// Match returns every record whose spec matches line, in registration order.
func (r *Registry[L]) Match(line L) []HandlerRecord[L] {
	var matched []HandlerRecord[L]
	for _, rec := range r.records {
		if rec.Match.Matches(line) {
			matched = append(matched, rec)
		}
	}
	return matched
}

// Len returns the number of registered handlers.
func (r *Registry[L]) Len() int {
	return len(r.records)
}

// Records returns a copy of all records in registration order.
func (r *Registry[L]) Records() []HandlerRecord[L] {
	out := make([]HandlerRecord[L], len(r.records))
	copy(out, r.records)
	return out
}

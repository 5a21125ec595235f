package harness

// Trace event types.
const (
	EventDispatch  = "dispatch"
	EventMalformed = "malformed"
	EventReply     = "reply"
	EventError     = "error"
)

// TraceEvent is one observable effect of a scenario run.
type TraceEvent struct {
	Type    string `json:"type"`
	Seq     int64  `json:"seq,omitempty"`
	Handler string `json:"handler,omitempty"`
	Command string `json:"command,omitempty"`
	Line    string `json:"line,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true if every expectation held.
	Pass bool `json:"pass"`

	// Trace lists dispatches and skipped lines in stream order, then
	// outbound replies, then the terminating error if any.
	Trace []TraceEvent `json:"trace"`

	// Commands maps handler name to the commands it was called with.
	Commands map[string][]string `json:"commands"`

	// Replies holds the lines rules queued on the outbox.
	Replies []string `json:"replies,omitempty"`

	Lines     int64  `json:"lines"`
	Malformed int64  `json:"malformed"`
	Pending   string `json:"pending,omitempty"`

	// ErrorCode is the DispatchError code Run ended with, "" on a clean end.
	ErrorCode string `json:"error_code,omitempty"`
	RunError  string `json:"run_error,omitempty"`

	// Errors contains failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:     true,
		Trace:    []TraceEvent{},
		Commands: make(map[string][]string),
		Errors:   []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

func (r *Result) addDispatch(seq int64, handler, command string) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventDispatch, Seq: seq, Handler: handler, Command: command})
	r.Commands[handler] = append(r.Commands[handler], command)
}

func (r *Result) addMalformed(seq int64, line string) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventMalformed, Seq: seq, Line: line})
}

func (r *Result) addReply(line string) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventReply, Line: line})
	r.Replies = append(r.Replies, line)
}

func (r *Result) addError(code string, seq int64) {
	r.Trace = append(r.Trace, TraceEvent{Type: EventError, Seq: seq, Code: code})
}

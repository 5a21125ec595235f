package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
)

// ReadFunc supplies the next chunk of raw bytes, at most max long.
//
// A zero-length chunk with a nil error, or io.EOF, signals end of stream.
// Bytes returned together with io.EOF are still dispatched. Any other
// error is a transport failure. Blocking and timeouts are the read
// function's business; the engine never times out a read.
type ReadFunc func(max int) ([]byte, error)

// ParseFunc tokenizes one raw line (delimiter excluded) into a parsed line.
// Any returned error marks the line as malformed.
type ParseFunc[L Line] func(raw []byte) (L, error)

// AdapterFunc receives every raw inbound line before it is parsed.
// It exists for the side effect of updating external protocol state.
type AdapterFunc func(raw []byte) error

// PreProcessFunc runs once per loop iteration before the next read.
type PreProcessFunc func(ns Accessor) error

// LineEvent is one framed line after tokenizing. Err is the tokenizer
// error for a malformed line, in which case Line is the zero value.
type LineEvent[L Line] struct {
	Seq  int64
	Raw  []byte
	Line L
	Err  error
}

// LineObserverFunc receives every framed line once it has been tokenized,
// before any handler runs. An error halts the engine.
type LineObserverFunc[L Line] func(ev LineEvent[L]) error

// Dispatch describes one handler invocation, reported to the dispatch
// observer after the handler returns successfully.
type Dispatch struct {
	Seq         int64
	HandlerID   int
	HandlerName string
}

// State is the engine lifecycle state.
type State int32

const (
	// StateIdle is the state after construction.
	StateIdle State = iota
	// StateRunning is entered when Run starts.
	StateRunning
	// StateStopped is terminal: end of stream or a fatal error.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MalformedPolicy selects what happens when the tokenizer rejects a line.
type MalformedPolicy int

const (
	// MalformedSkip logs the line, reports it to the malformed hook and
	// continues with the next line. This is the default.
	MalformedSkip MalformedPolicy = iota
	// MalformedFail stops the loop and returns the MALFORMED_LINE error.
	MalformedFail
)

// DefaultReadSize is the max byte count requested per read.
const DefaultReadSize = 4096

type namedAdapter struct {
	name string
	fn   AdapterFunc
}

type namedHook struct {
	name string
	fn   PreProcessFunc
}

type namedLineObserver[L Line] struct {
	name string
	fn   LineObserverFunc[L]
}

type options struct {
	delim       []byte
	readSize    int
	maxLine     int
	seqStart    int64
	logger      *slog.Logger
	sessionGen  SessionGenerator
	policy      MalformedPolicy
	onMalformed func(*DispatchError)
	observers   []func(Dispatch)
}

// Option configures an Engine.
type Option func(*options)

// WithDelimiter sets the line delimiter (default "\r\n").
func WithDelimiter(delim []byte) Option {
	return func(o *options) { o.delim = delim }
}

// WithReadSize sets the max byte count passed to the read function.
func WithReadSize(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.readSize = n
		}
	}
}

// WithMaxLineLength limits how many bytes may be buffered without a
// delimiter. Zero (the default) means unlimited.
func WithMaxLineLength(n int) Option {
	return func(o *options) { o.maxLine = n }
}

// WithSeqStart numbers the first line start+1 instead of 1, so a session
// continuing a stored transcript keeps its sequence numbers unique.
// Negative values are ignored.
func WithSeqStart(start int64) Option {
	return func(o *options) {
		if start >= 0 {
			o.seqStart = start
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithSessionGenerator overrides the session ID generator (default UUIDv7).
func WithSessionGenerator(g SessionGenerator) Option {
	return func(o *options) { o.sessionGen = g }
}

// WithMalformedPolicy selects skip-and-report (default) or fail.
func WithMalformedPolicy(p MalformedPolicy) Option {
	return func(o *options) { o.policy = p }
}

// WithMalformedHook registers a callback receiving every skipped malformed line.
func WithMalformedHook(fn func(*DispatchError)) Option {
	return func(o *options) { o.onMalformed = fn }
}

// WithDispatchObserver registers a callback invoked after every successful
// handler call.
func WithDispatchObserver(fn func(Dispatch)) Option {
	return func(o *options) { o.observers = append(o.observers, fn) }
}

// Engine is the single-goroutine dispatch loop.
//
// Register adapters, pre-process hooks and handlers, then call Run from
// exactly one goroutine. Registration after Run has started is not
// supported.
//
// INVARIANTS:
//   - adapters, hooks and handlers run in registration order
//   - every line is dispatched exactly once, in stream order
//   - all effects of line N happen before any processing of line N+1
type Engine[L Line] struct {
	read      ReadFunc
	parse     ParseFunc[L]
	adapters  []namedAdapter
	hooks     []namedHook
	lineObs   []namedLineObserver[L]
	registry  *Registry[L]
	ns        *Namespaces
	framer    *Framer
	clock     *Clock
	session   string
	logger    *slog.Logger
	opts      options
	state     atomic.Int32
	malformed atomic.Int64
}

// New creates an idle Engine reading from read and tokenizing with parse.
func New[L Line](read ReadFunc, parse ParseFunc[L], opts ...Option) *Engine[L] {
	o := options{
		delim:      DefaultDelimiter,
		readSize:   DefaultReadSize,
		sessionGen: UUIDv7Generator{},
		policy:     MalformedSkip,
	}
	for _, opt := range opts {
		opt(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}
	session := o.sessionGen.Generate()

	return &Engine[L]{
		read:     read,
		parse:    parse,
		registry: NewRegistry[L](),
		ns:       NewNamespaces(),
		framer:   NewFramer(o.delim, o.maxLine),
		clock:    NewClockAt(o.seqStart),
		session:  session,
		logger:   logger.With("session", session),
		opts:     o,
	}
}

// Use registers a state adapter. Adapters see every raw line, in
// registration order, before the line is parsed.
func (e *Engine[L]) Use(name string, fn AdapterFunc) {
	e.adapters = append(e.adapters, namedAdapter{name: name, fn: fn})
}

// PreProcess registers a hook run at the start of every iteration.
func (e *Engine[L]) PreProcess(name string, fn PreProcessFunc) {
	e.hooks = append(e.hooks, namedHook{name: name, fn: fn})
}

// Handle registers a handler for lines matching spec.
func (e *Engine[L]) Handle(name string, spec MatchSpec, fn HandlerFunc[L]) HandlerRecord[L] {
	return e.registry.Register(name, spec, fn)
}

// Observe adds a dispatch observer. Observers run in the order added.
func (e *Engine[L]) Observe(fn func(Dispatch)) {
	e.opts.observers = append(e.opts.observers, fn)
}

// ObserveLine registers a line observer. Observers run in registration
// order after the tokenizer and before handlers, for parsed and malformed
// lines alike.
func (e *Engine[L]) ObserveLine(name string, fn LineObserverFunc[L]) {
	e.lineObs = append(e.lineObs, namedLineObserver[L]{name: name, fn: fn})
}

// Namespaces returns the engine's namespace store.
func (e *Engine[L]) Namespaces() *Namespaces {
	return e.ns
}

// Registry returns the engine's handler registry.
func (e *Engine[L]) Registry() *Registry[L] {
	return e.registry
}

// State returns the current lifecycle state.
func (e *Engine[L]) State() State {
	return State(e.state.Load())
}

// SessionID returns the ID stamped on this engine's logs.
func (e *Engine[L]) SessionID() string {
	return e.session
}

// Delimiter returns the framing delimiter.
func (e *Engine[L]) Delimiter() []byte {
	return e.framer.Delimiter()
}

// Lines returns how many lines have been framed so far.
func (e *Engine[L]) Lines() int64 {
	return e.clock.Current() - e.opts.seqStart
}

// SeqStart returns the sequence number preceding this engine's first line.
func (e *Engine[L]) SeqStart() int64 {
	return e.opts.seqStart
}

// Malformed returns how many malformed lines were skipped.
func (e *Engine[L]) Malformed() int64 {
	return e.malformed.Load()
}

// Pending returns buffered bytes that have not formed a complete line.
func (e *Engine[L]) Pending() []byte {
	return e.framer.Pending()
}

// Run executes the dispatch loop until end of stream or a fatal error.
//
// Returns nil on end of stream, ctx.Err() if ctx is cancelled between
// iterations, and a *DispatchError for transport, handler and framing
// failures (and for malformed lines under MalformedFail). The engine is
// Stopped when Run returns and cannot be restarted.
func (e *Engine[L]) Run(ctx context.Context) error {
	if !e.state.CompareAndSwap(int32(StateIdle), int32(StateRunning)) {
		return ErrNotIdle
	}
	defer e.state.Store(int32(StateStopped))

	e.logger.Info("engine starting",
		"adapters", len(e.adapters),
		"hooks", len(e.hooks),
		"handlers", e.registry.Len(),
	)

	for {
		if err := ctx.Err(); err != nil {
			e.logger.Info("engine stopping: context cancelled")
			return err
		}

		if err := e.runPreProcess(); err != nil {
			return err
		}

		chunk, readErr := e.read(e.opts.readSize)
		eof := errors.Is(readErr, io.EOF)
		if readErr != nil && !eof {
			e.logger.Error("read failed", "error", readErr)
			return newTransportError(readErr)
		}

		if len(chunk) > 0 {
			if err := e.feed(chunk); err != nil {
				return err
			}
		}

		if len(chunk) == 0 || eof {
			if pending := e.framer.Pending(); len(pending) > 0 {
				e.logger.Warn("stream ended with incomplete line", "pending_bytes", len(pending))
			}
			e.logger.Info("engine stopping: end of stream", "lines", e.Lines())
			return nil
		}
	}
}

// runPreProcess invokes every hook in registration order.
func (e *Engine[L]) runPreProcess() error {
	for _, h := range e.hooks {
		if err := h.fn(e.ns); err != nil {
			e.logger.Error("pre-process hook failed", "hook", h.name, "error", err)
			return newHandlerError(StagePreProcess, h.name, 0, nil, err)
		}
	}
	return nil
}

// feed frames a chunk and dispatches each completed line.
// Lines completed before a framing limit violation are still dispatched.
func (e *Engine[L]) feed(chunk []byte) error {
	lines, frameErr := e.framer.Feed(chunk)
	for _, raw := range lines {
		if err := e.dispatchLine(raw); err != nil {
			return err
		}
	}
	if frameErr != nil {
		e.logger.Error("framing limit exceeded", "error", frameErr)
		return &DispatchError{Code: ErrCodeLineTooLong, Stage: StageFrame, Err: frameErr}
	}
	return nil
}

// dispatchLine runs adapters, the tokenizer and matching handlers for one line.
func (e *Engine[L]) dispatchLine(raw []byte) error {
	seq := e.clock.Next()

	for _, a := range e.adapters {
		if err := a.fn(raw); err != nil {
			e.logger.Error("adapter failed", "adapter", a.name, "seq", seq, "error", err)
			return newHandlerError(StageAdapter, a.name, seq, raw, err)
		}
	}

	line, err := e.parse(raw)
	for _, o := range e.lineObs {
		if obsErr := o.fn(LineEvent[L]{Seq: seq, Raw: raw, Line: line, Err: err}); obsErr != nil {
			e.logger.Error("line observer failed", "observer", o.name, "seq", seq, "error", obsErr)
			return newHandlerError(StageObserve, o.name, seq, raw, obsErr)
		}
	}
	if err != nil {
		de := newMalformedError(seq, raw, err)
		if e.opts.policy == MalformedFail {
			e.logger.Error("malformed line", "seq", seq, "line", string(raw), "error", err)
			return de
		}
		e.malformed.Add(1)
		e.logger.Warn("skipping malformed line", "seq", seq, "line", string(raw), "error", err)
		if e.opts.onMalformed != nil {
			e.opts.onMalformed(de)
		}
		return nil
	}

	matched := e.registry.Match(line)
	e.logger.Debug("dispatching line", "seq", seq, "handlers", len(matched))

	for _, rec := range matched {
		if err := rec.Call(line, e.ns); err != nil {
			e.logger.Error("handler failed", "handler", rec.Name, "seq", seq, "error", err)
			return newHandlerError(StageHandler, rec.Name, seq, raw, err)
		}
		for _, observe := range e.opts.observers {
			observe(Dispatch{Seq: seq, HandlerID: rec.ID, HandlerName: rec.Name})
		}
	}
	return nil
}

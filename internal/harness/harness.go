package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
	"github.com/roach88/ircevents/internal/outbox"
	"github.com/roach88/ircevents/internal/rules"
	"github.com/roach88/ircevents/internal/testutil"
)

// SessionID is stamped on every scenario engine.
const SessionID = "scenario-session"

type runOptions struct {
	logger *slog.Logger
}

// RunOption configures Run.
type RunOption func(*runOptions)

// WithLogger sets the engine logger. Defaults to discarding logs.
func WithLogger(l *slog.Logger) RunOption {
	return func(o *runOptions) { o.logger = l }
}

// Run executes a scenario against a fresh engine and returns the result.
//
// Execution flow:
//  1. Build an engine over a scripted chunk reader
//  2. Install CUE rules, if any, with an outbox
//  3. Register the scenario's handlers in order
//  4. Run to end of stream or the first fatal error
//  5. Record replies and check expectations
//
// An error is returned only if the scenario cannot be set up; engine
// failures are part of the result.
func Run(scenario *Scenario, opts ...RunOption) (*Result, error) {
	o := runOptions{logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	for _, opt := range opts {
		opt(&o)
	}

	reader := testutil.NewChunkReader(scenario.Chunks...)
	if scenario.TransportError != "" {
		reader.Err = errors.New(scenario.TransportError)
	}

	result := NewResult()

	// The parse wrapper remembers the command being dispatched so the
	// observer can attribute it without knowing the handler.
	var current string
	parse := func(raw []byte) (*ircmsg.Message, error) {
		msg, err := ircmsg.Parse(raw)
		if err == nil {
			current = msg.Command
		}
		return msg, err
	}

	engOpts := []engine.Option{
		engine.WithLogger(o.logger),
		engine.WithSessionGenerator(testutil.NewFixedSessionGenerator(SessionID)),
		engine.WithMaxLineLength(scenario.MaxLine),
		engine.WithMalformedHook(func(de *engine.DispatchError) {
			result.addMalformed(de.Seq, string(de.RawLine))
		}),
		engine.WithDispatchObserver(func(d engine.Dispatch) {
			result.addDispatch(d.Seq, d.HandlerName, current)
		}),
	}
	if scenario.Delimiter != "" {
		engOpts = append(engOpts, engine.WithDelimiter([]byte(scenario.Delimiter)))
	}
	if scenario.ReadSize > 0 {
		engOpts = append(engOpts, engine.WithReadSize(scenario.ReadSize))
	}
	if scenario.Policy == PolicyFail {
		engOpts = append(engOpts, engine.WithMalformedPolicy(engine.MalformedFail))
	}

	eng := engine.New(reader.Read, parse, engOpts...)

	var out *outbox.Outbox
	if scenario.Rules != "" {
		rs, err := rules.Load(scenario.Rules)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules: %w", err)
		}
		out = outbox.New()
		if err := rules.Install(eng, rs, out, rules.WithLogger(o.logger)); err != nil {
			return nil, fmt.Errorf("failed to install rules: %w", err)
		}
	}

	for _, h := range scenario.Handlers {
		eng.Handle(h.Name, h.When.MatchSpec(), scenarioHandler(h))
	}

	runErr := eng.Run(context.Background())

	if out != nil {
		for {
			line, ok := out.TryDequeue()
			if !ok {
				break
			}
			result.addReply(string(line))
		}
	}

	var de *engine.DispatchError
	if errors.As(runErr, &de) {
		result.ErrorCode = string(de.Code)
		result.RunError = de.Error()
		result.addError(result.ErrorCode, de.Seq)
	} else if runErr != nil {
		return nil, fmt.Errorf("engine run: %w", runErr)
	}

	result.Lines = eng.Lines()
	result.Malformed = eng.Malformed()
	result.Pending = string(eng.Pending())

	for _, msg := range checkExpectations(result, scenario.Expect) {
		result.AddError(msg)
	}
	return result, nil
}

func scenarioHandler(h HandlerSpec) engine.HandlerFunc[*ircmsg.Message] {
	if h.Fail == "" {
		return func(*ircmsg.Message, engine.Accessor) error { return nil }
	}
	return func(*ircmsg.Message, engine.Accessor) error {
		return errors.New(h.Fail)
	}
}

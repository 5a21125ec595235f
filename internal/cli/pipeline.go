package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
	"github.com/roach88/ircevents/internal/ircstate"
	"github.com/roach88/ircevents/internal/outbox"
	"github.com/roach88/ircevents/internal/rules"
	"github.com/roach88/ircevents/internal/store"
)

// DefaultMaxLine is the IRC line limit: 8191 bytes of IRCv3 tags plus a
// 512 byte message.
const DefaultMaxLine = 8191 + 512

// PipelineOptions configures the engine shared by replay and listen.
type PipelineOptions struct {
	RulesDir  string
	Database  string
	Delimiter string // escaped, e.g. `\r\n`
	MaxLine   int
	ReadSize  int
	Policy    string // "skip" | "fail"
	SeqStart  int64  // numbering continues after this value

	// SessionGenerator overrides UUIDv7 session IDs (for tests).
	SessionGenerator engine.SessionGenerator
}

// HandlerCount is how often one handler ran.
type HandlerCount struct {
	Name  string `json:"name"`
	Calls int    `json:"calls"`
}

// ChannelSummary describes one joined channel.
type ChannelSummary struct {
	Name    string `json:"name"`
	Members int    `json:"members"`
}

// Summary is what replay and listen report after a run.
type Summary struct {
	Session   string           `json:"session"`
	Lines     int64            `json:"lines"`
	Malformed int64            `json:"malformed"`
	Pending   int              `json:"pending_bytes"`
	Handlers  []HandlerCount   `json:"handlers"`
	Counters  map[string]int   `json:"counters,omitempty"`
	Replies   int              `json:"replies"`
	Nick      string           `json:"nick,omitempty"`
	Channels  []ChannelSummary `json:"channels"`
	Error     string           `json:"error,omitempty"`
}

// pipeline is an engine wired with the tracker, rules, outbox and an
// optional transcript.
type pipeline struct {
	eng      *engine.Engine[*ircmsg.Message]
	tracker  *ircstate.Tracker
	out      *outbox.Outbox
	recorder *store.Recorder
	store    *store.Store
	rules    []rules.Rule
	calls    map[int]int
}

// parseDelimiter unescapes a flag value such as `\r\n`.
func parseDelimiter(s string) ([]byte, error) {
	if s == "" {
		return engine.DefaultDelimiter, nil
	}
	d, err := strconv.Unquote(`"` + s + `"`)
	if err != nil {
		return nil, fmt.Errorf("invalid delimiter %q: %w", s, err)
	}
	if d == "" {
		return nil, fmt.Errorf("delimiter must not be empty")
	}
	return []byte(d), nil
}

// newPipeline builds the engine. Replies queued by rules are flushed to
// replies before every read. Close must be called to release the store.
func newPipeline(ctx context.Context, read engine.ReadFunc, replies io.Writer, opts PipelineOptions, logger *slog.Logger) (*pipeline, error) {
	delim, err := parseDelimiter(opts.Delimiter)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "bad --delimiter", err)
	}

	if opts.SeqStart < 0 {
		return nil, exitf(ExitCommandError, "invalid --seq-start %d: must not be negative", opts.SeqStart)
	}

	engOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithDelimiter(delim),
		engine.WithMaxLineLength(opts.MaxLine),
		engine.WithReadSize(opts.ReadSize),
		engine.WithSeqStart(opts.SeqStart),
	}
	switch opts.Policy {
	case "", "skip":
	case "fail":
		engOpts = append(engOpts, engine.WithMalformedPolicy(engine.MalformedFail))
	default:
		return nil, exitf(ExitCommandError, "invalid --policy %q: must be skip or fail", opts.Policy)
	}
	if opts.SessionGenerator != nil {
		engOpts = append(engOpts, engine.WithSessionGenerator(opts.SessionGenerator))
	}

	p := &pipeline{
		eng:     engine.New(read, ircmsg.Parse, engOpts...),
		tracker: ircstate.NewTracker(),
		out:     outbox.New(),
		calls:   make(map[int]int),
	}

	p.eng.Use("ircstate", p.tracker.Ingest)
	p.eng.PreProcess("outbox", p.out.FlushHook(replies, delim))
	p.eng.Observe(func(d engine.Dispatch) { p.calls[d.HandlerID]++ })

	if opts.Database != "" {
		st, err := store.Open(opts.Database)
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
		rec, err := store.NewRecorder(ctx, st, store.Session{
			ID:        p.eng.SessionID(),
			Delimiter: delim,
			SeqStart:  p.eng.SeqStart(),
		})
		if err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to begin transcript", err)
		}
		p.store, p.recorder = st, rec
		p.eng.ObserveLine("transcript", rec.Record)
		p.eng.Observe(rec.ObserveDispatch)
	}

	if opts.RulesDir != "" {
		rs, err := rules.Load(opts.RulesDir)
		if err != nil {
			p.Close()
			return nil, WrapExitError(ExitCommandError, "failed to load rules", err)
		}
		if err := rules.Install(p.eng, rs, p.out, rules.WithLogger(logger)); err != nil {
			p.Close()
			return nil, WrapExitError(ExitCommandError, "failed to install rules", err)
		}
		p.rules = rs
	}

	return p, nil
}

// run drives the engine and returns its summary. The dispatch error, if
// any, is returned alongside the summary.
func (p *pipeline) run(ctx context.Context) (Summary, error) {
	runErr := p.eng.Run(ctx)

	s := Summary{
		Session:   p.eng.SessionID(),
		Lines:     p.eng.Lines(),
		Malformed: p.eng.Malformed(),
		Pending:   len(p.eng.Pending()),
		Handlers:  []HandlerCount{},
		Replies:   engine.GetInt(p.eng.Namespaces(), outbox.Namespace, outbox.FlushedKey, 0),
		Nick:      p.tracker.Nick(),
		Channels:  []ChannelSummary{},
	}

	for _, rec := range p.eng.Registry().Records() {
		s.Handlers = append(s.Handlers, HandlerCount{Name: rec.Name, Calls: p.calls[rec.ID]})
	}
	if keys := p.eng.Namespaces().Keys(rules.CountersNamespace); len(keys) > 0 {
		s.Counters = make(map[string]int, len(keys))
		for _, k := range keys {
			s.Counters[k] = engine.GetInt(p.eng.Namespaces(), rules.CountersNamespace, k, 0)
		}
	}
	for _, ch := range p.tracker.Channels() {
		s.Channels = append(s.Channels, ChannelSummary{Name: ch, Members: len(p.tracker.Members(ch))})
	}

	if p.recorder != nil {
		if err := p.recorder.Err(); err != nil && runErr == nil {
			runErr = fmt.Errorf("transcript: %w", err)
		}
	}
	if runErr != nil {
		s.Error = runErr.Error()
	}
	return s, runErr
}

// Close releases the transcript store.
func (p *pipeline) Close() {
	p.out.Close()
	if p.store != nil {
		p.store.Close()
	}
}

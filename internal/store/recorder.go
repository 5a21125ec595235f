package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
)

// Recorder writes an engine's transcript as it runs.
//
// Wire it with:
//
//	rec, _ := store.NewRecorder(ctx, st, store.Session{
//		ID:        eng.SessionID(),
//		Delimiter: eng.Delimiter(),
//		SeqStart:  eng.SeqStart(),
//	})
//	eng.ObserveLine("transcript", rec.Record)
//	eng.Observe(rec.ObserveDispatch)
//
// Lines are stored under the engine's own sequence numbers and parse
// results; the recorder never parses.
type Recorder struct {
	ctx     context.Context
	store   *Store
	session string
	lines   int64
	logger  *slog.Logger
	err     error
}

// NewRecorder begins a transcript session.
func NewRecorder(ctx context.Context, s *Store, sess Session) (*Recorder, error) {
	if err := s.BeginSession(ctx, sess); err != nil {
		return nil, err
	}
	return &Recorder{
		ctx:     ctx,
		store:   s,
		session: sess.ID,
		logger:  slog.Default().With("session", sess.ID),
	}, nil
}

// Record stores one line. It is an engine line observer; a write failure
// halts the engine.
func (r *Recorder) Record(ev engine.LineEvent[*ircmsg.Message]) error {
	rec := LineRecord{
		SessionID: r.session,
		Seq:       ev.Seq,
		Raw:       ev.Raw,
	}
	if ev.Err != nil {
		rec.Malformed = true
		rec.Error = ev.Err.Error()
	} else {
		rec.Command = ev.Line.Command
		rec.Message = ev.Line
	}

	if err := r.store.WriteLine(r.ctx, rec); err != nil {
		return fmt.Errorf("record line %d: %w", ev.Seq, err)
	}
	r.lines++
	return nil
}

// ObserveDispatch records a handler call. Observers cannot fail the
// engine, so the first write error is kept and reported by Err.
func (r *Recorder) ObserveDispatch(d engine.Dispatch) {
	if r.err != nil {
		return
	}
	err := r.store.WriteDispatch(r.ctx, DispatchRecord{
		SessionID:   r.session,
		Seq:         d.Seq,
		HandlerID:   d.HandlerID,
		HandlerName: d.HandlerName,
	})
	if err != nil {
		r.logger.Error("failed to record dispatch", "seq", d.Seq, "handler", d.HandlerName, "error", err)
		r.err = err
	}
}

// Err returns the first dispatch write error, if any.
func (r *Recorder) Err() error {
	return r.err
}

// Lines returns how many lines have been recorded.
func (r *Recorder) Lines() int64 {
	return r.lines
}

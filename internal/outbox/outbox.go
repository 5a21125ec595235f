// Package outbox queues outbound lines until the engine flushes them.
//
// Producers on any goroutine Enqueue lines; the engine drains the queue
// from a pre-process hook at the start of every loop iteration, so
// replies queued while handling one chunk go out before the next read.
package outbox

import (
	"fmt"
	"io"
	"sync"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
)

// Namespace and key under which FlushHook records the running flush count.
const (
	Namespace  = "outbox"
	FlushedKey = "flushed"
)

// Outbox is a thread-safe FIFO of outbound lines.
//
// The queue is unbounded so handlers never block while enqueueing replies.
type Outbox struct {
	mu     sync.Mutex
	lines  [][]byte
	closed bool
}

// New creates an empty outbox.
func New() *Outbox {
	return &Outbox{lines: make([][]byte, 0, 16)}
}

// Enqueue adds a line (without delimiter) to the back of the queue.
// The line is copied. Returns false if the outbox is closed.
func (o *Outbox) Enqueue(line []byte) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return false
	}
	cp := make([]byte, len(line))
	copy(cp, line)
	o.lines = append(o.lines, cp)
	return true
}

// EnqueueMessage formats msg and enqueues it.
func (o *Outbox) EnqueueMessage(msg *ircmsg.Message) error {
	line, err := ircmsg.Format(msg)
	if err != nil {
		return fmt.Errorf("format %s: %w", msg.Command, err)
	}
	if !o.Enqueue(line) {
		return fmt.Errorf("outbox closed")
	}
	return nil
}

// TryDequeue removes and returns the front line.
// Returns (nil, false) if the queue is empty.
func (o *Outbox) TryDequeue() ([]byte, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if len(o.lines) == 0 {
		return nil, false
	}
	line := o.lines[0]
	o.lines[0] = nil
	if len(o.lines) == 1 {
		o.lines = o.lines[:0]
	} else {
		o.lines = o.lines[1:]
	}
	return line, true
}

// Len returns the number of queued lines.
func (o *Outbox) Len() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.lines)
}

// Close rejects further Enqueue calls. Queued lines can still be drained.
func (o *Outbox) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.closed = true
}

// FlushHook returns a pre-process hook writing every queued line to w,
// each followed by delim, in FIFO order.
//
// The running number of flushed lines is stored in the Namespace/FlushedKey
// slot. A write error stops the flush; the failed line is lost and the
// error halts the engine.
func (o *Outbox) FlushHook(w io.Writer, delim []byte) engine.PreProcessFunc {
	return func(ns engine.Accessor) error {
		flushed := engine.GetInt(ns, Namespace, FlushedKey, 0)
		defer func() { ns.Set(Namespace, FlushedKey, flushed) }()

		for {
			line, ok := o.TryDequeue()
			if !ok {
				return nil
			}
			buf := make([]byte, 0, len(line)+len(delim))
			buf = append(buf, line...)
			buf = append(buf, delim...)
			if _, err := w.Write(buf); err != nil {
				return fmt.Errorf("flush outbound line: %w", err)
			}
			flushed++
		}
	}
}

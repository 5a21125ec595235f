package engine

import (
	"bytes"
	"fmt"
)

// DefaultDelimiter is the IRC line delimiter.
var DefaultDelimiter = []byte("\r\n")

// Framer turns a stream of byte chunks into complete lines.
//
// The raw buffer persists byte-exact state between Feed calls, so a
// delimiter split across chunk boundaries (even one byte per chunk) is
// still found. Bytes that do not yet form a complete line stay buffered
// until a later chunk completes them.
//
// Framer is not safe for concurrent use.
type Framer struct {
	delim   []byte
	maxLine int
	buf     []byte
	scan    int // offset in buf where the next delimiter search starts
}

// NewFramer creates a framer splitting on delim.
// An empty delim selects DefaultDelimiter. maxLine <= 0 disables the
// line length limit.
func NewFramer(delim []byte, maxLine int) *Framer {
	if len(delim) == 0 {
		delim = DefaultDelimiter
	}
	d := make([]byte, len(delim))
	copy(d, delim)
	return &Framer{delim: d, maxLine: maxLine}
}

// Feed appends chunk and returns every line it completes, in input order.
// Returned lines exclude the delimiter and never alias the internal buffer.
//
// If the incomplete remainder grows past the max line length, Feed
// returns the lines completed so far together with an error.
func (f *Framer) Feed(chunk []byte) ([][]byte, error) {
	f.buf = append(f.buf, chunk...)

	var lines [][]byte
	consumed := 0
	for {
		idx := bytes.Index(f.buf[f.scan:], f.delim)
		if idx < 0 {
			break
		}
		end := f.scan + idx
		line := make([]byte, end-consumed)
		copy(line, f.buf[consumed:end])
		lines = append(lines, line)

		consumed = end + len(f.delim)
		f.scan = consumed
	}

	// Compaction: drop the consumed prefix, keep the remainder.
	if consumed > 0 {
		n := copy(f.buf, f.buf[consumed:])
		f.buf = f.buf[:n]
	}

	// A delimiter may start in the last len(delim)-1 bytes and finish in
	// the next chunk, so the next search backs up that far.
	f.scan = len(f.buf) - (len(f.delim) - 1)
	if f.scan < 0 {
		f.scan = 0
	}

	if f.maxLine > 0 && len(f.buf) > f.maxLine {
		return lines, fmt.Errorf("buffered %d bytes without delimiter (max %d)", len(f.buf), f.maxLine)
	}
	return lines, nil
}

// Pending returns a copy of the buffered bytes not yet forming a line.
func (f *Framer) Pending() []byte {
	out := make([]byte, len(f.buf))
	copy(out, f.buf)
	return out
}

// Delimiter returns the configured delimiter.
func (f *Framer) Delimiter() []byte {
	return f.delim
}

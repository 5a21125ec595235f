package testutil

import "sync"

// ChunkReader replays scripted chunks through a read function.
//
// Each Read returns the next chunk, split if it is longer than max.
// Once the script is exhausted Read returns an empty chunk and Err, so a
// nil Err signals end of stream and a non-nil Err simulates a transport
// failure.
//
// Thread-safety: ChunkReader is safe for concurrent use via internal mutex.
type ChunkReader struct {
	mu     sync.Mutex
	chunks [][]byte
	idx    int
	reads  int

	// Err is returned once every chunk has been delivered.
	Err error
}

// NewChunkReader creates a reader delivering chunks in order.
func NewChunkReader(chunks ...string) *ChunkReader {
	r := &ChunkReader{}
	for _, c := range chunks {
		r.chunks = append(r.chunks, []byte(c))
	}
	return r
}

// Read returns the next scripted chunk, at most max bytes long.
// Its signature matches engine.ReadFunc.
func (r *ChunkReader) Read(max int) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reads++
	if r.idx >= len(r.chunks) {
		return nil, r.Err
	}

	chunk := r.chunks[r.idx]
	if max > 0 && len(chunk) > max {
		r.chunks[r.idx] = chunk[max:]
		return chunk[:max], nil
	}
	r.idx++
	return chunk, nil
}

// Reads returns how many times Read was called.
func (r *ChunkReader) Reads() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reads
}

// ByteAtATime splits s into one-byte chunks.
func ByteAtATime(s string) []string {
	out := make([]string, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = s[i : i+1]
	}
	return out
}

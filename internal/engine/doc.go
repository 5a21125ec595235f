// Package engine implements the line dispatch engine.
//
// The engine reads raw bytes from a caller-supplied read function, frames
// them into protocol lines, and routes every line to the handlers whose
// match specs accept it.
//
// ARCHITECTURE:
//
// Single-Goroutine Run Loop:
// Run is the only execution context. Each iteration:
// 1. Pre-process hooks run in registration order (flush outbound queues)
// 2. The read function supplies the next chunk of bytes
// 3. The Framer appends the chunk and emits every complete line
// 4. For each line: state adapters see the raw bytes, the tokenizer parses
//    it, line observers see the result, then matching handlers run in
//    registration order
//
// All side effects of line N happen before any processing of line N+1.
// State adapters always run before handlers for the same line, so handlers
// can rely on upstream state already reflecting that line.
//
// Termination:
// A zero-length read (or io.EOF) ends the stream and Run returns nil.
// Transport errors, handler errors and framing limit violations stop the
// loop and are returned as *DispatchError. Malformed lines are skipped and
// reported by default (see MalformedPolicy).
//
// Sequence numbers:
// Lines are numbered from 1, or from WithSeqStart's value plus one when a
// session continues an earlier transcript. Errors, dispatches and line
// events all carry the same number.
//
// Namespaces:
// Hooks and handlers share state through an Accessor bound to the
// engine's own Namespaces store. Every engine has its own store.
package engine

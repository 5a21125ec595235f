// Package store provides SQLite-backed transcripts of dispatch sessions.
//
// A transcript is an append-only log with:
//   - Sessions: one row per engine instance (session ID, delimiter)
//   - Lines: every framed inbound line with its seq, raw bytes, command
//     and the parsed message encoded as CBOR
//   - Dispatches: every successful handler call (seq, handler id and name)
//
// # Ordering
//
//   - All ordering uses the engine's seq (logical line clock), NEVER timestamps
//   - All queries include ORDER BY seq ASC so reads are deterministic
//   - Writes are idempotent on (session_id, seq) so a re-recorded line is ignored
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait on lock contention
//   - foreign_keys=ON: Lines and dispatches reference their session
//
// Transcripts record what the engine saw. They do not persist namespace
// state; an engine always starts with empty namespaces.
package store

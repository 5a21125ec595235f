// Package harness runs YAML scenarios against the dispatch engine.
//
// A scenario scripts the chunks a transport would deliver, registers
// handlers and states what dispatch should produce. The engine under test
// is the real one: chunks go through the framer, the IRC tokenizer and
// the handler registry exactly as they would in production.
//
// # Scenario Format
//
//	name: split_ping
//	description: "A PING split across two reads dispatches once"
//	delimiter: "\r\n"        # optional, default CRLF
//	read_size: 0             # optional, default engine.DefaultReadSize
//	max_line: 0              # optional, 0 is unlimited
//	policy: skip             # skip (default) or fail
//	rules: ../rules          # optional CUE rules dir, relative to the file
//	chunks:
//	  - "PING :ab"
//	  - "c\r\n"
//	handlers:
//	  - name: all
//	    when: always
//	  - name: pings
//	    when: {field: command, equals: PING}
//	  - name: boom
//	    when: {field: command, equals: QUIT}
//	    fail: "refusing to quit"
//	expect:
//	  commands:
//	    all: [PING]
//	    pings: [PING]
//	  replies: ["PONG abc"]
//	  malformed: 0
//	  pending: ""
//	  error: ""              # "" means the run must end cleanly
//
// # Deterministic Testing
//
// Every run uses a fixed session ID and a scripted chunk reader, so the
// trace is identical across runs and can be compared to a golden file:
//
//	go test ./internal/harness -update
package harness

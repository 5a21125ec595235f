// Package rules compiles CUE rule files into engine handlers.
//
// A rule file declares named rules under the top-level "rule" struct:
//
//	package bot
//
//	rule: pong: {
//		when:  {field: "command", equals: "PING"}
//		reply: "PONG :{trailing}"
//	}
//	rule: count_privmsg: {
//		when:  {field: "command", equals: "PRIVMSG"}
//		count: "privmsg"
//	}
//	rule: everything: {when: "always", log: true}
//
// Each rule needs a match condition and at least one action:
//   - reply: a line template; {field} is replaced with the matched
//     line's field value (see ircmsg.Message.Field) and the result is
//     queued on the outbox. The template is split into command and
//     params before expansion, so a value never spills into another
//     param. Line breaks in values become spaces; a line whose values
//     cannot form a reply is logged and skipped
//   - count: increments the "counters" namespace key of that name
//   - log: logs the matched line at info level
//
// Rules install in source order, so their handlers dispatch in the order
// they are written.
package rules

// Package ircmsg tokenizes and formats IRC protocol lines.
//
// Parse turns one raw line (delimiter excluded) into a Message and Format
// turns a Message back into its wire form. Both follow RFC 1459 framing
// with IRCv3 message tags:
//
//	['@' tags SPACE] [':' source SPACE] command *(SPACE param) [SPACE ':' trailing]
//
// Message implements engine.Line, so handlers can be matched on the
// fields listed in Message.Field.
package ircmsg

// Package ircstate tracks channel membership from raw IRC lines.
//
// Tracker.Ingest is an engine state adapter: register it with Engine.Use
// and it sees every inbound line before any handler does.
package ircstate

import (
	"sort"
	"strings"
	"sync"

	"github.com/roach88/ircevents/internal/ircmsg"
)

// membership prefixes stripped from RPL_NAMREPLY entries
const namePrefixes = "~&@%+"

// Tracker follows the client's own nick and the members of joined channels.
//
// Channel and nick keys are compared case-insensitively. Display forms
// of nicks are kept as last seen.
//
// Thread-safety: all methods are safe for concurrent use. Ingest is called
// from the engine's Run goroutine; readers may live anywhere.
type Tracker struct {
	mu       sync.RWMutex
	nick     string
	channels map[string]*channel
}

type channel struct {
	name    string
	members map[string]string // folded nick -> display nick
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{channels: make(map[string]*channel)}
}

// Ingest updates state from one raw line. It parses raw itself, so it
// can sit in front of an engine of any line type. Lines that do not parse
// are ignored; they are the engine's concern.
func (t *Tracker) Ingest(raw []byte) error {
	msg, err := ircmsg.Parse(raw)
	if err != nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch msg.Command {
	case "001":
		if nick := msg.Param(0); nick != "" {
			t.nick = nick
		}
	case "JOIN":
		t.join(msg.Param(0), msg.Nick())
	case "PART":
		t.part(msg.Param(0), msg.Nick())
	case "KICK":
		t.part(msg.Param(0), msg.Param(1))
	case "QUIT":
		t.quit(msg.Nick())
	case "NICK":
		t.rename(msg.Nick(), msg.Param(0))
	case "353":
		// :server 353 me = #chan :@op +voice plain
		if len(msg.Params) >= 4 {
			for _, n := range strings.Fields(msg.Trailing()) {
				t.join(msg.Param(2), strings.TrimLeft(n, namePrefixes))
			}
		}
	}
	return nil
}

func fold(s string) string {
	return strings.ToLower(s)
}

func (t *Tracker) isSelf(nick string) bool {
	return t.nick != "" && fold(nick) == fold(t.nick)
}

func (t *Tracker) join(name, nick string) {
	if name == "" || nick == "" {
		return
	}
	key := fold(name)
	ch, ok := t.channels[key]
	if !ok {
		ch = &channel{name: name, members: make(map[string]string)}
		t.channels[key] = ch
	}
	ch.members[fold(nick)] = nick
}

func (t *Tracker) part(name, nick string) {
	key := fold(name)
	ch, ok := t.channels[key]
	if !ok {
		return
	}
	if t.isSelf(nick) {
		delete(t.channels, key)
		return
	}
	delete(ch.members, fold(nick))
}

func (t *Tracker) quit(nick string) {
	for _, ch := range t.channels {
		delete(ch.members, fold(nick))
	}
}

func (t *Tracker) rename(from, to string) {
	if from == "" || to == "" {
		return
	}
	if t.isSelf(from) {
		t.nick = to
	}
	for _, ch := range t.channels {
		if _, ok := ch.members[fold(from)]; ok {
			delete(ch.members, fold(from))
			ch.members[fold(to)] = to
		}
	}
}

// Nick returns the client's own nick as announced by RPL_WELCOME.
func (t *Tracker) Nick() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.nick
}

// Channels returns the tracked channel names, sorted.
func (t *Tracker) Channels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	names := make([]string, 0, len(t.channels))
	for _, ch := range t.channels {
		names = append(names, ch.name)
	}
	sort.Strings(names)
	return names
}

// Members returns the members of channel, sorted. Unknown channels yield nil.
func (t *Tracker) Members(name string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ch, ok := t.channels[fold(name)]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(ch.members))
	for _, n := range ch.members {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// IsMember reports whether nick is in channel.
func (t *Tracker) IsMember(name, nick string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ch, ok := t.channels[fold(name)]
	if !ok {
		return false
	}
	_, ok = ch.members[fold(nick)]
	return ok
}

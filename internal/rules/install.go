package rules

import (
	"fmt"
	"log/slog"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/ircmsg"
	"github.com/roach88/ircevents/internal/outbox"
)

// CountersNamespace holds the per-rule counters.
const CountersNamespace = "counters"

// HandlerPrefix prefixes the handler name of every installed rule.
const HandlerPrefix = "rule:"

type installOptions struct {
	logger *slog.Logger
}

// InstallOption configures Install.
type InstallOption func(*installOptions)

// WithLogger sets the logger used by log actions. Defaults to slog.Default().
func WithLogger(l *slog.Logger) InstallOption {
	return func(o *installOptions) { o.logger = l }
}

// Install registers one handler per rule, in order. Replies go to out,
// which may be nil only if no rule replies.
func Install(eng *engine.Engine[*ircmsg.Message], rules []Rule, out *outbox.Outbox, opts ...InstallOption) error {
	o := installOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	for _, r := range rules {
		if r.Reply != nil && out == nil {
			return fmt.Errorf("rule %s replies but no outbox was given", r.Name)
		}
	}
	for _, r := range rules {
		eng.Handle(HandlerPrefix+r.Name, r.When, handlerFor(r, out, o.logger))
	}
	return nil
}

func handlerFor(r Rule, out *outbox.Outbox, logger *slog.Logger) engine.HandlerFunc[*ircmsg.Message] {
	logger = logger.With("rule", r.Name)

	return func(line *ircmsg.Message, ns engine.Accessor) error {
		if r.Reply != nil {
			reply, err := r.Reply.Build(line)
			if err != nil {
				// Values come from the peer: an unanswerable line is skipped.
				logger.Warn("skipping reply", "command", line.Command, "error", err)
			} else if err := out.EnqueueMessage(reply); err != nil {
				return fmt.Errorf("reply: %w", err)
			}
		}
		if r.Count != "" {
			ns.Set(CountersNamespace, r.Count, engine.GetInt(ns, CountersNamespace, r.Count, 0)+1)
		}
		if r.Log {
			logger.Info("rule matched", "command", line.Command, "source", line.Source, "params", line.Params)
		}
		return nil
	}
}

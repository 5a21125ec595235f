package cli

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/roach88/ircevents/internal/store"
)

// TranscriptOptions holds flags for the transcript command.
type TranscriptOptions struct {
	*RootOptions
	Database string
	Session  string // optional - list sessions when empty
	Command  string // optional - filter lines to one command
}

// SessionInfo summarizes one recorded session.
type SessionInfo struct {
	ID        string         `json:"id"`
	Delimiter string         `json:"delimiter"`
	SeqStart  int64          `json:"seq_start,omitempty"`
	Commands  map[string]int `json:"commands"`
}

// TranscriptLine is one recorded line with the handlers it was dispatched to.
type TranscriptLine struct {
	Seq       int64    `json:"seq"`
	Raw       string   `json:"raw"`
	Command   string   `json:"command,omitempty"`
	Malformed bool     `json:"malformed,omitempty"`
	Error     string   `json:"error,omitempty"`
	Handlers  []string `json:"handlers"`
}

// TranscriptResult holds the transcript of a single session.
type TranscriptResult struct {
	Session    string           `json:"session"`
	Lines      []TranscriptLine `json:"lines"`
	Dispatches int              `json:"dispatches"`
	Malformed  int              `json:"malformed"`
}

// NewTranscriptCommand creates the transcript command.
func NewTranscriptCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TranscriptOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transcript",
		Short: "Show recorded sessions",
		Long: `Show lines and dispatches recorded by replay or listen with --db.

Without --session, lists every recorded session with per-command line
counts. With --session, prints the session's lines in order together
with the handlers each line was dispatched to.

Examples:
  ircevents transcript --db ./irc.db
  ircevents transcript --db ./irc.db --session 0190a1b2-...
  ircevents transcript --db ./irc.db --session 0190a1b2-... --command PRIVMSG
  ircevents transcript --db ./irc.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTranscript(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to print")
	cmd.Flags().StringVar(&opts.Command, "command", "", "only show lines with this command")

	return cmd
}

func runTranscript(opts *TranscriptOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if opts.Session == "" {
		return listSessions(ctx, st, opts, cmd)
	}

	lines, err := st.ReadLines(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read lines", err)
	}
	dispatches, err := st.ReadDispatches(ctx, opts.Session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read dispatches", err)
	}

	result := buildTranscript(opts.Session, lines, dispatches, opts.Command)

	if opts.Format == "json" {
		f := newFormatter(opts.RootOptions, cmd)
		return f.writeJSON(CLIResponse{Status: "ok", SessionID: opts.Session, Data: result})
	}
	return outputTranscriptText(cmd, result)
}

func listSessions(ctx context.Context, st *store.Store, opts *TranscriptOptions, cmd *cobra.Command) error {
	sessions, err := st.Sessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to list sessions", err)
	}

	infos := make([]SessionInfo, 0, len(sessions))
	for _, sess := range sessions {
		counts, err := st.CountByCommand(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to count lines", err)
		}
		infos = append(infos, SessionInfo{
			ID:        sess.ID,
			Delimiter: strconv.Quote(string(sess.Delimiter)),
			SeqStart:  sess.SeqStart,
			Commands:  counts,
		})
	}

	if opts.Format == "json" {
		f := newFormatter(opts.RootOptions, cmd)
		return f.writeJSON(CLIResponse{Status: "ok", Data: infos})
	}

	w := cmd.OutOrStdout()
	if len(infos) == 0 {
		fmt.Fprintln(w, "No sessions recorded.")
		return nil
	}
	for _, info := range infos {
		total := 0
		for _, n := range info.Commands {
			total += n
		}
		fmt.Fprintf(w, "%s  delimiter=%s  lines=%d", info.ID, info.Delimiter, total)
		if info.SeqStart != 0 {
			fmt.Fprintf(w, "  seq_start=%d", info.SeqStart)
		}
		fmt.Fprintln(w)
		for _, c := range slices.Sorted(maps.Keys(info.Commands)) {
			label := c
			if label == "" {
				label = "(malformed)"
			}
			fmt.Fprintf(w, "  %-12s %d\n", label, info.Commands[c])
		}
	}
	return nil
}

// buildTranscript joins lines with their dispatches. When command is set,
// only lines with that command are kept.
func buildTranscript(session string, lines []store.LineRecord, dispatches []store.DispatchRecord, command string) TranscriptResult {
	bySeq := make(map[int64][]string)
	for _, d := range dispatches {
		bySeq[d.Seq] = append(bySeq[d.Seq], d.HandlerName)
	}

	result := TranscriptResult{Session: session, Lines: []TranscriptLine{}}
	for _, rec := range lines {
		if command != "" && rec.Command != command {
			continue
		}
		handlers := bySeq[rec.Seq]
		if handlers == nil {
			handlers = []string{}
		}
		result.Lines = append(result.Lines, TranscriptLine{
			Seq:       rec.Seq,
			Raw:       string(rec.Raw),
			Command:   rec.Command,
			Malformed: rec.Malformed,
			Error:     rec.Error,
			Handlers:  handlers,
		})
		result.Dispatches += len(handlers)
		if rec.Malformed {
			result.Malformed++
		}
	}
	return result
}

func outputTranscriptText(cmd *cobra.Command, result TranscriptResult) error {
	w := cmd.OutOrStdout()
	if len(result.Lines) == 0 {
		fmt.Fprintf(w, "No lines recorded for session: %s\n", result.Session)
		return nil
	}

	fmt.Fprintf(w, "Session: %s\n\n", result.Session)
	for _, l := range result.Lines {
		switch {
		case l.Malformed:
			fmt.Fprintf(w, "[%d] ✗ %s\n    malformed: %s\n", l.Seq, l.Raw, l.Error)
		case len(l.Handlers) == 0:
			fmt.Fprintf(w, "[%d] %s\n", l.Seq, l.Raw)
		default:
			fmt.Fprintf(w, "[%d] %s\n    → %v\n", l.Seq, l.Raw, l.Handlers)
		}
	}
	fmt.Fprintf(w, "\n%d lines, %d dispatches, %d malformed\n", len(result.Lines), result.Dispatches, result.Malformed)
	return nil
}

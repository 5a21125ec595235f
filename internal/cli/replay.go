package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/ircevents/internal/engine"
	"github.com/roach88/ircevents/internal/transport"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	PipelineOptions

	// Replies receives outbound lines. Defaults to discarding them.
	Replies io.Writer
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	return newReplayCommand(&ReplayOptions{RootOptions: rootOpts})
}

func newReplayCommand(opts *ReplayOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "replay <capture-file>",
		Short: "Dispatch a captured IRC stream",
		Long: `Stream a captured IRC session through the dispatch engine.

Every line is framed, tracked for channel state and dispatched to the
handlers compiled from --rules. With --db the inbound lines and handler
calls are written to a SQLite transcript.

Exit codes:
  0 - Stream dispatched to the end
  1 - The engine stopped with a dispatch error
  2 - Command error (file not found, bad rules, etc.)

Examples:
  ircevents replay ./capture.log
  ircevents replay ./capture.log --rules ./rules --db ./transcript.db
  ircevents replay ./capture.log --delimiter '\n' --format json`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, args[0], cmd)
		},
	}

	addPipelineFlags(cmd, &opts.PipelineOptions)
	return cmd
}

// addPipelineFlags registers the engine flags shared by replay and listen.
func addPipelineFlags(cmd *cobra.Command, opts *PipelineOptions) {
	cmd.Flags().StringVar(&opts.RulesDir, "rules", "", "directory of CUE rule files")
	cmd.Flags().StringVar(&opts.Database, "db", "", "write a transcript to this SQLite database")
	cmd.Flags().StringVar(&opts.Delimiter, "delimiter", `\r\n`, "line delimiter (Go escapes allowed)")
	cmd.Flags().IntVar(&opts.MaxLine, "max-line", DefaultMaxLine, "max buffered bytes without a delimiter (0 = unlimited)")
	cmd.Flags().IntVar(&opts.ReadSize, "read-size", engine.DefaultReadSize, "max bytes per read")
	cmd.Flags().StringVar(&opts.Policy, "policy", "skip", "malformed line policy (skip|fail)")
	cmd.Flags().Int64Var(&opts.SeqStart, "seq-start", 0, "number lines after this value, e.g. to continue an earlier transcript")
}

func runReplay(opts *ReplayOptions, path string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return WrapExitError(ExitCommandError, fmt.Sprintf("capture file not found: %s", path), err)
		}
		return WrapExitError(ExitCommandError, "failed to open capture file", err)
	}
	defer f.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	replies := opts.Replies
	if replies == nil {
		replies = io.Discard
	}

	p, err := newPipeline(ctx, transport.FromReader(f), replies, opts.PipelineOptions, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	formatter.VerboseLog("Replaying %s (session %s, %d rule(s))", path, p.eng.SessionID(), len(p.rules))

	summary, runErr := p.run(ctx)
	if err := outputSummary(formatter, summary, runErr); err != nil {
		return err
	}
	if runErr != nil {
		return WrapExitError(ExitFailure, "dispatch stopped", runErr)
	}
	return nil
}

// outputSummary prints a run summary in the configured format.
func outputSummary(f *OutputFormatter, s Summary, runErr error) error {
	if f.Format == "json" {
		resp := CLIResponse{Status: "ok", Data: s, SessionID: s.Session}
		if runErr != nil {
			resp.Status = "error"
			resp.Error = &CLIError{Code: ErrCodeDispatch, Message: runErr.Error(), Details: dispatchDetails(runErr)}
		}
		return f.writeJSON(resp)
	}

	w := f.Writer
	fmt.Fprintf(w, "Session %s\n", s.Session)
	fmt.Fprintf(w, "  Lines: %d (%d malformed)\n", s.Lines, s.Malformed)
	if s.Pending > 0 {
		fmt.Fprintf(w, "  Pending: %d byte(s) without delimiter\n", s.Pending)
	}
	if s.Nick != "" {
		fmt.Fprintf(w, "  Nick: %s\n", s.Nick)
	}
	for _, ch := range s.Channels {
		fmt.Fprintf(w, "  Channel %s: %d member(s)\n", ch.Name, ch.Members)
	}
	for _, h := range s.Handlers {
		fmt.Fprintf(w, "  Handler %s: %d call(s)\n", h.Name, h.Calls)
	}
	for _, k := range slices.Sorted(maps.Keys(s.Counters)) {
		fmt.Fprintf(w, "  Counter %s: %d\n", k, s.Counters[k])
	}
	fmt.Fprintf(w, "  Replies: %d\n", s.Replies)

	if runErr != nil {
		fmt.Fprintf(w, "✗ %v\n", runErr)
		return nil
	}
	fmt.Fprintln(w, "✓ Stream dispatched")
	return nil
}

// dispatchDetails exposes the structured fields of a dispatch error.
func dispatchDetails(err error) map[string]any {
	var de *engine.DispatchError
	if !errors.As(err, &de) {
		return nil
	}
	d := map[string]any{"code": string(de.Code), "stage": string(de.Stage)}
	if de.Name != "" {
		d["name"] = de.Name
	}
	if de.Seq > 0 {
		d["seq"] = de.Seq
		d["line"] = string(de.RawLine)
	}
	return d
}

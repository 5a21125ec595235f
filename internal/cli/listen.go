package cli

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/roach88/ircevents/internal/transport"
)

// ListenOptions holds flags for the listen command.
type ListenOptions struct {
	*RootOptions
	PipelineOptions
}

// NewListenCommand creates the listen command.
func NewListenCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ListenOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "listen <ws-url>",
		Short: "Dispatch a live IRC-over-WebSocket stream",
		Long: `Connect to an IRC-over-WebSocket endpoint and dispatch its lines
until the server closes the connection or the process is interrupted.

Rule replies are sent back over the same connection.

Examples:
  ircevents listen wss://irc.example.net/webirc --rules ./rules
  ircevents listen ws://localhost:8097 --db ./transcript.db -v`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runListen(opts, args[0], cmd)
		},
	}

	addPipelineFlags(cmd, &opts.PipelineOptions)
	return cmd
}

func runListen(opts *ListenOptions, url string, cmd *cobra.Command) error {
	formatter := newFormatter(opts.RootOptions, cmd)
	logger := newLogger(cmd.ErrOrStderr(), opts.Verbose)

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to connect", err)
	}
	defer conn.Close()

	p, err := newPipeline(ctx, transport.FromWebSocket(conn), transport.WebSocketWriter(conn), opts.PipelineOptions, logger)
	if err != nil {
		return err
	}
	defer p.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// The engine checks ctx between reads; closing the connection
	// unblocks a read that is waiting on the server.
	go func() {
		select {
		case sig := <-sigChan:
			logger.Info("received signal, shutting down", "signal", sig)
			cancel()
			conn.Close()
		case <-ctx.Done():
		}
	}()

	logger.Info("listening", "url", url, "session", p.eng.SessionID())
	formatter.VerboseLog("Connected to %s (session %s)", url, p.eng.SessionID())

	summary, runErr := p.run(ctx)
	if ctx.Err() != nil {
		// Interrupted: the read error from the closed connection is expected.
		logger.Debug("run ended after shutdown", "error", runErr)
		summary.Error = ""
		runErr = nil
	}
	if err := outputSummary(formatter, summary, runErr); err != nil {
		return err
	}
	if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return WrapExitError(ExitFailure, "dispatch stopped", runErr)
	}
	return nil
}


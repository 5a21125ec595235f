package cli

import (
	"io"
	"log/slog"
)

// newLogger returns a text logger writing to w. Verbose lowers the level
// to debug; otherwise only warnings and errors are shown so command
// output stays readable.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

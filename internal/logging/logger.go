// Package logging builds the slog loggers shared by the dispatcher's
// components.
package logging

import (
	"io"
	"log/slog"
	"os"
)

// New returns a text logger at the given level. It writes to stderr so
// stdout stays free for tool output and CLI results.
func New(level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: normalizeKeys,
	}))
}

// NewNop returns a logger that discards everything. Components fall back to
// it when no logger is injected.
func NewNop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// normalizeKeys renames the "error" attribute to "err" so log lines stay
// uniform no matter which component emitted them.
func normalizeKeys(groups []string, a slog.Attr) slog.Attr {
	if a.Key == "error" {
		a.Key = "err"
	}
	return a
}

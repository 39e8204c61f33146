package logger

import "log/slog"

// NewNope returns a logger that discards everything.
// Packages use it when the caller did not supply a logger.
func NewNope() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

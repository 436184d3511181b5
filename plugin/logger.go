package plugin

import (
	"log/slog"
	"os"
)

// Logger is the structured logger handed to plugin code.
type Logger = *slog.Logger

// NewLogger returns a logger writing to stderr. Stdout is reserved for
// protocol messages. jsonOutput selects the JSON handler for log
// aggregation setups.
func NewLogger(jsonOutput bool) Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if jsonOutput {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

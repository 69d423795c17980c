// Package logging installs the process-wide slog default. Both binaries call
// Init before anything else logs.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the default logger from the environment. LOG_LEVEL picks
// the threshold; LOG_FORMAT=json switches to machine-readable output so a
// deployed server can feed a log shipper, while the CLI stays on the text
// handler.
func Init() {
	opts := &slog.HandlerOptions{Level: parseLevel(os.Getenv("LOG_LEVEL"))}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}

// parseLevel also accepts the environment names the deployment scripts use,
// so LOG_LEVEL=production quiets the server down to errors.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "dev", "development", "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error", "prod", "production":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

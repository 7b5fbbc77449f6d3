package logger

import (
	"log/slog"
	"os"
	"strings"

	"github.com/finchmsg/finch-core/internal/config"
)

// Setup initializes and configures the application's logging system based
// on the provided configuration. It creates a structured JSON logger with
// the appropriate log level, sets it as the default logger, and returns it
// for explicit injection into components.
func Setup(cfg config.ServerConfig) *slog.Logger {
	// Parse the log level from configuration (case-insensitive)
	var level slog.Level
	switch strings.ToLower(cfg.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		// If the log level is invalid, use info level as default and log a warning
		level = slog.LevelInfo

		tmpLogger := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmpLogger.Warn("invalid log level configured, using default level",
			"configured_level", cfg.LogLevel,
			"default_level", "info")
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	// JSON to stdout; the GUI shell redirects this to the app log file.
	handler := slog.NewJSONHandler(os.Stdout, opts)
	logger := slog.New(handler)

	// Set as default so package-level slog calls share the same handler.
	slog.SetDefault(logger)

	return logger
}

// Package logging configures the process-wide slog logger from the
// LOG_LEVEL environment variable. Ported from util/logutil.go's InitSlog,
// generalized with an IsDebug helper internal/debugdump uses to gate its
// AST/IR dumps.
package logging

import (
	"log/slog"
	"os"
	"strings"
)

var debugEnabled bool

// Init configures slog based on the LOG_LEVEL environment variable.
// Supported levels: debug, info, warn, error. Unset leaves slog's default
// handler in place; an unrecognized value installs the stderr text handler
// at info level.
func Init() {
	logLevel, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		return
	}

	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
		debugEnabled = true
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	slog.SetDefault(slog.New(handler))
}

// IsDebug reports whether LOG_LEVEL=debug was set at Init time.
func IsDebug() bool {
	return debugEnabled
}

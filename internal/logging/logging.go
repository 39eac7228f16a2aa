// Package logging configures the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// EnvLevel overrides the configured level when set.
const EnvLevel = "DOCSEARCH_LOG_LEVEL"

var level = new(slog.LevelVar)

// Configure installs a text handler writing to w as the default logger.
// The level comes from DOCSEARCH_LOG_LEVEL if set, else from cfgLevel,
// else Info.
func Configure(w io.Writer, cfgLevel string) *slog.Logger {
	lvl := cfgLevel
	if env := os.Getenv(EnvLevel); env != "" {
		lvl = env
	}
	level.Set(ParseLevel(lvl))
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}

// SetLevel changes the level of the logger installed by Configure.
func SetLevel(l slog.Level) {
	level.Set(l)
}

// ParseLevel maps DEBUG, INFO, WARN and ERROR (any case) to a slog level.
// Anything else is Info.
func ParseLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

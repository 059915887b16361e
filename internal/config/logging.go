package config

import (
    "io"
    "log/slog"
    "os"
)

// NewLogger configures the global slog logger with JSON output.  Accepts
// debug, info, warn and error; anything else means info.
func NewLogger(level string) *slog.Logger {
    return newLogger(os.Stdout, level)
}

func newLogger(w io.Writer, level string) *slog.Logger {
    var lvl slog.Level
    switch level {
    case "debug":
        lvl = slog.LevelDebug
    case "warn", "warning":
        lvl = slog.LevelWarn
    case "error":
        lvl = slog.LevelError
    default:
        lvl = slog.LevelInfo
    }
    logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lvl, AddSource: true}))
    slog.SetDefault(logger)
    return logger
}

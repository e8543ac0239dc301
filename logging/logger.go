package logging

import (
	"context"
	"log/slog"
)

var levels = map[LogLevel]slog.Level{
	LogLevelDebug: slog.LevelDebug,
	LogLevelInfo:  slog.LevelInfo,
}

// Log records msg at level. Only the debug and info levels are valid here;
// LogLevelNone is a setting for Setup, not a level to log at.
func Log(level LogLevel, msg string, args ...any) {
	if logger == nil {
		return
	}
	l, ok := levels[level]
	if !ok {
		panic("passing something else than Debug/Info, if you want to disable logging then call binary with -lnone or --loglevel=none")
	}
	logger.Log(context.Background(), l, msg, args...)
}

// Warn records something that went wrong without stopping anything.
func Warn(msg string, args ...any) {
	if logger == nil {
		return
	}
	logger.Warn(msg, args...)
}

// LogErr records err, if any, with the given attributes.
func LogErr(err error, msg string, args ...any) {
	if err == nil || logger == nil {
		return
	}

	logger.Error(msg, append([]any{"error", err.Error()}, args...)...)
}

package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"
	slogjournal "github.com/systemd/slog-journal"
)

type LogLevel string

const (
	LogLevelNone  LogLevel = "none"
	LogLevelInfo  LogLevel = "info"
	LogLevelDebug LogLevel = "debug"
)

var (
	logger  *slog.Logger
	logfile *os.File
)

// Setup installs the process wide logger. Records go to stderr and, when
// logpath is not empty, are also appended to that file. The file always
// receives debug records regardless of optslevel. With journal set records
// are sent to the systemd journal too, if one is reachable.
func Setup(optslevel LogLevel, logpath string, journal bool) error {
	sink := io.Discard
	if optslevel != LogLevelNone {
		sink = os.Stderr
	}

	level := slog.LevelDebug
	if optslevel == LogLevelInfo {
		level = slog.LevelInfo
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(sink, &slog.HandlerOptions{
			Level: level,
		}),
	}

	Close()
	if logpath != "" {
		f, err := os.OpenFile(logpath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file %s: %w", logpath, err)
		}
		logfile = f
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		}))
	}

	if journal {
		journalHandler, err := slogjournal.NewHandler(&slogjournal.Options{
			Level: level,
			ReplaceGroup: func(key string) string {
				return toJournalKey(key)
			},
			ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
				a.Key = toJournalKey(a.Key)
				return a
			},
		})
		if err != nil {
			record := slog.NewRecord(time.Now(), slog.LevelWarn, "systemd journal unavailable", 0)
			record.Add("error", err)
			_ = handlers[0].Handle(context.Background(), record)
		} else {
			handlers = append(handlers, journalHandler)
		}
	}

	logger = slog.New(slogmulti.Fanout(handlers...))
	return nil
}

// toJournalKey maps an attribute key to the upper case form journald
// accepts for field names.
func toJournalKey(key string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return r
		}
		return '_'
	}, strings.ToUpper(key))
}

// SetupWriter points the logger at w only. Used by tests that want to
// inspect what was logged.
func SetupWriter(w io.Writer, optslevel LogLevel) {
	level := slog.LevelDebug
	if optslevel == LogLevelInfo {
		level = slog.LevelInfo
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// Close releases the log file opened by Setup, if any.
func Close() {
	if logfile != nil {
		logfile.Close()
		logfile = nil
	}
}

package ivfengine

import (
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with the field names this package's log calls
// use consistently.
type Logger struct {
	*slog.Logger
}

// NewLogger wraps an existing slog.Logger. If logger is nil, NewLogger
// returns a logger that discards everything.
func NewLogger(logger *slog.Logger) *Logger {
	if logger == nil {
		return NoopLogger()
	}
	return &Logger{Logger: logger}
}

// NoopLogger returns a Logger that discards all output, the default for
// a library that should be silent unless explicitly configured.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1 << 20), // unreachable
	})
	return &Logger{Logger: slog.New(handler)}
}

func (l *Logger) logAdd(id uint64, err error) {
	if err != nil {
		l.Error("add failed", "error", err)
		return
	}
	l.Debug("add completed", "id", id)
}

func (l *Logger) logBuild(nLists int, duration float64, err error) {
	if err != nil {
		l.Error("build failed", "n_lists", nLists, "error", err)
		return
	}
	l.Info("build completed", "n_lists", nLists, "seconds", duration)
}

func (l *Logger) logSearch(k, found int, err error) {
	if err != nil {
		l.Error("search failed", "k", k, "error", err)
		return
	}
	l.Debug("search completed", "k", k, "results", found)
}

func (l *Logger) logRecovery(replayed int, err error) {
	if err != nil {
		l.Error("WAL recovery failed", "entries_replayed", replayed, "error", err)
		return
	}
	l.Info("WAL recovery completed", "entries_replayed", replayed)
}

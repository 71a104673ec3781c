package docdb

import (
	"context"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger with docdb-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.Level(1000), // Unreachable level
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// WithDatabase adds a database field to the logger.
func (l *Logger) WithDatabase(name string) *Logger {
	return &Logger{
		Logger: l.Logger.With("database", name),
	}
}

// LogInsert logs a single document insert.
func (l *Logger) LogInsert(ctx context.Context, collection string, id uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "insert failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "insert completed",
			"collection", collection,
			"id", id,
		)
	}
}

// LogBatchInsert logs a multi-document insert.
func (l *Logger) LogBatchInsert(ctx context.Context, collection string, count int, err error) {
	if err != nil {
		l.WarnContext(ctx, "batch insert failed",
			"collection", collection,
			"total", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "batch insert completed",
			"collection", collection,
			"count", count,
		)
	}
}

// LogDelete logs the deletion of documents.
func (l *Logger) LogDelete(ctx context.Context, collection string, count int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"collection", collection,
			"count", count,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"collection", collection,
			"count", count,
		)
	}
}

// LogFilter logs a filter evaluation.
func (l *Logger) LogFilter(ctx context.Context, collection string, constraints int, matched uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "filter failed",
			"collection", collection,
			"constraints", constraints,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "filter completed",
			"collection", collection,
			"constraints", constraints,
			"matched", matched,
		)
	}
}

// LogBackup logs a backup run.
func (l *Logger) LogBackup(ctx context.Context, id string, files int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "backup failed",
			"backup_id", id,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "backup completed",
			"backup_id", id,
			"files", files,
		)
	}
}

// LogRecovery logs the rebuild of a collection from its blob log.
func (l *Logger) LogRecovery(ctx context.Context, collection string, documents uint64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "collection recovery failed",
			"collection", collection,
			"documents", documents,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "collection recovery completed",
			"collection", collection,
			"documents", documents,
		)
	}
}

// LogRotation logs the sealing of the current data file of a collection.
func (l *Logger) LogRotation(ctx context.Context, collection string, err error) {
	if err != nil {
		l.ErrorContext(ctx, "data file rotation failed",
			"collection", collection,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "data file rotated",
			"collection", collection,
		)
	}
}

// LogEviction logs data files unmapped by the memory monitor.
func (l *Logger) LogEviction(ctx context.Context, collection string, files int) {
	l.InfoContext(ctx, "data files unmapped",
		"collection", collection,
		"files", files,
	)
}

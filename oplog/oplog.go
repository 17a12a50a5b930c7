// Package oplog writes persistent, operator-facing log entries through the
// backend so pauses and terminal status changes stay visible after the
// process exits. When the backend write itself fails, the entry falls back to
// the console logger so it is never silently lost.
package oplog

import (
	"context"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
)

// Log severity levels as persisted by the backend.
const (
	LevelDebug = "debug"
	LevelInfo  = "info"
	LevelWarn  = "warn"
	LevelError = "error"
)

// Writer sends structured log entries to the backend with a console
// fallback.
type Writer struct {
	backend core.Backend
	console logging.Logger
}

// New creates a Writer. A nil console defaults to the no-op logger.
func New(backend core.Backend, console logging.Logger) *Writer {
	if console == nil {
		console = logging.NoOpLogger{}
	}
	return &Writer{backend: backend, console: console}
}

// Project records an entry scoped to a project.
func (w *Writer) Project(ctx context.Context, projectID int64, level, code, message string) {
	id := projectID
	w.write(ctx, core.LogEntry{ProjectID: &id, Message: message, Level: level, Code: code})
}

// Service records a service-level entry with no project attached, such as a
// watchdog sweep marker.
func (w *Writer) Service(ctx context.Context, level, code, message string) {
	w.write(ctx, core.LogEntry{Message: message, Level: level, Code: code})
}

func (w *Writer) write(ctx context.Context, entry core.LogEntry) {
	if err := w.backend.CreateLogEntry(ctx, entry); err != nil {
		// Fallback keeps the original entry visible even when persistence is
		// down.
		w.console.Error("failed to persist operator log entry",
			"error", err,
			"code", entry.Code,
			"level", entry.Level,
			"original_message", entry.Message,
		)
	}
}

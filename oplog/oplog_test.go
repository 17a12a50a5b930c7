package oplog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/backend"
	"github.com/parleyhq/parley/core"
)

type failingBackend struct {
	*backend.InMemoryBackend
}

func (f *failingBackend) CreateLogEntry(context.Context, core.LogEntry) error {
	return errors.New("persistence down")
}

type captureLogger struct {
	errors []string
}

func (c *captureLogger) Debug(string, ...any)       {}
func (c *captureLogger) Info(string, ...any)        {}
func (c *captureLogger) Warn(string, ...any)        {}
func (c *captureLogger) Error(msg string, _ ...any) { c.errors = append(c.errors, msg) }

func TestProject_PersistsScopedEntry(t *testing.T) {
	be := backend.NewInMemoryBackend()
	be.SeedProject(core.ContextSnapshot{ProjectID: 1}, core.Flags{}, time.Now())
	w := New(be, nil)

	w.Project(context.Background(), 1, LevelWarn, "SOME_CODE", "something happened")

	logs := be.Logs()
	require.Len(t, logs, 1)
	require.NotNil(t, logs[0].ProjectID)
	assert.Equal(t, int64(1), *logs[0].ProjectID)
	assert.Equal(t, LevelWarn, logs[0].Level)
	assert.Equal(t, "SOME_CODE", logs[0].Code)
}

func TestService_PersistsUnscopedEntry(t *testing.T) {
	be := backend.NewInMemoryBackend()
	w := New(be, nil)

	w.Service(context.Background(), LevelInfo, "WATCHDOG_START", "sweeping")

	logs := be.Logs()
	require.Len(t, logs, 1)
	assert.Nil(t, logs[0].ProjectID)
}

func TestWrite_FallsBackToConsole(t *testing.T) {
	console := &captureLogger{}
	w := New(&failingBackend{backend.NewInMemoryBackend()}, console)

	w.Service(context.Background(), LevelError, "X", "important")

	require.Len(t, console.errors, 1)
}

// Package engine drives conversations forward. A run drains one project's
// pending message queue: for each message it assembles the receiving agent's
// prompt, invokes the model, validates the structured reply and commits the
// resulting turn back to the backend. Unrecoverable failures pause the
// project with a machine-readable reason instead of crashing the service.
package engine

import (
	"context"
	"fmt"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/lease"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/oplog"
)

// DecryptFunc decrypts a stored model credential. Decryption is injected so
// the engine never learns the service secret.
type DecryptFunc func(encrypted string) (string, error)

// Options holds optional overrides for New.
type Options struct {
	// Logger receives console diagnostics; defaults to no-op.
	Logger logging.Logger
	// Locker provides per-project run exclusivity; defaults to a
	// process-local locker.
	Locker lease.Locker
	// MaxIterations caps drain iterations per run.
	MaxIterations int
	// LogPrompts enables prompt assembly diagnostics at debug level.
	LogPrompts bool
}

// Engine processes pending messages for projects. It holds no per-project
// state between runs; everything is re-fetched from the backend.
type Engine struct {
	backend    core.Backend
	invoker    model.Invoker
	summarizer *memory.Summarizer
	decrypt    DecryptFunc
	ops        *oplog.Writer
	logger     logging.Logger
	locker     lease.Locker
	maxIter    int
	logPrompts bool
}

// New constructs an Engine with optional overrides.
func New(backend core.Backend, invoker model.Invoker, summarizer *memory.Summarizer, decrypt DecryptFunc, optFns ...func(o *Options)) *Engine {
	opts := Options{
		Logger:        logging.NoOpLogger{},
		MaxIterations: core.MaxRunIterations,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Locker == nil {
		opts.Locker = lease.NewInMemoryLocker()
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = core.MaxRunIterations
	}
	return &Engine{
		backend:    backend,
		invoker:    invoker,
		summarizer: summarizer,
		decrypt:    decrypt,
		ops:        oplog.New(backend, opts.Logger),
		logger:     opts.Logger,
		locker:     opts.Locker,
		maxIter:    opts.MaxIterations,
		logPrompts: opts.LogPrompts,
	}
}

// pause halts the project. Pause failures are logged and swallowed: there is
// no better recovery than surfacing them to the console.
func (e *Engine) pause(ctx context.Context, projectID int64, reason core.ReasonCode, logger logging.Logger) {
	if err := e.backend.PauseProject(ctx, projectID, reason); err != nil {
		logger.Error("failed to pause project", "reason", string(reason), "error", err)
	}
}

// pauseContext pauses the project and marks the in-run context paused so the
// remaining messages of the current batch are skipped without re-fetching
// flags.
func (e *Engine) pauseContext(ctx context.Context, pc *core.ProjectContext, reason core.ReasonCode, logger logging.Logger) {
	e.pause(ctx, pc.ProjectID, reason, logger)
	pc.Flags.Paused = true
}

// pauseCrashed is the catch-all for unclassified failures: persist the error
// for operators and pause with HANDLER_CRASH.
func (e *Engine) pauseCrashed(ctx context.Context, projectID int64, err error, logger logging.Logger) {
	logger.Error("unrecoverable processing failure", "error", err)
	e.ops.Project(ctx, projectID, oplog.LevelError, string(core.ReasonHandlerCrash),
		fmt.Sprintf("Unrecoverable failure: %v", err))
	e.pause(ctx, projectID, core.ReasonHandlerCrash, logger)
}

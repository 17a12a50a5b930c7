package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/oplog"
)

// Run executes one orchestration pass for a project: fetch context, decrypt
// the credential, then repeatedly drain the pending queue until it is empty,
// the project stops being runnable, or the iteration cap is reached. Run
// never returns an error; every failure either pauses the project or is
// logged and absorbed.
func (e *Engine) Run(ctx context.Context, projectID int64) {
	runID := uuid.NewString()
	logger := logging.With(e.logger, "project_id", projectID, "run_id", runID)

	release, ok := e.locker.Acquire(ctx, projectID)
	if !ok {
		logger.Info("another run holds the project lease; skipping")
		return
	}
	defer release()

	defer func() {
		if r := recover(); r != nil {
			e.pauseCrashed(ctx, projectID, fmt.Errorf("panic in run %s: %v", runID, r), logger)
		}
	}()

	logger.Debug("run started")

	snap, err := e.backend.ProjectContext(ctx, projectID)
	if err != nil {
		// Without a context snapshot there is nothing to pause against;
		// record the failure and leave the queue untouched.
		logger.Error("failed to fetch project context", "error", err)
		e.ops.Project(ctx, projectID, oplog.LevelError, "CONTEXT_FETCH_FAILED",
			fmt.Sprintf("Could not fetch project context: %v", err))
		return
	}

	var apiKey string
	if snap.EncryptedAPIKey != "" {
		apiKey, err = e.decrypt(snap.EncryptedAPIKey)
		if err != nil {
			logger.Error("credential decryption failed", "error", err)
			e.ops.Project(ctx, projectID, oplog.LevelError, string(core.ReasonDecryptionFailure),
				"Failed to decrypt the project's model credential")
			e.pause(ctx, projectID, core.ReasonDecryptionFailure, logger)
			return
		}
	}

	pc := core.NewProjectContext(snap, apiKey)
	logger.Debug("project context built",
		"agents", len(pc.Agents), "conversations", len(pc.Conversations))

	for iteration := 1; iteration <= e.maxIter; iteration++ {
		// Flags are re-read every iteration so external pause/limit changes
		// take effect between batches, not just between runs.
		flags, err := e.backend.ProjectFlags(ctx, projectID)
		if err != nil {
			e.pauseCrashed(ctx, projectID, fmt.Errorf("refresh project flags: %w", err), logger)
			return
		}
		pc.Flags = flags

		if flags.Paused {
			logger.Info("project is paused; stopping run", "iteration", iteration)
			return
		}
		if !flags.TokenActive {
			e.ops.Project(ctx, projectID, oplog.LevelWarn, string(core.ReasonTokenInactive),
				"Project token is inactive or missing; pausing")
			e.pause(ctx, projectID, core.ReasonTokenInactive, logger)
			return
		}
		if flags.MessageLimit != nil && *flags.MessageLimit <= 0 {
			// Soft stop: an exhausted quota ends the run but does not pause,
			// so topping up the limit resumes the project without operator
			// intervention.
			logger.Info("message limit reached; stopping run", "iteration", iteration)
			return
		}

		pending, err := e.backend.PendingMessages(ctx, projectID)
		if err != nil {
			e.pauseCrashed(ctx, projectID, fmt.Errorf("fetch pending messages: %w", err), logger)
			return
		}
		if len(pending) == 0 {
			logger.Debug("queue drained; run complete", "iterations", iteration)
			return
		}

		logger.Debug("processing pending batch", "count", len(pending), "iteration", iteration)
		for _, msg := range pending {
			e.Handle(ctx, msg, pc)
		}
	}

	logger.Warn("iteration cap reached with work remaining", "iterations", e.maxIter)
	e.ops.Project(ctx, projectID, oplog.LevelWarn, "MAX_ITERATIONS_REACHED",
		fmt.Sprintf("Run stopped after %d iterations with messages still pending", e.maxIter))
}

// Package watchdog pauses projects that stopped making progress. A sweep
// inspects every active project for two conditions: a pending message older
// than the stale timeout (a wedged queue) and an activity gap longer than the
// idle timeout. Both pause the project so a stuck conversation cannot burn
// model quota unattended.
package watchdog

import (
	"context"
	"fmt"
	"time"

	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/oplog"
)

// Defaults for sweep timing. Both timeouts are deliberately identical: a
// queue is considered wedged on the same horizon as a silent project.
const (
	DefaultStaleTimeout  = 90 * time.Second
	DefaultIdleTimeout   = 90 * time.Second
	DefaultSweepInterval = 10 * time.Second
)

// Options holds optional overrides for New.
type Options struct {
	// StaleTimeout is the max age of the oldest pending message before the
	// queue counts as stuck.
	StaleTimeout time.Duration
	// IdleTimeout is the max gap since last activity before the project
	// counts as abandoned.
	IdleTimeout time.Duration
	// SweepInterval is the pause between sweeps in Run.
	SweepInterval time.Duration
	// Logger receives console diagnostics; defaults to no-op.
	Logger logging.Logger
	// Clock overrides time.Now for tests.
	Clock func() time.Time
}

// Watchdog periodically sweeps active projects and pauses the stalled ones.
type Watchdog struct {
	backend  core.Backend
	ops      *oplog.Writer
	logger   logging.Logger
	stale    time.Duration
	idle     time.Duration
	interval time.Duration
	now      func() time.Time
}

// New constructs a Watchdog with optional overrides.
func New(backend core.Backend, optFns ...func(o *Options)) *Watchdog {
	opts := Options{
		StaleTimeout:  DefaultStaleTimeout,
		IdleTimeout:   DefaultIdleTimeout,
		SweepInterval: DefaultSweepInterval,
		Logger:        logging.NoOpLogger{},
		Clock:         time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Watchdog{
		backend:  backend,
		ops:      oplog.New(backend, opts.Logger),
		logger:   opts.Logger,
		stale:    opts.StaleTimeout,
		idle:     opts.IdleTimeout,
		interval: opts.SweepInterval,
		now:      opts.Clock,
	}
}

// Run sweeps on a fixed interval until the context is cancelled. A panicking
// sweep is recorded and the loop continues; the watchdog must outlive any
// single bad sweep.
func (w *Watchdog) Run(ctx context.Context) {
	w.ops.Service(ctx, oplog.LevelInfo, "WATCHDOG_START",
		fmt.Sprintf("Watchdog started (stale=%s idle=%s interval=%s)", w.stale, w.idle, w.interval))

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watchdog stopping", "reason", ctx.Err())
			return
		case <-ticker.C:
			w.sweepSafely(ctx)
		}
	}
}

func (w *Watchdog) sweepSafely(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			w.logger.Error("watchdog sweep panicked", "panic", r)
			w.ops.Service(ctx, oplog.LevelError, "WATCHDOG_CRASH",
				fmt.Sprintf("Sweep panicked: %v", r))
		}
	}()
	if err := w.Sweep(ctx); err != nil {
		w.logger.Error("watchdog sweep failed", "error", err)
	}
}

// Sweep checks every active project once. Per-project failures are isolated:
// one broken project never blocks the rest of the sweep.
func (w *Watchdog) Sweep(ctx context.Context) error {
	projects, err := w.backend.ActiveProjects(ctx)
	if err != nil {
		return fmt.Errorf("list active projects: %w", err)
	}
	for _, project := range projects {
		w.check(ctx, project)
	}
	return nil
}

// check applies both stall conditions to one project. A stuck-queue pause
// short-circuits the idle check; a healthy pending queue does not count as
// activity on its own, so an idle project with a freshly enqueued message
// can still be paused for idleness.
func (w *Watchdog) check(ctx context.Context, project core.ProjectStatus) {
	logger := logging.With(w.logger, "project_id", project.ID)
	now := w.now()

	oldest, hasPending, err := w.backend.OldestPendingMessageTime(ctx, project.ID)
	if err != nil {
		logger.Error("failed to inspect pending queue", "error", err)
		return
	}
	if hasPending {
		if age := now.Sub(oldest); age > w.stale {
			logger.Warn("pending queue is stuck; pausing", "oldest_age", age)
			w.ops.Project(ctx, project.ID, oplog.LevelWarn, string(core.ReasonStuckQueue),
				fmt.Sprintf("Oldest pending message has waited %s; pausing project", age.Round(time.Second)))
			w.pause(ctx, project.ID, core.ReasonStuckQueue, logger)
			return
		}
	}

	if gap := now.Sub(project.LastActivityAt); gap > w.idle {
		logger.Warn("project idle; pausing", "idle_gap", gap)
		w.ops.Project(ctx, project.ID, oplog.LevelWarn, string(core.ReasonIdleTimeout),
			fmt.Sprintf("No activity for %s; pausing project", gap.Round(time.Second)))
		w.pause(ctx, project.ID, core.ReasonIdleTimeout, logger)
	}
}

func (w *Watchdog) pause(ctx context.Context, projectID int64, reason core.ReasonCode, logger logging.Logger) {
	if err := w.backend.PauseProject(ctx, projectID, reason); err != nil {
		logger.Error("failed to pause project", "reason", string(reason), "error", err)
	}
}

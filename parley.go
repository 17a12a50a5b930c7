// Package parley provides a high-level façade over the orchestration engine
// and its collaborators (backend persistence, model invokers, run leases and
// the stall watchdog) enabling quick construction of multi-agent conversation
// systems. Most applications interact with this package by:
//  1. Creating a Parley via New() (optionally overriding default in-memory services)
//  2. Seeding or connecting a project backend
//  3. Nudging projects to drain their pending message queues
//
// The façade delegates orchestration to engine.Engine while keeping setup
// ergonomics concise. All defaults are safe for local development and tests;
// production deployments supply the HTTP backend, real credentials decryption
// and a structured logger (see cmd/parleyd).
package parley

import (
	"context"

	"github.com/parleyhq/parley/backend"
	"github.com/parleyhq/parley/core"
	"github.com/parleyhq/parley/engine"
	"github.com/parleyhq/parley/lease"
	"github.com/parleyhq/parley/logging"
	"github.com/parleyhq/parley/memory"
	"github.com/parleyhq/parley/model"
	"github.com/parleyhq/parley/model/openai"
	"github.com/parleyhq/parley/watchdog"
)

// Options configures the Parley instance.
type Options struct {
	// Backend is the persistence collaborator (defaults to in-memory).
	Backend core.Backend
	// Invoker generates agent replies and summaries (defaults to OpenAI).
	Invoker model.Invoker
	// Decrypt decodes stored credentials. The default treats stored keys as
	// plaintext, which suits local development only.
	Decrypt engine.DecryptFunc
	// Locker provides per-project run exclusivity (defaults to in-process).
	Locker lease.Locker
	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
	// LogPrompts enables prompt assembly diagnostics.
	LogPrompts bool
	// Watchdog tunes the stall sweeps; zero values keep package defaults.
	Watchdog watchdog.Options
}

// Parley wires the engine, its summarizer and the watchdog over one backend.
type Parley struct {
	backend  core.Backend
	engine   *engine.Engine
	watchdog *watchdog.Watchdog
}

// New creates a Parley instance with optional overrides.
func New(optFns ...func(o *Options)) *Parley {
	opts := Options{
		Logger: logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Backend == nil {
		opts.Backend = backend.NewInMemoryBackend()
	}
	if opts.Invoker == nil {
		opts.Invoker = openai.New()
	}
	if opts.Decrypt == nil {
		opts.Decrypt = func(encrypted string) (string, error) { return encrypted, nil }
	}
	if opts.Locker == nil {
		opts.Locker = lease.NewInMemoryLocker()
	}

	summarizer := memory.NewSummarizer(opts.Backend, opts.Invoker, func(o *memory.Options) {
		o.Logger = opts.Logger
	})
	eng := engine.New(opts.Backend, opts.Invoker, summarizer, opts.Decrypt, func(o *engine.Options) {
		o.Logger = opts.Logger
		o.Locker = opts.Locker
		o.LogPrompts = opts.LogPrompts
	})
	dog := watchdog.New(opts.Backend, func(o *watchdog.Options) {
		if opts.Watchdog.StaleTimeout > 0 {
			o.StaleTimeout = opts.Watchdog.StaleTimeout
		}
		if opts.Watchdog.IdleTimeout > 0 {
			o.IdleTimeout = opts.Watchdog.IdleTimeout
		}
		if opts.Watchdog.SweepInterval > 0 {
			o.SweepInterval = opts.Watchdog.SweepInterval
		}
		o.Logger = opts.Logger
	})

	return &Parley{backend: opts.Backend, engine: eng, watchdog: dog}
}

// Backend exposes the configured persistence collaborator, mainly so callers
// using the in-memory default can seed projects and messages.
func (p *Parley) Backend() core.Backend { return p.backend }

// Nudge synchronously runs one orchestration pass for the project.
func (p *Parley) Nudge(ctx context.Context, projectID int64) {
	p.engine.Run(ctx, projectID)
}

// StartWatchdog runs stall sweeps until the context is cancelled.
func (p *Parley) StartWatchdog(ctx context.Context) {
	go p.watchdog.Run(ctx)
}

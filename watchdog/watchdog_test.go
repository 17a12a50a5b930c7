package watchdog

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parleyhq/parley/backend"
	"github.com/parleyhq/parley/core"
)

func seedProject(be *backend.InMemoryBackend, id int64, lastActivity time.Time) {
	be.SeedProject(core.ContextSnapshot{
		ProjectID:     id,
		Agents:        []core.Agent{{ID: 1, Name: "Ada"}, {ID: 2, Name: "Ben"}},
		Conversations: []core.Conversation{{ID: 77, SenderID: 1, ReceiverID: 2}},
	}, core.Flags{TokenActive: true}, lastActivity)
}

func newTestWatchdog(be *backend.InMemoryBackend, now time.Time) *Watchdog {
	return New(be, func(o *Options) {
		o.Clock = func() time.Time { return now }
	})
}

func TestSweep_StuckQueuePauses(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	seedProject(be, 1, now)
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "stuck", Status: core.StatusPending,
		CreatedAt: now.Add(-2 * time.Minute),
	})

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, core.ReasonStuckQueue, be.PauseReason(1))
}

func TestSweep_FreshPendingWithRecentActivityIsHealthy(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	seedProject(be, 1, now.Add(-30*time.Second))
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "fresh", Status: core.StatusPending,
		CreatedAt: now.Add(-10 * time.Second),
	})

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	flags, err := be.ProjectFlags(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, flags.Paused)
}

func TestSweep_IdleProjectPausesDespiteFreshPending(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	// A fresh pending message keeps the stuck-queue check quiet, but it is
	// not activity: the idle gap still decides.
	seedProject(be, 1, now.Add(-10*time.Minute))
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "fresh", Status: core.StatusPending,
		CreatedAt: now.Add(-10 * time.Second),
	})

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, core.ReasonIdleTimeout, be.PauseReason(1))
}

func TestSweep_StuckQueueWinsOverIdle(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	// Both conditions hold; the stuck-queue pause fires first and the idle
	// check never runs.
	seedProject(be, 1, now.Add(-10*time.Minute))
	be.SeedMessage(core.Message{
		ProjectID: 1, ConversationID: 77, SenderID: 1, ReceiverID: 2,
		Content: "stuck", Status: core.StatusPending,
		CreatedAt: now.Add(-5 * time.Minute),
	})

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, core.ReasonStuckQueue, be.PauseReason(1))
}

func TestSweep_IdleProjectPauses(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	seedProject(be, 1, now.Add(-3*time.Minute))

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, core.ReasonIdleTimeout, be.PauseReason(1))
}

func TestSweep_RecentActivityIsHealthy(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	seedProject(be, 1, now.Add(-30*time.Second))

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	flags, err := be.ProjectFlags(context.Background(), 1)
	require.NoError(t, err)
	assert.False(t, flags.Paused)
}

func TestSweep_ProjectsAreIsolated(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	seedProject(be, 1, now.Add(-time.Hour)) // idle
	seedProject(be, 2, now)                 // healthy

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	assert.Equal(t, core.ReasonIdleTimeout, be.PauseReason(1))
	flags, err := be.ProjectFlags(context.Background(), 2)
	require.NoError(t, err)
	assert.False(t, flags.Paused)
}

func TestSweep_SkipsPausedProjects(t *testing.T) {
	now := time.Now()
	be := backend.NewInMemoryBackend()
	be.SeedProject(core.ContextSnapshot{ProjectID: 1},
		core.Flags{Paused: true}, now.Add(-time.Hour))

	w := newTestWatchdog(be, now)
	require.NoError(t, w.Sweep(context.Background()))

	// Already-paused projects are not in the active set; the recorded
	// reason (none) stays untouched.
	assert.Equal(t, core.ReasonCode(""), be.PauseReason(1))
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	be := backend.NewInMemoryBackend()
	w := New(be, func(o *Options) {
		o.SweepInterval = time.Millisecond
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("watchdog did not stop after cancellation")
	}
}

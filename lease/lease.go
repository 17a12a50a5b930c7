// Package lease provides per-project run leases. Only one orchestrator run
// may hold a project's lease at a time, so concurrent nudges for the same
// project cannot interleave context mutations. InMemoryLocker covers a
// single-replica deployment; RedisLocker extends the guarantee across a
// fleet.
package lease

import (
	"context"
	"sync"
)

// Locker hands out exclusive per-project leases. Acquire returns the release
// function and true when the lease was obtained; false means another run
// holds it (or the locker could not establish ownership) and the caller must
// skip the run.
type Locker interface {
	Acquire(ctx context.Context, projectID int64) (release func(), acquired bool)
}

// InMemoryLocker is a process-local Locker backed by a mutex-guarded set.
type InMemoryLocker struct {
	mu   sync.Mutex
	held map[int64]struct{}
}

var _ Locker = (*InMemoryLocker)(nil)

// NewInMemoryLocker constructs an empty in-memory locker.
func NewInMemoryLocker() *InMemoryLocker {
	return &InMemoryLocker{held: make(map[int64]struct{})}
}

// Acquire implements Locker. The returned release function is idempotent.
func (l *InMemoryLocker) Acquire(_ context.Context, projectID int64) (func(), bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, taken := l.held[projectID]; taken {
		return nil, false
	}
	l.held[projectID] = struct{}{}

	var once sync.Once
	release := func() {
		once.Do(func() {
			l.mu.Lock()
			defer l.mu.Unlock()
			delete(l.held, projectID)
		})
	}
	return release, true
}

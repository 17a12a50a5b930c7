package lease

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryLocker_Exclusive(t *testing.T) {
	l := NewInMemoryLocker()

	release, ok := l.Acquire(context.Background(), 1)
	require.True(t, ok)

	_, ok = l.Acquire(context.Background(), 1)
	assert.False(t, ok)

	// Other projects are unaffected.
	releaseOther, ok := l.Acquire(context.Background(), 2)
	require.True(t, ok)
	releaseOther()

	release()
	release2, ok := l.Acquire(context.Background(), 1)
	assert.True(t, ok)
	release2()
}

func TestInMemoryLocker_ReleaseIsIdempotent(t *testing.T) {
	l := NewInMemoryLocker()

	release, ok := l.Acquire(context.Background(), 1)
	require.True(t, ok)
	release()
	// A second release must not free a lease someone else now holds.
	second, ok := l.Acquire(context.Background(), 1)
	require.True(t, ok)
	release()

	_, ok = l.Acquire(context.Background(), 1)
	assert.False(t, ok)
	second()
}

func TestInMemoryLocker_SingleWinnerUnderContention(t *testing.T) {
	l := NewInMemoryLocker()

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := l.Acquire(context.Background(), 7); ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
}

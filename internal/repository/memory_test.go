package repository

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCursor_RoundTrip(t *testing.T) {
	repo := NewMemoryCursorRepository()
	ctx := context.Background()

	cursor, err := repo.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.Zero(t, cursor)

	require.NoError(t, repo.SetCursor(ctx, "bookings", 7))

	cursor, err = repo.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, int64(7), cursor)
}

func TestMemoryRateLimit(t *testing.T) {
	repo := NewMemoryCursorRepository()
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := repo.CheckRateLimit(ctx, "key", 2, time.Minute)
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := repo.CheckRateLimit(ctx, "key", 2, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestMemoryRateLimit_ConcurrentCallersLoseNoIncrements(t *testing.T) {
	repo := NewMemoryCursorRepository()
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	var allowed atomic.Int64

	wg.Add(callers)
	for i := 0; i < callers; i++ {
		go func() {
			defer wg.Done()
			ok, err := repo.CheckRateLimit(ctx, "key", 10, time.Minute)
			assert.NoError(t, err)
			if ok {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(10), allowed.Load())
}

func TestMemoryRateLimit_WindowReset(t *testing.T) {
	repo := NewMemoryCursorRepository()
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, err = repo.CheckRateLimit(ctx, "key", 1, 10*time.Millisecond)
	require.NoError(t, err)
	assert.True(t, allowed)
}

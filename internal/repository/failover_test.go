package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingCursorRepo struct {
	err error
}

func (r *failingCursorRepo) GetCursor(ctx context.Context, name string) (int64, error) {
	return 0, r.err
}

func (r *failingCursorRepo) SetCursor(ctx context.Context, name string, value int64) error {
	return r.err
}

func (r *failingCursorRepo) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	return false, r.err
}

func TestFailover_UsesPrimaryWhenHealthy(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryCursorRepository()
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, "bookings", 5))

	cursor, err := primary.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, int64(5), cursor)
}

func TestFailover_MirrorsIntoFallback(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryCursorRepository()
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, "bookings", 9))

	cursor, err := fallback.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, int64(9), cursor)
}

func TestFailover_DegradesToFallback(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingCursorRepo{err: errors.New("redis down")}
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	require.NoError(t, repo.SetCursor(ctx, "bookings", 3))

	cursor, err := repo.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.Equal(t, int64(3), cursor)
}

func TestFailover_SkipsPrimaryDuringCooldown(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingCursorRepo{err: errors.New("redis down")}
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	_, err := repo.GetCursor(ctx, "bookings")
	require.NoError(t, err)
	assert.True(t, repo.isDown.Load())

	// During the cool-down the primary is not retried even if healed.
	primary.err = nil
	require.NoError(t, repo.SetCursor(ctx, "bookings", 4))
	assert.True(t, repo.isDown.Load())
}

func TestFailover_RateLimitFallsBack(t *testing.T) {
	logger := zerolog.Nop()
	primary := &failingCursorRepo{err: errors.New("redis down")}
	fallback := NewMemoryCursorRepository()
	repo := NewFailoverCursorRepository(primary, fallback, &logger)
	ctx := context.Background()

	allowed, err := repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = repo.CheckRateLimit(ctx, "k", 1, time.Minute)
	require.NoError(t, err)
	assert.False(t, allowed)
}

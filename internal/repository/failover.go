package repository

import (
	"context"
	"sync/atomic"
	"time"

	"khadamat/internal/domain"

	"github.com/rs/zerolog"
)

// FailoverCursorRepository prefers the primary (redis) repository and
// degrades to the fallback (memory) when it errors, retrying the
// primary after a cool-down.
type FailoverCursorRepository struct {
	primary   domain.CursorRepository
	fallback  domain.CursorRepository
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64 // unix nanos of the last failed primary call
}

const primaryRetryAfter = time.Minute

func NewFailoverCursorRepository(primary, fallback domain.CursorRepository, logger *zerolog.Logger) *FailoverCursorRepository {
	return &FailoverCursorRepository{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverCursorRepository) primaryUsable() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > primaryRetryAfter
}

func (r *FailoverCursorRepository) markDown(err error) {
	r.logger.Error().Err(err).Msg("primary cursor repository failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverCursorRepository) GetCursor(ctx context.Context, name string) (int64, error) {
	if r.primaryUsable() {
		cursor, err := r.primary.GetCursor(ctx, name)
		if err == nil {
			r.isDown.Store(false)
			return cursor, nil
		}
		r.markDown(err)
	}
	return r.fallback.GetCursor(ctx, name)
}

func (r *FailoverCursorRepository) SetCursor(ctx context.Context, name string, value int64) error {
	if r.primaryUsable() {
		err := r.primary.SetCursor(ctx, name, value)
		if err == nil {
			r.isDown.Store(false)
			// Mirror into fallback so a later failover starts warm.
			_ = r.fallback.SetCursor(ctx, name, value)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.SetCursor(ctx, name, value)
}

func (r *FailoverCursorRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.primaryUsable() {
		allowed, err := r.primary.CheckRateLimit(ctx, key, limit, window)
		if err == nil {
			r.isDown.Store(false)
			return allowed, nil
		}
		r.markDown(err)
	}
	return r.fallback.CheckRateLimit(ctx, key, limit, window)
}

package repository

import (
	"context"
	"sync"
	"time"
)

// MemoryCursorRepository is the in-process fallback used when redis is
// disabled or down. Cursors do not survive a restart; the poller then
// re-primes from the current collection instead of replaying alerts.
type MemoryCursorRepository struct {
	cursors    sync.Map
	rateMu     sync.Mutex
	rateLimits map[string]*rateLimitEntry
}

func NewMemoryCursorRepository() *MemoryCursorRepository {
	return &MemoryCursorRepository{rateLimits: make(map[string]*rateLimitEntry)}
}

func (r *MemoryCursorRepository) GetCursor(ctx context.Context, name string) (int64, error) {
	val, ok := r.cursors.Load(name)
	if !ok {
		return 0, nil
	}
	return val.(int64), nil
}

func (r *MemoryCursorRepository) SetCursor(ctx context.Context, name string, value int64) error {
	r.cursors.Store(name, value)
	return nil
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// CheckRateLimit counts the request against the key's window. The
// mutex covers the whole read-modify-write so concurrent callers on
// one key cannot lose increments.
func (r *MemoryCursorRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	now := time.Now()

	r.rateMu.Lock()
	defer r.rateMu.Unlock()

	entry, ok := r.rateLimits[key]
	if !ok || now.After(entry.expiresAt) {
		entry = &rateLimitEntry{
			count:     1,
			expiresAt: now.Add(window),
		}
		r.rateLimits[key] = entry
		return 1 <= limit, nil
	}

	entry.count++
	return entry.count <= limit, nil
}

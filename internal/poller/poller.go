package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"khadamat/internal/domain"
	"khadamat/internal/metrics"
	"khadamat/internal/models"

	"github.com/rs/zerolog"
)

// Store is the slice of the booking store the poller needs: one full
// read per cycle, ordered by creation time descending.
type Store interface {
	ListBookings(ctx context.Context) ([]*models.Booking, error)
}

// Poller approximates real-time updates without a push channel: it
// re-reads the booking collection on a fixed interval and treats every
// booking with an id above the last-seen cursor as a new arrival.
// Tracking the max-seen id instead of a raw count keeps deletions in
// the same interval from masking arrivals.
type Poller struct {
	store   Store
	cursors domain.CursorRepository
	alerter domain.Alerter

	interval   time.Duration
	cursorName string

	enabled atomic.Bool
	cursor  atomic.Int64
	primed  atomic.Bool

	mu        sync.RWMutex
	callbacks []func(*models.Booking)

	logger *zerolog.Logger
}

func New(store Store, cursors domain.CursorRepository, alerter domain.Alerter, interval time.Duration, logger *zerolog.Logger) *Poller {
	if interval <= 0 {
		interval = models.DefaultPollIntervalSeconds * time.Second
	}
	return &Poller{
		store:      store,
		cursors:    cursors,
		alerter:    alerter,
		interval:   interval,
		cursorName: "bookings",
		logger:     logger,
	}
}

// OnNewBooking registers a callback invoked once per newly observed
// booking, oldest first, after the cycle's alert has been raised.
func (p *Poller) OnNewBooking(fn func(*models.Booking)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.callbacks = append(p.callbacks, fn)
}

// SetEnabled switches polling on or off. While disabled no store read
// happens at all; the cursor is left untouched so re-enabling resumes
// where polling stopped.
func (p *Poller) SetEnabled(enabled bool) {
	p.enabled.Store(enabled)
}

func (p *Poller) Enabled() bool {
	return p.enabled.Load()
}

// LastSeen returns the current cursor, the highest booking id observed.
func (p *Poller) LastSeen() int64 {
	return p.cursor.Load()
}

// Start runs the polling loop until ctx is cancelled. Cycles never
// overlap: a single goroutine reads, diffs and notifies in order, and
// a slow read simply delays the next tick.
func (p *Poller) Start(ctx context.Context) {
	p.restoreCursor(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !p.enabled.Load() {
				continue
			}
			p.cycle(ctx)
		}
	}
}

// restoreCursor loads the persisted cursor so a restart does not
// replay alerts for bookings operators already saw. A missing or
// unreadable cursor leaves the poller unprimed: its first cycle then
// baselines silently instead of alerting on the whole backlog.
func (p *Poller) restoreCursor(ctx context.Context) {
	if p.cursors == nil {
		return
	}
	cursor, err := p.cursors.GetCursor(ctx, p.cursorName)
	if err != nil {
		p.logger.Warn().Err(err).Msg("poller: restore cursor failed, will baseline on first cycle")
		return
	}
	if cursor > 0 {
		p.cursor.Store(cursor)
		p.primed.Store(true)
	}
}

func (p *Poller) cycle(ctx context.Context) {
	bookings, err := p.store.ListBookings(ctx)
	if err != nil {
		// Transient read failure: skip the cycle, keep the cursor so the
		// next successful read still detects everything that arrived.
		p.logger.Warn().Err(err).Msg("poller: store read failed, cycle skipped")
		metrics.IncPollFailure()
		return
	}

	maxID := int64(0)
	for _, b := range bookings {
		if b.ID > maxID {
			maxID = b.ID
		}
	}

	if !p.primed.Load() {
		// First observation is the baseline; existing bookings are not
		// new arrivals.
		p.primed.Store(true)
		p.advance(ctx, maxID)
		metrics.IncPollCycle()
		return
	}

	cursor := p.cursor.Load()
	var fresh []*models.Booking
	// Listing is newest-first; collect then reverse so callbacks see
	// arrivals in creation order.
	for _, b := range bookings {
		if b.ID > cursor {
			fresh = append(fresh, b)
		}
	}
	for i, j := 0, len(fresh)-1; i < j; i, j = i+1, j-1 {
		fresh[i], fresh[j] = fresh[j], fresh[i]
	}

	if len(fresh) > 0 {
		// Diff first, then notify: one alert per cycle, then one
		// callback per record.
		p.alerter.Notify(ctx, fresh)
		p.mu.RLock()
		callbacks := append(([]func(*models.Booking))(nil), p.callbacks...)
		p.mu.RUnlock()
		for _, b := range fresh {
			for _, fn := range callbacks {
				fn(b)
			}
		}
	}

	p.advance(ctx, maxID)
	metrics.IncPollCycle()
}

func (p *Poller) advance(ctx context.Context, maxID int64) {
	if maxID <= p.cursor.Load() {
		return
	}
	p.cursor.Store(maxID)
	if p.cursors == nil {
		return
	}
	if err := p.cursors.SetCursor(ctx, p.cursorName, maxID); err != nil {
		p.logger.Warn().Err(err).Int64("cursor", maxID).Msg("poller: persist cursor failed")
	}
}

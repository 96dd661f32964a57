package service

import (
	"context"
	"errors"
	"fmt"

	"khadamat/internal/database"
	"khadamat/internal/domain"
	"khadamat/internal/events"
	"khadamat/internal/metrics"
	"khadamat/internal/models"
	"khadamat/internal/notify"
	"khadamat/internal/pricing"
	"khadamat/internal/validation"

	"github.com/rs/zerolog"
)

// ErrStoreUnavailable wraps store read/write failures surfaced to the
// caller as a retryable condition; the record's prior state holds.
var ErrStoreUnavailable = errors.New("booking store unavailable")

// IllegalTransitionError names a status change outside the lifecycle
// table, including self-transitions.
type IllegalTransitionError struct {
	From string
	To   string
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal booking transition from %q to %q", e.From, e.To)
}

// transitions is the full lifecycle table. Absent targets are illegal;
// completed and cancelled have no exits.
var transitions = map[string][]string{
	models.StatusPending:    {models.StatusConfirmed, models.StatusCancelled},
	models.StatusConfirmed:  {models.StatusInProgress, models.StatusCancelled},
	models.StatusInProgress: {models.StatusCompleted},
	models.StatusCompleted:  {},
	models.StatusCancelled:  {},
}

// CanTransition reports whether target is in the allowed-target set of
// from. Self-loops are not.
func CanTransition(from, to string) bool {
	for _, allowed := range transitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

type BookingService struct {
	store     domain.BookingStore
	catalog   domain.CatalogStore
	providers domain.ProviderStore
	eventBus  domain.EventPublisher
	notifier  domain.HandoffEnqueuer
	validator *validation.Validator
	channel   string
	logger    *zerolog.Logger
}

func NewBookingService(
	store domain.BookingStore,
	catalog domain.CatalogStore,
	providers domain.ProviderStore,
	eventBus domain.EventPublisher,
	notifier domain.HandoffEnqueuer,
	channel string,
	logger *zerolog.Logger,
) *BookingService {
	if channel == "" {
		channel = "whatsapp"
	}
	return &BookingService{
		store:     store,
		catalog:   catalog,
		providers: providers,
		eventBus:  eventBus,
		notifier:  notifier,
		validator: validation.New(),
		channel:   channel,
		logger:    logger,
	}
}

// Create validates and persists a submission with status pending and
// returns the price descriptor quoted to the customer. The record is
// never persisted in an invalid state: every violated rule is reported
// before the store is touched.
func (s *BookingService) Create(ctx context.Context, b *models.Booking) (pricing.Descriptor, error) {
	var svc *models.Service
	if b.ServiceID != 0 && s.catalog != nil {
		found, err := s.catalog.GetService(ctx, b.ServiceID)
		switch {
		case err == nil:
			svc = found
			if b.ServiceName == "" {
				b.ServiceName = svc.Name
			}
			if b.Category == "" {
				b.Category = svc.Category
			}
		case errors.Is(err, database.ErrNotFound):
			// Service reference is advisory; the booking still names the
			// service and category inline.
		default:
			return pricing.Descriptor{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
		}
	}

	if err := s.validator.Validate(b, svc); err != nil {
		return pricing.Descriptor{}, err
	}

	price, err := pricing.Quote(b)
	if err != nil {
		return pricing.Descriptor{}, err
	}

	b.Status = models.StatusPending
	if err := s.store.CreateBooking(ctx, b); err != nil {
		return pricing.Descriptor{}, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	metrics.IncBookingCreated(b.Category)
	s.publishEvent(events.EventBookingCreated, b, "customer")
	return price, nil
}

// Transition advances a booking's status per the lifecycle table. The
// mutation is durably persisted with a version check before success is
// reported; on a lost race the record is left to the winner and
// database.ErrConcurrentModification surfaces.
func (s *BookingService) Transition(ctx context.Context, id int64, target string, version int64, changedBy string) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if !CanTransition(b.Status, target) {
		return nil, &IllegalTransitionError{From: b.Status, To: target}
	}

	if version == 0 {
		version = b.Version
	}
	if err := s.store.UpdateBookingStatusWithVersion(ctx, id, version, target); err != nil {
		if errors.Is(err, database.ErrConcurrentModification) || errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	metrics.IncTransition(target)

	updated, err := s.store.GetBooking(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.publishEvent(eventForStatus(target), updated, changedBy)

	if target == models.StatusConfirmed {
		s.enqueueHandoff(ctx, updated)
	}

	return updated, nil
}

// Delete is irreversible, allowed from any state including terminal
// ones, and is not a lifecycle transition.
func (s *BookingService) Delete(ctx context.Context, id int64) error {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	if err := s.store.DeleteBooking(ctx, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	s.publishEvent(events.EventBookingDeleted, b, "operator")
	return nil
}

func (s *BookingService) Get(ctx context.Context, id int64) (*models.Booking, error) {
	b, err := s.store.GetBooking(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return b, nil
}

func (s *BookingService) List(ctx context.Context, status string) ([]*models.Booking, error) {
	var bookings []*models.Booking
	var err error
	if status != "" {
		bookings, err = s.store.ListBookingsByStatus(ctx, status)
	} else {
		bookings, err = s.store.ListBookings(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return bookings, nil
}

// enqueueHandoff routes the confirmed booking to the best available
// provider in its category. Missing providers or a full queue do not
// fail the transition; operators can still share the message manually.
func (s *BookingService) enqueueHandoff(ctx context.Context, b *models.Booking) {
	if s.notifier == nil || s.providers == nil {
		return
	}

	providers, err := s.providers.ListProviders(ctx, b.Category)
	if err != nil {
		s.logger.Error().Err(err).Int64("booking_id", b.ID).Msg("provider lookup for handoff failed")
		return
	}

	for _, p := range providers {
		if !p.Available {
			continue
		}
		recipient := p.WhatsApp
		if recipient == "" {
			recipient = p.Phone
		}
		message := notify.RenderProviderMessage(b)
		if err := s.notifier.EnqueueHandoff(ctx, b.ID, recipient, s.channel, message); err != nil {
			s.logger.Error().Err(err).Int64("booking_id", b.ID).Int64("provider_id", p.ID).Msg("handoff enqueue failed")
		}
		return
	}

	s.logger.Warn().Int64("booking_id", b.ID).Str("category", b.Category).Msg("no available provider for handoff")
}

func (s *BookingService) publishEvent(eventType string, b *models.Booking, changedBy string) {
	if s.eventBus == nil {
		return
	}

	payload := events.BookingEventPayload{
		BookingID:   b.ID,
		ServiceID:   b.ServiceID,
		ServiceName: b.ServiceName,
		Category:    b.Category,
		FullName:    b.FullName,
		Phone:       b.Phone,
		Status:      b.Status,
		CreatedAt:   b.CreatedAt,
		ChangedBy:   changedBy,
	}

	if err := s.eventBus.PublishJSON(eventType, payload); err != nil {
		s.logger.Error().Err(err).Str("event_type", eventType).Int64("booking_id", b.ID).Msg("publish event error")
	}
}

func eventForStatus(status string) string {
	switch status {
	case models.StatusConfirmed:
		return events.EventBookingConfirmed
	case models.StatusInProgress:
		return events.EventBookingInProgress
	case models.StatusCompleted:
		return events.EventBookingCompleted
	case models.StatusCancelled:
		return events.EventBookingCancelled
	default:
		return events.EventBookingCreated
	}
}

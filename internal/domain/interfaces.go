package domain

import (
	"context"
	"time"

	"khadamat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BookingStore is the durable keyed storage for booking documents.
// Satisfied by database.DB; tests substitute in-memory fakes.
type BookingStore interface {
	CreateBooking(ctx context.Context, b *models.Booking) error
	GetBooking(ctx context.Context, id int64) (*models.Booking, error)
	ListBookings(ctx context.Context) ([]*models.Booking, error)
	ListBookingsByStatus(ctx context.Context, status string) ([]*models.Booking, error)
	UpdateBookingStatusWithVersion(ctx context.Context, id, fromVersion int64, status string) error
	DeleteBooking(ctx context.Context, id int64) error
}

type CatalogStore interface {
	CreateService(ctx context.Context, s *models.Service) error
	GetService(ctx context.Context, id int64) (*models.Service, error)
	ListServices(ctx context.Context, category string) ([]*models.Service, error)
	UpdateService(ctx context.Context, s *models.Service) error
	DeleteService(ctx context.Context, id int64) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpsertCategory(ctx context.Context, c *models.Category) error
}

type ProviderStore interface {
	CreateProvider(ctx context.Context, p *models.Provider) error
	GetProvider(ctx context.Context, id int64) (*models.Provider, error)
	ListProviders(ctx context.Context, category string) ([]*models.Provider, error)
	UpdateProvider(ctx context.Context, p *models.Provider) error
}

type NotifyQueueStore interface {
	CreateNotifyTask(ctx context.Context, t *models.NotifyTask) error
	PendingNotifyTasks(ctx context.Context, limit int) ([]*models.NotifyTask, error)
	MarkNotifyTask(ctx context.Context, id int64, status string, attempts int, lastError string, nextRetryAt *time.Time) error
}

// CursorRepository persists small named counters between runs: the
// poller's last-seen booking id and the API rate-limit windows.
type CursorRepository interface {
	GetCursor(ctx context.Context, name string) (int64, error)
	SetCursor(ctx context.Context, name string, value int64) error
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Alerter receives the poller's per-cycle batch of newly observed
// bookings. One call per cycle with a non-empty batch.
type Alerter interface {
	Notify(ctx context.Context, fresh []*models.Booking)
}

// HandoffEnqueuer accepts a rendered provider message for delivery by
// the notifier worker. Delivery itself is an external collaborator.
type HandoffEnqueuer interface {
	EnqueueHandoff(ctx context.Context, bookingID int64, recipient, channel, message string) error
}

// MessageSender hands a plain-text message to an external messaging
// channel identified by a contact handle.
type MessageSender interface {
	SendText(ctx context.Context, recipient, channel, text string) error
}

// TelegramSender is the subset of the bot API used for operator alerts.
type TelegramSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

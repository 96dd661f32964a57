package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"khadamat/internal/domain"
	"khadamat/internal/metrics"
	"khadamat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Alert is the transient operator-facing notification payload consumed
// by the dashboard. Sound is a hint; the visual alert stands alone.
type Alert struct {
	ID            string    `json:"id"`
	Seq           int64     `json:"seq"`
	Message       string    `json:"message"`
	Severity      string    `json:"severity"`
	Count         int       `json:"count"`
	AutoDismissMs int       `json:"auto_dismiss_ms"`
	Sound         bool      `json:"sound"`
	CreatedAt     time.Time `json:"created_at"`
}

// Dispatcher raises operator alerts for newly observed bookings and
// keeps a bounded feed of recent alerts for the dashboard to poll.
// An optional Telegram relay forwards alerts to operator chats.
type Dispatcher struct {
	mu     sync.Mutex
	alerts []Alert
	seq    int64

	dismissMs int
	sound     bool

	telegram domain.TelegramSender
	chatIDs  []int64

	logger *zerolog.Logger
}

func NewDispatcher(dismissMs int, sound bool, telegram domain.TelegramSender, chatIDs []int64, logger *zerolog.Logger) *Dispatcher {
	if dismissMs <= 0 {
		dismissMs = models.DefaultAlertDismissMs
	}
	return &Dispatcher{
		dismissMs: dismissMs,
		sound:     sound,
		telegram:  telegram,
		chatIDs:   chatIDs,
		logger:    logger,
	}
}

// Notify raises exactly one alert for the cycle's batch of new
// bookings, however many arrived. Called by the poller only with a
// non-empty batch.
func (d *Dispatcher) Notify(ctx context.Context, fresh []*models.Booking) {
	if len(fresh) == 0 {
		return
	}

	alert := Alert{
		ID:            uuid.NewString(),
		Message:       alertMessage(len(fresh)),
		Severity:      "info",
		Count:         len(fresh),
		AutoDismissMs: d.dismissMs,
		Sound:         d.sound,
		CreatedAt:     time.Now(),
	}

	d.mu.Lock()
	d.seq++
	alert.Seq = d.seq
	d.alerts = append(d.alerts, alert)
	if len(d.alerts) > models.AlertBufferSize {
		d.alerts = d.alerts[len(d.alerts)-models.AlertBufferSize:]
	}
	d.mu.Unlock()

	metrics.IncAlert()
	d.logger.Info().Int("count", len(fresh)).Msg("new bookings alert raised")

	d.relayTelegram(fresh, alert)
}

// relayTelegram is best-effort: a send failure is logged and never
// fails the alert itself.
func (d *Dispatcher) relayTelegram(fresh []*models.Booking, alert Alert) {
	if d.telegram == nil || len(d.chatIDs) == 0 {
		return
	}

	text := alert.Message
	for _, b := range fresh {
		text += "\n\n" + RenderProviderMessage(b)
	}

	for _, chatID := range d.chatIDs {
		if _, err := d.telegram.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
			d.logger.Error().Err(err).Int64("chat_id", chatID).Msg("telegram alert relay failed")
		}
	}
}

// AlertsAfter returns buffered alerts with Seq greater than after,
// oldest first. The dashboard polls this with its last seen Seq.
func (d *Dispatcher) AlertsAfter(after int64) []Alert {
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Alert, 0)
	for _, a := range d.alerts {
		if a.Seq > after {
			out = append(out, a)
		}
	}
	return out
}

func alertMessage(count int) string {
	if count == 1 {
		return "📢 وصل طلب حجز جديد"
	}
	return fmt.Sprintf("📢 وصلت %d طلبات حجز جديدة", count)
}

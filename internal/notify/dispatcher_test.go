package notify

import (
	"context"
	"errors"
	"testing"

	"khadamat/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBookings(n int) []*models.Booking {
	out := make([]*models.Booking, n)
	for i := range out {
		out[i] = &models.Booking{
			ID:       int64(i + 1),
			FullName: "عميل",
			Phone:    "0551234567",
			Category: models.CategoryDelivery,
			Delivery: &models.DeliveryDetails{},
		}
	}
	return out
}

func TestNotify_OneAlertPerBatch(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(3000, true, nil, nil, &logger)
	ctx := context.Background()

	d.Notify(ctx, testBookings(3))

	alerts := d.AlertsAfter(0)
	require.Len(t, alerts, 1)
	assert.Equal(t, 3, alerts[0].Count)
	assert.Contains(t, alerts[0].Message, "وصلت 3 طلبات حجز جديدة")
	assert.Equal(t, 3000, alerts[0].AutoDismissMs)
	assert.True(t, alerts[0].Sound)
	assert.NotEmpty(t, alerts[0].ID)
}

func TestNotify_SingularMessage(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(0, false, nil, nil, &logger)

	d.Notify(context.Background(), testBookings(1))

	alerts := d.AlertsAfter(0)
	require.Len(t, alerts, 1)
	assert.Equal(t, "📢 وصل طلب حجز جديد", alerts[0].Message)
	assert.Equal(t, models.DefaultAlertDismissMs, alerts[0].AutoDismissMs)
}

func TestNotify_EmptyBatchIgnored(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(0, false, nil, nil, &logger)

	d.Notify(context.Background(), nil)
	assert.Empty(t, d.AlertsAfter(0))
}

func TestAlertsAfter_SeqCursor(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(0, false, nil, nil, &logger)
	ctx := context.Background()

	d.Notify(ctx, testBookings(1))
	d.Notify(ctx, testBookings(2))
	d.Notify(ctx, testBookings(1))

	all := d.AlertsAfter(0)
	require.Len(t, all, 3)
	assert.Equal(t, int64(1), all[0].Seq)
	assert.Equal(t, int64(3), all[2].Seq)

	tail := d.AlertsAfter(all[1].Seq)
	require.Len(t, tail, 1)
	assert.Equal(t, int64(3), tail[0].Seq)

	assert.Empty(t, d.AlertsAfter(all[2].Seq))
}

func TestAlerts_BufferBounded(t *testing.T) {
	logger := zerolog.Nop()
	d := NewDispatcher(0, false, nil, nil, &logger)
	ctx := context.Background()

	for i := 0; i < models.AlertBufferSize+10; i++ {
		d.Notify(ctx, testBookings(1))
	}

	alerts := d.AlertsAfter(0)
	assert.Len(t, alerts, models.AlertBufferSize)
	// Oldest entries are dropped, newest kept.
	assert.Equal(t, int64(models.AlertBufferSize+10), alerts[len(alerts)-1].Seq)
}

type fakeTelegram struct {
	sent []tgbotapi.Chattable
	err  error
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.sent = append(f.sent, c)
	return tgbotapi.Message{}, f.err
}

func TestNotify_TelegramRelay(t *testing.T) {
	logger := zerolog.Nop()
	tg := &fakeTelegram{}
	d := NewDispatcher(0, false, tg, []int64{100, 200}, &logger)

	d.Notify(context.Background(), testBookings(2))

	require.Len(t, tg.sent, 2)
	msg, ok := tg.sent[0].(tgbotapi.MessageConfig)
	require.True(t, ok)
	assert.Equal(t, int64(100), msg.ChatID)
	assert.Contains(t, msg.Text, "طلب حجز جديد")
}

func TestNotify_TelegramFailureDoesNotDropAlert(t *testing.T) {
	logger := zerolog.Nop()
	tg := &fakeTelegram{err: errors.New("telegram down")}
	d := NewDispatcher(0, false, tg, []int64{100}, &logger)

	d.Notify(context.Background(), testBookings(1))

	assert.Len(t, d.AlertsAfter(0), 1)
}

package service

import (
	"context"
	"testing"

	"khadamat/internal/database"
	"khadamat/internal/events"
	"khadamat/internal/models"
	"khadamat/internal/pricing"
	"khadamat/internal/validation"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedHandoff struct {
	BookingID int64
	Recipient string
	Channel   string
	Message   string
}

type fakeEnqueuer struct {
	calls []recordedHandoff
	err   error
}

func (f *fakeEnqueuer) EnqueueHandoff(ctx context.Context, bookingID int64, recipient, channel, message string) error {
	f.calls = append(f.calls, recordedHandoff{bookingID, recipient, channel, message})
	return f.err
}

type testEnv struct {
	db       *database.DB
	bus      *events.EventBus
	enqueuer *fakeEnqueuer
	svc      *BookingService
	events   *[]string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	bus := events.NewEventBus()
	var published []string
	for _, et := range []string{
		events.EventBookingCreated, events.EventBookingConfirmed,
		events.EventBookingInProgress, events.EventBookingCompleted,
		events.EventBookingCancelled, events.EventBookingDeleted,
	} {
		bus.Subscribe(et, func(e *events.Event) error {
			published = append(published, e.Type)
			return nil
		})
	}

	enqueuer := &fakeEnqueuer{}
	svc := NewBookingService(db, db, db, bus, enqueuer, "whatsapp", &logger)
	return &testEnv{db: db, bus: bus, enqueuer: enqueuer, svc: svc, events: &published}
}

func deliveryBooking() *models.Booking {
	return &models.Booking{
		ServiceName: "توصيل داخل المدينة",
		Category:    models.CategoryDelivery,
		FullName:    "أحمد العتيبي",
		Phone:       "0551234567",
		Address:     "حي النرجس، الرياض",
		Delivery:    &models.DeliveryDetails{Destination: "حي الملقا"},
	}
}

func TestCreate_PersistsPendingAndQuotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	price, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, b.Status)
	assert.Positive(t, b.ID)
	assert.Equal(t, float64(pricing.DeliveryFee), price.Amount)
	assert.Equal(t, []string{events.EventBookingCreated}, *env.events)

	stored, err := env.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestCreate_InvalidBookingNotPersisted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	b.Phone = "12345"

	_, err := env.svc.Create(ctx, b)
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)

	all, listErr := env.db.ListBookings(ctx)
	require.NoError(t, listErr)
	assert.Empty(t, all)
	assert.Empty(t, *env.events)
}

func TestCreate_ResolvesServiceQuestions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	svc := &models.Service{
		Category: models.CategoryDelivery,
		Name:     "توصيل مشتريات",
		Questions: []models.Question{
			{ID: "store", Label: "المتجر", Type: models.QuestionText, Required: true},
		},
		Active: true,
	}
	require.NoError(t, env.db.CreateService(ctx, svc))

	b := deliveryBooking()
	b.ServiceID = svc.ID
	b.ServiceName = ""

	_, err := env.svc.Create(ctx, b)
	var verr *validation.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Len(t, verr.Fields, 1)
	assert.Equal(t, "answers.store", verr.Fields[0].Field)

	b.Answers = map[string]any{"store": "بندة"}
	_, err = env.svc.Create(ctx, b)
	require.NoError(t, err)
	assert.Equal(t, "توصيل مشتريات", b.ServiceName)
}

func TestTransition_FullLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	for _, target := range []string{models.StatusConfirmed, models.StatusInProgress, models.StatusCompleted} {
		updated, err := env.svc.Transition(ctx, b.ID, target, 0, "operator")
		require.NoError(t, err)
		assert.Equal(t, target, updated.Status)
	}

	assert.Equal(t, []string{
		events.EventBookingCreated,
		events.EventBookingConfirmed,
		events.EventBookingInProgress,
		events.EventBookingCompleted,
	}, *env.events)
}

func TestTransition_IllegalTargets(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	// pending cannot jump straight to in_progress or completed
	for _, target := range []string{models.StatusInProgress, models.StatusCompleted, models.StatusPending} {
		_, err := env.svc.Transition(ctx, b.ID, target, 0, "operator")
		var terr *IllegalTransitionError
		require.ErrorAs(t, err, &terr, "target %s", target)
		assert.Equal(t, models.StatusPending, terr.From)
	}

	_, err = env.svc.Transition(ctx, b.ID, models.StatusCompleted, 0, "operator")
	assert.Error(t, err)

	stored, err := env.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, stored.Status)
}

func TestTransition_TerminalStatesHaveNoExits(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, b.ID, models.StatusCancelled, 0, "operator")
	require.NoError(t, err)

	for _, target := range []string{models.StatusPending, models.StatusConfirmed, models.StatusCompleted} {
		_, err := env.svc.Transition(ctx, b.ID, target, 0, "operator")
		var terr *IllegalTransitionError
		assert.ErrorAs(t, err, &terr, "target %s", target)
	}
}

func TestTransition_StaleVersionConflicts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, b.ID, models.StatusConfirmed, b.Version, "operator")
	require.NoError(t, err)

	// Second operator still holds version 1; cancel must lose.
	_, err = env.svc.Transition(ctx, b.ID, models.StatusCancelled, b.Version, "operator")
	assert.ErrorIs(t, err, database.ErrConcurrentModification)

	stored, err := env.db.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, stored.Status)
}

func TestTransition_MissingBooking(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Transition(context.Background(), 404, models.StatusConfirmed, 0, "operator")
	assert.ErrorIs(t, err, database.ErrNotFound)
}

func TestTransition_ConfirmEnqueuesProviderHandoff(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	backup := &models.Provider{Name: "مزود احتياطي", Category: models.CategoryDelivery, Phone: "0551110000", Rating: 3.0, Available: true}
	best := &models.Provider{Name: "المزود الأول", Category: models.CategoryDelivery, Phone: "0552220000", WhatsApp: "+966552220000", Rating: 4.8, Available: true}
	offline := &models.Provider{Name: "مزود مشغول", Category: models.CategoryDelivery, Phone: "0553330000", Rating: 5.0, Available: false}
	for _, p := range []*models.Provider{backup, best, offline} {
		require.NoError(t, env.db.CreateProvider(ctx, p))
	}

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	_, err = env.svc.Transition(ctx, b.ID, models.StatusConfirmed, 0, "operator")
	require.NoError(t, err)

	require.Len(t, env.enqueuer.calls, 1)
	call := env.enqueuer.calls[0]
	assert.Equal(t, b.ID, call.BookingID)
	assert.Equal(t, "+966552220000", call.Recipient)
	assert.Equal(t, "whatsapp", call.Channel)
	assert.Contains(t, call.Message, "طلب حجز جديد")
	assert.Contains(t, call.Message, b.FullName)
}

func TestTransition_NoProviderDoesNotFailConfirm(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)

	updated, err := env.svc.Transition(ctx, b.ID, models.StatusConfirmed, 0, "operator")
	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, updated.Status)
	assert.Empty(t, env.enqueuer.calls)
}

func TestDelete_AllowedFromAnyState(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	b := deliveryBooking()
	_, err := env.svc.Create(ctx, b)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, b.ID, models.StatusCancelled, 0, "operator")
	require.NoError(t, err)

	require.NoError(t, env.svc.Delete(ctx, b.ID))
	_, err = env.svc.Get(ctx, b.ID)
	assert.ErrorIs(t, err, database.ErrNotFound)

	assert.Contains(t, *env.events, events.EventBookingDeleted)
}

func TestList_StatusFilter(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	first := deliveryBooking()
	_, err := env.svc.Create(ctx, first)
	require.NoError(t, err)
	second := deliveryBooking()
	_, err = env.svc.Create(ctx, second)
	require.NoError(t, err)
	_, err = env.svc.Transition(ctx, second.ID, models.StatusConfirmed, 0, "operator")
	require.NoError(t, err)

	confirmed, err := env.svc.List(ctx, models.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, second.ID, confirmed[0].ID)

	all, err := env.svc.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestCanTransition_Table(t *testing.T) {
	assert.True(t, CanTransition(models.StatusPending, models.StatusConfirmed))
	assert.True(t, CanTransition(models.StatusPending, models.StatusCancelled))
	assert.True(t, CanTransition(models.StatusConfirmed, models.StatusInProgress))
	assert.True(t, CanTransition(models.StatusConfirmed, models.StatusCancelled))
	assert.True(t, CanTransition(models.StatusInProgress, models.StatusCompleted))

	assert.False(t, CanTransition(models.StatusInProgress, models.StatusCancelled))
	assert.False(t, CanTransition(models.StatusCompleted, models.StatusPending))
	assert.False(t, CanTransition(models.StatusCancelled, models.StatusConfirmed))
	assert.False(t, CanTransition(models.StatusPending, models.StatusPending))
	assert.False(t, CanTransition("unknown", models.StatusConfirmed))
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"khadamat/internal/domain"
	"khadamat/internal/metrics"
	"khadamat/internal/models"

	json "github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Notifier consumes notify_queue tasks and delivers provider hand-off
// messages through a MessageSender. Tasks are persisted to the database
// first; redis carries the hot path and the in-memory channel covers
// redis outages, with the periodic DB poll as the recovery path.
type Notifier struct {
	store         domain.NotifyQueueStore
	sender        domain.MessageSender
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan models.NotifyTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	batchSize     int
	logger        *zerolog.Logger
}

func NewNotifier(store domain.NotifyQueueStore, sender domain.MessageSender, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *Notifier {
	if retry.MaxRetries == 0 {
		retry.MaxRetries = 5
	}
	if retry.InitialDelay == 0 {
		retry.InitialDelay = 2 * time.Second
	}
	if retry.MaxDelay == 0 {
		retry.MaxDelay = 1 * time.Minute
	}
	if retry.BackoffFactor == 0 {
		retry.BackoffFactor = 2
	}

	return &Notifier{
		store:         store,
		sender:        sender,
		redis:         redisClient,
		retryPolicy:   retry,
		queue:         make(chan models.NotifyTask, 128),
		redisQueueKey: "notify:queue",
		deadLetterKey: "notify:deadletter",
		pollInterval:  2 * time.Second,
		batchSize:     20,
		logger:        logger,
	}
}

// EnqueueHandoff persists a hand-off message and schedules it via redis
// or the in-memory queue. Implements domain.HandoffEnqueuer.
func (w *Notifier) EnqueueHandoff(ctx context.Context, bookingID int64, recipient, channel, message string) error {
	if recipient == "" {
		return errors.New("recipient is required")
	}
	if message == "" {
		return errors.New("message is required")
	}

	task := models.NotifyTask{
		BookingID: bookingID,
		Recipient: recipient,
		Channel:   channel,
		Payload:   message,
	}

	if err := w.store.CreateNotifyTask(ctx, &task); err != nil {
		return fmt.Errorf("persist notify task: %w", err)
	}

	// Try redis first for durability.
	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Int64("task_id", task.ID).Msg("notifier: redis push failed, fallback to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Int64("task_id", task.ID).Msg("notifier: in-memory queue full, task left to polling")
	}

	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *Notifier) Start(ctx context.Context) {
	w.logger.Info().Msg("notifier: started")
	defer w.logger.Info().Msg("notifier: stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, &t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, &t)
			continue
		}

		tasks, err := w.store.PendingNotifyTasks(ctx, w.batchSize)
		if err != nil {
			w.logger.Error().Err(err).Msg("notifier: fetch pending")
			w.sleep(ctx)
			continue
		}
		if len(tasks) == 0 {
			w.sleep(ctx)
			continue
		}

		for _, t := range tasks {
			w.processTask(ctx, t)
		}
	}
}

func (w *Notifier) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.pollInterval):
	}
}

func (w *Notifier) tryLocalQueue() (models.NotifyTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return models.NotifyTask{}, false
	}
}

func (w *Notifier) tryRedis(ctx context.Context) (models.NotifyTask, bool) {
	if w.redis == nil {
		return models.NotifyTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, redis.Nil) {
			return models.NotifyTask{}, false
		}
		w.logger.Error().Err(err).Msg("notifier: redis BRPOP error")
		return models.NotifyTask{}, false
	}
	if len(res) != 2 {
		return models.NotifyTask{}, false
	}
	var task models.NotifyTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Error().Err(err).Msg("notifier: decode redis task")
		return models.NotifyTask{}, false
	}
	return task, true
}

func (w *Notifier) processTask(ctx context.Context, task *models.NotifyTask) {
	if task.Status == models.NotifyStatusSent {
		return
	}

	if err := w.sender.SendText(ctx, task.Recipient, task.Channel, task.Payload); err != nil {
		w.retryOrFail(ctx, task, err)
		return
	}

	metrics.IncNotifyTask(models.NotifyStatusSent)
	if err := w.store.MarkNotifyTask(ctx, task.ID, models.NotifyStatusSent, task.Attempts+1, "", nil); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("notifier: mark sent")
	}
}

// retryOrFail parks a failed task for backoff or dead-letters it.
// Redelivery happens through the DB poll alone: the next_retry_at
// stamp keeps the task out of PendingNotifyTasks until the delay has
// passed, so there is exactly one retry path per task.
func (w *Notifier) retryOrFail(ctx context.Context, task *models.NotifyTask, cause error) {
	attempt := task.Attempts + 1
	if w.retryPolicy.Exhausted(attempt) {
		metrics.IncNotifyTask(models.NotifyStatusFailed)
		if err := w.store.MarkNotifyTask(ctx, task.ID, models.NotifyStatusFailed, attempt, cause.Error(), nil); err != nil {
			w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("notifier: mark failed")
		}
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(attempt)
	nextRetry := time.Now().UTC().Add(delay)
	if err := w.store.MarkNotifyTask(ctx, task.ID, models.NotifyStatusRetry, attempt, cause.Error(), &nextRetry); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("notifier: mark retry")
	}

	w.logger.Warn().Err(cause).Int64("task_id", task.ID).Int("attempt", attempt).Dur("retry_in", delay).Msg("notifier: delivery failed")
}

func (w *Notifier) pushRedis(ctx context.Context, task models.NotifyTask) error {
	if w.redis == nil {
		return errors.New("redis client is nil")
	}
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *Notifier) pushDeadLetter(ctx context.Context, task *models.NotifyTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("notifier: encode deadletter")
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Int64("task_id", task.ID).Msg("notifier: deadletter push")
	}
}

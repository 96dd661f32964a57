package database

import (
	"context"
	"fmt"
	"time"

	"khadamat/internal/models"
)

func (db *DB) CreateNotifyTask(ctx context.Context, t *models.NotifyTask) error {
	now := time.Now().UTC()
	query := `INSERT INTO notify_queue (booking_id, recipient, channel, payload, status, attempts, created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, 0, ?, ?)`
	result, err := db.ExecContext(ctx, query, t.BookingID, t.Recipient, t.Channel, t.Payload, models.NotifyStatusPending, now, now)
	if err != nil {
		return fmt.Errorf("create notify task: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get notify task id: %w", err)
	}
	t.ID = id
	t.Status = models.NotifyStatusPending
	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// PendingNotifyTasks returns up to limit undelivered tasks that are
// due, oldest first, for the notifier's DB-backed recovery path. A
// task parked for backoff stays invisible until its next_retry_at.
func (db *DB) PendingNotifyTasks(ctx context.Context, limit int) ([]*models.NotifyTask, error) {
	query := `SELECT id, booking_id, recipient, channel, payload, status, attempts,
				COALESCE(last_error, ''), next_retry_at, created_at, updated_at
			  FROM notify_queue
			  WHERE status IN (?, ?) AND (next_retry_at IS NULL OR next_retry_at <= ?)
			  ORDER BY id LIMIT ?`
	rows, err := db.QueryContext(ctx, query, models.NotifyStatusPending, models.NotifyStatusRetry, time.Now().UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("list pending notify tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.NotifyTask
	for rows.Next() {
		t := &models.NotifyTask{}
		err := rows.Scan(&t.ID, &t.BookingID, &t.Recipient, &t.Channel, &t.Payload,
			&t.Status, &t.Attempts, &t.LastError, &t.NextRetryAt, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan notify task: %w", err)
		}
		tasks = append(tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list pending notify tasks: %w", err)
	}
	return tasks, nil
}

func (db *DB) MarkNotifyTask(ctx context.Context, id int64, status string, attempts int, lastError string, nextRetryAt *time.Time) error {
	query := `UPDATE notify_queue SET status = ?, attempts = ?, last_error = ?, next_retry_at = ?, updated_at = ? WHERE id = ?`
	result, err := db.ExecContext(ctx, query, status, attempts, lastError, nextRetryAt, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("mark notify task: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

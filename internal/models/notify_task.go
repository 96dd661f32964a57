package models

import "time"

const (
	NotifyStatusPending = "pending"
	NotifyStatusRetry   = "retry"
	NotifyStatusSent    = "sent"
	NotifyStatusFailed  = "failed"
)

// NotifyTask is a queued provider hand-off message. Payload carries the
// rendered text; Recipient is a phone/whatsapp-style contact handle.
// NextRetryAt holds the earliest redelivery time after a failure; nil
// means the task is due now.
type NotifyTask struct {
	ID          int64      `json:"id"`
	BookingID   int64      `json:"booking_id"`
	Recipient   string     `json:"recipient"`
	Channel     string     `json:"channel"`
	Payload     string     `json:"payload"`
	Status      string     `json:"status"`
	Attempts    int        `json:"attempts"`
	LastError   string     `json:"last_error,omitempty"`
	NextRetryAt *time.Time `json:"next_retry_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

package models

const (
	StatusPending    = "pending"
	StatusConfirmed  = "confirmed"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
	StatusCancelled  = "cancelled"
)

const (
	CategoryDelivery    = "delivery"
	CategoryTrip        = "trip"
	CategoryMaintenance = "maintenance"
)

const (
	UrgencyLow    = "low"
	UrgencyNormal = "normal"
	UrgencyHigh   = "high"
)

const (
	WindowMorning   = "morning"
	WindowAfternoon = "afternoon"
	WindowEvening   = "evening"
)

const (
	QuestionText        = "text"
	QuestionNumber      = "number"
	QuestionChoice      = "choice"
	QuestionMultiChoice = "multi_choice"
	QuestionDate        = "date"
)

const (
	// DefaultPollIntervalSeconds cadence of the booking change poller
	DefaultPollIntervalSeconds = 5

	// DefaultAlertDismissMs how long an operator alert stays on screen
	DefaultAlertDismissMs = 6000

	// AlertBufferSize how many alerts the dashboard feed retains
	AlertBufferSize = 50

	// WorkerQueueSize size of the in-memory notifier queue
	WorkerQueueSize = 1000

	// RateLimitRequests requests allowed per client within the window
	RateLimitRequests = 30

	// RateLimitWindow rate limit window in seconds
	RateLimitWindow = 60
)

// Categories are a closed set; everything else is rejected up front.
func KnownCategory(code string) bool {
	switch code {
	case CategoryDelivery, CategoryTrip, CategoryMaintenance:
		return true
	default:
		return false
	}
}

// TerminalStatus reports whether no further transition is legal.
func TerminalStatus(status string) bool {
	return status == StatusCompleted || status == StatusCancelled
}

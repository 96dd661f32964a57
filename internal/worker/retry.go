package worker

import "time"

// RetryPolicy controls redelivery of failed hand-off tasks.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// Exhausted reports whether a task that has already been attempted the
// given number of times should go to the dead letter queue instead of
// being rescheduled.
func (r RetryPolicy) Exhausted(attempts int) bool {
	return attempts >= r.MaxRetries
}

// NextDelay returns the wait before the given attempt (1-based),
// growing geometrically from InitialDelay and clamped to MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	initial := r.InitialDelay
	if initial <= 0 {
		initial = time.Second
	}
	factor := r.BackoffFactor
	if factor <= 0 {
		factor = 2
	}

	delay := float64(initial)
	for i := 1; i < attempt; i++ {
		delay *= factor
		if r.MaxDelay > 0 && delay >= float64(r.MaxDelay) {
			return r.MaxDelay
		}
	}

	d := time.Duration(delay)
	if d <= 0 {
		d = time.Second
	}
	return d
}

package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	bookingsCreated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "bookings_created_total",
			Help:      "Accepted bookings by category.",
		},
		[]string{"category"},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "booking_transitions_total",
			Help:      "Successful status transitions by target status.",
		},
		[]string{"target"},
	)

	pollCycles = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "poll_cycles_total",
			Help:      "Completed poller cycles.",
		},
	)

	pollFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "poll_failures_total",
			Help:      "Poller cycles skipped due to store read failures.",
		},
	)

	alerts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "operator_alerts_total",
			Help:      "Operator alerts raised for new bookings.",
		},
	)

	notifyTasks = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "notify_tasks_total",
			Help:      "Provider hand-off tasks by final status.",
		},
		[]string{"status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "khadamat",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(bookingsCreated, transitions, pollCycles, pollFailures, alerts, notifyTasks, httpRequests)
	})
}

func IncBookingCreated(category string) { bookingsCreated.WithLabelValues(category).Inc() }
func IncTransition(target string)       { transitions.WithLabelValues(target).Inc() }
func IncPollCycle()                     { pollCycles.Inc() }
func IncPollFailure()                   { pollFailures.Inc() }
func IncAlert()                         { alerts.Inc() }
func IncNotifyTask(status string)       { notifyTasks.WithLabelValues(status).Inc() }
func IncHTTP(endpoint string)           { httpRequests.WithLabelValues(endpoint).Inc() }

package reminders

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for the reminder system.
type Metrics struct {
	// RemindersSentTotal is the total number of reminders by outcome and channel.
	RemindersSentTotal *prometheus.CounterVec
	// RunDuration is the time a daily reminder run takes.
	RunDuration prometheus.Histogram
	// ReminderSendDuration is the time to send a reminder.
	ReminderSendDuration prometheus.Histogram
	// ReminderRetries is the total number of retry attempts.
	ReminderRetries prometheus.Counter
	// RateLimitWaits is the total number of rate limit waits.
	RateLimitWaits prometheus.Counter
}

// NewMetrics creates reminder metrics and registers them with reg.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RemindersSentTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminders_sent_total",
				Help:      "Total number of expiry reminders processed",
			},
			[]string{"status", "channel"},
		),
		RunDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_run_duration_seconds",
				Help:      "Duration of a daily reminder run",
				Buckets:   []float64{.1, .5, 1, 5, 15, 60, 300},
			},
		),
		ReminderSendDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "reminder_send_duration_seconds",
				Help:      "Time to send a reminder",
				Buckets:   []float64{.01, .05, .1, .5, 1, 2, 5},
			},
		),
		ReminderRetries: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_retries_total",
				Help:      "Total number of retry attempts",
			},
		),
		RateLimitWaits: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reminder_rate_limit_waits_total",
				Help:      "Total number of rate limit waits",
			},
		),
	}
}

// IncSent increments the sent counter for a status and channel.
func (m *Metrics) IncSent(status string, channel Channel) {
	if m == nil {
		return
	}
	m.RemindersSentTotal.WithLabelValues(status, string(channel)).Inc()
}

func (m *Metrics) ObserveRunDuration(seconds float64) {
	if m == nil {
		return
	}
	m.RunDuration.Observe(seconds)
}

// ObserveSendDuration records the time taken to send a reminder.
func (m *Metrics) ObserveSendDuration(seconds float64) {
	if m == nil {
		return
	}
	m.ReminderSendDuration.Observe(seconds)
}

func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.ReminderRetries.Inc()
}

func (m *Metrics) IncRateLimitWaits() {
	if m == nil {
		return
	}
	m.RateLimitWaits.Inc()
}

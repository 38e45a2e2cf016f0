package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/felixge/httpsnoop"
	"github.com/prometheus/client_golang/prometheus"

	"medstock/internal/events"
)

var (
	once sync.Once

	inventoryEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medstock",
			Name:      "inventory_events_total",
			Help:      "Count of inventory events by type.",
		},
		[]string{"type"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "medstock",
			Name:      "http_requests_total",
			Help:      "Count of API requests by route and status code.",
		},
		[]string{"method", "route", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "medstock",
			Name:      "http_request_duration_seconds",
			Help:      "API request latency.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(inventoryEvents, httpRequests, httpDuration)
	})
}

func IncEvent(eventType string) {
	inventoryEvents.WithLabelValues(eventType).Inc()
}

// ObserveEvents counts every event published on bus.
func ObserveEvents(bus *events.EventBus) {
	bus.SubscribeAll(func(e events.Event) error {
		IncEvent(e.Type)
		return nil
	})
}

// Middleware records request count and latency per matched route pattern.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		route := r.Pattern
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(r.Method, route, strconv.Itoa(m.Code)).Inc()
		httpDuration.WithLabelValues(r.Method, route).Observe(m.Duration.Seconds())
	})
}

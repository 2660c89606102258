package middleware

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/store"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "extstore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for durations.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "extstore",
		Buckets:   prometheus.DefBuckets,
		Registry:  prometheus.DefaultRegisterer,
	}
}

// Metrics collects store and session metrics. It implements
// store.Observer, so it can be passed to store.WithObserver.
//
// Metrics collected:
//   - extstore_store_sets_total: Counter of Sets by store
//   - extstore_store_set_duration_seconds: Histogram of Set duration, notification included
//   - extstore_store_notifications_total: Counter of subscriber calls by store
//   - extstore_store_subscribers: Gauge of subscribers by store
//   - extstore_events_total: Counter of session events by status
//   - extstore_event_duration_seconds: Histogram of event handling duration
//   - extstore_event_errors_total: Counter of event errors by error code
//   - extstore_patches_sent_total: Counter of component patches sent
//   - extstore_active_sessions: Gauge of open sessions
//   - extstore_websocket_errors_total: Counter of WebSocket errors by type
type Metrics struct {
	setsTotal     *prometheus.CounterVec
	setDuration   *prometheus.HistogramVec
	notifications *prometheus.CounterVec
	subscribers   *prometheus.GaugeVec

	eventsTotal    *prometheus.CounterVec
	eventDuration  prometheus.Histogram
	eventErrors    *prometheus.CounterVec
	patchesSent    prometheus.Counter
	activeSessions prometheus.Gauge
	wsErrors       *prometheus.CounterVec
}

var _ store.Observer = (*Metrics)(nil)

// Prometheus creates and registers the collectors.
//
//	m := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	d := store.New(initial, store.WithObserver(m))
//
//	// Expose metrics endpoint
//	http.Handle("/metrics", promhttp.Handler())
//
// Registering twice on the same registry panics, as with promauto.
func Prometheus(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		setsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_sets_total",
			Help:        "Total number of store updates",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		setDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_set_duration_seconds",
			Help:        "Store update duration in seconds, including subscriber notification",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"store"}),

		notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_notifications_total",
			Help:        "Total number of subscriber calls",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		subscribers: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "store_subscribers",
			Help:        "Current number of store subscribers, summed over stores with the same name",
			ConstLabels: config.ConstLabels,
		}, []string{"store"}),

		eventsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "events_total",
			Help:        "Total number of session events processed",
			ConstLabels: config.ConstLabels,
		}, []string{"status"}),

		eventDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_duration_seconds",
			Help:        "Event handling duration in seconds, rendering included",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		eventErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "event_errors_total",
			Help:        "Total number of event errors by code",
			ConstLabels: config.ConstLabels,
		}, []string{"code"}),

		patchesSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "patches_sent_total",
			Help:        "Total number of component patches sent to clients",
			ConstLabels: config.ConstLabels,
		}),

		activeSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "active_sessions",
			Help:        "Number of open WebSocket sessions",
			ConstLabels: config.ConstLabels,
		}),

		wsErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "websocket_errors_total",
			Help:        "Total WebSocket errors by type",
			ConstLabels: config.ConstLabels,
		}, []string{"type"}),
	}
}

// SetStarted implements store.Observer.
func (m *Metrics) SetStarted(name string) func(notified int) {
	start := time.Now()
	return func(notified int) {
		m.setDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
		m.setsTotal.WithLabelValues(name).Inc()
		m.notifications.WithLabelValues(name).Add(float64(notified))
	}
}

// SubscribersChanged implements store.Observer.
// The gauge sums subscribers over all stores sharing a name.
func (m *Metrics) SubscribersChanged(name string, delta, _ int) {
	m.subscribers.WithLabelValues(name).Add(float64(delta))
}

// RecordEvent records one handled session event.
func (m *Metrics) RecordEvent(d time.Duration, err error) {
	m.eventDuration.Observe(d.Seconds())
	if err != nil {
		m.eventsTotal.WithLabelValues("error").Inc()
		m.eventErrors.WithLabelValues(errorCode(err)).Inc()
		return
	}
	m.eventsTotal.WithLabelValues("success").Inc()
}

// RecordPatches records the number of patches sent.
func (m *Metrics) RecordPatches(count int) {
	m.patchesSent.Add(float64(count))
}

// RecordSessionOpen records a new session.
func (m *Metrics) RecordSessionOpen() {
	m.activeSessions.Inc()
}

// RecordSessionClose records a closed session.
func (m *Metrics) RecordSessionClose() {
	m.activeSessions.Dec()
}

// RecordWebSocketError records a WebSocket error.
func (m *Metrics) RecordWebSocketError(errorType string) {
	m.wsErrors.WithLabelValues(errorType).Inc()
}

// errorCode returns a bounded label for err: its registry code, or
// "internal" for errors that carry none.
func errorCode(err error) string {
	if code := exterrors.Code(err); code != "" {
		return code
	}
	return "internal"
}

package middleware

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/store"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	require.NotNil(t, m.Counter, "expected counter metric")
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	require.NotNil(t, m.Gauge, "expected gauge metric")
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, o prometheus.Observer) uint64 {
	t.Helper()
	metric, ok := o.(prometheus.Metric)
	require.True(t, ok, "observer %T does not implement prometheus.Metric", o)
	var m dto.Metric
	require.NoError(t, metric.Write(&m))
	require.NotNil(t, m.Histogram, "expected histogram metric")
	return m.GetHistogram().GetSampleCount()
}

type counterState struct {
	Count int
}

func TestMetricsObservesStore(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()))
	d := store.New(counterState{}, store.WithName("counter"), store.WithObserver(m))

	unsubA := d.Subscribe(func() {})
	d.Subscribe(func() {})
	d.Set(func(s *counterState) { s.Count++ })
	unsubA()
	d.Set(func(s *counterState) { s.Count++ })

	assert.Equal(t, 2.0, metricCounterValue(t, m.setsTotal.WithLabelValues("counter")))
	assert.Equal(t, 3.0, metricCounterValue(t, m.notifications.WithLabelValues("counter")))
	assert.Equal(t, 1.0, metricGaugeValue(t, m.subscribers.WithLabelValues("counter")))
	assert.Equal(t, uint64(2), metricHistogramCount(t, m.setDuration.WithLabelValues("counter")))
}

func TestMetricsSubscribersSumAcrossStores(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()))
	a := store.New(counterState{}, store.WithName("app"), store.WithObserver(m))
	b := store.New(counterState{}, store.WithName("app"), store.WithObserver(m))

	a.Subscribe(func() {})
	unsub := b.Subscribe(func() {})
	b.Subscribe(func() {})
	assert.Equal(t, 3.0, metricGaugeValue(t, m.subscribers.WithLabelValues("app")))

	unsub()
	assert.Equal(t, 2.0, metricGaugeValue(t, m.subscribers.WithLabelValues("app")))
}

func TestMetricsRecordEvent(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))
		m.RecordEvent(time.Millisecond, nil)

		assert.Equal(t, 1.0, metricCounterValue(t, m.eventsTotal.WithLabelValues("success")))
		assert.Equal(t, 0.0, metricCounterValue(t, m.eventsTotal.WithLabelValues("error")))
		assert.Equal(t, uint64(1), metricHistogramCount(t, m.eventDuration))
	})

	t.Run("coded error", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))
		m.RecordEvent(time.Millisecond, exterrors.New("E005"))

		assert.Equal(t, 1.0, metricCounterValue(t, m.eventsTotal.WithLabelValues("error")))
		assert.Equal(t, 1.0, metricCounterValue(t, m.eventErrors.WithLabelValues("E005")))
	})

	t.Run("plain error", func(t *testing.T) {
		m := Prometheus(WithRegistry(prometheus.NewRegistry()))
		m.RecordEvent(time.Millisecond, errors.New("boom"))

		assert.Equal(t, 1.0, metricCounterValue(t, m.eventErrors.WithLabelValues("internal")))
	})
}

func TestMetricsRecordFunctions(t *testing.T) {
	m := Prometheus(WithRegistry(prometheus.NewRegistry()), WithNamespace("test"))

	m.RecordPatches(5)
	m.RecordSessionOpen()
	m.RecordSessionOpen()
	m.RecordSessionClose()
	m.RecordWebSocketError("read")

	assert.Equal(t, 5.0, metricCounterValue(t, m.patchesSent))
	assert.Equal(t, 1.0, metricGaugeValue(t, m.activeSessions))
	assert.Equal(t, 1.0, metricCounterValue(t, m.wsErrors.WithLabelValues("read")))
}

func TestMetricsOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := Prometheus(
		WithRegistry(reg),
		WithNamespace("app"),
		WithSubsystem("state"),
		WithConstLabels(prometheus.Labels{"env": "test"}),
		WithBuckets([]float64{0.1, 1}),
	)
	m.RecordPatches(1)

	families, err := reg.Gather()
	require.NoError(t, err)

	var found bool
	for _, f := range families {
		if f.GetName() != "app_state_patches_sent_total" {
			continue
		}
		found = true
		labels := f.GetMetric()[0].GetLabel()
		require.Len(t, labels, 1)
		assert.Equal(t, "env", labels[0].GetName())
		assert.Equal(t, "test", labels[0].GetValue())
	}
	assert.True(t, found, "app_state_patches_sent_total not gathered")
}

func TestMetricsDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	Prometheus(WithRegistry(reg))
	assert.Panics(t, func() { Prometheus(WithRegistry(reg)) })
}

package middleware

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/extstore/pkg/store"
)

// parentContext returns a context carrying a valid remote span context so
// that spans started from it share its trace id, even with the no-op
// global provider.
func parentContext(t *testing.T) (context.Context, trace.TraceID) {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)

	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
		Remote:     true,
	})
	return trace.ContextWithSpanContext(context.Background(), sc), traceID
}

func TestStartEventPropagatesTraceContext(t *testing.T) {
	parent, traceID := parentContext(t)

	tracing := OpenTelemetry(
		WithTracerName("test"),
		WithIncludeValue(true),
		WithAttributeExtractor(func(session, target string) []attribute.KeyValue {
			return []attribute.KeyValue{attribute.String("test.attr", session+target)}
		}),
	)

	ctx, end := tracing.StartEvent(parent, "sess-1", "c3.0", "Ada")
	span := SpanFromContext(ctx)
	require.NotNil(t, span)
	assert.Equal(t, traceID, span.SpanContext().TraceID())

	assert.NotPanics(t, func() { end(2, nil) })
}

func TestStartEventRecordsErrors(t *testing.T) {
	parent, _ := parentContext(t)
	_, end := OpenTelemetry().StartEvent(parent, "sess-1", "c1.0", "")
	assert.NotPanics(t, func() { end(0, errors.New("boom")) })
}

func TestStartEventFilter(t *testing.T) {
	parent := context.Background()
	tracing := OpenTelemetry(WithEventFilter(func(target string) bool { return target != "skip" }))

	ctx, end := tracing.StartEvent(parent, "sess", "skip", "")
	assert.Equal(t, parent, ctx)
	assert.Nil(t, SpanFromContext(ctx))
	end(0, nil)
}

func TestSpanFromContextNoSpan(t *testing.T) {
	assert.Nil(t, SpanFromContext(context.Background()))
}

func TestStoreObserver(t *testing.T) {
	parent, _ := parentContext(t)
	tracing := OpenTelemetry()

	calls := 0
	obs := tracing.StoreObserver(func() context.Context {
		calls++
		return parent
	})
	d := store.New(counterState{}, store.WithObserver(obs))

	unsubscribe := d.Subscribe(func() {})
	d.Set(func(s *counterState) { s.Count = 1 })
	unsubscribe()

	assert.Equal(t, 1, d.Get().Count)
	assert.Equal(t, 3, calls)
}

func TestStoreObserverNilParent(t *testing.T) {
	obs := OpenTelemetry().StoreObserver(nil)
	d := store.New(counterState{}, store.WithObserver(obs))

	assert.NotPanics(t, func() {
		d.Subscribe(func() {})
		d.Set()
	})
}

package middleware

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/store"
)

// Default tracer name.
const defaultTracerName = "extstore"

// OTelConfig configures tracing.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "extstore").
	TracerName string

	// IncludeValue records the event value as a span attribute. Values are
	// user input, so this is disabled by default.
	IncludeValue bool

	// Filter determines which event targets to trace. If nil, all events
	// are traced.
	Filter func(target string) bool

	// AttributeExtractor adds custom attributes to event spans.
	AttributeExtractor func(session, target string) []attribute.KeyValue
}

// OTelOption configures tracing.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithIncludeValue enables recording event values.
func WithIncludeValue(include bool) OTelOption {
	return func(c *OTelConfig) {
		c.IncludeValue = include
	}
}

// WithEventFilter sets a filter function for event targets.
func WithEventFilter(filter func(target string) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(session, target string) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

func defaultOTelConfig() OTelConfig {
	return OTelConfig{
		TracerName: defaultTracerName,
	}
}

// Tracing creates spans for session events and store updates using the
// global OpenTelemetry tracer provider. Configure it in main() before
// starting the server:
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
type Tracing struct {
	config OTelConfig
	tracer trace.Tracer
}

// OpenTelemetry creates a Tracing.
//
//	tracing := middleware.OpenTelemetry(middleware.WithTracerName("my-app"))
//	ctx, end := tracing.StartEvent(ctx, sessionID, target, value)
//	err := handle()
//	end(len(patches), err)
func OpenTelemetry(opts ...OTelOption) *Tracing {
	config := defaultOTelConfig()
	for _, opt := range opts {
		opt(&config)
	}
	return &Tracing{
		config: config,
		tracer: otel.Tracer(config.TracerName),
	}
}

// StartEvent starts a span for one session event. The returned func ends
// it, recording the patch count and error. Filtered events get ctx back
// unchanged and a no-op end func.
func (t *Tracing) StartEvent(ctx context.Context, session, target, value string) (context.Context, func(patches int, err error)) {
	if t.config.Filter != nil && !t.config.Filter(target) {
		return ctx, func(int, error) {}
	}

	attrs := []attribute.KeyValue{
		attribute.String("extstore.session_id", session),
		attribute.String("extstore.event_target", target),
	}
	if t.config.IncludeValue {
		attrs = append(attrs, attribute.String("extstore.event_value", value))
	}
	if t.config.AttributeExtractor != nil {
		attrs = append(attrs, t.config.AttributeExtractor(session, target)...)
	}

	spanCtx, span := t.tracer.Start(ctx, "extstore.event",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(attrs...),
		trace.WithTimestamp(time.Now()),
	)

	return spanCtx, func(patches int, err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if code := exterrors.Code(err); code != "" {
				span.SetAttributes(attribute.String("extstore.error_code", code))
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.SetAttributes(attribute.Int("extstore.patch_count", patches))
		span.End()
	}
}

// StoreObserver returns a store.Observer that records each Set as a child
// span of the context returned by parent, typically the span of the event
// being handled. parent may be nil.
func (t *Tracing) StoreObserver(parent func() context.Context) store.Observer {
	return &storeTracer{tracing: t, parent: parent}
}

type storeTracer struct {
	tracing *Tracing
	parent  func() context.Context
}

func (s *storeTracer) context() context.Context {
	if s.parent != nil {
		if ctx := s.parent(); ctx != nil {
			return ctx
		}
	}
	return context.Background()
}

func (s *storeTracer) SetStarted(name string) func(notified int) {
	_, span := s.tracing.tracer.Start(s.context(), "extstore.store.set",
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(attribute.String("extstore.store", name)),
	)
	return func(notified int) {
		span.SetAttributes(attribute.Int("extstore.notified", notified))
		span.End()
	}
}

func (s *storeTracer) SubscribersChanged(name string, delta, count int) {
	span := trace.SpanFromContext(s.context())
	if !span.IsRecording() {
		return
	}
	span.AddEvent("extstore.subscribers", trace.WithAttributes(
		attribute.String("extstore.store", name),
		attribute.Int("extstore.delta", delta),
		attribute.Int("extstore.subscribers", count),
	))
}

// SpanFromContext returns the event span stored in ctx, or nil.
func SpanFromContext(ctx context.Context) trace.Span {
	span := trace.SpanFromContext(ctx)
	if !span.SpanContext().IsValid() && !span.IsRecording() {
		return nil
	}
	return span
}

// Package middleware provides Prometheus metrics and OpenTelemetry tracing
// for stores and server sessions.
//
// # Prometheus Metrics
//
// Metrics implements store.Observer and also counts session events,
// patches and WebSocket errors:
//
//	m := middleware.Prometheus(middleware.WithNamespace("myapp"))
//	d := store.New(initial, store.WithName("app"), store.WithObserver(m))
//
// Then expose the registry:
//
//	http.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
// Tracing starts one span per session event and, through StoreObserver,
// one child span per store Set made while handling it:
//
//	tracing := middleware.OpenTelemetry(middleware.WithTracerName("my-app"))
//	ctx, end := tracing.StartEvent(ctx, sessionID, target, value)
//	...
//	end(len(patches), err)
//
// The tracer comes from the global provider set with otel.SetTracerProvider.
package middleware

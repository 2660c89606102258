// Package server hosts component trees over HTTP and WebSocket.
//
// GET / renders a fresh tree to a full HTML page. The page's script opens
// /ws, where each connection gets its own session: a new tree with its own
// stores, identified by a UUID. Client events are JSON frames:
//
//	{"type":"event","target":"c6.0","value":"Ada"}
//
// The server answers with the HTML of every component the event
// re-rendered:
//
//	{"type":"patch","patches":[{"component":"c8","name":"Display:first","html":"<div>First: Ada</div>"}]}
//
// Events are queued per session and handled in order by a single
// goroutine, so store writes never race within a session. Sessions share
// nothing.
//
// Usage:
//
//	s := server.New(cfg, func(opts ...reactive.RootOption) *reactive.Root {
//		return demo.NewRoot(initial, opts...)
//	}, server.WithMetrics(metrics, registry))
//	err := s.ListenAndServe(ctx)
package server

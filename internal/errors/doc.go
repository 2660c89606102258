// Package errors provides structured, coded errors for extstore.
//
// Every error has a code (e.g. "E001") registered with a category, a short
// message and a longer detail. Errors wrap an underlying cause so callers
// can keep using errors.Is and errors.As:
//
//	err := errors.New("E001").WithDetail(`context "app"`).Wrap(store.ErrNoProvider)
//	errors.Is(err, store.ErrNoProvider) // true
//
// # Formatting
//
// Format renders an error for a terminal, FormatCompact for a single log
// line and FormatJSON for the WebSocket protocol.
//
// # Error Code Ranges
//
//   - E001-E019: Runtime (stores, selectors, components)
//   - E020-E039: Patch decoding
//   - E060-E079: Protocol (WebSocket sessions)
//   - E120-E139: Configuration
//   - E140-E159: CLI
package errors

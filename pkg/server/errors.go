package server

import "errors"

var (
	// ErrSessionClosed is returned when sending to or queueing on a closed session.
	ErrSessionClosed = errors.New("server: session closed")

	// ErrServerClosed is returned by Handler requests after Shutdown.
	ErrServerClosed = errors.New("server: shutting down")
)

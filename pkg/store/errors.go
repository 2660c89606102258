package store

import (
	"errors"
	"fmt"

	exterrors "github.com/vango-dev/extstore/internal/errors"
)

var (
	// ErrNoProvider is returned when a store is requested from a context
	// that has no provider above the caller.
	ErrNoProvider = errors.New("store: no provider in scope")

	// ErrInvalidPatch is returned by PatchJSON for malformed input.
	ErrInvalidPatch = errors.New("store: invalid patch")

	// ErrUnknownField is returned by PatchJSON for keys the record lacks.
	ErrUnknownField = errors.New("store: unknown field")
)

// SelectorError reports a selector that panicked.
type SelectorError struct {
	// Value is the value passed to panic.
	Value any
}

// Error implements the error interface.
func (e *SelectorError) Error() string {
	return fmt.Sprintf("store: selector panicked: %v", e.Value)
}

// Unwrap returns the panic value when it is an error.
func (e *SelectorError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

func noProvider(name string) error {
	return exterrors.New("E001").
		WithDetailf("store.Use(%q) has no store.Provider above it in the component tree.", name).
		WithSuggestion("Render the component inside store.Provider for the same context.").
		Wrap(ErrNoProvider)
}

func selectorFailed(v any) error {
	return exterrors.New("E002").Wrap(&SelectorError{Value: v})
}

// safeSelect runs sel, converting a panic into an error.
func safeSelect[S, U any](sel Selector[S, U], record S) (value U, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = selectorFailed(r)
		}
	}()
	return sel(record), nil
}

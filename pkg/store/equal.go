package store

import "reflect"

// Equal reports whether two selected values are the same. Use decides
// whether a component must re-render with it.
type Equal[U any] func(a, b U) bool

// defaultEquals uses == for basic kinds and reflect.DeepEqual otherwise.
// Values of different dynamic types are never equal, which matters when U
// is an interface and a field changes from int to float64 or to nil.
func defaultEquals[U any](a, b U) bool {
	av, bv := any(a), any(b)
	if reflect.TypeOf(av) != reflect.TypeOf(bv) {
		return false
	}
	switch av.(type) {
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, uintptr,
		float32, float64, string, bool:
		return av == bv
	default:
		return reflect.DeepEqual(a, b)
	}
}

// SelectOption configures Use and Select.
type SelectOption[U any] func(*selectConfig[U])

type selectConfig[U any] struct {
	equal Equal[U]
}

// WithEqual replaces the change-detection function. Returning false for
// every pair re-renders on every Set; comparing pointers gives reference
// semantics.
func WithEqual[U any](eq Equal[U]) SelectOption[U] {
	return func(c *selectConfig[U]) {
		if eq != nil {
			c.equal = eq
		}
	}
}

func newSelectConfig[U any](opts []SelectOption[U]) selectConfig[U] {
	cfg := selectConfig[U]{equal: defaultEquals[U]}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

package store

import "sync"

// Selection follows a selected value of a store outside the component tree.
type Selection[U any] struct {
	mu          sync.Mutex
	value       U
	err         error
	unsubscribe func()
}

// Select subscribes to d and calls onChange with the selected value every
// time a Set changes it, as judged by the equality option. onChange may be
// nil. The initial value is available from Value; onChange is not called
// for it. If the selector panics on the initial read no subscription is
// made and the *SelectorError is returned.
func Select[S, U any](d *Data[S], sel Selector[S, U], onChange func(U), opts ...SelectOption[U]) (*Selection[U], error) {
	cfg := newSelectConfig(opts)

	initial, err := safeSelect(sel, d.Get())
	if err != nil {
		return nil, err
	}

	s := &Selection[U]{value: initial}
	s.unsubscribe = d.Subscribe(func() {
		next, err := safeSelect(sel, d.Get())

		s.mu.Lock()
		s.err = err
		if err != nil {
			s.mu.Unlock()
			if d.logger != nil {
				d.logger.Warn("store selection failed", "store", d.name, "error", err)
			}
			return
		}
		changed := !cfg.equal(s.value, next)
		s.value = next
		s.mu.Unlock()

		if changed && onChange != nil {
			onChange(next)
		}
	})
	return s, nil
}

// Value returns the last successfully selected value.
func (s *Selection[U]) Value() U {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Err returns the selector error of the most recent Set, if any.
func (s *Selection[U]) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Close stops following the store. It is safe to call more than once.
func (s *Selection[U]) Close() {
	s.unsubscribe()
}

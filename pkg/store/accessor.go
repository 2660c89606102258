package store

import (
	"sync"

	"github.com/vango-dev/extstore/pkg/reactive"
)

// Selector projects the record onto the value a consumer reads.
type Selector[S, U any] func(S) U

// Identity selects the whole record.
func Identity[S any]() Selector[S, S] {
	return func(s S) S { return s }
}

// Use reads sel applied to the store published for ctx and returns it with
// the store's Set.
//
// Inside a component render, Use subscribes the component once for its
// lifetime. After every Set the selector is re-run against the new record
// and the component is marked dirty only if the result differs from the
// last one. The subscription is released when the component is disposed.
// Outside a render Use only reads.
//
// With no provider in scope Use returns ErrNoProvider. A panicking selector
// is returned as a *SelectorError.
func Use[S, U any](ctx *Context[S], sel Selector[S, U], opts ...SelectOption[U]) (U, Setter[S], error) {
	reactive.TrackHook(reactive.HookStore)

	var zero U
	owner := reactive.CurrentOwner()

	// The slot is taken before any early return so that hook positions stay
	// stable across renders.
	var sub *subscription[S, U]
	if owner != nil {
		if existing, ok := owner.UseHookSlot().(*subscription[S, U]); ok {
			sub = existing
		} else {
			sub = &subscription[S, U]{}
			owner.SetHookSlot(sub)
			owner.OnCleanup(sub.close)
		}
	}

	data, err := FromOwner(ctx, owner)
	if err != nil {
		return zero, nil, err
	}

	cfg := newSelectConfig(opts)
	value, err := safeSelect(sel, data.Get())

	if sub != nil {
		sub.bind(data, sel, cfg.equal, reactive.CurrentListener())
		sub.rendered(value, err != nil)
	}

	if err != nil {
		return zero, data.Set, err
	}
	return value, data.Set, nil
}

// MustUse is Use that panics on error.
func MustUse[S, U any](ctx *Context[S], sel Selector[S, U], opts ...SelectOption[U]) (U, Setter[S]) {
	value, set, err := Use(ctx, sel, opts...)
	if err != nil {
		panic(err)
	}
	return value, set
}

// subscription ties one Use call site of one component instance to a
// store. The selector and equality are refreshed on every render.
type subscription[S, U any] struct {
	mu          sync.Mutex
	data        *Data[S]
	sel         Selector[S, U]
	equal       Equal[U]
	listener    reactive.Listener
	last        U
	failed      bool
	unsubscribe func()
	closed      bool
}

// bind points the subscription at data, subscribing on first use and
// re-subscribing if the provider's store was replaced.
func (s *subscription[S, U]) bind(data *Data[S], sel Selector[S, U], eq Equal[U], l reactive.Listener) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.sel = sel
	s.equal = eq
	s.listener = l

	if s.data == data && s.unsubscribe != nil {
		return
	}
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.data = data
	if l != nil {
		s.unsubscribe = data.Subscribe(s.notify)
	}
}

func (s *subscription[S, U]) rendered(value U, failed bool) {
	s.mu.Lock()
	s.last = value
	s.failed = failed
	s.mu.Unlock()
}

// notify runs after every Set of the bound store.
func (s *subscription[S, U]) notify() {
	s.mu.Lock()
	if s.closed || s.data == nil {
		s.mu.Unlock()
		return
	}
	data, sel, eq, l := s.data, s.sel, s.equal, s.listener
	prev, failed := s.last, s.failed
	s.mu.Unlock()

	next, err := safeSelect(sel, data.Get())
	if err != nil {
		s.markFailed(l)
		return
	}
	if !failed && eq(prev, next) {
		return
	}

	s.mu.Lock()
	s.last = next
	s.failed = false
	s.mu.Unlock()

	if l != nil {
		l.MarkDirty()
	}
}

// markFailed schedules a render so the selector error is returned by Use.
func (s *subscription[S, U]) markFailed(l reactive.Listener) {
	s.mu.Lock()
	s.failed = true
	s.mu.Unlock()

	if l != nil {
		l.MarkDirty()
	}
}

func (s *subscription[S, U]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	s.listener = nil
}

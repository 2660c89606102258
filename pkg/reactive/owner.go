package reactive

import (
	"sync"
	"sync/atomic"

	exterrors "github.com/vango-dev/extstore/internal/errors"
)

// DebugMode enables hook order validation. Set it at startup.
var DebugMode bool

// HookType identifies a hook call for order validation.
type HookType uint8

const (
	HookContext HookType = iota + 1
	HookProvider
	HookStore
)

var hookNames = [...]string{
	HookContext:  "Context",
	HookProvider: "Provider",
	HookStore:    "Store",
}

func (h HookType) String() string {
	if int(h) < len(hookNames) && hookNames[h] != "" {
		return hookNames[h]
	}
	return "Unknown"
}

// Owner is the scope of one component instance. Disposing it disposes its
// child scopes and runs its cleanups, which is how store subscriptions are
// released when a component unmounts.
type Owner struct {
	id       uint64
	parent   *Owner
	disposed atomic.Bool

	// mu guards children, cleanups and values.
	mu       sync.Mutex
	children []*Owner
	cleanups []func()
	values   map[any]any

	// Render state. Only touched by the goroutine rendering the owner.
	hooks hookLog
	slots hookSlots
}

// NewOwner creates an Owner below parent. A nil parent makes a root.
func NewOwner(parent *Owner) *Owner {
	o := &Owner{id: nextID(), parent: parent}
	if parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, o)
		parent.mu.Unlock()
	}
	return o
}

// ID returns the process-unique id of the Owner.
func (o *Owner) ID() uint64 {
	return o.id
}

// Parent returns the parent Owner, or nil for a root.
func (o *Owner) Parent() *Owner {
	return o.parent
}

// IsDisposed reports whether Dispose has been called.
func (o *Owner) IsDisposed() bool {
	return o.disposed.Load()
}

// OnCleanup registers fn to run when the Owner is disposed. On a disposed
// Owner fn runs immediately.
func (o *Owner) OnCleanup(fn func()) {
	o.mu.Lock()
	if !o.disposed.Load() {
		o.cleanups = append(o.cleanups, fn)
		o.mu.Unlock()
		return
	}
	o.mu.Unlock()
	fn()
}

// SetValue publishes a context value on this scope.
func (o *Owner) SetValue(key, value any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.values == nil {
		o.values = make(map[any]any)
	}
	o.values[key] = value
}

// GetValue returns the value for key from this scope or the nearest
// ancestor that has one.
func (o *Owner) GetValue(key any) any {
	v, _ := o.LookupValue(key)
	return v
}

// LookupValue is GetValue with a found flag, so a published nil can be
// told apart from no value at all.
func (o *Owner) LookupValue(key any) (any, bool) {
	for scope := o; scope != nil; scope = scope.parent {
		scope.mu.Lock()
		v, ok := scope.values[key]
		scope.mu.Unlock()
		if ok {
			return v, true
		}
	}
	return nil, false
}

// Dispose detaches the Owner from its parent, disposes its children (newest
// first) and runs its cleanups in reverse order. Later calls do nothing.
func (o *Owner) Dispose() {
	if o.disposed.Swap(true) {
		return
	}
	if o.parent != nil {
		o.parent.detach(o)
	}

	o.mu.Lock()
	children, cleanups := o.children, o.cleanups
	o.children, o.cleanups, o.values = nil, nil, nil
	o.mu.Unlock()

	for i := len(children) - 1; i >= 0; i-- {
		children[i].Dispose()
	}
	for i := len(cleanups) - 1; i >= 0; i-- {
		cleanups[i]()
	}
}

func (o *Owner) detach(child *Owner) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, c := range o.children {
		if c == child {
			o.children = append(o.children[:i:i], o.children[i+1:]...)
			return
		}
	}
}

// childCount is used by tests.
func (o *Owner) childCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.children)
}

// StartRender marks the beginning of a render of the owning component.
func (o *Owner) StartRender() {
	beginRender()
	o.slots.next = 0
	o.hooks.pos = 0
}

// EndRender marks the end of a render. In debug mode it panics with E003 if
// the render called fewer hooks than the first one.
func (o *Owner) EndRender() {
	endRender()
	if DebugMode {
		o.hooks.finish()
	}
}

// TrackHook records a hook call. In debug mode a call that differs from the
// first render's sequence panics with E003.
func (o *Owner) TrackHook(ht HookType) {
	if DebugMode {
		o.hooks.record(ht)
	}
}

// TrackHook records a hook call on the current owner, if any.
func TrackHook(ht HookType) {
	if o := CurrentOwner(); o != nil {
		o.TrackHook(ht)
	}
}

// hookLog remembers the hook sequence of the first render and checks later
// renders against it.
type hookLog struct {
	order  []HookType
	pos    int
	sealed bool
}

func (h *hookLog) record(ht HookType) {
	defer func() { h.pos++ }()
	if !h.sealed {
		h.order = append(h.order, ht)
		return
	}
	if h.pos >= len(h.order) {
		panic(exterrors.New("E003").WithDetailf("extra %s hook at index %d", ht, h.pos))
	}
	if want := h.order[h.pos]; want != ht {
		panic(exterrors.New("E003").WithDetailf("index %d: expected %s, got %s", h.pos, want, ht))
	}
}

func (h *hookLog) finish() {
	if !h.sealed {
		h.sealed = true
		return
	}
	if h.pos < len(h.order) {
		panic(exterrors.New("E003").WithDetailf("expected %d hooks, got %d", len(h.order), h.pos))
	}
}

// hookSlots hold per-hook values that must survive re-renders.
type hookSlots struct {
	values []any
	next   int
}

// UseHookSlot returns the value of the next hook slot. It is nil on the
// first render; the caller then builds the value and stores it with
// SetHookSlot.
//
//	if v := owner.UseHookSlot(); v != nil {
//		return v.(*subscription)
//	}
//	sub := newSubscription()
//	owner.SetHookSlot(sub)
func (o *Owner) UseHookSlot() any {
	s := &o.slots
	idx := s.next
	s.next++
	if idx < len(s.values) {
		return s.values[idx]
	}
	return nil
}

// SetHookSlot stores value in the slot last returned by UseHookSlot.
func (o *Owner) SetHookSlot(value any) {
	s := &o.slots
	idx := s.next - 1
	for len(s.values) <= idx {
		s.values = append(s.values, nil)
	}
	if idx >= 0 {
		s.values[idx] = value
	}
}

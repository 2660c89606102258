package store

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// subscriberIDCounter identifies subscriptions across all stores.
var subscriberIDCounter atomic.Uint64

// Option configures a Data.
type Option func(*options)

type options struct {
	name      string
	logger    *slog.Logger
	observers []Observer
}

// WithName names the store in logs and metrics. Default: "store".
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithLogger logs subscriptions and updates at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithObserver adds an instrumentation observer.
func WithObserver(obs Observer) Option {
	return func(o *options) {
		if obs != nil {
			o.observers = append(o.observers, obs)
		}
	}
}

// subscriber is one registration. active is cleared by unsubscribe so a
// subscriber removed during a notification pass is skipped by that pass.
type subscriber struct {
	id     uint64
	cb     func()
	active atomic.Bool
}

// Data is a mutable record shared by reference with a set of subscribers.
// Get is safe from any goroutine. Writers are expected to run on one event
// loop; concurrent Sets are serialized but their notifications interleave.
type Data[S any] struct {
	name     string
	logger   *slog.Logger
	observer Observer

	mu      sync.RWMutex
	state   *S
	version uint64
	subs    []*subscriber
}

// New creates a Data holding initial.
func New[S any](initial S, opts ...Option) *Data[S] {
	o := options{name: "store"}
	for _, opt := range opts {
		opt(&o)
	}

	d := &Data[S]{
		name:   o.name,
		logger: o.logger,
		state:  &initial,
	}
	switch len(o.observers) {
	case 0:
	case 1:
		d.observer = o.observers[0]
	default:
		d.observer = multiObserver(o.observers)
	}
	return d
}

// Name returns the store name.
func (d *Data[S]) Name() string {
	return d.name
}

// Get returns the current record.
func (d *Data[S]) Get() S {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return *d.state
}

// Snapshot returns the current record by reference. Every Set installs a
// new reference, so two snapshots are == only if no Set happened between
// them. The record must not be modified through the pointer.
func (d *Data[S]) Snapshot() *S {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

// Version returns the number of completed Sets.
func (d *Data[S]) Version() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.version
}

// Subscribers returns the number of active subscriptions.
func (d *Data[S]) Subscribers() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}

// Set merges partials, in order, into a copy of the current record,
// installs the copy and then calls every subscriber registered at that
// moment. Subscribers added during the pass are not called by it;
// subscribers removed during the pass are skipped if not yet called.
//
// Set with no partials still installs a new reference and notifies.
// A subscriber may call Set; the nested update and its notification pass
// complete before the outer pass continues. A panicking subscriber aborts
// the pass and the panic propagates to the caller of Set.
func (d *Data[S]) Set(partials ...Partial[S]) {
	notified := 0
	if d.observer != nil {
		done := d.observer.SetStarted(d.name)
		defer func() { done(notified) }()
	}

	subs, version := d.apply(partials)

	if d.logger != nil {
		d.logger.Debug("store set",
			"store", d.name,
			"version", version,
			"partials", len(partials),
			"subscribers", len(subs))
	}

	for _, s := range subs {
		if !s.active.Load() {
			continue
		}
		notified++
		s.cb()
	}
}

// apply installs the merged record and returns the subscriber snapshot.
func (d *Data[S]) apply(partials []Partial[S]) ([]*subscriber, uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	next := cloneRecord(*d.state)
	for _, p := range partials {
		if p != nil {
			p(&next)
		}
	}
	d.state = &next
	d.version++

	subs := make([]*subscriber, len(d.subs))
	copy(subs, d.subs)
	return subs, d.version
}

// Subscribe registers cb to be called after every Set. The returned func
// removes the registration; calling it more than once is a no-op, and it
// may be called at any time, including from inside a notification.
// Subscribing the same func twice creates two independent registrations.
func (d *Data[S]) Subscribe(cb func()) (unsubscribe func()) {
	if cb == nil {
		return func() {}
	}

	s := &subscriber{id: subscriberIDCounter.Add(1), cb: cb}
	s.active.Store(true)

	d.mu.Lock()
	d.subs = append(d.subs, s)
	count := len(d.subs)
	d.mu.Unlock()

	d.subscribersChanged("subscribe", s.id, 1, count)

	var once sync.Once
	return func() {
		once.Do(func() { d.remove(s) })
	}
}

func (d *Data[S]) remove(s *subscriber) {
	s.active.Store(false)

	d.mu.Lock()
	for i, existing := range d.subs {
		if existing == s {
			d.subs = append(d.subs[:i:i], d.subs[i+1:]...)
			break
		}
	}
	count := len(d.subs)
	d.mu.Unlock()

	d.subscribersChanged("unsubscribe", s.id, -1, count)
}

func (d *Data[S]) subscribersChanged(op string, id uint64, delta, count int) {
	if d.logger != nil {
		d.logger.Debug("store "+op, "store", d.name, "subscription", id, "subscribers", count)
	}
	if d.observer != nil {
		d.observer.SubscribersChanged(d.name, delta, count)
	}
}

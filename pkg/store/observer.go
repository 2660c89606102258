package store

// Observer receives instrumentation callbacks from a Data.
// pkg/middleware provides Prometheus and OpenTelemetry implementations.
type Observer interface {
	// SetStarted is called when Set begins. The returned func is called once
	// the notification pass has finished (or panicked) with the number of
	// subscribers that were called.
	SetStarted(store string) func(notified int)

	// SubscribersChanged is called after every subscribe (delta 1) and
	// unsubscribe (delta -1) with the resulting count.
	SubscribersChanged(store string, delta, count int)
}

// multiObserver fans out to several observers.
type multiObserver []Observer

func (m multiObserver) SetStarted(store string) func(int) {
	done := make([]func(int), len(m))
	for i, o := range m {
		done[i] = o.SetStarted(store)
	}
	return func(n int) {
		for _, fn := range done {
			if fn != nil {
				fn(n)
			}
		}
	}
}

func (m multiObserver) SubscribersChanged(store string, delta, count int) {
	for _, o := range m {
		o.SubscribersChanged(store, delta, count)
	}
}

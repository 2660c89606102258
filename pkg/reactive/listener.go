package reactive

// Listener is anything that can be notified when a dependency changes.
// Component instances implement it; store subscriptions call MarkDirty to
// schedule a re-render of the component that read the changed value.
type Listener interface {
	// MarkDirty notifies the listener that one of its dependencies has changed.
	MarkDirty()

	// ID returns a unique identifier for this listener.
	ID() uint64
}

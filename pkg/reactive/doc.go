// Package reactive is the component runtime that hosts stores.
//
// # Owners
//
// Owner represents a component scope. Owners form a tree mirroring the
// component tree; values set on an Owner (SetValue) are visible to every
// descendant (GetValue), which is how context providers publish values.
// Disposing an Owner disposes its children and runs its cleanups.
//
// # Tracking
//
// During a render the runtime installs the rendering component's Owner and
// Listener on a per-goroutine tracking context. Hooks read them with
// CurrentOwner and CurrentListener. A Listener is notified with MarkDirty
// when something it read has changed.
//
// # Components
//
// Root mounts a view.Component tree. Each mounted component gets an
// Instance with its own Owner. Instances marked dirty are re-rendered by
// Flush, which returns one Patch per re-rendered component, so only the
// components whose inputs changed produce new output.
//
// # Thread Safety
//
// Owners are safe for concurrent use. A Root is driven by one goroutine at
// a time (the session event loop); the tracking context is per-goroutine,
// so code running on another goroutine must use WithOwner explicitly.
package reactive

package reactive

import (
	"runtime"
	"sync"
)

// TrackingContext holds the ambient render state for a goroutine.
type TrackingContext struct {
	// currentOwner is the Owner of the component being rendered.
	currentOwner *Owner

	// currentListener is notified when values read during render change.
	// nil means reads are untracked.
	currentListener Listener

	// renderDepth is > 0 while a component render is on the stack.
	renderDepth int
}

// trackingContexts stores per-goroutine tracking contexts.
var trackingContexts sync.Map

// getGoroutineID returns the id of the current goroutine, parsed from the
// header of runtime.Stack ("goroutine <id> [...").
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)

	var id uint64
	for i := len("goroutine "); i < n; i++ {
		if buf[i] == ' ' {
			break
		}
		id = id*10 + uint64(buf[i]-'0')
	}
	return id
}

// getTrackingContext returns the tracking context for the current goroutine,
// creating it on first use.
func getTrackingContext() *TrackingContext {
	gid := getGoroutineID()

	if ctx, ok := trackingContexts.Load(gid); ok {
		return ctx.(*TrackingContext)
	}

	ctx := &TrackingContext{}
	trackingContexts.Store(gid, ctx)
	return ctx
}

// CurrentOwner returns the Owner installed for the current goroutine,
// or nil outside a render.
func CurrentOwner() *Owner {
	return getTrackingContext().currentOwner
}

// CurrentListener returns the listener that reads should subscribe,
// or nil if reads are untracked.
func CurrentListener() Listener {
	return getTrackingContext().currentListener
}

// IsRendering reports whether a component render is in progress on the
// current goroutine.
func IsRendering() bool {
	return getTrackingContext().renderDepth > 0
}

func setCurrentOwner(o *Owner) *Owner {
	ctx := getTrackingContext()
	old := ctx.currentOwner
	ctx.currentOwner = o
	return old
}

func setCurrentListener(l Listener) Listener {
	ctx := getTrackingContext()
	old := ctx.currentListener
	ctx.currentListener = l
	return old
}

func beginRender() {
	getTrackingContext().renderDepth++
}

func endRender() {
	ctx := getTrackingContext()
	if ctx.renderDepth > 0 {
		ctx.renderDepth--
	}
}

// WithOwner runs fn with owner as the current owner. Values published by
// providers inside fn land on owner.
//
// Example:
//
//	go func() {
//	    reactive.WithOwner(parent, func() {
//	        theme := ThemeContext.Use()
//	        ...
//	    })
//	}()
func WithOwner(owner *Owner, fn func()) {
	old := setCurrentOwner(owner)
	defer setCurrentOwner(old)
	fn()
}

// WithListener runs fn with l as the current listener.
func WithListener(l Listener, fn func()) {
	old := setCurrentListener(l)
	defer setCurrentListener(old)
	fn()
}

// Untracked runs fn without a current listener, so reads inside it do not
// subscribe the rendering component.
func Untracked(fn func()) {
	WithListener(nil, fn)
}

// ReleaseGoroutine drops the tracking context of the calling goroutine.
// Long-lived goroutines that render (session event loops) call it before
// exiting.
func ReleaseGoroutine() {
	trackingContexts.Delete(getGoroutineID())
}

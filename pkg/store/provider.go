package store

import (
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/view"
)

// defaultsContext carries store options published by the host with
// ProvideDefaults.
var defaultsContext = reactive.CreateContext[[]Option](nil)

// ProvideDefaults sets options applied to every store that Provide creates
// below owner, ahead of the options passed to Provide. Hosts use it to
// attach loggers and observers to all stores of a session.
func ProvideDefaults(owner *reactive.Owner, opts ...Option) {
	defaultsContext.ProvideOn(owner, opts)
}

// Context is the handle through which a store is made available to the
// components below a Provider.
type Context[S any] struct {
	name string
	ctx  *reactive.Context[*Data[S]]
}

// NewContext creates a context handle. name appears in errors and as the
// default store name.
func NewContext[S any](name string) *Context[S] {
	return &Context[S]{
		name: name,
		ctx:  reactive.CreateContext[*Data[S]](nil),
	}
}

// Name returns the context name.
func (c *Context[S]) Name() string {
	return c.name
}

// Provider creates the subtree's store on the first render of the calling
// component and publishes it to its descendants. Later renders reuse the
// same store; initial is only read the first time. The children are
// returned as a fragment.
func Provider[S any](ctx *Context[S], initial S, children ...any) *view.Node {
	Provide(ctx, initial)
	return view.Fragment(children...)
}

// Provide is Provider without the node: it returns the store of the
// calling component, creating it on first render. Outside a render it
// creates an unpublished store.
func Provide[S any](ctx *Context[S], initial S, opts ...Option) *Data[S] {
	reactive.TrackHook(reactive.HookProvider)

	owner := reactive.CurrentOwner()
	if owner == nil {
		return New(initial, ctx.storeOptions(nil, opts)...)
	}

	if slot, ok := owner.UseHookSlot().(*Data[S]); ok {
		ctx.ctx.ProvideOn(owner, slot)
		return slot
	}

	defaults, _ := defaultsContext.LookupFrom(owner)
	d := New(initial, ctx.storeOptions(defaults, opts)...)
	owner.SetHookSlot(d)
	ctx.ctx.ProvideOn(owner, d)
	return d
}

// ProvideOn publishes an existing store on owner. Hosts use it to place a
// store above the top component.
func ProvideOn[S any](ctx *Context[S], owner *reactive.Owner, d *Data[S]) {
	ctx.ctx.ProvideOn(owner, d)
}

// From returns the store published for ctx above the current component,
// or ErrNoProvider.
func From[S any](ctx *Context[S]) (*Data[S], error) {
	return FromOwner(ctx, reactive.CurrentOwner())
}

// FromOwner is From starting at an explicit owner.
func FromOwner[S any](ctx *Context[S], owner *reactive.Owner) (*Data[S], error) {
	d, ok := ctx.ctx.LookupFrom(owner)
	if !ok || d == nil {
		return nil, noProvider(ctx.name)
	}
	return d, nil
}

func (c *Context[S]) storeOptions(defaults, opts []Option) []Option {
	out := make([]Option, 0, 1+len(defaults)+len(opts))
	out = append(out, WithName(c.name))
	out = append(out, defaults...)
	return append(out, opts...)
}

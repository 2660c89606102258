package demo

import (
	"github.com/vango-dev/extstore/internal/config"
	"github.com/vango-dev/extstore/pkg/reactive"
	"github.com/vango-dev/extstore/pkg/store"
)

// NewRoot builds the component tree of one demo session. Nothing renders
// until Mount.
func NewRoot(initial State, opts ...reactive.RootOption) *reactive.Root {
	return reactive.NewRoot("Root", Root(initial), opts...)
}

// Data returns the store of a mounted root.
func Data(r *reactive.Root) (*store.Data[State], error) {
	var owner *reactive.Owner
	if top := r.Top(); top != nil {
		owner = top.Owner()
	}
	return store.FromOwner(StoreContext, owner)
}

// InitialState converts the configured initial record.
func InitialState(c config.InitialState) State {
	return State{
		First: c.First,
		Last:  c.Last,
		Age:   c.Age,
		Count: c.Count,
	}
}

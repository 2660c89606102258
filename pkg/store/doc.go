// Package store is a small external store shared through the component tree.
//
// A Data[S] holds one record and a set of subscribers:
//
//	d := store.New(State{First: "", Last: "", Count: 0})
//	unsubscribe := d.Subscribe(func() { fmt.Println("changed:", d.Get()) })
//	d.Set(store.Assign(func(s *State) *string { return &s.First }, "Ada"))
//	unsubscribe()
//
// Set shallow-merges partial updates into a fresh copy of the record, then
// notifies every subscriber synchronously before returning.
//
// # Components
//
// Provider creates one Data per mounted subtree and publishes it on a
// Context. Components read a projection of the record with Use and get the
// store's Set back as the setter:
//
//	var StoreContext = store.NewContext[State]("app")
//
//	func App(initial State) view.Component {
//	    return view.Func(func() *view.Node {
//	        return store.Provider(StoreContext, initial, view.Mount("Counter", view.Func(Counter)))
//	    })
//	}
//
//	func Counter() *view.Node {
//	    count, set, err := store.Use(StoreContext, func(s State) int { return s.Count })
//	    if err != nil {
//	        return view.Text(err.Error())
//	    }
//	    inc := func(string) { set(store.Assign(countField, count+1)) }
//	    return view.El("button", view.On("click", inc), view.Textf("%d", count))
//	}
//
// A component that calls Use is re-rendered only when its selector's result
// changes; other components reading other fields are left alone.
//
// # Derived values
//
// Derived values are selectors, not record fields:
//
//	fullName := func(s State) string { return s.First + " " + s.Last }
//
// # Errors
//
// Use returns ErrNoProvider (code E001) when no provider is in scope and a
// *SelectorError (code E002) when the selector panics.
package store

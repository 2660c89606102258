package demo

import (
	"github.com/vango-dev/extstore/pkg/store"
	"github.com/vango-dev/extstore/pkg/view"
)

// Root provides a store holding initial and mounts App below it.
func Root(initial State) view.Component {
	return view.Func(func() *view.Node {
		return store.Provider(StoreContext, initial, view.Mount("App", App()))
	})
}

// App is the top of the page.
func App() view.Component {
	return view.Func(func() *view.Node {
		return view.El("div", view.Class("border"),
			view.El("h3", "App"),
			view.Mount("ContentContainer", ContentContainer()),
		)
	})
}

// ContentContainer does not read the store, so store updates never
// re-render it.
func ContentContainer() view.Component {
	return view.Func(func() *view.Node {
		return view.El("div", view.Class("border content"),
			view.El("h3", "ContentContainer"),
			view.Mount("FormContainer", FormContainer()),
			view.Mount("DisplayContainer", DisplayContainer()),
		)
	})
}

// FormContainer holds one TextInput per field.
func FormContainer() view.Component {
	return view.Func(func() *view.Node {
		inputs := make([]*view.Node, 0, len(Fields))
		for _, f := range Fields {
			inputs = append(inputs, view.Mount("TextInput:"+string(f), TextInput(f)))
		}
		return view.El("div", view.Class("border"),
			view.El("h3", "FormContainer"),
			inputs,
		)
	})
}

// DisplayContainer shows the fields, the full name and the counter.
func DisplayContainer() view.Component {
	return view.Func(func() *view.Node {
		displays := make([]*view.Node, 0, len(Fields))
		for _, f := range Fields {
			displays = append(displays, view.Mount("Display:"+string(f), Display(f)))
		}
		return view.El("div", view.Class("border"),
			view.El("h3", "DisplayContainer"),
			displays,
			view.Mount("FullName", FullNameView()),
			view.Mount("Counter", Counter()),
		)
	})
}

// Display shows one field.
func Display(f Field) view.Component {
	return view.Func(func() *view.Node {
		value, _, err := store.Use(StoreContext, f.Select)
		if err != nil {
			return errorView(err)
		}
		return view.El("div", f.Label()+": "+value)
	})
}

// TextInput edits one field. Every input event writes the whole value.
func TextInput(f Field) view.Component {
	return view.Func(func() *view.Node {
		value, set, err := store.Use(StoreContext, f.Select)
		if err != nil {
			return errorView(err)
		}
		return view.El("div",
			f.Label()+": ",
			view.El("input",
				view.A("type", "text"),
				view.A("name", string(f)),
				view.A("value", value),
				view.On("input", func(v string) { set(f.Assign(v)) }),
			),
		)
	})
}

// FullNameView shows the FullName selector.
func FullNameView() view.Component {
	return view.Func(func() *view.Node {
		name, _, err := store.Use(StoreContext, FullName)
		if err != nil {
			return errorView(err)
		}
		return view.El("div", view.Class("border"),
			view.El("h3", "FullNameContainer"),
			"Full Name: ",
			view.El("span", name),
		)
	})
}

// Counter shows the count with decrement and increment buttons.
func Counter() view.Component {
	return view.Func(func() *view.Node {
		count, set, err := store.Use(StoreContext, Count)
		if err != nil {
			return errorView(err)
		}
		return view.El("div", view.Class("border"),
			view.El("h3", "CounterContainer"),
			view.El("button",
				view.A("name", "decrement"),
				view.On("click", func(string) { set(store.Update(countField, decrement)) }),
				"Decrement"),
			"Count: ",
			view.El("h3", view.Textf("%d", count)),
			view.El("button",
				view.A("name", "increment"),
				view.On("click", func(string) { set(store.Update(countField, increment)) }),
				"Increment"),
		)
	})
}

func increment(n int) int { return n + 1 }
func decrement(n int) int { return n - 1 }

func errorView(err error) *view.Node {
	return view.El("div", view.Class("error"), err.Error())
}

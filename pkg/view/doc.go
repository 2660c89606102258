// Package view is the node tree produced by component render functions.
//
// A render function returns a *Node built with El, Text, Fragment and
// Mount. Event handlers are attached with On and receive the string value
// carried by the client event (input text, or empty for clicks).
//
//	func Greeting() *view.Node {
//	    return view.El("div", view.Class("greeting"),
//	        view.El("span", view.Text("hello")),
//	        view.El("button", view.On("click", func(string) { ... }), "Say hi"),
//	    )
//	}
//
// Nodes are converted to HTML with WriteHTML. Component boundaries are
// rendered as wrapper elements carrying data-component so that a single
// component's output can be replaced in place.
package view

package view

import "fmt"

// Text creates a text node.
func Text(content string) *Node {
	return &Node{Kind: KindText, Text: content}
}

// Textf creates a formatted text node.
func Textf(format string, args ...any) *Node {
	return Text(fmt.Sprintf(format, args...))
}

// Fragment groups children without a wrapper element.
func Fragment(children ...any) *Node {
	node := &Node{Kind: KindFragment}
	node.append(children)
	return node
}

// El creates an element. Arguments may be attributes, events, nodes,
// node slices, strings (text) or components.
func El(tag string, args ...any) *Node {
	node := &Node{Kind: KindElement, Tag: tag}
	node.append(args)
	return node
}

// Mount places a named component at this position of the tree.
// The name is used to match the component across re-renders of its parent.
func Mount(name string, comp Component) *Node {
	return &Node{Kind: KindComponent, Name: name, Comp: comp}
}

// MountFunc is Mount for a plain render function.
func MountFunc(name string, render func() *Node) *Node {
	return Mount(name, Func(render))
}

// Class sets the class attribute.
func Class(value string) Attr {
	return Attr{Key: "class", Value: value}
}

// A creates an arbitrary attribute.
func A(key, value string) Attr {
	return Attr{Key: key, Value: value}
}

// On attaches an event handler.
func On(event string, h Handler) Event {
	return Event{Name: event, Handler: h}
}

func (n *Node) append(args []any) {
	for _, arg := range args {
		switch v := arg.(type) {
		case nil:
			continue
		case Attr:
			if v.Key != "" {
				n.Attrs = append(n.Attrs, v)
			}
		case Event:
			if v.Handler != nil {
				n.Events = append(n.Events, v)
			}
		case *Node:
			if v != nil {
				n.Children = append(n.Children, v)
			}
		case []*Node:
			for _, c := range v {
				if c != nil {
					n.Children = append(n.Children, c)
				}
			}
		case string:
			n.Children = append(n.Children, Text(v))
		case Component:
			n.Children = append(n.Children, Mount(fmt.Sprintf("%T", v), v))
		}
	}
}

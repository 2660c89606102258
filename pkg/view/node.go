package view

// Kind is the node type discriminator.
type Kind uint8

const (
	KindElement   Kind = iota // <div>, <button>, etc.
	KindText                  // Plain text node
	KindFragment              // Grouping without wrapper
	KindComponent             // Nested component
)

// String returns the string representation of the Kind.
func (k Kind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	default:
		return "Unknown"
	}
}

// Handler receives the value carried by a client event.
type Handler func(value string)

// Node is a single node of a rendered tree.
type Node struct {
	Kind     Kind
	Tag      string
	Attrs    []Attr
	Events   []Event
	Children []*Node
	Text     string

	// Name and Comp are set for KindComponent nodes.
	Name string
	Comp Component

	// ID and Rendered are filled in by the runtime once the component
	// behind a KindComponent node has been mounted.
	ID       string
	Rendered *Node
}

// Attr is a single HTML attribute.
type Attr struct {
	Key   string
	Value string
}

// Event binds a handler to a DOM event name ("click", "input").
// HandlerID is assigned by the runtime when the owning component renders.
type Event struct {
	Name      string
	Handler   Handler
	HandlerID string
}

// Component is anything that can render to a Node.
type Component interface {
	Render() *Node
}

// Func adapts a render function to Component.
type Func func() *Node

// Render implements Component.
func (f Func) Render() *Node {
	return f()
}

// Walk calls fn for n and every descendant that belongs to the same
// component, stopping at component boundaries.
func (n *Node) Walk(fn func(*Node)) {
	if n == nil {
		return
	}
	fn(n)
	if n.Kind == KindComponent {
		return
	}
	for _, child := range n.Children {
		child.Walk(fn)
	}
}

package reactive

import (
	"sync/atomic"

	"github.com/vango-dev/extstore/pkg/view"
)

// Instance is a mounted component with its own Owner.
type Instance struct {
	id   string
	name string
	comp view.Component

	owner    *Owner
	parent   *Instance
	children []*Instance

	// slot is the KindComponent node in the parent's tree that this
	// instance renders into.
	slot *view.Node
	tree *view.Node

	root *Root

	dirty    atomic.Bool
	renders  atomic.Int64
	handlers []string
}

var _ Listener = (*Instance)(nil)

// ID returns the listener id (the id of the instance's Owner).
func (i *Instance) ID() uint64 {
	return i.owner.ID()
}

// InstanceID returns the id used in rendered HTML and patches, e.g. "c3".
func (i *Instance) InstanceID() string {
	return i.id
}

// Name returns the name the component was mounted under.
func (i *Instance) Name() string {
	return i.name
}

// Owner returns the instance's Owner.
func (i *Instance) Owner() *Owner {
	return i.owner
}

// Parent returns the parent instance, or nil for the top component.
func (i *Instance) Parent() *Instance {
	return i.parent
}

// Children returns the mounted child instances in tree order.
func (i *Instance) Children() []*Instance {
	return append([]*Instance(nil), i.children...)
}

// Tree returns the output of the last render.
func (i *Instance) Tree() *view.Node {
	return i.tree
}

// Renders returns how many times the instance has rendered.
func (i *Instance) Renders() int {
	return int(i.renders.Load())
}

// Handlers returns the handler ids bound by the last render, in tree
// order.
func (i *Instance) Handlers() []string {
	return append([]string(nil), i.handlers...)
}

// IsDirty reports whether the instance is waiting for a re-render.
func (i *Instance) IsDirty() bool {
	return i.dirty.Load()
}

// MarkDirty schedules a re-render on the next Root.Flush.
func (i *Instance) MarkDirty() {
	if i.owner.IsDisposed() {
		return
	}
	if i.dirty.CompareAndSwap(false, true) && i.root != nil {
		i.root.schedule(i)
	}
}

// render runs the component with its owner and listener installed, then
// mounts, re-renders or disposes child components.
func (i *Instance) render() {
	i.dirty.Store(false)

	var tree *view.Node
	WithOwner(i.owner, func() {
		i.owner.StartRender()
		defer i.owner.EndRender()

		WithListener(i, func() {
			tree = i.comp.Render()
		})
	})

	i.renders.Add(1)
	i.tree = tree
	if i.slot != nil {
		i.slot.Rendered = tree
	}

	i.root.bindHandlers(i)
	i.reconcile()
	i.root.rendered(i)
}

// reconcile matches the component nodes of the new tree to existing child
// instances by position and name. Matches are re-rendered, new nodes are
// mounted, and instances without a node are disposed.
func (i *Instance) reconcile() {
	var slots []*view.Node
	i.tree.Walk(func(n *view.Node) {
		if n.Kind == view.KindComponent {
			slots = append(slots, n)
		}
	})

	old := i.children
	next := make([]*Instance, 0, len(slots))
	for idx, slot := range slots {
		var child *Instance
		if idx < len(old) && old[idx] != nil && old[idx].name == slot.Name {
			child = old[idx]
			old[idx] = nil
			child.comp = slot.Comp
		} else {
			child = i.root.newInstance(slot.Name, slot.Comp, i)
		}
		child.slot = slot
		slot.ID = child.id
		next = append(next, child)
	}

	for _, c := range old {
		if c != nil {
			c.dispose()
		}
	}
	i.children = next

	for _, child := range next {
		child.render()
	}
}

// dispose disposes the instance, its children and its Owner.
func (i *Instance) dispose() {
	for idx := len(i.children) - 1; idx >= 0; idx-- {
		i.children[idx].dispose()
	}
	i.children = nil

	i.root.unregister(i)
	i.owner.Dispose()
	i.slot = nil
	i.tree = nil
}

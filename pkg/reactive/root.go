package reactive

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strconv"
	"sync"

	exterrors "github.com/vango-dev/extstore/internal/errors"
	"github.com/vango-dev/extstore/pkg/view"
)

// ErrHandlerNotFound is wrapped by Dispatch when the target is unknown.
var ErrHandlerNotFound = errors.New("reactive: handler not found")

// maxFlushPasses bounds how many times Flush re-renders components that keep
// getting marked dirty by other renders.
const maxFlushPasses = 64

// Patch is the new output of one re-rendered component.
type Patch struct {
	Component string `json:"component"`
	Name      string `json:"name"`
	HTML      string `json:"html"`
}

// RootOption configures a Root.
type RootOption func(*Root)

// WithLogger sets the logger used by the root.
func WithLogger(logger *slog.Logger) RootOption {
	return func(r *Root) {
		r.logger = logger
	}
}

// WithRenderHook registers fn to be called after every component render.
func WithRenderHook(fn func(*Instance)) RootOption {
	return func(r *Root) {
		r.onRender = append(r.onRender, fn)
	}
}

// WithSetup runs fn with the root Owner before the first render, so hosts
// can publish context values above the top component.
func WithSetup(fn func(*Owner)) RootOption {
	return func(r *Root) {
		r.setup = append(r.setup, fn)
	}
}

// Root hosts a mounted component tree.
type Root struct {
	owner *Owner
	slot  *view.Node
	top   *Instance

	instances map[string]*Instance
	handlers  map[string]view.Handler
	counter   int

	pending   []*Instance
	pendingMu sync.Mutex

	logger   *slog.Logger
	onRender []func(*Instance)
	setup    []func(*Owner)
}

// NewRoot creates a root for comp. Nothing renders until Mount.
func NewRoot(name string, comp view.Component, opts ...RootOption) *Root {
	r := &Root{
		owner:     NewOwner(nil),
		slot:      view.Mount(name, comp),
		instances: make(map[string]*Instance),
		handlers:  make(map[string]view.Handler),
		logger:    slog.Default().With("component", "reactive"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Owner returns the root Owner, the parent of the top component's Owner.
func (r *Root) Owner() *Owner {
	return r.owner
}

// Top returns the top component instance, or nil before Mount.
func (r *Root) Top() *Instance {
	return r.top
}

// Mount renders the whole tree for the first time.
func (r *Root) Mount() (err error) {
	if r.top != nil {
		return nil
	}
	defer r.recoverRender(&err)

	for _, fn := range r.setup {
		fn(r.owner)
	}

	r.top = r.newInstance(r.slot.Name, r.slot.Comp, nil)
	r.top.slot = r.slot
	r.slot.ID = r.top.id
	r.top.render()
	return nil
}

// HTML renders the current tree, including the top component boundary.
func (r *Root) HTML() string {
	return view.HTML(r.slot)
}

// Dispatch runs the handler registered under handlerID with value.
// A panicking handler is recovered and reported as an error.
func (r *Root) Dispatch(handlerID, value string) (err error) {
	h, ok := r.handlers[handlerID]
	if !ok {
		return exterrors.New("E005").WithDetailf("target %q", handlerID).Wrap(ErrHandlerNotFound)
	}

	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("handler panic",
				"target", handlerID,
				"panic", rec,
				"stack", string(debug.Stack()))
			err = exterrors.New("E006").WithDetailf("target %q", handlerID).Wrap(fmt.Errorf("%v", rec))
		}
	}()

	h(value)
	return nil
}

// Flush re-renders every dirty component and returns their new output.
// Components whose ancestor is also dirty are covered by the ancestor's
// render and produce no separate patch.
func (r *Root) Flush() (patches []Patch, err error) {
	defer r.recoverRender(&err)

	for pass := 0; ; pass++ {
		r.pendingMu.Lock()
		pending := r.pending
		r.pending = nil
		r.pendingMu.Unlock()

		if len(pending) == 0 {
			return patches, nil
		}
		if pass >= maxFlushPasses {
			return patches, exterrors.New("E007").WithDetailf("%d passes", pass)
		}

		dirty := make(map[*Instance]bool, len(pending))
		for _, inst := range pending {
			if inst.IsDirty() && !inst.owner.IsDisposed() {
				dirty[inst] = true
			}
		}

		for _, inst := range pending {
			if !dirty[inst] || !inst.IsDirty() || inst.owner.IsDisposed() || hasDirtyAncestor(inst, dirty) {
				continue
			}
			inst.render()
			patches = append(patches, Patch{
				Component: inst.id,
				Name:      inst.name,
				HTML:      view.HTML(inst.tree),
			})
		}
	}
}

// Dispose unmounts the tree and releases every owner.
func (r *Root) Dispose() {
	if r.top != nil {
		r.top.dispose()
		r.top = nil
	}
	r.owner.Dispose()

	r.pendingMu.Lock()
	r.pending = nil
	r.pendingMu.Unlock()
}

// Instances returns the number of mounted component instances.
func (r *Root) Instances() int {
	return len(r.instances)
}

// Instance returns the mounted instance with the given id.
func (r *Root) Instance(id string) (*Instance, bool) {
	inst, ok := r.instances[id]
	return inst, ok
}

// Find returns the mounted instances with the given name, in mount order.
func (r *Root) Find(name string) []*Instance {
	var out []*Instance
	var walk func(*Instance)
	walk = func(inst *Instance) {
		if inst == nil {
			return
		}
		if inst.name == name {
			out = append(out, inst)
		}
		for _, c := range inst.children {
			walk(c)
		}
	}
	walk(r.top)
	return out
}

// Handlers returns the ids of all registered handlers.
func (r *Root) Handlers() []string {
	ids := make([]string, 0, len(r.handlers))
	for id := range r.handlers {
		ids = append(ids, id)
	}
	return ids
}

func (r *Root) newInstance(name string, comp view.Component, parent *Instance) *Instance {
	parentOwner := r.owner
	if parent != nil {
		parentOwner = parent.owner
	}

	r.counter++
	inst := &Instance{
		id:     "c" + strconv.Itoa(r.counter),
		name:   name,
		comp:   comp,
		owner:  NewOwner(parentOwner),
		parent: parent,
		root:   r,
	}
	r.instances[inst.id] = inst
	return inst
}

func (r *Root) unregister(inst *Instance) {
	delete(r.instances, inst.id)
	for _, id := range inst.handlers {
		delete(r.handlers, id)
	}
	inst.handlers = nil
}

func (r *Root) schedule(inst *Instance) {
	r.pendingMu.Lock()
	defer r.pendingMu.Unlock()
	r.pending = append(r.pending, inst)
}

// bindHandlers replaces the handlers registered by inst's previous render
// with those of its current tree, assigning ids of the form "c3.0".
func (r *Root) bindHandlers(inst *Instance) {
	for _, id := range inst.handlers {
		delete(r.handlers, id)
	}
	inst.handlers = inst.handlers[:0]

	n := 0
	inst.tree.Walk(func(node *view.Node) {
		for idx := range node.Events {
			id := inst.id + "." + strconv.Itoa(n)
			n++
			node.Events[idx].HandlerID = id
			r.handlers[id] = node.Events[idx].Handler
			inst.handlers = append(inst.handlers, id)
		}
	})
}

func (r *Root) rendered(inst *Instance) {
	r.logger.Debug("component rendered", "id", inst.id, "name", inst.name, "renders", inst.Renders())
	for _, fn := range r.onRender {
		fn(inst)
	}
}

func (r *Root) recoverRender(err *error) {
	rec := recover()
	if rec == nil {
		return
	}
	r.logger.Error("render panic", "panic", rec, "stack", string(debug.Stack()))
	if e, ok := rec.(*exterrors.Error); ok {
		*err = e
		return
	}
	if e, ok := rec.(error); ok {
		*err = exterrors.New("E004").Wrap(e)
		return
	}
	*err = exterrors.New("E004").Wrap(fmt.Errorf("%v", rec))
}

func hasDirtyAncestor(inst *Instance, dirty map[*Instance]bool) bool {
	for p := inst.parent; p != nil; p = p.parent {
		if dirty[p] {
			return true
		}
	}
	return false
}

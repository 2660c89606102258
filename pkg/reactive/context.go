package reactive

// Context provides dependency injection through the component tree.
// Create a context with CreateContext, publish a value with Provide (or
// view-level helpers built on it), and read it with Use or Lookup.
//
// Example:
//
//	var ThemeContext = reactive.CreateContext("light")
//
//	func App() *view.Node {
//	    ThemeContext.Provide("dark")
//	    return view.El("main", view.Mount("Button", view.Func(Button)))
//	}
//
//	func Button() *view.Node {
//	    return view.El("button", view.Class("btn-"+ThemeContext.Use()))
//	}
type Context[T any] struct {
	// key uniquely identifies this context in the owner value map.
	key any

	defaultValue T
}

// contextKey wraps Context to create a unique key type.
type contextKey[T any] struct {
	ctx *Context[T]
}

// CreateContext creates a new context. defaultValue is returned by Use when
// no provider is found.
func CreateContext[T any](defaultValue T) *Context[T] {
	ctx := &Context[T]{defaultValue: defaultValue}
	ctx.key = contextKey[T]{ctx: ctx}
	return ctx
}

// Provide publishes value to the current component and its descendants.
// Returns false when called outside a render (no current owner).
func (c *Context[T]) Provide(value T) bool {
	TrackHook(HookContext)

	owner := CurrentOwner()
	if owner == nil {
		return false
	}
	owner.SetValue(c.key, value)
	return true
}

// ProvideOn publishes value on an explicit owner.
func (c *Context[T]) ProvideOn(owner *Owner, value T) {
	owner.SetValue(c.key, value)
}

// Use retrieves the value from the nearest provider, or the default value.
func (c *Context[T]) Use() T {
	TrackHook(HookContext)

	if v, ok := c.Lookup(); ok {
		return v
	}
	return c.defaultValue
}

// Lookup retrieves the value from the nearest provider. ok is false when
// there is no current owner or no provider above it.
func (c *Context[T]) Lookup() (T, bool) {
	return c.LookupFrom(CurrentOwner())
}

// LookupFrom is Lookup starting at an explicit owner.
func (c *Context[T]) LookupFrom(owner *Owner) (T, bool) {
	var zero T
	if owner == nil {
		return zero, false
	}
	value, ok := owner.LookupValue(c.key)
	if !ok {
		return zero, false
	}
	typed, ok := value.(T)
	return typed, ok
}

// Default returns the default value for this context.
func (c *Context[T]) Default() T {
	return c.defaultValue
}

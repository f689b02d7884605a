package compose

// Component is a unit of runtime-creatable state identified by a unique ID
// generated once at construction.
type Component interface {
	ID() ID
}

// Binder is implemented by components that wire their internal emitters
// when created. Bind runs inside the component's capture scope and returns
// the bound version of the component.
type Binder[T any] interface {
	Bind() T
}

// RouterComponent is implemented by components that carry navigation state.
type RouterComponent interface {
	Component
	Router() *Router
}

// Factory constructs a component. ctx.ID() is the identity offered to the
// new component; embedding NewBase(ctx) adopts it.
type Factory[T Component] func(ctx *BuildCtx) T

// Base stores a component's identity. Embed it to satisfy Component.
type Base struct {
	id ID
}

// NewBase adopts the identity offered by ctx.
func NewBase(ctx *BuildCtx) Base {
	return Base{id: ctx.ID()}
}

// ID returns the component's identity.
func (b Base) ID() ID {
	return b.id
}

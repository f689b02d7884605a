package compose

// Controller provides lifecycle control for one keyed component
type Controller[T Component] struct {
	id        ID
	container *InstanceComponent[T]
}

// ID returns the identity the controller addresses.
func (c *Controller[T]) ID() ID {
	return c.id
}

// Get returns the component if it is still live
func (c *Controller[T]) Get() (T, bool) {
	return c.container.Lookup(c.id)
}

// MustGet returns the component or panics with *PreconditionError
func (c *Controller[T]) MustGet() T {
	v, ok := c.Get()
	if !ok {
		panic(newPreconditionError(c.container.name, "controller access", "component "+c.id.String()+" is not live"))
	}
	return v
}

// IsLive checks if the component is still stored
func (c *Controller[T]) IsLive() bool {
	_, ok := c.Get()
	return ok
}

// Router returns the router associated with the component
func (c *Controller[T]) Router() (*Router, bool) {
	return c.container.RouterFor(c.id)
}

// Subscriptions returns the number of live handles filed under the component
func (c *Controller[T]) Subscriptions() int {
	return c.container.rt.registry.Count(c.id)
}

// Destroy removes the component from its container
func (c *Controller[T]) Destroy() bool {
	return c.container.Destroy(c.id)
}

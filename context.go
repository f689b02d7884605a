package compose

// BuildCtx provides context for component factories
type BuildCtx struct {
	rt        *Runtime
	id        ID
	container string
}

// ID returns the identity the component is being built under.
func (ctx *BuildCtx) ID() ID {
	return ctx.id
}

// Runtime returns the runtime the component is built on.
func (ctx *BuildCtx) Runtime() *Runtime {
	return ctx.rt
}

// Container returns the name of the container building the component.
func (ctx *BuildCtx) Container() string {
	return ctx.container
}

// OnCleanup registers a function to run when the component's subscriptions
// are cancelled. The returned handle can cancel it early.
func (ctx *BuildCtx) OnCleanup(fn func() error) *Subscription {
	sub := newSubscription(ID{}, fn)
	ctx.rt.registry.File(ctx.id, sub)
	return sub
}

// Own files a subscription created elsewhere under the component, so it is
// cancelled with the component's other subscriptions.
func (ctx *BuildCtx) Own(sub *Subscription) {
	ctx.rt.registry.File(ctx.id, sub)
}

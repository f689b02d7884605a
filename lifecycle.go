package compose

import "reflect"

// build runs factory inside a capture scope, binds the result and returns it
// with its final identity. Subscriptions made by the factory or by Bind are
// filed under that identity. If the factory panics they are discarded.
func build[T Component](rt *Runtime, container string, factory Factory[T]) T {
	if factory == nil {
		panic(newPreconditionError(container, "create", "nil factory"))
	}

	ctx := &BuildCtx{rt: rt, id: NewID(), container: container}

	var c T
	built := false
	defer func() {
		if !built {
			rt.registry.Discard(ctx.id)
		}
	}()

	rt.registry.Capture(ctx.id, nil, func() {
		c = factory(ctx)
		adopt(rt, ctx, c)

		if b, ok := any(c).(Binder[T]); ok {
			c = b.Bind()
			adopt(rt, ctx, c)
		}
	})

	built = true
	return c
}

// adopt moves the registry entry to c's identity when the factory did not
// use the offered one. Containers nested under the offered identity follow
// their close handles, and monitors are told of the move.
func adopt[T Component](rt *Runtime, ctx *BuildCtx, c T) {
	if isNil(c) {
		panic(newPreconditionError(ctx.container, "create", "factory returned a nil component"))
	}
	id := c.ID()
	if isZero(id) {
		panic(newPreconditionError(ctx.container, "create", "component has no identity; embed compose.NewBase(ctx)"))
	}
	if id == ctx.id {
		return
	}

	previous := ctx.id
	rt.registry.Reassign(previous, id)
	ctx.id = id

	rt.reportLifecycle(LifecycleEvent{
		Kind:          LifecycleAdopted,
		ContainerName: ctx.container,
		Component:     id,
		Previous:      previous,
	})
}

// retire is the shared teardown for one component identity. Phase one runs
// now: routers registered against id are severed and cleared, their
// navigation emitters are discarded and the registry entry is detached.
// Phase two, cancelling the detached handles most recent first, is posted to the dispatcher so
// that a send already delivering through those handles completes first.
func retire(rt *Runtime, ev LifecycleEvent) int {
	id := ev.Component

	for _, r := range rt.routers.Routers(id) {
		r.ClearTarget()
		r.Clear()
		for _, emitter := range r.emitterIDs() {
			rt.registry.DiscardEmitter(emitter)
		}
	}
	if f, ok := rt.routers.(RouterForgetter); ok {
		f.Forget(id)
	}

	subs := rt.registry.Detach(id)

	disposed := ev
	disposed.Kind = LifecycleDisposed
	disposed.Subscriptions = len(subs)
	rt.schedule(func() {
		for i := len(subs) - 1; i >= 0; i-- {
			subs[i].cancel(cleanupDeferred)
		}
		rt.reportLifecycle(disposed)
	})

	return len(subs)
}

// attachToOwner ties a container constructed inside a capture scope to the
// scope's owner: destroying the owner closes the container when the owner's
// subscriptions are cancelled. The returned handle, nil outside a scope,
// follows the owner if its identity is reassigned.
func attachToOwner(rt *Runtime, closeFn func()) *Subscription {
	owner, ok := rt.registry.CurrentOwner()
	if !ok {
		return nil
	}
	sub := newSubscription(ID{}, func() error {
		closeFn()
		return nil
	})
	rt.registry.File(owner, sub)
	return sub
}

// ownerOf returns the component a nested container belongs to.
func ownerOf(link *Subscription) ID {
	if link == nil {
		return ID{}
	}
	return link.Owner()
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

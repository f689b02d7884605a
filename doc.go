// Package compose manages the lifecycle of dynamically created components and
// the reactive subscriptions they make.
//
// # Overview
//
// Compose organizes code around four core concepts:
//
//  1. Emitters: synchronous signal and value channels that observers subscribe to
//  2. Capture scopes: a window during which every new subscription is filed under one owner
//  3. Containers: single-slot and keyed holders that build, store and destroy components
//  4. Runtimes: the registry, dispatcher, router lookup and monitors shared by containers
//
// # Basic Usage
//
// A component embeds Base and is built by a factory:
//
//	type Tab struct {
//	    compose.Base
//	    ticks int
//	}
//
//	clock := compose.NewSignalEmitter(nil)
//	tabs := compose.NewInstance[*Tab](nil, compose.WithName("tabs"))
//
//	id := tabs.Create(func(ctx *compose.BuildCtx) *Tab {
//	    t := &Tab{Base: compose.NewBase(ctx)}
//	    clock.Subscribe(func() { t.ticks++ }) // filed under t's identity
//	    return t
//	})
//
//	clock.Send()
//	ticks := compose.Get(tabs, func(t *Tab) int { return t.ticks })
//
//	tabs.Destroy(id)
//	compose.Default().Flush() // cancels the tab's subscription
//
// # Capture scopes
//
// Containers open a capture scope around every factory call. Scopes nest and
// must close in the reverse order they were opened:
//
//	rt.Registry().Capture(owner, nil, func() {
//	    emitter.Subscribe(fn) // owned by owner
//	})
//
// Closing a scope that is not the innermost one panics with
// *CaptureOrderError. Open scopes belong to the goroutine that opened the
// outermost one: other goroutines wait in BeginCapture, so components may be
// created concurrently, and their subscriptions are never captured by a
// scope they did not open. Built with -tags debug, subscribing from another
// goroutine while a scope is open panics instead.
//
// Factories register extra teardown through the build context:
//
//	ctx.OnCleanup(func() error { return conn.Close() })
//	ctx.Own(externalSubscription)
//
// Cleanups run most recent first.
//
// # Containers
//
// DynamicComponent holds at most one component. Creating into an occupied
// slot destroys the previous component, or fails with ErrAlreadyCreated under
// ReplaceReject:
//
//	detail := compose.NewDynamic[*Detail](rt, compose.WithReplacePolicy(compose.ReplaceReject))
//	id, err := detail.Create(newDetail)
//
// InstanceComponent holds any number of components keyed by identity. The
// most recent Create is the current component:
//
//	screens := compose.NewInstance[*Screen](rt)
//	screen := screens.MustCurrent() // panics with *PreconditionError when empty
//
// A container constructed inside a factory belongs to the component being
// built and is closed when that component is destroyed.
//
// # Deferred disposal
//
// Destroying a component happens in two phases. The first runs immediately:
// routers registered against the component are severed and cleared, and its
// subscriptions are detached from the registry. The second, cancelling those
// subscriptions, is posted to the runtime's Dispatcher so that a send already
// delivering through them completes first.
//
// The default dispatcher is a Queue drained by Runtime.Flush. A Loop runs
// callbacks on one goroutine:
//
//	loop := compose.NewLoop()
//	rt := compose.NewRuntime(compose.WithDispatcher(loop))
//	go loop.Run(ctx)
//
//	loop.Do(ctx, func() { screens.Destroy(id) })
//
// # Routers
//
// A component that implements RouterComponent exposes a *Router. The router
// is registered against the component in the runtime's RouterLookup and held
// weakly by keyed containers:
//
//	r, ok := screens.RouterFor(id)
//	r.Push(compose.Route{Path: "/settings"})
//
// # Monitoring
//
// Monitors observe every send and every lifecycle transition:
//
//	type Auditor struct {
//	    compose.BaseMonitor
//	}
//
//	func (a *Auditor) OnLifecycle(ev compose.LifecycleEvent) {
//	    log.Printf("%s %s", ev.Kind, ev.Component)
//	}
//
//	rt := compose.NewRuntime(
//	    compose.WithMonitor(&Auditor{BaseMonitor: compose.NewBaseMonitor("audit")}),
//	    compose.WithMonitor(compose.NewIntrospection()),
//	)
//
// Introspection keeps descriptors of containers, components and emitters.
// Snapshot returns a copy of them. Monitor panics are recovered and logged.
// The extensions package provides logging, Prometheus metrics and tree
// rendering monitors.
package compose

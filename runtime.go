package compose

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Runtime bundles the state shared by every container and emitter built on
// it: the subscription registry, the dispatcher used for deferred disposal,
// the router registry collaborator and the monitors.
type Runtime struct {
	registry   *Registry
	dispatcher Dispatcher
	routers    RouterLookup
	policy     ReplacePolicy
	logger     *zerolog.Logger

	mu         sync.RWMutex
	monitors   []Monitor
	monitoring bool
}

// RuntimeOption is a modifier for runtimes
type RuntimeOption func(*Runtime)

// WithDispatcher returns an option that sets the dispatcher used for
// deferred disposal. The default is a *Queue drained by Flush.
func WithDispatcher(d Dispatcher) RuntimeOption {
	return func(rt *Runtime) {
		if d != nil {
			rt.dispatcher = d
		}
	}
}

// WithRouterLookup returns an option that replaces the router registry
// collaborator consulted on destroy.
func WithRouterLookup(l RouterLookup) RuntimeOption {
	return func(rt *Runtime) {
		if l != nil {
			rt.routers = l
		}
	}
}

// WithMonitor returns an option that registers a monitor to a runtime
func WithMonitor(m Monitor) RuntimeOption {
	return func(rt *Runtime) {
		if err := rt.UseMonitor(m); err != nil {
			panic(err)
		}
	}
}

// WithMonitoring returns an option that enables or disables monitor notifications
func WithMonitoring(enabled bool) RuntimeOption {
	return func(rt *Runtime) {
		rt.monitoring = enabled
	}
}

// WithLogger returns an option that sets a runtime-scoped logger
func WithLogger(l zerolog.Logger) RuntimeOption {
	return func(rt *Runtime) {
		rt.logger = &l
	}
}

// WithDefaultReplacePolicy returns an option that sets the policy used by
// single-slot containers that do not choose one themselves.
func WithDefaultReplacePolicy(p ReplacePolicy) RuntimeOption {
	return func(rt *Runtime) {
		rt.policy = p
	}
}

// NewRuntime creates a new runtime with optional configuration
func NewRuntime(opts ...RuntimeOption) *Runtime {
	rt := &Runtime{
		registry:   NewRegistry(),
		dispatcher: NewQueue(),
		routers:    NewRouterStorage(),
		policy:     ReplaceDestroy,
		monitoring: true,
	}
	rt.registry.onCleanupError = rt.handleCleanupError

	for _, opt := range opts {
		opt(rt)
	}

	return rt
}

var defaultRuntime = sync.OnceValue(func() *Runtime {
	return NewRuntime()
})

// Default returns the process-wide runtime used when a nil *Runtime is passed.
func Default() *Runtime {
	return defaultRuntime()
}

func orDefault(rt *Runtime) *Runtime {
	if rt == nil {
		return Default()
	}
	return rt
}

// Registry returns the runtime's subscription registry.
func (rt *Runtime) Registry() *Registry {
	return rt.registry
}

// Dispatcher returns the dispatcher used for deferred disposal.
func (rt *Runtime) Dispatcher() Dispatcher {
	return rt.dispatcher
}

// Routers returns the router registry collaborator.
func (rt *Runtime) Routers() RouterLookup {
	return rt.routers
}

// Logger returns the runtime logger, falling back to the package logger.
func (rt *Runtime) Logger() *zerolog.Logger {
	if rt.logger != nil {
		return rt.logger
	}
	return &logger
}

// Monitoring reports whether monitors are notified.
func (rt *Runtime) Monitoring() bool {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.monitoring
}

// SetMonitoring enables or disables monitor notifications.
func (rt *Runtime) SetMonitoring(enabled bool) {
	rt.mu.Lock()
	rt.monitoring = enabled
	rt.mu.Unlock()
}

// UseMonitor registers a monitor to the runtime
func (rt *Runtime) UseMonitor(m Monitor) error {
	rt.mu.Lock()
	rt.monitors = append(rt.monitors, m)
	sort.SliceStable(rt.monitors, func(i, j int) bool {
		return rt.monitors[i].Order() < rt.monitors[j].Order()
	})
	rt.mu.Unlock()

	return m.Init(rt)
}

// Monitors returns the registered monitors in notification order.
func (rt *Runtime) Monitors() []Monitor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	out := make([]Monitor, len(rt.monitors))
	copy(out, rt.monitors)
	return out
}

// Flush drains pending deferred work when the dispatcher is a *Queue and
// returns how many callbacks ran.
func (rt *Runtime) Flush() int {
	if q, ok := rt.dispatcher.(*Queue); ok {
		return q.Drain()
	}
	return 0
}

// Dispose runs pending deferred work and disposes every monitor.
func (rt *Runtime) Dispose() error {
	rt.Flush()

	for _, m := range rt.Monitors() {
		if err := m.Dispose(rt); err != nil {
			return fmt.Errorf("disposing monitor %s: %w", m.Name(), err)
		}
	}

	return nil
}

// activeMonitors returns the monitors to notify, nil when monitoring is off.
func (rt *Runtime) activeMonitors() []Monitor {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	if !rt.monitoring || len(rt.monitors) == 0 {
		return nil
	}
	out := make([]Monitor, len(rt.monitors))
	copy(out, rt.monitors)
	return out
}

func (rt *Runtime) reportEmit(ev EmitEvent) {
	for _, m := range rt.activeMonitors() {
		rt.notify(m, "emit", func() { m.OnEmit(ev) })
	}
}

func (rt *Runtime) reportLifecycle(ev LifecycleEvent) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}

	rt.Logger().Debug().
		Str("event", string(ev.Kind)).
		Str("mode", string(ev.Mode)).
		Str("container", ev.ContainerName).
		Stringer("component", ev.Component).
		Int("subscriptions", ev.Subscriptions).
		Msg("lifecycle")

	for _, m := range rt.activeMonitors() {
		rt.notify(m, "lifecycle", func() { m.OnLifecycle(ev) })
	}
}

// notify runs a monitor hook, absorbing panics so that monitoring can never
// fail a send or a lifecycle transition.
func (rt *Runtime) notify(m Monitor, hook string, fn func()) {
	defer func() {
		if rec := recover(); rec != nil {
			rt.Logger().Warn().
				Str("monitor", m.Name()).
				Str("hook", hook).
				Interface("panic", rec).
				Msg("monitor hook panicked")
		}
	}()
	fn()
}

func (rt *Runtime) handleCleanupError(err *CleanupError) {
	for _, m := range rt.Monitors() {
		handled := false
		rt.notify(m, "cleanup_error", func() { handled = m.OnCleanupError(err) })
		if handled {
			return
		}
	}

	rt.Logger().Error().
		Err(err.Err).
		Stringer("owner", err.Owner).
		Stringer("subscription", err.Subscription).
		Str("context", err.Context).
		Msg("cleanup failed")
}

// schedule posts task to the dispatcher, running it inline if the dispatcher
// refuses it so that subscriptions are never leaked.
func (rt *Runtime) schedule(task func()) {
	if rt.dispatcher.Dispatch(task) {
		return
	}
	rt.Logger().Warn().Msg("dispatcher rejected deferred task; running inline")
	task()
}

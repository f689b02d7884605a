package compose

import "time"

// Monitor receives fire-and-forget notifications from a runtime: emitter
// sends, component lifecycle transitions and cleanup failures. Hooks run
// synchronously on the caller's goroutine; a panicking hook is recovered and
// logged, never failing the operation that triggered it.
type Monitor interface {
	// Name returns the monitor's name
	Name() string

	// Order determines notification order (lower = earlier)
	Order() int

	// Init is called when the monitor is registered to a runtime
	Init(rt *Runtime) error

	// OnEmit is called after every send, and once when the emitter is
	// closed, while monitoring is enabled
	OnEmit(ev EmitEvent)

	// OnLifecycle is called on container and component transitions
	OnLifecycle(ev LifecycleEvent)

	// OnCleanupError handles cleanup failures
	// Returns true if the error was handled, false to use default behavior
	OnCleanupError(err *CleanupError) bool

	// Dispose is called when the runtime is disposed
	Dispose(rt *Runtime) error
}

// EmitEvent describes one send, or the emitter's closing when Closed is set.
type EmitEvent struct {
	Emitter   ID
	Kind      EmitterKind
	FiredAt   time.Time
	Duration  time.Duration
	Observers int
	Closed    bool
}

// LifecycleKind names a container or component transition.
type LifecycleKind string

const (
	// LifecycleOpened: a container was constructed
	LifecycleOpened LifecycleKind = "opened"
	// LifecycleAdopted: a factory returned a component with its own identity
	// instead of the offered one
	LifecycleAdopted LifecycleKind = "adopted"
	// LifecycleCreated: a component was created and bound
	LifecycleCreated LifecycleKind = "created"
	// LifecycleVisible: the presentation layer reported the container on screen
	LifecycleVisible LifecycleKind = "visible"
	// LifecycleHidden: the presentation layer reported the container off screen
	LifecycleHidden LifecycleKind = "hidden"
	// LifecycleDestroyed: a component became unreachable (phase one of disposal)
	LifecycleDestroyed LifecycleKind = "destroyed"
	// LifecycleDisposed: a destroyed component's subscriptions were cancelled
	LifecycleDisposed LifecycleKind = "disposed"
	// LifecycleClosed: a container was torn down
	LifecycleClosed LifecycleKind = "closed"
)

// Mode tells which kind of container owns a component.
type Mode string

const (
	// ModeSingle is the single-slot DynamicComponent
	ModeSingle Mode = "single"
	// ModeInstance is the keyed InstanceComponent
	ModeInstance Mode = "instance"
)

// LifecycleEvent describes a container or component transition.
type LifecycleEvent struct {
	Kind          LifecycleKind
	Mode          Mode
	Container     ID
	ContainerName string
	// Parent is the component that owned the capture scope the container was
	// constructed in, zero for top-level containers. Set on LifecycleOpened.
	Parent ID
	// Component is zero for container-level events.
	Component ID
	// Previous is the offered identity Component replaced. Set on
	// LifecycleAdopted.
	Previous ID
	// Subscriptions is the number of captured handles on created, destroyed
	// and disposed events.
	Subscriptions int
	// Visible is set on LifecycleVisible and LifecycleHidden.
	Visible bool
	At      time.Time
}

// BaseMonitor provides default implementations for Monitor methods
type BaseMonitor struct {
	name string
}

// NewBaseMonitor creates a new base monitor with the given name
func NewBaseMonitor(name string) BaseMonitor {
	return BaseMonitor{name: name}
}

func (m *BaseMonitor) Name() string {
	return m.name
}

func (m *BaseMonitor) Order() int {
	return 100
}

func (m *BaseMonitor) Init(rt *Runtime) error {
	return nil
}

func (m *BaseMonitor) OnEmit(ev EmitEvent) {
}

func (m *BaseMonitor) OnLifecycle(ev LifecycleEvent) {
}

func (m *BaseMonitor) OnCleanupError(err *CleanupError) bool {
	return false
}

func (m *BaseMonitor) Dispose(rt *Runtime) error {
	return nil
}

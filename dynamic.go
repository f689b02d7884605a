package compose

import (
	"fmt"
	"strings"
	"sync"
)

// ReplacePolicy decides what DynamicComponent.Create does when the slot is
// already occupied.
type ReplacePolicy int

const (
	// ReplaceDestroy destroys the current component, then creates the new one.
	ReplaceDestroy ReplacePolicy = iota
	// ReplaceReject refuses the create with ErrAlreadyCreated.
	ReplaceReject
)

func (p ReplacePolicy) String() string {
	switch p {
	case ReplaceDestroy:
		return "destroy"
	case ReplaceReject:
		return "reject"
	default:
		return fmt.Sprintf("ReplacePolicy(%d)", int(p))
	}
}

// ParseReplacePolicy parses "destroy" or "reject". The empty string is "destroy".
func ParseReplacePolicy(s string) (ReplacePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "destroy":
		return ReplaceDestroy, nil
	case "reject":
		return ReplaceReject, nil
	default:
		return ReplaceDestroy, fmt.Errorf("unknown replace policy %q", s)
	}
}

// ContainerOption is a modifier for containers
type ContainerOption func(*containerConfig)

type containerConfig struct {
	name      string
	policy    ReplacePolicy
	hasPolicy bool
}

// WithName returns an option that names a container in logs and monitoring
func WithName(name string) ContainerOption {
	return func(c *containerConfig) {
		c.name = name
	}
}

// WithReplacePolicy returns an option that sets a single-slot container's
// policy for creating into an occupied slot
func WithReplacePolicy(p ReplacePolicy) ContainerOption {
	return func(c *containerConfig) {
		c.policy = p
		c.hasPolicy = true
	}
}

func newContainerConfig(rt *Runtime, kind string, opts []ContainerOption) containerConfig {
	cfg := containerConfig{policy: rt.policy}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.name == "" {
		cfg.name = kind
	}
	return cfg
}

// DynamicComponent owns at most one live component of type T.
//
// Create and Destroy move the slot between absent and present any number of
// times. Subscriptions the component makes while being built are captured
// and cancelled after Destroy, on the runtime's dispatcher.
type DynamicComponent[T Component] struct {
	rt     *Runtime
	id     ID
	name   string
	policy ReplacePolicy
	link   *Subscription

	mu        sync.Mutex
	component T
	present   bool
	closed    bool

	didCreate  *SignalEmitter
	didDestroy *SignalEmitter
}

// NewDynamic creates an empty single-slot container. A nil rt uses Default().
//
// A container constructed while a capture scope is open belongs to the
// scope's owner and is closed when that owner's subscriptions are cancelled.
func NewDynamic[T Component](rt *Runtime, opts ...ContainerOption) *DynamicComponent[T] {
	rt = orDefault(rt)
	cfg := newContainerConfig(rt, "dynamic", opts)

	d := &DynamicComponent[T]{
		rt:         rt,
		id:         NewID(),
		name:       cfg.name,
		policy:     cfg.policy,
		didCreate:  NewSignalEmitter(rt),
		didDestroy: NewSignalEmitter(rt),
	}
	d.link = attachToOwner(rt, d.Close)

	rt.reportLifecycle(d.event(LifecycleOpened, ID{}))
	return d
}

// ID returns the container's identity.
func (d *DynamicComponent[T]) ID() ID { return d.id }

// Name returns the container's name.
func (d *DynamicComponent[T]) Name() string { return d.name }

// DidCreate fires after every successful Create.
func (d *DynamicComponent[T]) DidCreate() *SignalEmitter { return d.didCreate }

// DidDestroy fires after every Destroy that removed a component.
func (d *DynamicComponent[T]) DidDestroy() *SignalEmitter { return d.didDestroy }

// Create builds a component with factory and stores it. If the slot is
// occupied the container's ReplacePolicy applies.
func (d *DynamicComponent[T]) Create(factory Factory[T]) (ID, error) {
	d.mu.Lock()
	closed, present := d.closed, d.present
	d.mu.Unlock()

	if closed {
		panic(newPreconditionError(d.name, "create", "container is closed"))
	}
	if present {
		if d.policy == ReplaceReject {
			return ID{}, ErrAlreadyCreated
		}
		d.Destroy()
	}

	c := build(d.rt, d.name, factory)
	id := c.ID()

	d.mu.Lock()
	d.component = c
	d.present = true
	d.mu.Unlock()

	ev := d.event(LifecycleCreated, id)
	ev.Subscriptions = d.rt.registry.Count(id)
	d.rt.reportLifecycle(ev)

	d.didCreate.Send()
	return id, nil
}

// Destroy removes the current component and returns its identity, or false
// if the slot was empty. Routers registered against the component are
// severed and cleared; its captured subscriptions are cancelled on the
// dispatcher after the current unit of work.
func (d *DynamicComponent[T]) Destroy() (ID, bool) {
	d.mu.Lock()
	if !d.present {
		d.mu.Unlock()
		return ID{}, false
	}
	id := d.component.ID()
	var zero T
	d.component = zero
	d.present = false
	d.mu.Unlock()

	ev := d.event(LifecycleDestroyed, id)
	ev.Subscriptions = retire(d.rt, ev)
	d.rt.reportLifecycle(ev)

	d.didDestroy.Send()
	return id, true
}

// Component returns the live component.
func (d *DynamicComponent[T]) Component() (T, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.component, d.present
}

// CurrentID returns the live component's identity.
func (d *DynamicComponent[T]) CurrentID() (ID, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.present {
		return ID{}, false
	}
	return d.component.ID(), true
}

// IsCreated reports whether the slot is occupied.
func (d *DynamicComponent[T]) IsCreated() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.present
}

// Appeared is called by the presentation layer when the container is shown.
func (d *DynamicComponent[T]) Appeared() {
	id, _ := d.CurrentID()
	ev := d.event(LifecycleVisible, id)
	ev.Visible = true
	d.rt.reportLifecycle(ev)
}

// Disappeared is called by the presentation layer when the container is
// hidden. It destroys the live component.
func (d *DynamicComponent[T]) Disappeared() {
	id, _ := d.Destroy()
	d.rt.reportLifecycle(d.event(LifecycleHidden, id))
}

// Close destroys the live component and discards the container's own
// lifecycle emitters. It is idempotent.
func (d *DynamicComponent[T]) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	d.mu.Unlock()

	d.Destroy()
	d.didCreate.Close()
	d.didDestroy.Close()

	d.rt.reportLifecycle(d.event(LifecycleClosed, ID{}))
}

func (d *DynamicComponent[T]) event(kind LifecycleKind, component ID) LifecycleEvent {
	return LifecycleEvent{
		Kind:          kind,
		Mode:          ModeSingle,
		Container:     d.id,
		ContainerName: d.name,
		Parent:        ownerOf(d.link),
		Component:     component,
	}
}

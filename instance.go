package compose

import (
	"sync"
	"weak"
)

// InstanceComponent owns any number of live components of type T, keyed by
// identity. The most recent Create becomes the current component, which
// accessors such as MustCurrent and Get read.
type InstanceComponent[T Component] struct {
	rt   *Runtime
	id   ID
	name string
	link *Subscription

	store *componentStore[T]

	mu      sync.Mutex
	routers map[ID]weak.Pointer[Router]
	current ID
	closed  bool

	didCreate  *ValueEmitter[ID]
	didDestroy *ValueEmitter[ID]
}

// NewInstance creates an empty keyed container. A nil rt uses Default().
//
// A container constructed while a capture scope is open belongs to the
// scope's owner and is closed when that owner's subscriptions are cancelled.
func NewInstance[T Component](rt *Runtime, opts ...ContainerOption) *InstanceComponent[T] {
	rt = orDefault(rt)
	cfg := newContainerConfig(rt, "instance", opts)

	i := &InstanceComponent[T]{
		rt:         rt,
		id:         NewID(),
		name:       cfg.name,
		store:      newComponentStore[T](),
		routers:    make(map[ID]weak.Pointer[Router]),
		didCreate:  NewValueEmitter[ID](rt),
		didDestroy: NewValueEmitter[ID](rt),
	}
	i.link = attachToOwner(rt, i.Close)

	rt.reportLifecycle(i.event(LifecycleOpened, ID{}))
	return i
}

// ID returns the container's identity.
func (i *InstanceComponent[T]) ID() ID { return i.id }

// Name returns the container's name.
func (i *InstanceComponent[T]) Name() string { return i.name }

// DidCreate fires with the new identity after every Create.
func (i *InstanceComponent[T]) DidCreate() *ValueEmitter[ID] { return i.didCreate }

// DidDestroy fires with the removed identity after every Destroy that
// removed a component.
func (i *InstanceComponent[T]) DidDestroy() *ValueEmitter[ID] { return i.didDestroy }

// Create builds a component with factory, stores it under its identity and
// makes it current. If the component is a RouterComponent its router is
// associated weakly with the identity.
func (i *InstanceComponent[T]) Create(factory Factory[T]) ID {
	i.mu.Lock()
	closed := i.closed
	i.mu.Unlock()
	if closed {
		panic(newPreconditionError(i.name, "create", "container is closed"))
	}

	c := build(i.rt, i.name, factory)
	id := c.ID()

	i.store.Store(id, c)

	i.mu.Lock()
	i.current = id
	if rc, ok := any(c).(RouterComponent); ok {
		if r := rc.Router(); r != nil {
			i.routers[id] = weak.Make(r)
		}
	}
	i.mu.Unlock()

	ev := i.event(LifecycleCreated, id)
	ev.Subscriptions = i.rt.registry.Count(id)
	i.rt.reportLifecycle(ev)

	i.didCreate.Send(id)
	return id
}

// Destroy removes the component stored under id and reports whether there
// was one. Unknown identities are a no-op. The router associated with id
// loses its back reference; captured subscriptions are cancelled on the
// dispatcher after the current unit of work.
func (i *InstanceComponent[T]) Destroy(id ID) bool {
	if _, ok := i.store.Delete(id); !ok {
		return false
	}

	i.mu.Lock()
	if p, ok := i.routers[id]; ok {
		if r := p.Value(); r != nil {
			r.ClearTarget()
		}
		delete(i.routers, id)
	}
	if i.current == id {
		i.current = ID{}
	}
	i.mu.Unlock()

	ev := i.event(LifecycleDestroyed, id)
	ev.Subscriptions = retire(i.rt, ev)
	i.rt.reportLifecycle(ev)

	i.didDestroy.Send(id)
	return true
}

// DestroyAll destroys every stored component and returns how many were
// removed. Order across identities is unspecified.
func (i *InstanceComponent[T]) DestroyAll() int {
	destroyed := 0
	for _, id := range i.store.Keys() {
		if i.Destroy(id) {
			destroyed++
		}
	}
	return destroyed
}

// Lookup returns the component stored under id.
func (i *InstanceComponent[T]) Lookup(id ID) (T, bool) {
	return i.store.Load(id)
}

// IDs returns the identities of every stored component.
func (i *InstanceComponent[T]) IDs() []ID {
	return i.store.Keys()
}

// Len returns the number of stored components.
func (i *InstanceComponent[T]) Len() int {
	return i.store.Len()
}

// IsEmpty reports whether no component is stored.
func (i *InstanceComponent[T]) IsEmpty() bool {
	return i.Len() == 0
}

// CurrentID returns the identity of the most recent Create, if that
// component is still live.
func (i *InstanceComponent[T]) CurrentID() (ID, bool) {
	i.mu.Lock()
	id := i.current
	i.mu.Unlock()

	if isZero(id) {
		return ID{}, false
	}
	if _, ok := i.store.Load(id); !ok {
		return ID{}, false
	}
	return id, true
}

// Current returns the current component.
func (i *InstanceComponent[T]) Current() (T, bool) {
	id, ok := i.CurrentID()
	if !ok {
		var zero T
		return zero, false
	}
	return i.store.Load(id)
}

// MustCurrent returns the current component. Reading it before any Create,
// or after the current component was destroyed, is a programming error and
// panics with *PreconditionError.
func (i *InstanceComponent[T]) MustCurrent() T {
	c, ok := i.Current()
	if !ok {
		panic(newPreconditionError(i.name, "current component access", "no live component; create it first"))
	}
	return c
}

// RouterFor returns the router associated with id. Associations whose
// component was destroyed, or whose router was collected, are not found.
func (i *InstanceComponent[T]) RouterFor(id ID) (*Router, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()

	p, ok := i.routers[id]
	if !ok {
		return nil, false
	}
	r := p.Value()
	if r == nil {
		delete(i.routers, id)
		return nil, false
	}
	if _, live := i.store.Load(id); !live {
		return nil, false
	}
	return r, true
}

// Controller returns a handle for the component stored under id.
func (i *InstanceComponent[T]) Controller(id ID) *Controller[T] {
	return &Controller[T]{id: id, container: i}
}

// Appeared is called by the presentation layer when the container is shown.
func (i *InstanceComponent[T]) Appeared() {
	id, _ := i.CurrentID()
	ev := i.event(LifecycleVisible, id)
	ev.Visible = i.Len() > 0
	i.rt.reportLifecycle(ev)
}

// Disappeared is called by the presentation layer when the view for id is
// hidden. It destroys that component.
func (i *InstanceComponent[T]) Disappeared(id ID) {
	i.Destroy(id)
	ev := i.event(LifecycleHidden, id)
	ev.Visible = i.Len() > 0
	i.rt.reportLifecycle(ev)
}

// Close destroys every component and discards the container's own
// lifecycle emitters. It is idempotent.
func (i *InstanceComponent[T]) Close() {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return
	}
	i.closed = true
	i.mu.Unlock()

	i.DestroyAll()
	i.didCreate.Close()
	i.didDestroy.Close()

	i.rt.reportLifecycle(i.event(LifecycleClosed, ID{}))
}

// Get reads a property of the current component through selector. It panics
// with *PreconditionError when no component is live.
func Get[T Component, V any](i *InstanceComponent[T], selector func(T) V) V {
	return selector(i.MustCurrent())
}

func (i *InstanceComponent[T]) event(kind LifecycleKind, component ID) LifecycleEvent {
	return LifecycleEvent{
		Kind:          kind,
		Mode:          ModeInstance,
		Container:     i.id,
		ContainerName: i.name,
		Parent:        ownerOf(i.link),
		Component:     component,
	}
}

package compose

import (
	"slices"
	"sync"
	"time"
)

// ContainerDescriptor describes a live container.
type ContainerDescriptor struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Mode Mode   `json:"mode"`
	// Parent is the component the container was constructed under.
	Parent     ID        `json:"parent,omitempty"`
	Visible    bool      `json:"visible"`
	Components []ID      `json:"components"`
	OpenedAt   time.Time `json:"opened_at"`
}

// ComponentDescriptor describes a live component.
type ComponentDescriptor struct {
	ID            ID        `json:"id"`
	Container     ID        `json:"container"`
	Mode          Mode      `json:"mode"`
	Subscriptions int       `json:"subscriptions"`
	CreatedAt     time.Time `json:"created_at"`
}

// EmitterDescriptor describes an open emitter that has fired at least once.
type EmitterDescriptor struct {
	ID           ID            `json:"id"`
	Kind         EmitterKind   `json:"kind"`
	Sends        uint64        `json:"sends"`
	Observers    int           `json:"observers"`
	LastFired    time.Time     `json:"last_fired"`
	LastDuration time.Duration `json:"last_duration"`
}

// Snapshot is a point-in-time copy of what an Introspection monitor knows.
type Snapshot struct {
	Containers []ContainerDescriptor `json:"containers"`
	Components []ComponentDescriptor `json:"components"`
	Emitters   []EmitterDescriptor   `json:"emitters"`
	// PendingDisposals counts destroyed components whose subscriptions have
	// not been cancelled yet.
	PendingDisposals int       `json:"pending_disposals"`
	TakenAt          time.Time `json:"taken_at"`
}

// Roots returns the containers that were not constructed under a component.
func (s Snapshot) Roots() []ContainerDescriptor {
	return s.ContainersUnder(ID{})
}

// ContainersUnder returns the containers constructed under component.
func (s Snapshot) ContainersUnder(component ID) []ContainerDescriptor {
	var out []ContainerDescriptor
	for _, c := range s.Containers {
		if c.Parent == component {
			out = append(out, c)
		}
	}
	return out
}

// Component returns the descriptor for id.
func (s Snapshot) Component(id ID) (ComponentDescriptor, bool) {
	for _, c := range s.Components {
		if c.ID == id {
			return c, true
		}
	}
	return ComponentDescriptor{}, false
}

// Introspection is a Monitor that keeps descriptors of every container,
// component and emitter of the runtime it is registered to.
type Introspection struct {
	BaseMonitor

	mu         sync.Mutex
	rt         *Runtime
	containers map[ID]*ContainerDescriptor
	components map[ID]*ComponentDescriptor
	emitters   map[ID]*EmitterDescriptor
	pending    map[ID]int
	graph      *ownershipGraph
}

// NewIntrospection creates an empty introspection monitor.
func NewIntrospection() *Introspection {
	return &Introspection{
		BaseMonitor: NewBaseMonitor("introspection"),
		containers:  make(map[ID]*ContainerDescriptor),
		components:  make(map[ID]*ComponentDescriptor),
		emitters:    make(map[ID]*EmitterDescriptor),
		pending:     make(map[ID]int),
		graph:       newOwnershipGraph(),
	}
}

// Order runs introspection before user monitors.
func (in *Introspection) Order() int {
	return 10
}

func (in *Introspection) Init(rt *Runtime) error {
	in.mu.Lock()
	in.rt = rt
	in.mu.Unlock()
	return nil
}

func (in *Introspection) OnEmit(ev EmitEvent) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if ev.Closed {
		delete(in.emitters, ev.Emitter)
		return
	}

	d, ok := in.emitters[ev.Emitter]
	if !ok {
		d = &EmitterDescriptor{ID: ev.Emitter, Kind: ev.Kind}
		in.emitters[ev.Emitter] = d
	}
	d.Sends++
	d.Observers = ev.Observers
	d.LastFired = ev.FiredAt
	d.LastDuration = ev.Duration
}

func (in *Introspection) OnLifecycle(ev LifecycleEvent) {
	in.mu.Lock()
	defer in.mu.Unlock()

	switch ev.Kind {
	case LifecycleOpened:
		in.containers[ev.Container] = &ContainerDescriptor{
			ID:       ev.Container,
			Name:     ev.ContainerName,
			Mode:     ev.Mode,
			Parent:   ev.Parent,
			OpenedAt: ev.At,
		}
		if !isZero(ev.Parent) {
			in.graph.AddEdge(ev.Parent, ev.Container)
		}

	case LifecycleAdopted:
		for _, c := range in.containers {
			if c.Parent == ev.Previous {
				c.Parent = ev.Component
			}
		}
		in.graph.Rename(ev.Previous, ev.Component)

	case LifecycleCreated:
		in.components[ev.Component] = &ComponentDescriptor{
			ID:            ev.Component,
			Container:     ev.Container,
			Mode:          ev.Mode,
			Subscriptions: ev.Subscriptions,
			CreatedAt:     ev.At,
		}
		if c, ok := in.containers[ev.Container]; ok {
			c.Components = appendUnique(c.Components, ev.Component)
		}
		in.graph.AddEdge(ev.Container, ev.Component)

	case LifecycleVisible, LifecycleHidden:
		if c, ok := in.containers[ev.Container]; ok {
			c.Visible = ev.Visible
		}

	case LifecycleDestroyed:
		delete(in.components, ev.Component)
		if c, ok := in.containers[ev.Container]; ok {
			c.Components = removeElement(c.Components, ev.Component)
		}
		in.graph.Remove(ev.Component)
		in.pending[ev.Component] = ev.Subscriptions

	case LifecycleDisposed:
		delete(in.pending, ev.Component)

	case LifecycleClosed:
		delete(in.containers, ev.Container)
		in.graph.Remove(ev.Container)
	}
}

// Descendants returns every container and component owned, directly or
// through nesting, by the container or component id.
func (in *Introspection) Descendants(id ID) []ID {
	in.mu.Lock()
	g := in.graph
	in.mu.Unlock()
	return g.Descendants(id)
}

// Snapshot returns a copy of the current descriptors. Subscription counts
// are read from the registry at the time of the call.
func (in *Introspection) Snapshot() Snapshot {
	in.mu.Lock()
	defer in.mu.Unlock()

	snap := Snapshot{
		Containers:       make([]ContainerDescriptor, 0, len(in.containers)),
		Components:       make([]ComponentDescriptor, 0, len(in.components)),
		Emitters:         make([]EmitterDescriptor, 0, len(in.emitters)),
		PendingDisposals: len(in.pending),
		TakenAt:          time.Now(),
	}

	for _, c := range in.containers {
		d := *c
		d.Components = slices.Clone(c.Components)
		snap.Containers = append(snap.Containers, d)
	}
	for _, c := range in.components {
		d := *c
		if in.rt != nil {
			d.Subscriptions = in.rt.registry.Count(c.ID)
		}
		snap.Components = append(snap.Components, d)
	}
	for _, e := range in.emitters {
		snap.Emitters = append(snap.Emitters, *e)
	}

	slices.SortFunc(snap.Containers, func(a, b ContainerDescriptor) int {
		return a.OpenedAt.Compare(b.OpenedAt)
	})
	slices.SortFunc(snap.Components, func(a, b ComponentDescriptor) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	slices.SortFunc(snap.Emitters, func(a, b EmitterDescriptor) int {
		return a.LastFired.Compare(b.LastFired)
	})

	return snap
}

// Reset forgets every descriptor.
func (in *Introspection) Reset() {
	in.mu.Lock()
	defer in.mu.Unlock()
	clear(in.containers)
	clear(in.components)
	clear(in.emitters)
	clear(in.pending)
	in.graph = newOwnershipGraph()
}

// Introspection returns the first Introspection monitor registered to rt.
func (rt *Runtime) Introspection() (*Introspection, bool) {
	for _, m := range rt.Monitors() {
		if in, ok := m.(*Introspection); ok {
			return in, true
		}
	}
	return nil, false
}

package compose

import (
	"sync"
	"weak"
)

// Route is one entry of a router's stack.
type Route struct {
	Path   string
	Params map[string]string
}

// Router is navigation state associated with a component. The containers in
// this package do not own routers; on destroy they only sever the back
// reference, clear the route stack and discard the navigation emitters'
// subscriptions.
type Router struct {
	id ID

	mu     sync.Mutex
	target Component
	routes []Route

	didPush    *ValueEmitter[Route]
	didPop     *ValueEmitter[Route]
	didReplace *ValueEmitter[Route]
}

// NewRouter creates a router targeting owner and registers it with the
// runtime's router registry when that registry accepts registrations.
func NewRouter(rt *Runtime, owner Component) *Router {
	rt = orDefault(rt)
	r := &Router{
		id:         NewID(),
		target:     owner,
		didPush:    NewValueEmitter[Route](rt),
		didPop:     NewValueEmitter[Route](rt),
		didReplace: NewValueEmitter[Route](rt),
	}
	if owner != nil {
		if reg, ok := rt.routers.(RouterRegistrar); ok {
			reg.Register(owner.ID(), r)
		}
	}
	return r
}

// ID returns the router's identity.
func (r *Router) ID() ID { return r.id }

// Target returns the component the router navigates for, nil once severed.
func (r *Router) Target() Component {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.target
}

// SetTarget points the router at c.
func (r *Router) SetTarget(c Component) {
	r.mu.Lock()
	r.target = c
	r.mu.Unlock()
}

// ClearTarget severs the back reference to the component.
func (r *Router) ClearTarget() {
	r.SetTarget(nil)
}

// Routes returns a copy of the route stack, bottom first.
func (r *Router) Routes() []Route {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Route, len(r.routes))
	copy(out, r.routes)
	return out
}

// Push appends route and notifies DidPush observers.
func (r *Router) Push(route Route) {
	r.mu.Lock()
	r.routes = append(r.routes, route)
	r.mu.Unlock()

	r.didPush.Send(route)
}

// Pop removes the top route and notifies DidPop observers.
func (r *Router) Pop() (Route, bool) {
	r.mu.Lock()
	n := len(r.routes)
	if n == 0 {
		r.mu.Unlock()
		return Route{}, false
	}
	top := r.routes[n-1]
	r.routes = r.routes[:n-1]
	r.mu.Unlock()

	r.didPop.Send(top)
	return top, true
}

// Replace swaps the top route for route, pushing it if the stack is empty,
// and notifies DidReplace observers.
func (r *Router) Replace(route Route) {
	r.mu.Lock()
	if n := len(r.routes); n > 0 {
		r.routes[n-1] = route
	} else {
		r.routes = append(r.routes, route)
	}
	r.mu.Unlock()

	r.didReplace.Send(route)
}

// Clear empties the route stack without notifying anyone.
func (r *Router) Clear() {
	r.mu.Lock()
	r.routes = nil
	r.mu.Unlock()
}

// DidPush fires after Push.
func (r *Router) DidPush() *ValueEmitter[Route] { return r.didPush }

// DidPop fires after Pop.
func (r *Router) DidPop() *ValueEmitter[Route] { return r.didPop }

// DidReplace fires after Replace.
func (r *Router) DidReplace() *ValueEmitter[Route] { return r.didReplace }

func (r *Router) emitterIDs() [3]ID {
	return [3]ID{r.didPush.ID(), r.didPop.ID(), r.didReplace.ID()}
}

// RouterLookup finds the routers registered against a component. It is the
// part of the navigation layer the containers consult on destroy.
type RouterLookup interface {
	Routers(owner ID) []*Router
}

// RouterRegistrar is implemented by lookups that accept registrations.
type RouterRegistrar interface {
	Register(owner ID, r *Router)
}

// RouterForgetter is implemented by lookups that can drop a component's
// registrations once it is destroyed.
type RouterForgetter interface {
	Forget(owner ID)
}

// RouterStorage is the default RouterLookup. It holds routers weakly: an
// entry never keeps a router alive, and a collected router is reported as
// not found.
type RouterStorage struct {
	mu      sync.Mutex
	entries map[ID][]weak.Pointer[Router]
}

// NewRouterStorage creates an empty router registry.
func NewRouterStorage() *RouterStorage {
	return &RouterStorage{entries: make(map[ID][]weak.Pointer[Router])}
}

// Register associates r with owner.
func (s *RouterStorage) Register(owner ID, r *Router) {
	if r == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	p := weak.Make(r)
	for _, existing := range s.entries[owner] {
		if existing == p {
			return
		}
	}
	s.entries[owner] = append(s.entries[owner], p)
}

// Routers returns the live routers registered against owner, pruning
// collected entries.
func (s *RouterStorage) Routers(owner ID) []*Router {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := s.entries[owner]
	live := entries[:0]
	var out []*Router
	for _, p := range entries {
		if r := p.Value(); r != nil {
			live = append(live, p)
			out = append(out, r)
		}
	}
	if len(live) == 0 {
		delete(s.entries, owner)
	} else {
		s.entries[owner] = live
	}
	return out
}

// Forget drops every registration for owner.
func (s *RouterStorage) Forget(owner ID) {
	s.mu.Lock()
	delete(s.entries, owner)
	s.mu.Unlock()
}

// Len returns the number of owners with registrations.
func (s *RouterStorage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

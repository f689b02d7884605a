package compose

import (
	"sync"
)

// CaptureToken identifies one open capture scope.
type CaptureToken uint64

type captureFrame struct {
	token     CaptureToken
	owner     ID
	onCapture func(*Subscription)
}

// Registry files subscriptions under their owners.
//
// While a capture scope is open, every subscription created anywhere in the
// call stack is filed under the owner of the innermost scope. Capture scopes
// are held by one goroutine at a time: the goroutine that opens the
// outermost scope may nest further scopes, and any other goroutine's
// BeginCapture waits until the outermost scope closes. Subscriptions made on
// other goroutines meanwhile are not captured; builds tagged "debug" panic
// on them instead.
//
// A factory must not block on another goroutine that builds components with
// the same registry.
type Registry struct {
	mu        sync.Mutex
	released  *sync.Cond
	owners    map[ID]*SubscriptionSet
	emitters  map[ID]*SubscriptionSet
	frames    []captureFrame
	lastToken CaptureToken
	holder    uint64

	onCleanupError func(*CleanupError)
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	r := &Registry{
		owners:   make(map[ID]*SubscriptionSet),
		emitters: make(map[ID]*SubscriptionSet),
	}
	r.released = sync.NewCond(&r.mu)
	return r
}

// BeginCapture opens a capture scope for owner. Subscriptions created until
// the matching EndCapture are filed under owner and then passed to onCapture,
// which may be nil. If another goroutine holds open scopes, BeginCapture
// waits for them to close.
func (r *Registry) BeginCapture(owner ID, onCapture func(*Subscription)) CaptureToken {
	g := goid()

	r.mu.Lock()
	defer r.mu.Unlock()

	for len(r.frames) > 0 && r.holder != g {
		r.released.Wait()
	}
	r.holder = g

	r.lastToken++
	token := r.lastToken
	r.frames = append(r.frames, captureFrame{
		token:     token,
		owner:     owner,
		onCapture: onCapture,
	})
	setFor(r.owners, owner)

	return token
}

// EndCapture closes the scope opened by token. Closing anything but the
// innermost open scope panics with *CaptureOrderError and leaves the
// registry untouched, as does closing it from a goroutine that does not
// hold the open scopes.
func (r *Registry) EndCapture(token CaptureToken) {
	g := goid()

	r.mu.Lock()
	n := len(r.frames)
	if n == 0 || r.frames[n-1].token != token || r.holder != g {
		var top CaptureToken
		if n > 0 {
			top = r.frames[n-1].token
		}
		foreign := n > 0 && r.holder != g
		r.mu.Unlock()
		panic(&CaptureOrderError{Token: token, Top: top, Foreign: foreign})
	}
	r.frames[n-1] = captureFrame{}
	r.frames = r.frames[:n-1]
	if len(r.frames) == 0 {
		r.holder = 0
		r.released.Broadcast()
	}
	r.mu.Unlock()
}

// Capture runs fn inside a capture scope for owner. The scope is closed even
// if fn panics.
func (r *Registry) Capture(owner ID, onCapture func(*Subscription), fn func()) {
	token := r.BeginCapture(owner, onCapture)
	defer r.EndCapture(token)
	fn()
}

// CurrentOwner returns the owner of the innermost capture scope opened by
// the calling goroutine.
func (r *Registry) CurrentOwner() (ID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if n := len(r.frames); n > 0 && r.holder == goid() {
		return r.frames[n-1].owner, true
	}
	return ID{}, false
}

// Depth returns the number of open capture scopes.
func (r *Registry) Depth() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// track indexes a new subscription and files it under the innermost capture
// scope's owner, if any.
func (r *Registry) track(sub *Subscription) {
	r.mu.Lock()
	sub.registry.Store(r)
	if !isZero(sub.emitter) {
		setFor(r.emitters, sub.emitter).Add(sub)
	}

	var hook func(*Subscription)
	if n := len(r.frames); n > 0 {
		if g := goid(); r.holder != g {
			msg := r.captureViolation("subscribe", g)
			r.mu.Unlock()
			if msg != "" {
				panic(msg)
			}
			return
		}
		top := r.frames[n-1]
		sub.owner = top.owner
		setFor(r.owners, top.owner).Add(sub)
		hook = top.onCapture
	}
	r.mu.Unlock()

	if hook != nil {
		hook(sub)
	}
}

// File files sub under owner explicitly, moving it out of any previous
// owner's set.
func (r *Registry) File(owner ID, sub *Subscription) {
	if sub == nil || sub.Cancelled() {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if sub.registry.Load() == nil {
		sub.registry.Store(r)
		if !isZero(sub.emitter) {
			setFor(r.emitters, sub.emitter).Add(sub)
		}
	}
	if set, ok := r.owners[sub.owner]; ok && sub.owner != owner {
		set.Remove(sub)
	}
	sub.owner = owner
	setFor(r.owners, owner).Add(sub)
}

// Reassign moves every subscription filed under from to to, including the
// owner of any open capture scope for from.
func (r *Registry) Reassign(from, to ID) {
	if from == to {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for i := range r.frames {
		if r.frames[i].owner == from {
			r.frames[i].owner = to
		}
	}

	set, ok := r.owners[from]
	if !ok {
		return
	}
	delete(r.owners, from)

	dst := setFor(r.owners, to)
	for _, sub := range set.subs {
		sub.owner = to
		dst.Add(sub)
	}
}

// Detach removes owner's entry without cancelling anything and returns the
// handles that were filed under it. It is the synchronous half of a
// two-phase disposal.
func (r *Registry) Detach(owner ID) []*Subscription {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.owners[owner]
	if !ok {
		return nil
	}
	delete(r.owners, owner)
	return set.Handles()
}

// Discard cancels every subscription filed under owner, most recent first,
// and removes the entry. It returns the number of handles cancelled.
func (r *Registry) Discard(owner ID) int {
	subs := r.Detach(owner)
	for i := len(subs) - 1; i >= 0; i-- {
		subs[i].cancel(cleanupDiscard)
	}
	return len(subs)
}

// DiscardHandle cancels a single subscription regardless of owner.
func (r *Registry) DiscardHandle(sub *Subscription) {
	if sub == nil {
		return
	}
	sub.cancel(cleanupDiscard)
}

// DiscardEmitter cancels every subscription attached to emitter.
func (r *Registry) DiscardEmitter(emitter ID) int {
	r.mu.Lock()
	set, ok := r.emitters[emitter]
	if ok {
		delete(r.emitters, emitter)
	}
	r.mu.Unlock()

	if !ok {
		return 0
	}

	subs := set.Handles()
	for _, sub := range subs {
		sub.cancel(cleanupDiscard)
	}
	return len(subs)
}

// Count returns the number of live handles filed under owner.
func (r *Registry) Count(owner ID) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if set, ok := r.owners[owner]; ok {
		return set.Len()
	}
	return 0
}

// Has reports whether owner currently has a registry entry.
func (r *Registry) Has(owner ID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.owners[owner]
	return ok
}

// Owners returns every owner with a registry entry.
func (r *Registry) Owners() []ID {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]ID, 0, len(r.owners))
	for id := range r.owners {
		out = append(out, id)
	}
	return out
}

// forget drops a cancelled subscription from both indexes and returns the
// owner it was filed under.
func (r *Registry) forget(sub *Subscription) ID {
	r.mu.Lock()
	defer r.mu.Unlock()

	if set, ok := r.emitters[sub.emitter]; ok {
		set.Remove(sub)
		if set.Len() == 0 {
			delete(r.emitters, sub.emitter)
		}
	}
	if set, ok := r.owners[sub.owner]; ok {
		set.Remove(sub)
	}
	return sub.owner
}

func (r *Registry) reportCleanup(err *CleanupError) {
	if r.onCleanupError != nil {
		r.onCleanupError(err)
	}
}

func setFor(m map[ID]*SubscriptionSet, id ID) *SubscriptionSet {
	set, ok := m[id]
	if !ok {
		set = &SubscriptionSet{}
		m[id] = set
	}
	return set
}

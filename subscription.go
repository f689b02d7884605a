package compose

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
)

// ID identifies components, containers, emitters and subscriptions.
// The zero ID means "none".
type ID = uuid.UUID

// NewID returns a fresh random identity.
func NewID() ID {
	return uuid.New()
}

func isZero(id ID) bool {
	return id == uuid.Nil
}

const (
	cleanupDeferred = "deferred"
	cleanupDiscard  = "discard"
	cleanupCancel   = "cancel"
)

// Subscription is the handle produced when an observer attaches to an
// emitter, or when a cleanup is registered through a BuildCtx.
//
// A subscription is filed under at most one owner. Cancel runs its release
// function exactly once.
type Subscription struct {
	id        ID
	emitter   ID
	// owner is guarded by the registry's lock once registry is set.
	owner     ID
	registry  atomic.Pointer[Registry]
	release   func() error
	once      sync.Once
	cancelled atomic.Bool
}

func newSubscription(emitter ID, release func() error) *Subscription {
	return &Subscription{
		id:      NewID(),
		emitter: emitter,
		release: release,
	}
}

// ID returns the subscription's identity.
func (s *Subscription) ID() ID { return s.id }

// Emitter returns the emitter the subscription observes, zero for cleanups.
func (s *Subscription) Emitter() ID { return s.emitter }

// Owner returns the owner the subscription is filed under, zero if unowned.
func (s *Subscription) Owner() ID {
	r := s.registry.Load()
	if r == nil {
		return ID{}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return s.owner
}

// Cancelled reports whether Cancel has run.
func (s *Subscription) Cancelled() bool {
	return s.cancelled.Load()
}

// Cancel detaches the observer and forgets the handle. Safe to call more than once.
func (s *Subscription) Cancel() {
	s.cancel(cleanupCancel)
}

func (s *Subscription) cancel(context string) {
	s.once.Do(func() {
		s.cancelled.Store(true)

		var err error
		if s.release != nil {
			err = s.release()
		}

		r := s.registry.Load()
		if r == nil {
			return
		}
		owner := r.forget(s)
		if err != nil {
			r.reportCleanup(&CleanupError{
				Owner:        owner,
				Subscription: s.id,
				Err:          err,
				Context:      context,
			})
		}
	})
}

// SubscriptionSet is the unordered collection of handles filed under one
// owner or attached to one emitter.
type SubscriptionSet struct {
	subs []*Subscription
}

// Add inserts sub, reporting false if it was already present.
func (s *SubscriptionSet) Add(sub *Subscription) bool {
	for _, existing := range s.subs {
		if existing == sub {
			return false
		}
	}
	s.subs = append(s.subs, sub)
	return true
}

// Remove deletes sub, reporting whether it was present.
func (s *SubscriptionSet) Remove(sub *Subscription) bool {
	for i, existing := range s.subs {
		if existing == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return true
		}
	}
	return false
}

// Len returns the number of handles in the set.
func (s *SubscriptionSet) Len() int {
	return len(s.subs)
}

// Handles returns a copy of the handles in insertion order.
func (s *SubscriptionSet) Handles() []*Subscription {
	out := make([]*Subscription, len(s.subs))
	copy(out, s.subs)
	return out
}

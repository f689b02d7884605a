package compose

import (
	"slices"
	"sync"
	"time"
)

// EmitterKind distinguishes signal emitters from value emitters in monitoring events.
type EmitterKind string

const (
	// KindSignal is an emitter that carries no payload
	KindSignal EmitterKind = "signal"
	// KindValue is an emitter that carries a typed payload
	KindValue EmitterKind = "value"
)

type observer[T any] struct {
	sub *Subscription
	fn  func(T)
}

// emitter is the broadcast core shared by SignalEmitter and ValueEmitter.
type emitter[T any] struct {
	id        ID
	kind      EmitterKind
	rt        *Runtime
	mu        sync.Mutex
	observers []*observer[T]
	closed    bool
}

func newEmitter[T any](rt *Runtime, kind EmitterKind) *emitter[T] {
	return &emitter[T]{
		id:   NewID(),
		kind: kind,
		rt:   orDefault(rt),
	}
}

func (e *emitter[T]) subscribe(fn func(T)) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilObserver
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEmitterClosed
	}
	obs := &observer[T]{fn: fn}
	obs.sub = newSubscription(e.id, func() error {
		e.remove(obs)
		return nil
	})
	e.observers = append(e.observers, obs)
	e.mu.Unlock()

	e.rt.registry.track(obs.sub)
	return obs.sub, nil
}

func (e *emitter[T]) remove(obs *observer[T]) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i, o := range e.observers {
		if o == obs {
			e.observers = slices.Delete(e.observers, i, i+1)
			return
		}
	}
}

// send delivers v to the observers subscribed when the send started. An
// observer whose handle is cancelled before its turn is skipped.
func (e *emitter[T]) send(v T) {
	e.mu.Lock()
	snapshot := slices.Clone(e.observers)
	e.mu.Unlock()

	start := time.Now()
	for _, o := range snapshot {
		if o.sub.Cancelled() {
			continue
		}
		o.fn(v)
	}

	e.rt.reportEmit(EmitEvent{
		Emitter:   e.id,
		Kind:      e.kind,
		FiredAt:   start,
		Duration:  time.Since(start),
		Observers: len(snapshot),
	})
}

func (e *emitter[T]) close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	e.mu.Unlock()

	e.rt.registry.DiscardEmitter(e.id)
	e.rt.reportEmit(EmitEvent{
		Emitter: e.id,
		Kind:    e.kind,
		FiredAt: time.Now(),
		Closed:  true,
	})
}

func (e *emitter[T]) count() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.observers)
}

func (e *emitter[T]) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// SignalEmitter broadcasts payload-free signals.
type SignalEmitter struct {
	core *emitter[struct{}]
}

// NewSignalEmitter creates a signal emitter whose subscriptions are filed in
// rt's registry. A nil rt uses Default().
func NewSignalEmitter(rt *Runtime) *SignalEmitter {
	return &SignalEmitter{core: newEmitter[struct{}](rt, KindSignal)}
}

// ID returns the emitter's identity.
func (e *SignalEmitter) ID() ID { return e.core.id }

// Send delivers the signal synchronously to every current observer in
// subscription order.
func (e *SignalEmitter) Send() {
	e.core.send(struct{}{})
}

// Subscribe registers fn. Inside an open capture scope the handle is filed
// under the scope's owner.
func (e *SignalEmitter) Subscribe(fn func()) (*Subscription, error) {
	if fn == nil {
		return nil, ErrNilObserver
	}
	return e.core.subscribe(func(struct{}) { fn() })
}

// Close discards every observer and rejects further subscriptions.
func (e *SignalEmitter) Close() { e.core.close() }

// Closed reports whether Close has been called.
func (e *SignalEmitter) Closed() bool { return e.core.isClosed() }

// ObserverCount returns the number of attached observers.
func (e *SignalEmitter) ObserverCount() int { return e.core.count() }

// ValueEmitter broadcasts values of type T. Nothing is buffered: late
// subscribers never see earlier values.
type ValueEmitter[T any] struct {
	core *emitter[T]
}

// NewValueEmitter creates a value emitter whose subscriptions are filed in
// rt's registry. A nil rt uses Default().
func NewValueEmitter[T any](rt *Runtime) *ValueEmitter[T] {
	return &ValueEmitter[T]{core: newEmitter[T](rt, KindValue)}
}

// ID returns the emitter's identity.
func (e *ValueEmitter[T]) ID() ID { return e.core.id }

// Send delivers v synchronously to every current observer in subscription order.
func (e *ValueEmitter[T]) Send(v T) {
	e.core.send(v)
}

// Subscribe registers fn. Inside an open capture scope the handle is filed
// under the scope's owner.
func (e *ValueEmitter[T]) Subscribe(fn func(T)) (*Subscription, error) {
	return e.core.subscribe(fn)
}

// Close discards every observer and rejects further subscriptions.
func (e *ValueEmitter[T]) Close() { e.core.close() }

// Closed reports whether Close has been called.
func (e *ValueEmitter[T]) Closed() bool { return e.core.isClosed() }

// ObserverCount returns the number of attached observers.
func (e *ValueEmitter[T]) ObserverCount() int { return e.core.count() }

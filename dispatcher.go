package compose

import (
	"context"
	"sync"
)

// Dispatcher schedules callbacks to run after the current unit of work on the
// execution context used for UI-affecting work. Dispatch returns false if the
// callback could not be scheduled.
type Dispatcher interface {
	Dispatch(callback func()) bool
}

// Queue is a cooperative FIFO dispatcher. The host drains it at the end of
// each unit of work, for example once per frame.
type Queue struct {
	mu      sync.Mutex
	pending []func()
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Dispatch appends callback to the queue.
func (q *Queue) Dispatch(callback func()) bool {
	if callback == nil {
		return false
	}
	q.mu.Lock()
	q.pending = append(q.pending, callback)
	q.mu.Unlock()
	return true
}

// Len returns the number of callbacks waiting to run.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Drain runs queued callbacks in order until the queue is empty, including
// callbacks queued while draining, and returns how many ran.
func (q *Queue) Drain() int {
	ran := 0
	for {
		batch := q.take()
		if len(batch) == 0 {
			return ran
		}
		for _, callback := range batch {
			callback()
			ran++
		}
	}
}

func (q *Queue) take() []func() {
	q.mu.Lock()
	defer q.mu.Unlock()
	batch := q.pending
	q.pending = nil
	return batch
}

// Loop is a dispatcher backed by a single goroutine that runs callbacks
// serially. Work submitted with Do and deferred disposals share that goroutine.
type Loop struct {
	mu      sync.Mutex
	pending []func()
	stopped bool
	wake    chan struct{}
	done    chan struct{}
}

// NewLoop creates a loop. Call Run to start processing.
func NewLoop() *Loop {
	return &Loop{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
	}
}

// Dispatch schedules callback on the loop goroutine. It is safe to call from
// any goroutine, including the loop itself.
func (l *Loop) Dispatch(callback func()) bool {
	if callback == nil {
		return false
	}

	l.mu.Lock()
	if l.stopped {
		l.mu.Unlock()
		return false
	}
	l.pending = append(l.pending, callback)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

// Do runs fn on the loop goroutine and waits for it to finish. It must not be
// called from the loop goroutine itself.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Dispatch(func() {
		defer close(finished)
		fn()
	}) {
		return ErrLoopStopped
	}

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes callbacks until ctx is cancelled. Callbacks still queued at
// that point run before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	for {
		select {
		case <-ctx.Done():
			l.mu.Lock()
			l.stopped = true
			l.mu.Unlock()
			l.drain()
			return ctx.Err()
		case <-l.wake:
			l.drain()
		}
	}
}

// Done is closed once Run has returned.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

func (l *Loop) drain() {
	for {
		l.mu.Lock()
		batch := l.pending
		l.pending = nil
		l.mu.Unlock()

		if len(batch) == 0 {
			return
		}
		for _, callback := range batch {
			callback()
		}
	}
}

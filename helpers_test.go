package compose

import (
	"sync"
	"testing"
)

type widget struct {
	Base
	hits int
}

func newWidget(ctx *BuildCtx) *widget {
	return &widget{Base: NewBase(ctx)}
}

// subscribing returns a factory whose component counts sends on e.
func subscribing(e *SignalEmitter) Factory[*widget] {
	return func(ctx *BuildCtx) *widget {
		w := newWidget(ctx)
		if _, err := e.Subscribe(func() { w.hits++ }); err != nil {
			panic(err)
		}
		return w
	}
}

type recordingMonitor struct {
	BaseMonitor
	order int

	mu        sync.Mutex
	lifecycle []LifecycleEvent
	emits     []EmitEvent
	cleanups  []*CleanupError
	handle    bool
	disposed  bool
}

func newRecordingMonitor(name string, order int) *recordingMonitor {
	return &recordingMonitor{BaseMonitor: NewBaseMonitor(name), order: order}
}

func (m *recordingMonitor) Order() int { return m.order }

func (m *recordingMonitor) OnEmit(ev EmitEvent) {
	m.mu.Lock()
	m.emits = append(m.emits, ev)
	m.mu.Unlock()
}

func (m *recordingMonitor) OnLifecycle(ev LifecycleEvent) {
	m.mu.Lock()
	m.lifecycle = append(m.lifecycle, ev)
	m.mu.Unlock()
}

func (m *recordingMonitor) OnCleanupError(err *CleanupError) bool {
	m.mu.Lock()
	m.cleanups = append(m.cleanups, err)
	m.mu.Unlock()
	return m.handle
}

func (m *recordingMonitor) Dispose(rt *Runtime) error {
	m.disposed = true
	return nil
}

func (m *recordingMonitor) kinds() []LifecycleKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]LifecycleKind, len(m.lifecycle))
	for i, ev := range m.lifecycle {
		out[i] = ev.Kind
	}
	return out
}

func (m *recordingMonitor) find(kind LifecycleKind) (LifecycleEvent, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, ev := range m.lifecycle {
		if ev.Kind == kind {
			return ev, true
		}
	}
	return LifecycleEvent{}, false
}

// expectPanic runs fn and returns the recovered value, failing if fn returns normally.
func expectPanic(t testing.TB, fn func()) (rec any) {
	t.Helper()
	defer func() {
		rec = recover()
		if rec == nil {
			t.Fatal("expected panic")
		}
	}()
	fn()
	return nil
}

type navWidget struct {
	Base
	router *Router
}

func (w *navWidget) Router() *Router { return w.router }

func newNavWidget(rt *Runtime) Factory[*navWidget] {
	return func(ctx *BuildCtx) *navWidget {
		w := &navWidget{Base: NewBase(ctx)}
		w.router = NewRouter(rt, w)
		return w
	}
}

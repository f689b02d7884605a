package compose

import (
	"errors"
	"reflect"
	"testing"
)

func TestSignalEmitter_DeliversInSubscriptionOrder(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)

	var order []int
	for i := 1; i <= 3; i++ {
		if _, err := e.Subscribe(func() { order = append(order, i) }); err != nil {
			t.Fatalf("subscribe: %v", err)
		}
	}

	e.Send()
	e.Send()

	expected := []int{1, 2, 3, 1, 2, 3}
	if !reflect.DeepEqual(order, expected) {
		t.Errorf("expected %v, got %v", expected, order)
	}
}

func TestValueEmitter_NoReplay(t *testing.T) {
	rt := NewRuntime()
	e := NewValueEmitter[string](rt)

	var early, late []string
	_, _ = e.Subscribe(func(v string) { early = append(early, v) })
	e.Send("a")
	_, _ = e.Subscribe(func(v string) { late = append(late, v) })
	e.Send("b")

	if !reflect.DeepEqual(early, []string{"a", "b"}) {
		t.Errorf("early observer got %v", early)
	}
	if !reflect.DeepEqual(late, []string{"b"}) {
		t.Errorf("late observer should not see earlier values, got %v", late)
	}
}

func TestEmitter_CancelStopsDelivery(t *testing.T) {
	rt := NewRuntime()
	e := NewValueEmitter[int](rt)

	sum := 0
	sub, _ := e.Subscribe(func(v int) { sum += v })
	e.Send(1)
	sub.Cancel()
	sub.Cancel()
	e.Send(10)

	if sum != 1 {
		t.Errorf("expected 1, got %d", sum)
	}
	if e.ObserverCount() != 0 {
		t.Errorf("expected no observers, got %d", e.ObserverCount())
	}
}

func TestEmitter_CancelDuringSendSkipsLaterObserver(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)

	var second *Subscription
	secondCalls := 0
	_, _ = e.Subscribe(func() { second.Cancel() })
	second, _ = e.Subscribe(func() { secondCalls++ })

	e.Send()
	if secondCalls != 0 {
		t.Errorf("observer cancelled earlier in the same send was called")
	}
}

func TestEmitter_SubscribeDuringSendWaitsForNextSend(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)

	added := 0
	subscribed := false
	_, _ = e.Subscribe(func() {
		if !subscribed {
			subscribed = true
			_, _ = e.Subscribe(func() { added++ })
		}
	})

	e.Send()
	if added != 0 {
		t.Fatalf("observer added mid-send should not see that send")
	}
	e.Send()
	if added != 1 {
		t.Errorf("expected added observer to see the next send, got %d", added)
	}
}

func TestEmitter_Close(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)

	calls := 0
	sub, _ := e.Subscribe(func() { calls++ })
	e.Close()
	e.Close()

	if !e.Closed() {
		t.Error("expected closed")
	}
	if !sub.Cancelled() {
		t.Error("expected existing subscription cancelled")
	}
	e.Send()
	if calls != 0 {
		t.Errorf("closed emitter delivered a send")
	}
	if _, err := e.Subscribe(func() {}); !errors.Is(err, ErrEmitterClosed) {
		t.Errorf("expected ErrEmitterClosed, got %v", err)
	}
}

func TestEmitter_NilObserver(t *testing.T) {
	rt := NewRuntime()
	if _, err := NewSignalEmitter(rt).Subscribe(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got %v", err)
	}
	if _, err := NewValueEmitter[int](rt).Subscribe(nil); !errors.Is(err, ErrNilObserver) {
		t.Errorf("expected ErrNilObserver, got %v", err)
	}
}

func TestEmitter_ReportsSends(t *testing.T) {
	mon := newRecordingMonitor("rec", 1)
	rt := NewRuntime(WithMonitor(mon))
	e := NewValueEmitter[int](rt)
	_, _ = e.Subscribe(func(int) {})
	_, _ = e.Subscribe(func(int) {})

	e.Send(1)

	if len(mon.emits) != 1 {
		t.Fatalf("expected 1 emit event, got %d", len(mon.emits))
	}
	ev := mon.emits[0]
	if ev.Emitter != e.ID() || ev.Kind != KindValue || ev.Observers != 2 {
		t.Errorf("unexpected emit event: %+v", ev)
	}

	rt.SetMonitoring(false)
	e.Send(2)
	if len(mon.emits) != 1 {
		t.Errorf("monitoring disabled but emit was reported")
	}
}

func TestEmitter_PanickingMonitorDoesNotFailSend(t *testing.T) {
	rt := NewRuntime(WithMonitor(&panickingMonitor{BaseMonitor: NewBaseMonitor("panics")}))
	e := NewSignalEmitter(rt)

	calls := 0
	_, _ = e.Subscribe(func() { calls++ })
	e.Send()

	if calls != 1 {
		t.Errorf("expected delivery despite monitor panic, got %d", calls)
	}
}

type panickingMonitor struct {
	BaseMonitor
}

func (m *panickingMonitor) OnEmit(EmitEvent) { panic("monitor unavailable") }

func (m *panickingMonitor) OnLifecycle(LifecycleEvent) { panic("monitor unavailable") }

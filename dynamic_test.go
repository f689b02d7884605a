package compose

import (
	"errors"
	"testing"
)

func TestDynamic_CreateDestroyCycle(t *testing.T) {
	rt := NewRuntime()
	d := NewDynamic[*widget](rt)

	if d.IsCreated() {
		t.Fatal("new container should be empty")
	}

	first, err := d.Create(newWidget)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	c, ok := d.Component()
	if !ok || c.ID() != first {
		t.Fatalf("expected live component %s", first)
	}

	id, ok := d.Destroy()
	if !ok || id != first {
		t.Fatalf("expected destroy to return %s, got %s %v", first, id, ok)
	}
	if _, ok := d.Destroy(); ok {
		t.Error("second destroy should report nothing destroyed")
	}
	if d.IsCreated() {
		t.Error("slot should be empty")
	}

	second, err := d.Create(newWidget)
	if err != nil {
		t.Fatalf("re-create: %v", err)
	}
	if second == first {
		t.Error("identity must not be reused")
	}
}

// The factory subscribes to E; after destroy and the deferred step the slot
// is empty, the registry holds nothing for the identity and E has no observers.
func TestDynamic_DestroyReleasesCapturedSubscriptions(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	d := NewDynamic[*widget](rt)

	a1, err := d.Create(subscribing(e))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if got := rt.Registry().Count(a1); got != 1 {
		t.Fatalf("expected the subscription filed under a1, got %d", got)
	}

	d.Destroy()

	if d.IsCreated() {
		t.Error("slot should be empty")
	}
	if e.ObserverCount() != 1 {
		t.Errorf("cancellation must be deferred, observers=%d", e.ObserverCount())
	}

	rt.Flush()

	if n := rt.Registry().Discard(a1); n != 0 {
		t.Errorf("discard after destroy should find nothing, got %d", n)
	}
	if e.ObserverCount() != 0 {
		t.Errorf("expected no observers, got %d", e.ObserverCount())
	}
}

func TestDynamic_ReplaceDestroyIsDefault(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	d := NewDynamic[*widget](rt)

	destroyed := 0
	_, _ = d.DidDestroy().Subscribe(func() { destroyed++ })

	first, _ := d.Create(subscribing(e))
	second, err := d.Create(subscribing(e))
	if err != nil {
		t.Fatalf("replace: %v", err)
	}
	if destroyed != 1 {
		t.Errorf("expected previous component destroyed, got %d", destroyed)
	}
	if id, _ := d.CurrentID(); id != second {
		t.Errorf("expected %s current, got %s", second, id)
	}

	rt.Flush()

	if rt.Registry().Has(first) {
		t.Error("previous component leaked its registry entry")
	}
	if e.ObserverCount() != 1 {
		t.Errorf("expected only the new component observing, got %d", e.ObserverCount())
	}
}

func TestDynamic_ReplaceReject(t *testing.T) {
	rt := NewRuntime()
	d := NewDynamic[*widget](rt, WithReplacePolicy(ReplaceReject))

	first, _ := d.Create(newWidget)
	_, err := d.Create(newWidget)
	if !errors.Is(err, ErrAlreadyCreated) {
		t.Fatalf("expected ErrAlreadyCreated, got %v", err)
	}
	if id, _ := d.CurrentID(); id != first {
		t.Error("rejected create must leave the slot untouched")
	}
}

func TestDynamic_RuntimeDefaultPolicy(t *testing.T) {
	rt := NewRuntime(WithDefaultReplacePolicy(ReplaceReject))
	d := NewDynamic[*widget](rt)
	_, _ = d.Create(newWidget)
	if _, err := d.Create(newWidget); !errors.Is(err, ErrAlreadyCreated) {
		t.Errorf("expected runtime policy to apply, got %v", err)
	}

	override := NewDynamic[*widget](rt, WithReplacePolicy(ReplaceDestroy))
	_, _ = override.Create(newWidget)
	if _, err := override.Create(newWidget); err != nil {
		t.Errorf("container option should override runtime policy, got %v", err)
	}
}

func TestDynamic_LifecycleEmitters(t *testing.T) {
	rt := NewRuntime()
	d := NewDynamic[*widget](rt)

	var events []string
	_, _ = d.DidCreate().Subscribe(func() { events = append(events, "create") })
	_, _ = d.DidDestroy().Subscribe(func() { events = append(events, "destroy") })

	_, _ = d.Create(newWidget)
	d.Destroy()
	d.Destroy()

	if len(events) != 2 || events[0] != "create" || events[1] != "destroy" {
		t.Errorf("unexpected events %v", events)
	}
}

// An observer of E destroys the component during a send. Every observer
// subscribed when the send started, including the destroyed component's own,
// still receives it.
func TestDynamic_DestroyDuringSendCompletesDelivery(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	d := NewDynamic[*widget](rt)

	_, _ = e.Subscribe(func() { d.Destroy() })
	_, _ = d.Create(subscribing(e))
	w, _ := d.Component()

	e.Send()

	if w.hits != 1 {
		t.Errorf("destroyed component missed the in-flight send, hits=%d", w.hits)
	}
	if d.IsCreated() {
		t.Error("slot should be empty")
	}

	rt.Flush()
	e.Send()
	if w.hits != 1 {
		t.Errorf("destroyed component received a later send, hits=%d", w.hits)
	}
}

func TestDynamic_CascadesToRouters(t *testing.T) {
	rt := NewRuntime()
	d := NewDynamic[*navWidget](rt)

	_, _ = d.Create(newNavWidget(rt))
	c, _ := d.Component()
	r := c.router
	r.Push(Route{Path: "/a"})

	pushes := 0
	_, _ = r.DidPush().Subscribe(func(Route) { pushes++ })

	d.Destroy()

	if r.Target() != nil {
		t.Error("expected router back reference severed")
	}
	if len(r.Routes()) != 0 {
		t.Error("expected route stack cleared")
	}
	r.Push(Route{Path: "/b"})
	if pushes != 0 {
		t.Errorf("router emitter observers should be discarded, got %d", pushes)
	}
	if got := rt.Routers().Routers(c.ID()); len(got) != 0 {
		t.Errorf("expected router registrations forgotten, got %d", len(got))
	}
}

func TestDynamic_Presentation(t *testing.T) {
	mon := newRecordingMonitor("rec", 1)
	rt := NewRuntime(WithMonitor(mon))
	d := NewDynamic[*widget](rt, WithName("sheet"))

	_, _ = d.Create(newWidget)
	d.Appeared()
	d.Disappeared()

	if d.IsCreated() {
		t.Error("disappear should destroy the component")
	}
	ev, ok := mon.find(LifecycleVisible)
	if !ok || !ev.Visible || ev.ContainerName != "sheet" || ev.Mode != ModeSingle {
		t.Errorf("unexpected visible event %+v", ev)
	}
	if _, ok := mon.find(LifecycleHidden); !ok {
		t.Error("expected hidden event")
	}
}

func TestDynamic_Close(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	d := NewDynamic[*widget](rt)

	calls := 0
	_, _ = d.DidDestroy().Subscribe(func() { calls++ })
	_, _ = d.Create(subscribing(e))

	d.Close()
	d.Close()
	rt.Flush()

	if calls != 1 {
		t.Errorf("expected one destroy notification, got %d", calls)
	}
	if !d.DidCreate().Closed() || !d.DidDestroy().Closed() {
		t.Error("expected lifecycle emitters closed")
	}
	if e.ObserverCount() != 0 {
		t.Errorf("expected component subscriptions released, got %d", e.ObserverCount())
	}

	rec := expectPanic(t, func() { _, _ = d.Create(newWidget) })
	if _, ok := rec.(*PreconditionError); !ok {
		t.Errorf("expected *PreconditionError, got %T", rec)
	}
}

func TestDynamic_NilFactoryPanics(t *testing.T) {
	d := NewDynamic[*widget](NewRuntime())
	rec := expectPanic(t, func() { _, _ = d.Create(nil) })
	if _, ok := rec.(*PreconditionError); !ok {
		t.Errorf("expected *PreconditionError, got %T", rec)
	}
}

func TestParseReplacePolicy(t *testing.T) {
	cases := map[string]ReplacePolicy{"": ReplaceDestroy, "destroy": ReplaceDestroy, " Reject ": ReplaceReject}
	for in, want := range cases {
		got, err := ParseReplacePolicy(in)
		if err != nil || got != want {
			t.Errorf("ParseReplacePolicy(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseReplacePolicy("leak"); err == nil {
		t.Error("expected unknown policy to fail")
	}
}

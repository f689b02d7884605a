package compose

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRuntime_MonitorOrder(t *testing.T) {
	late := newRecordingMonitor("late", 200)
	early := newRecordingMonitor("early", 5)
	rt := NewRuntime(WithMonitor(late), WithMonitor(early))

	monitors := rt.Monitors()
	if len(monitors) != 2 || monitors[0].Name() != "early" || monitors[1].Name() != "late" {
		t.Errorf("expected monitors sorted by order, got %v", []string{monitors[0].Name(), monitors[1].Name()})
	}
}

func TestRuntime_FirstHandlingMonitorWins(t *testing.T) {
	first := newRecordingMonitor("first", 1)
	first.handle = true
	second := newRecordingMonitor("second", 2)
	rt := NewRuntime(WithMonitor(first), WithMonitor(second))

	owner := NewID()
	rt.Registry().File(owner, newSubscription(ID{}, func() error { return errors.New("fail") }))
	rt.Registry().Discard(owner)

	if len(first.cleanups) != 1 {
		t.Errorf("expected first monitor to see the error")
	}
	if len(second.cleanups) != 0 {
		t.Errorf("handled error should not reach later monitors")
	}
}

func TestRuntime_UnhandledCleanupErrorIsLogged(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime(WithLogger(zerolog.New(&buf)))

	owner := NewID()
	rt.Registry().File(owner, newSubscription(ID{}, func() error { return errors.New("disk gone") }))
	rt.Registry().Discard(owner)

	out := buf.String()
	if !strings.Contains(out, "cleanup failed") || !strings.Contains(out, "disk gone") {
		t.Errorf("expected cleanup failure logged, got %q", out)
	}
}

func TestRuntime_PanickingLifecycleMonitorIsRecovered(t *testing.T) {
	var buf bytes.Buffer
	rt := NewRuntime(
		WithLogger(zerolog.New(&buf)),
		WithMonitor(&panickingMonitor{BaseMonitor: NewBaseMonitor("panics")}),
	)

	d := NewDynamic[*widget](rt)
	if _, err := d.Create(newWidget); err != nil {
		t.Fatalf("create: %v", err)
	}
	if !d.IsCreated() {
		t.Error("monitor panic must not fail the create")
	}
	if !strings.Contains(buf.String(), "monitor hook panicked") {
		t.Errorf("expected panic to be logged, got %q", buf.String())
	}
}

type failingDisposeMonitor struct {
	BaseMonitor
}

func (m *failingDisposeMonitor) Dispose(*Runtime) error { return errors.New("flush failed") }

func TestRuntime_Dispose(t *testing.T) {
	rec := newRecordingMonitor("rec", 1)
	rt := NewRuntime(WithMonitor(rec))
	e := NewSignalEmitter(rt)
	d := NewDynamic[*widget](rt)
	_, _ = d.Create(subscribing(e))
	d.Destroy()

	if err := rt.Dispose(); err != nil {
		t.Fatalf("dispose: %v", err)
	}
	if !rec.disposed {
		t.Error("expected monitor disposed")
	}
	if e.ObserverCount() != 0 {
		t.Error("dispose should run pending disposals")
	}

	bad := NewRuntime(WithMonitor(&failingDisposeMonitor{BaseMonitor: NewBaseMonitor("bad")}))
	err := bad.Dispose()
	if err == nil || !strings.Contains(err.Error(), "disposing monitor bad") {
		t.Errorf("expected wrapped dispose error, got %v", err)
	}
}

func TestRuntime_MonitoringToggle(t *testing.T) {
	mon := newRecordingMonitor("rec", 1)
	rt := NewRuntime(WithMonitor(mon), WithMonitoring(false))

	NewDynamic[*widget](rt)
	if len(mon.kinds()) != 0 {
		t.Error("monitoring disabled but events were reported")
	}

	rt.SetMonitoring(true)
	NewDynamic[*widget](rt)
	if !rt.Monitoring() || len(mon.kinds()) != 1 {
		t.Errorf("expected one event after enabling, got %d", len(mon.kinds()))
	}
}

func TestRuntime_Defaults(t *testing.T) {
	if a, b := Default(), Default(); a != b {
		t.Error("Default should return the same runtime")
	}
	if NewSignalEmitter(nil).core.rt != Default() {
		t.Error("nil runtime should fall back to Default")
	}

	rt := NewRuntime()
	if _, ok := rt.Dispatcher().(*Queue); !ok {
		t.Error("expected a Queue dispatcher by default")
	}
	if _, ok := rt.Routers().(*RouterStorage); !ok {
		t.Error("expected RouterStorage by default")
	}
	if rt.Logger() == nil {
		t.Error("expected a logger")
	}
}

func TestSetLogger(t *testing.T) {
	var buf bytes.Buffer
	prev := logger
	SetLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))
	defer SetLogger(prev)

	rt := NewRuntime()
	NewDynamic[*widget](rt, WithName("logged"))

	if !strings.Contains(buf.String(), `"container":"logged"`) {
		t.Errorf("expected package logger to receive lifecycle debug logs, got %q", buf.String())
	}
}

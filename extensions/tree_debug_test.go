package extensions

import (
	"bytes"
	"errors"
	"log/slog"
	"strings"
	"testing"

	compose "github.com/pumped-fn/pumped-compose"
)

type screen struct {
	compose.Base
	tabs *compose.InstanceComponent[*widget]
}

func TestTreeDebugMonitor_Dump(t *testing.T) {
	var buf bytes.Buffer
	m := NewTreeDebugMonitor(NewHumanHandler(&buf, slog.LevelInfo))
	rt := compose.NewRuntime(compose.WithMonitor(m))

	root := compose.NewDynamic[*screen](rt, compose.WithName("root"))
	_, err := root.Create(func(ctx *compose.BuildCtx) *screen {
		s := &screen{Base: compose.NewBase(ctx)}
		s.tabs = compose.NewInstance[*widget](ctx.Runtime(), compose.WithName("tabs"))
		return s
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	s, _ := root.Component()
	s.tabs.Create(newWidget)
	root.Appeared()

	m.Dump()
	out := buf.String()

	for _, want := range []string{"[TreeDebug] Component Tree", "root [single] visible", "tabs [instance]", "runtime"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestTreeDebugMonitor_CleanupErrorNotHandled(t *testing.T) {
	var buf bytes.Buffer
	m := NewTreeDebugMonitor(NewHumanHandler(&buf, slog.LevelError))
	rt := compose.NewRuntime(compose.WithMonitor(m))

	d := compose.NewDynamic[*widget](rt, compose.WithName("panel"))
	_, _ = d.Create(func(ctx *compose.BuildCtx) *widget {
		ctx.OnCleanup(func() error { return errors.New("close failed") })
		return newWidget(ctx)
	})
	d.Destroy()
	rt.Flush()

	out := buf.String()
	if !strings.Contains(out, "[TreeDebug] Cleanup Error") {
		t.Fatalf("expected cleanup error header, got:\n%s", out)
	}
	if !strings.Contains(out, "close failed") {
		t.Errorf("expected error text in output, got:\n%s", out)
	}
}

func TestRenderTree_Empty(t *testing.T) {
	out := RenderTree(compose.Snapshot{})
	if !strings.Contains(out, "runtime") {
		t.Fatalf("expected root node, got %q", out)
	}
}

func TestSilentHandler(t *testing.T) {
	m := NewTreeDebugMonitor(NewSilentHandler())
	rt := compose.NewRuntime(compose.WithMonitor(m))
	compose.NewInstance[*widget](rt).Create(newWidget)
	m.Dump()
}

package extensions

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	compose "github.com/pumped-fn/pumped-compose"
)

type widget struct {
	compose.Base
}

func newWidget(ctx *compose.BuildCtx) *widget {
	return &widget{Base: compose.NewBase(ctx)}
}

func TestLoggingMonitor_Lifecycle(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)

	rt := compose.NewRuntime(compose.WithMonitor(NewLoggingMonitor(logger)))
	d := compose.NewDynamic[*widget](rt, compose.WithName("sheet"))

	id, err := d.Create(newWidget)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	d.Destroy()
	rt.Flush()

	out := buf.String()
	for _, want := range []string{`"event":"created"`, `"event":"destroyed"`, `"event":"disposed"`, `"container":"sheet"`, id.String()} {
		if !strings.Contains(out, want) {
			t.Errorf("expected log output to contain %s, got:\n%s", want, out)
		}
	}
}

func TestLoggingMonitor_EmitsOptIn(t *testing.T) {
	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.TraceLevel)

	rt := compose.NewRuntime(compose.WithMonitor(NewLoggingMonitor(logger)))
	e := compose.NewSignalEmitter(rt)
	e.Send()
	if strings.Contains(buf.String(), `"message":"send"`) {
		t.Fatal("sends should not be logged without WithEmits")
	}

	buf.Reset()
	rt = compose.NewRuntime(compose.WithMonitor(NewLoggingMonitor(logger, WithEmits())))
	e = compose.NewSignalEmitter(rt)
	e.Send()
	if !strings.Contains(buf.String(), `"message":"send"`) {
		t.Fatalf("expected send to be logged, got:\n%s", buf.String())
	}
}

func TestLoggingMonitor_HandlesCleanupError(t *testing.T) {
	var buf bytes.Buffer
	rt := compose.NewRuntime(compose.WithMonitor(NewLoggingMonitor(zerolog.New(&buf))))

	d := compose.NewDynamic[*widget](rt)
	_, _ = d.Create(func(ctx *compose.BuildCtx) *widget {
		ctx.OnCleanup(func() error { return errors.New("boom") })
		return newWidget(ctx)
	})
	d.Destroy()
	rt.Flush()

	if !strings.Contains(buf.String(), "cleanup failed") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("expected cleanup failure to be logged, got:\n%s", buf.String())
	}
}

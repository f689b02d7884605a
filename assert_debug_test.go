//go:build debug

package compose

import (
	"strings"
	"testing"
)

func TestCapture_SubscribeFromOtherGoroutinePanics(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	reg := rt.Registry()

	token := reg.BeginCapture(NewID(), nil)
	defer reg.EndCapture(token)

	done := make(chan any)
	go func() {
		defer func() { done <- recover() }()
		_, _ = e.Subscribe(func() {})
	}()

	rec := <-done
	msg, ok := rec.(string)
	if !ok || !strings.Contains(msg, "contract violation") {
		t.Fatalf("expected contract violation panic, got %v", rec)
	}
}

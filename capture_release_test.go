//go:build !debug

package compose

import "testing"

func TestCapture_SubscribeFromOtherGoroutineIsUnowned(t *testing.T) {
	rt := NewRuntime()
	e := NewSignalEmitter(rt)
	reg := rt.Registry()
	owner := NewID()

	token := reg.BeginCapture(owner, nil)
	defer reg.EndCapture(token)

	done := make(chan *Subscription)
	go func() {
		sub, err := e.Subscribe(func() {})
		if err != nil {
			t.Errorf("subscribe: %v", err)
		}
		done <- sub
	}()

	sub := <-done
	if sub.Owner() != (ID{}) {
		t.Errorf("expected unowned subscription, got %s", sub.Owner())
	}
	if got := reg.Count(owner); got != 0 {
		t.Errorf("expected nothing filed under the open scope, got %d", got)
	}
	if e.ObserverCount() != 1 {
		t.Errorf("expected the observer attached, got %d", e.ObserverCount())
	}
}

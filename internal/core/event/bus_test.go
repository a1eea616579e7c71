package event

import "testing"

type ping struct{ N int }
type pong struct{ N int }

func TestEmitDeliveredNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(e ping) { got = append(got, e.N) })

	Emit(b, ping{1})
	if n := b.DispatchAll(); n != 0 {
		t.Fatalf("expected nothing delivered before swap, got %d", n)
	}
	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 || got[0] != 1 {
		t.Fatalf("expected [1], got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 1 {
		t.Errorf("expected event delivered once, got %v", got)
	}
}

func TestDeliveryFollowsEmissionOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(ping) { order = append(order, "ping") })
	Subscribe(b, func(pong) { order = append(order, "pong") })

	Emit(b, pong{})
	Emit(b, ping{})
	Emit(b, pong{})
	b.SwapBuffers()
	b.DispatchAll()

	want := []string{"pong", "ping", "pong"}
	for i := range want {
		if i >= len(order) || order[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, order)
		}
	}
}

func TestHandlerEmitsLandNextTick(t *testing.T) {
	b := NewBus()
	var pongs int
	Subscribe(b, func(e ping) { Emit(b, pong{e.N}) })
	Subscribe(b, func(pong) { pongs++ })

	Emit(b, ping{7})
	b.SwapBuffers()
	b.DispatchAll()
	if pongs != 0 {
		t.Fatal("expected pong deferred to the next tick")
	}
	if p := Pending[pong](b); len(p) != 1 || p[0].N != 7 {
		t.Fatalf("expected one pending pong, got %v", p)
	}
	b.SwapBuffers()
	b.DispatchAll()
	if pongs != 1 {
		t.Errorf("expected 1 pong, got %d", pongs)
	}
}

func TestReset(t *testing.T) {
	b := NewBus()
	calls := 0
	Subscribe(b, func(ping) { calls++ })
	Emit(b, ping{})
	b.Reset()
	b.SwapBuffers()
	b.DispatchAll()
	if calls != 0 {
		t.Errorf("expected reset to drop queued events, got %d calls", calls)
	}
}

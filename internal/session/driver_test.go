package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stepcrawl/server/internal/game"
	"go.uber.org/zap"
)

func TestDriverLifecycle(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	d := NewDriver(s, 5*time.Millisecond, zap.NewNop())
	if d.State() != StateIdle {
		t.Fatalf("expected idle, got %s", d.State())
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	if err := d.Pause(context.Background()); err != nil {
		t.Fatal(err)
	}
	var mode game.Mode
	if err := d.Do(context.Background(), func(s *Session) { mode = s.State().Mode }); err != nil {
		t.Fatal(err)
	}
	if mode != game.ModePaused {
		t.Errorf("expected paused, got %s", mode)
	}
	if d.State() != StateRunning {
		t.Errorf("expected running, got %s", d.State())
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("driver did not stop")
	}

	if d.State() != StateStopped {
		t.Errorf("expected stopped, got %s", d.State())
	}
	if err := d.Resume(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := s.Tick(dt); !errors.Is(err, ErrStopped) {
		t.Errorf("expected session stopped with the driver, got %v", err)
	}
	if err := d.Run(context.Background()); err == nil {
		t.Error("expected a stopped driver not to restart")
	}
}

func TestDriverTicks(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	d := NewDriver(s, time.Millisecond, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- d.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	var ticks uint64
	for ticks < 5 && time.Now().Before(deadline) {
		d.Do(context.Background(), func(s *Session) { ticks = s.Ticks() })
		time.Sleep(time.Millisecond)
	}
	cancel()
	<-errc
	if ticks < 5 {
		t.Errorf("expected the driver to tick, got %d ticks", ticks)
	}
}

func TestDoHonoursContext(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	d := NewDriver(s, time.Millisecond, zap.NewNop())
	// never run: the queued command can only time out
	for range cap(d.cmds) {
		d.cmds <- func(*Session) {}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := d.Pause(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected deadline exceeded, got %v", err)
	}
}

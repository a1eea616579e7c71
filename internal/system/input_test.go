package system

import (
	"testing"
	"time"

	"github.com/stepcrawl/server/internal/component"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/sensor"
	"go.uber.org/zap"
)

func TestApplyReading(t *testing.T) {
	ped := &component.Pedometer{}
	in := &component.StepInput{}
	at := time.Unix(100, 0)

	cases := []struct {
		steps     int64
		wantRaw   int64
		wantAccum int64
	}{
		{100, 0, 0}, // baseline only
		{112, 12, 12},
		{112, 0, 12},
		{50, 0, 12}, // counter reset re-baselines
		{60, 10, 22},
	}
	for i, c := range cases {
		raw := ApplyReading(ped, in, sensor.Reading{StepCount: c.steps, Timestamp: at})
		if raw != c.wantRaw || ped.AccumulatedSteps != c.wantAccum {
			t.Errorf("reading %d (%d): expected raw %d accum %d, got %d %d", i, c.steps, c.wantRaw, c.wantAccum, raw, ped.AccumulatedSteps)
		}
	}
	if ped.TotalSteps != 22 || in.StepCount != 60 || !in.LastStepTimestamp.Equal(at) {
		t.Errorf("unexpected totals %+v %+v", ped, in)
	}
}

func TestInputSystemDrainsQueue(t *testing.T) {
	f := newFixture(t, geom.V(0, 0), nil)
	q := sensor.NewQueue(8)
	pace := sensor.NewPaceMeter(time.Minute)
	f.runner.Register(NewInputSystem(f.ws, q, pace, 2, zap.NewNop()))

	t0 := time.Unix(1000, 0)
	q.Push(sensor.Reading{StepCount: 500, Timestamp: t0})
	q.Push(sensor.Reading{StepCount: 530, Timestamp: t0.Add(15 * time.Second)})
	q.Push(sensor.Reading{StepCount: 560, Timestamp: t0.Add(30 * time.Second)})

	f.runner.Tick(tick)
	ped, _ := f.ws.Pedometers.Get(f.player)
	if ped.AccumulatedSteps != 30 || q.Len() != 1 {
		t.Errorf("expected 30 steps with one reading left, got %d/%d", ped.AccumulatedSteps, q.Len())
	}

	f.runner.Tick(tick)
	if ped.AccumulatedSteps != 60 {
		t.Errorf("expected 60 steps, got %d", ped.AccumulatedSteps)
	}
	if got := pace.Pace(); got != 120 {
		t.Errorf("expected pace 120, got %v", got)
	}
}

func TestInputSystemWaitsForPlayer(t *testing.T) {
	f := newFixture(t, geom.V(0, 0), nil)
	f.ws.ECS.RemoveEntity(f.player)
	q := sensor.NewQueue(4)
	s := NewInputSystem(f.ws, q, nil, 0, zap.NewNop())
	q.Push(sensor.Reading{StepCount: 5})
	s.Update(tick)
	if q.Len() != 1 {
		t.Error("expected reading kept until a player exists")
	}
}

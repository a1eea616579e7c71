package system

import (
	"math"
	"testing"

	"github.com/stepcrawl/server/internal/core/event"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/path"
	"go.uber.org/zap"
)

func newFollow(f *fixture) *PathFollowSystem {
	s := NewPathFollowSystem(f.ws, f.bus, 0.5, zap.NewNop())
	f.runner.Register(s)
	return s
}

func TestPathFollowArrivesAtCheckpoint(t *testing.T) {
	route := []path.Point{{X: 0, Y: 0, Kind: path.Start}, {X: 10, Y: 0, Kind: path.Checkpoint}}
	f := newFixture(t, geom.V(9.9, 0), route)
	newFollow(f)

	f.runner.Tick(tick)

	fl, _ := f.ws.Followers.Get(f.player)
	if fl.CurrentIndex != 1 {
		t.Errorf("expected index 1, got %d", fl.CurrentIndex)
	}
	reached := event.Pending[event.PathReached](f.bus)
	if len(reached) != 1 {
		t.Fatalf("expected one arrival, got %+v", reached)
	}
	if reached[0].Kind != event.PathCheckpoint || reached[0].Progress != 0.5 {
		t.Errorf("expected path-checkpoint at 0.5, got %s at %v", reached[0].Kind, reached[0].Progress)
	}
}

func TestPathFollowProgressSetsVelocity(t *testing.T) {
	route := []path.Point{{X: 0, Y: 0}, {X: 100, Y: 0}}
	f := newFixture(t, geom.V(0, 0), route)
	newFollow(f)

	event.Emit(f.bus, event.ProgressGranted{Entity: f.player, Amount: 50})
	f.deliver()
	f.runner.Tick(tick)

	vel, _ := f.ws.Velocities.Get(f.player)
	// default path speed 60 at half progress
	if math.Abs(vel.VX-30) > 1e-9 || vel.VY != 0 {
		t.Errorf("expected (30,0), got (%v,%v)", vel.VX, vel.VY)
	}
	fl, _ := f.ws.Followers.Get(f.player)
	if fl.Progress != 0 {
		t.Error("expected progress consumed")
	}

	f.runner.Tick(tick)
	if vel.VX != 0 {
		t.Errorf("expected velocity cleared without fuel, got %v", vel.VX)
	}
}

func TestPathFollowTurnsAtWaypoint(t *testing.T) {
	route := []path.Point{{X: 0, Y: 0}, {X: 10, Y: 0, Kind: path.Trap}, {X: 10, Y: 10}}
	// past the waypoint along the segment counts as arrival
	f := newFixture(t, geom.V(11, 0), route)
	newFollow(f)

	f.runner.Tick(tick)

	reached := event.Pending[event.PathReached](f.bus)
	if len(reached) != 1 || reached[0].Kind != event.PathTrap || reached[0].Index != 1 {
		t.Errorf("expected trap arrival at index 1, got %+v", reached)
	}
	turns := event.Pending[event.DirectionChanged](f.bus)
	if len(turns) != 1 || turns[0].DX != 0 || turns[0].DY != 1 {
		t.Errorf("expected turn to (0,1), got %+v", turns)
	}
}

func TestPathFollowStopsAtEnd(t *testing.T) {
	route := []path.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	f := newFixture(t, geom.V(10, 0), route)
	newFollow(f)
	fl, _ := f.ws.Followers.Get(f.player)
	fl.CurrentIndex = 1

	event.Emit(f.bus, event.ProgressGranted{Entity: f.player, Amount: 100})
	f.deliver()
	f.runner.Tick(tick)

	vel, _ := f.ws.Velocities.Get(f.player)
	if vel.VX != 0 || vel.VY != 0 || fl.Progress != 0 {
		t.Error("expected a finished follower to stay still")
	}
}

func TestPathFollowLoops(t *testing.T) {
	route := []path.Point{{X: 0, Y: 0}, {X: 10, Y: 0}}
	f := newFixture(t, geom.V(10, 0), route)
	follower, _ := f.ws.Followers.Get(f.player)
	follower.Looping = true
	follower.CurrentIndex = 1
	if next, ok := nextIndex(follower); !ok || next != 0 {
		t.Errorf("expected looping follower to head back to 0, got %d %v", next, ok)
	}
}

package system

import (
	"time"

	"github.com/stepcrawl/server/internal/component"
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

const DefaultArrivalThreshold = 0.5

// PathFollowSystem steers PathFollower entities waypoint to waypoint.
// Velocity is only set while the follower holds progress fuel; the fuel is
// spent in the tick it is applied. Phase 2 (Update).
type PathFollowSystem struct {
	ws        *world.State
	bus       *event.Bus
	threshold float64
	tracked   *ecs.EntitySet
	log       *zap.Logger
}

func NewPathFollowSystem(ws *world.State, bus *event.Bus, threshold float64, log *zap.Logger) *PathFollowSystem {
	if threshold <= 0 {
		threshold = DefaultArrivalThreshold
	}
	s := &PathFollowSystem{
		ws:        ws,
		bus:       bus,
		threshold: threshold,
		tracked:   ecs.NewEntitySet(),
		log:       log,
	}
	event.Subscribe(bus, s.onProgress)
	return s
}

func (s *PathFollowSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *PathFollowSystem) Requires() ecs.Mask {
	return ecs.MaskOf(ecs.KindPosition, ecs.KindVelocity, ecs.KindPathFollower)
}

func (s *PathFollowSystem) Track(id ecs.EntityID)   { s.tracked.Add(id) }
func (s *PathFollowSystem) Untrack(id ecs.EntityID) { s.tracked.Remove(id) }

func (s *PathFollowSystem) Update(_ time.Duration) {
	s.tracked.Each(s.follow)
}

func (s *PathFollowSystem) follow(id ecs.EntityID) {
	f, ok1 := s.ws.Followers.Get(id)
	pos, ok2 := s.ws.Positions.Get(id)
	vel, ok3 := s.ws.Velocities.Get(id)
	if !ok1 || !ok2 || !ok3 {
		return
	}
	p := geom.Vec{X: pos.X, Y: pos.Y}

	target, ok := nextIndex(f)
	if !ok {
		s.stop(f, vel)
		return
	}
	if s.arrived(f, p, target) {
		f.CurrentIndex = target
		reached := f.Path[target]
		if kind, typed := event.PathKindFor(reached.Kind); typed {
			event.Emit(s.bus, event.PathReached{
				Kind:     kind,
				Entity:   id,
				Index:    target,
				Point:    reached,
				Progress: float64(target) / float64(len(f.Path)),
			})
		}
		if target, ok = nextIndex(f); !ok {
			s.stop(f, vel)
			return
		}
		d := f.Path[target].Pos().Sub(reached.Pos()).Normalize()
		if !d.IsZero() {
			event.Emit(s.bus, event.DirectionChanged{Entity: id, DX: d.X, DY: d.Y})
		}
	}

	if f.Progress <= 0 {
		vel.VX, vel.VY = 0, 0
		return
	}
	v := f.Path[target].Pos().Sub(p).Normalize().Scale(f.Speed * f.Progress / 100)
	vel.VX, vel.VY = v.X, v.Y
	f.Progress = 0
}

// arrived reports whether p is within the arrival threshold of the target
// waypoint, or has already moved past it along the current segment.
func (s *PathFollowSystem) arrived(f *component.PathFollower, p geom.Vec, target int) bool {
	tp := f.Path[target].Pos()
	if p.Dist(tp) < s.threshold {
		return true
	}
	seg := tp.Sub(f.Path[f.CurrentIndex].Pos())
	if seg.IsZero() {
		return false
	}
	return tp.Sub(p).Dot(seg) <= 0
}

func (s *PathFollowSystem) stop(f *component.PathFollower, vel *component.Velocity) {
	vel.VX, vel.VY = 0, 0
	f.Progress = 0
}

func (s *PathFollowSystem) onProgress(ev event.ProgressGranted) {
	if f, ok := s.ws.Followers.Get(ev.Entity); ok && ev.Amount > 0 {
		f.Progress += ev.Amount
	}
}

// nextIndex returns the waypoint f is heading to. A non-looping follower
// standing on its last waypoint has none.
func nextIndex(f *component.PathFollower) (int, bool) {
	n := len(f.Path)
	if n < 2 || f.CurrentIndex < 0 || f.CurrentIndex >= n {
		return 0, false
	}
	if f.CurrentIndex+1 < n {
		return f.CurrentIndex + 1, true
	}
	if f.Looping {
		return 0, true
	}
	return 0, false
}

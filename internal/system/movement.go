package system

import (
	"time"

	"github.com/stepcrawl/server/internal/core/ecs"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

// MovementSystem advances the physics space by dt and copies body state back
// into Position and Velocity. Entities with a Velocity but no Body are moved
// by Euler integration. Phase 2 (Update).
type MovementSystem struct {
	ws      *world.State
	tracked *ecs.EntitySet
	missing map[ecs.EntityID]struct{}
	log     *zap.Logger
}

func NewMovementSystem(ws *world.State, log *zap.Logger) *MovementSystem {
	return &MovementSystem{
		ws:      ws,
		tracked: ecs.NewEntitySet(),
		missing: make(map[ecs.EntityID]struct{}),
		log:     log,
	}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *MovementSystem) Requires() ecs.Mask { return ecs.MaskOf(ecs.KindPosition) }

func (s *MovementSystem) Track(id ecs.EntityID) { s.tracked.Add(id) }

func (s *MovementSystem) Untrack(id ecs.EntityID) {
	s.tracked.Remove(id)
	delete(s.missing, id)
}

func (s *MovementSystem) Update(dt time.Duration) {
	ws := s.ws
	if ws.Space == nil {
		s.log.Warn("physics space not initialised, tick skipped")
		return
	}
	secs := dt.Seconds()

	s.tracked.Each(func(id ecs.EntityID) {
		bc, ok := ws.Bodies.Get(id)
		if !ok {
			return
		}
		if v, ok := ws.Velocities.Get(id); ok {
			ws.Space.SetVelocity(bc.Handle, geom.Vec{X: v.VX, Y: v.VY})
		}
	})

	ws.Space.Step(secs)

	s.tracked.Each(func(id ecs.EntityID) {
		pos, _ := ws.Positions.Get(id)
		if bc, ok := ws.Bodies.Get(id); ok {
			body, ok := ws.Space.Body(bc.Handle)
			if !ok {
				if _, seen := s.missing[id]; !seen {
					s.missing[id] = struct{}{}
					s.log.Warn("entity body missing from physics space", zap.Stringer("entity", id))
				}
				return
			}
			p := body.Position()
			pos.X, pos.Y = p.X, p.Y
			if v, ok := ws.Velocities.Get(id); ok {
				bv := body.Velocity()
				v.VX, v.VY = bv.X, bv.Y
			}
			return
		}
		if v, ok := ws.Velocities.Get(id); ok {
			pos.X += v.VX * secs
			pos.Y += v.VY * secs
		}
	})
}

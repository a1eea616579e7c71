package system

import (
	"time"

	"github.com/stepcrawl/server/internal/component"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

// CollisionSystem turns physics contact-begins involving the player into one
// typed gameplay event each. Treasure is one-shot: its body leaves the space
// immediately and the entity is queued for destruction. Runs after
// MovementSystem in Phase 2 (Update).
type CollisionSystem struct {
	ws  *world.State
	bus *event.Bus
	log *zap.Logger
}

func NewCollisionSystem(ws *world.State, bus *event.Bus, log *zap.Logger) *CollisionSystem {
	return &CollisionSystem{ws: ws, bus: bus, log: log}
}

func (s *CollisionSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *CollisionSystem) Update(_ time.Duration) {
	ws := s.ws
	contacts := ws.Space.DrainBegins()
	if len(contacts) == 0 {
		return
	}
	player, ok := ws.Player()
	if !ok {
		return
	}
	pb, ok := ws.Bodies.Get(player)
	if !ok {
		return
	}

	for _, c := range contacts {
		if !c.Involves(pb.Handle) {
			continue
		}
		other, ok := ws.Owner(c.Other(pb.Handle))
		if !ok || ws.ECS.PendingDestruction(other) {
			continue
		}
		ob, ok := ws.Bodies.Get(other)
		if !ok {
			continue
		}
		switch ob.Kind {
		case component.KindEnemy:
			event.Emit(s.bus, event.EnemyCollision{Player: player, Enemy: other})
		case component.KindTreasure:
			ws.DetachBody(other)
			ws.ECS.MarkForDestruction(other)
			event.Emit(s.bus, event.TreasureCollected{Player: player, Treasure: other})
		case component.KindTrap:
			event.Emit(s.bus, event.TrapTriggered{Player: player, Trap: other})
		case component.KindCheckpoint:
			event.Emit(s.bus, event.CheckpointReached{Player: player, Checkpoint: other})
		default:
			s.log.Debug("contact with untyped body ignored",
				zap.Stringer("entity", other),
				zap.Stringer("kind", ob.Kind),
			)
		}
	}
}

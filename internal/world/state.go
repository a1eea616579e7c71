package world

import (
	"github.com/stepcrawl/server/internal/component"
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/data"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/physics"
	"go.uber.org/zap"
)

// Tags attached by the factory.
const (
	TagPlayer     = "player"
	TagWall       = "wall"
	TagEnemy      = "enemy"
	TagTreasure   = "treasure"
	TagTrap       = "trap"
	TagCheckpoint = "checkpoint"
)

// Meta is the gameplay payload of a placed sensor entity.
type Meta struct {
	Kind   component.EntityKind
	Name   string
	Enemy  *game.Enemy
	Coins  int
	Item   string
	Damage int
}

// State is the simulation context: the ECS world, one typed store per
// component kind, the physics space and the loaded map.
// Single-goroutine access only (tick loop).
type State struct {
	ECS   *ecs.World
	Space *physics.Space
	Map   *data.MapData

	Positions  *ecs.PtrComponentStore[component.Position]
	Velocities *ecs.PtrComponentStore[component.Velocity]
	Bodies     *ecs.PtrComponentStore[component.Body]
	StepInputs *ecs.PtrComponentStore[component.StepInput]
	Drawables  *ecs.PtrComponentStore[component.Drawable]
	Followers  *ecs.PtrComponentStore[component.PathFollower]
	Pedometers *ecs.PtrComponentStore[component.Pedometer]
	Healths    *ecs.PtrComponentStore[component.Health]

	meta   map[ecs.EntityID]*Meta
	owners map[physics.BodyID]ecs.EntityID
	player ecs.EntityID
	log    *zap.Logger
}

func NewState(log *zap.Logger) *State {
	s := &State{
		ECS:        ecs.NewWorld(log),
		Space:      physics.NewSpace(),
		Positions:  ecs.NewPtrComponentStore[component.Position](ecs.KindPosition),
		Velocities: ecs.NewPtrComponentStore[component.Velocity](ecs.KindVelocity),
		Bodies:     ecs.NewPtrComponentStore[component.Body](ecs.KindBody),
		StepInputs: ecs.NewPtrComponentStore[component.StepInput](ecs.KindStepInput),
		Drawables:  ecs.NewPtrComponentStore[component.Drawable](ecs.KindDrawable),
		Followers:  ecs.NewPtrComponentStore[component.PathFollower](ecs.KindPathFollower),
		Pedometers: ecs.NewPtrComponentStore[component.Pedometer](ecs.KindPedometer),
		Healths:    ecs.NewPtrComponentStore[component.Health](ecs.KindHealth),
		meta:       make(map[ecs.EntityID]*Meta),
		owners:     make(map[physics.BodyID]ecs.EntityID),
		log:        log,
	}
	reg := s.ECS.Registry()
	// detach must run while the Body component still holds the handle.
	reg.Register(detachHook{s})
	reg.Register(s.Positions)
	reg.Register(s.Velocities)
	reg.Register(s.Bodies)
	reg.Register(s.StepInputs)
	reg.Register(s.Drawables)
	reg.Register(s.Followers)
	reg.Register(s.Pedometers)
	reg.Register(s.Healths)
	return s
}

// Player returns the player entity, if one has been created.
func (s *State) Player() (ecs.EntityID, bool) {
	if s.player.IsZero() || !s.ECS.Alive(s.player) {
		return 0, false
	}
	return s.player, true
}

// Meta returns the gameplay payload of a placed entity.
func (s *State) Meta(id ecs.EntityID) (*Meta, bool) {
	m, ok := s.meta[id]
	return m, ok
}

// Owner maps a physics body back to the entity it belongs to.
func (s *State) Owner(b physics.BodyID) (ecs.EntityID, bool) {
	id, ok := s.owners[b]
	return id, ok
}

// AttachBody adds a body to the space and links it to id.
func (s *State) AttachBody(id ecs.EntityID, kind component.EntityKind, def physics.BodyDef) physics.BodyID {
	def.UserData = uint64(id)
	h := s.Space.Add(def)
	s.owners[h] = id
	s.Bodies.Set(id, &component.Body{Handle: h, Kind: kind})
	return h
}

// DetachBody removes id's body from the space. The entity keeps its other
// components; Reregister it if trackers should see the change.
func (s *State) DetachBody(id ecs.EntityID) {
	b, ok := s.Bodies.Get(id)
	if !ok {
		return
	}
	s.Space.Remove(b.Handle)
	delete(s.owners, b.Handle)
	s.Bodies.Remove(id)
}

// Reset destroys every entity and body. The map is kept.
func (s *State) Reset() {
	s.ECS.Reset()
	s.Space = physics.NewSpace()
	s.meta = make(map[ecs.EntityID]*Meta)
	s.owners = make(map[physics.BodyID]ecs.EntityID)
	s.player = 0
}

// detachHook releases physics resources and metadata when the registry
// drops an entity's components.
type detachHook struct{ s *State }

func (h detachHook) Kind() ecs.Kind { return ecs.KindBody }

func (h detachHook) Has(ecs.EntityID) bool { return false }

func (h detachHook) Remove(id ecs.EntityID) {
	h.s.DetachBody(id)
	delete(h.s.meta, id)
	if id == h.s.player {
		h.s.player = 0
	}
}

package world

import (
	"errors"
	"fmt"

	"github.com/stepcrawl/server/internal/component"
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/data"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/path"
	"github.com/stepcrawl/server/internal/physics"
	"go.uber.org/zap"
)

var ErrPlayerExists = errors.New("player already exists")

// FactoryConfig sizes the entities the factory builds.
type FactoryConfig struct {
	PlayerSize    float64 // side of the player's box, pixels
	SensorRadius  float64 // default radius of placed sensors
	StepsPerMeter float64
	PathSpeed     float64
}

func DefaultFactoryConfig() FactoryConfig {
	return FactoryConfig{
		PlayerSize:    12,
		SensorRadius:  8,
		StepsPerMeter: 1.3,
		PathSpeed:     60,
	}
}

// Factory assembles complete entities and adds them to a State. Every entity
// is added only after its full component set is attached.
type Factory struct {
	st  *State
	cfg FactoryConfig
	log *zap.Logger
}

func NewFactory(st *State, cfg FactoryConfig, log *zap.Logger) *Factory {
	def := DefaultFactoryConfig()
	if cfg.PlayerSize <= 0 {
		cfg.PlayerSize = def.PlayerSize
	}
	if cfg.SensorRadius <= 0 {
		cfg.SensorRadius = def.SensorRadius
	}
	if cfg.StepsPerMeter <= 0 {
		cfg.StepsPerMeter = def.StepsPerMeter
	}
	if cfg.PathSpeed <= 0 {
		cfg.PathSpeed = def.PathSpeed
	}
	return &Factory{st: st, cfg: cfg, log: log}
}

// CreatePlayer builds the single player entity at start. It faces the
// second waypoint of route when one exists.
func (f *Factory) CreatePlayer(start geom.Vec, route []path.Point, looping bool, health int) (ecs.EntityID, error) {
	if _, ok := f.st.Player(); ok {
		return 0, ErrPlayerExists
	}
	st := f.st
	id := st.ECS.CreateEntity()

	facing := geom.Vec{X: 1}
	if len(route) > 1 {
		if d := route[1].Pos().Sub(route[0].Pos()).Normalize(); !d.IsZero() {
			facing = d
		}
	}

	st.Positions.Set(id, &component.Position{X: start.X, Y: start.Y})
	st.Velocities.Set(id, &component.Velocity{})
	st.AttachBody(id, component.KindPlayer, physics.BodyDef{
		Shape:    physics.Box(f.cfg.PlayerSize, f.cfg.PlayerSize),
		Position: start,
		Category: physics.CategoryPlayer,
		Mask:     physics.MaskAll,
	})
	st.StepInputs.Set(id, &component.StepInput{FacingX: facing.X, FacingY: facing.Y})
	st.Drawables.Set(id, &component.Drawable{Sprite: "player"})
	if len(route) > 0 {
		st.Followers.Set(id, &component.PathFollower{
			Path:    route,
			Speed:   f.cfg.PathSpeed,
			Looping: looping,
		})
	}
	st.Pedometers.Set(id, &component.Pedometer{StepsPerMeter: f.cfg.StepsPerMeter})
	st.Healths.Set(id, &component.Health{Current: health, Max: health})

	st.ECS.Tag(id, TagPlayer)
	st.ECS.AddEntity(id)
	st.player = id
	return id, nil
}

// CreateWall builds a static solid block covering r.
func (f *Factory) CreateWall(r geom.Rect) ecs.EntityID {
	st := f.st
	id := st.ECS.CreateEntity()
	c := r.Center()
	st.Positions.Set(id, &component.Position{X: c.X, Y: c.Y})
	st.AttachBody(id, component.KindWall, physics.BodyDef{
		Shape:    physics.Box(r.W, r.H),
		Position: c,
		Static:   true,
		Category: physics.CategoryWall,
		Mask:     physics.MaskAll,
	})
	st.ECS.Tag(id, TagWall)
	st.ECS.AddEntity(id)
	return id
}

// CreatePlacement builds a static sensor for an authored placement.
func (f *Factory) CreatePlacement(p data.Placement) (ecs.EntityID, error) {
	var (
		kind     component.EntityKind
		category uint32
		tag      string
	)
	switch p.Kind {
	case data.PlaceEnemy:
		kind, category, tag = component.KindEnemy, physics.CategoryEnemy, TagEnemy
	case data.PlaceTreasure:
		kind, category, tag = component.KindTreasure, physics.CategoryTreasure, TagTreasure
	case data.PlaceTrap:
		kind, category, tag = component.KindTrap, physics.CategoryTrap, TagTrap
	case data.PlaceCheckpoint:
		kind, category, tag = component.KindCheckpoint, physics.CategoryCheckpoint, TagCheckpoint
	default:
		return 0, fmt.Errorf("placement %q: unknown kind %q", p.Name, p.Kind)
	}

	st := f.st
	id := st.ECS.CreateEntity()
	pos := geom.Vec{X: p.X, Y: p.Y}
	r := p.Radius
	if r <= 0 {
		r = f.cfg.SensorRadius
	}
	st.Positions.Set(id, &component.Position{X: pos.X, Y: pos.Y})
	st.AttachBody(id, kind, physics.BodyDef{
		Shape:    physics.Circle(r),
		Position: pos,
		Static:   true,
		Sensor:   true,
		Category: category,
		Mask:     physics.CategoryPlayer,
	})
	st.Drawables.Set(id, &component.Drawable{Sprite: tag})

	m := &Meta{Kind: kind, Name: p.Name, Coins: p.Coins, Item: p.Item, Damage: p.Damage}
	if p.Enemy != nil {
		e := *p.Enemy
		m.Enemy = &e
		st.Healths.Set(id, &component.Health{Current: e.Health, Max: e.Health})
	}
	st.meta[id] = m

	st.ECS.Tag(id, tag)
	st.ECS.AddEntity(id)
	return id, nil
}

// Populate builds walls from the map, every placement of lvl and the player
// on route.
func (f *Factory) Populate(lvl *data.Level, route []path.Point, stats game.PlayerStats) (ecs.EntityID, error) {
	walls := 0
	if f.st.Map != nil {
		for _, r := range f.st.Map.WallRects() {
			f.CreateWall(r)
			walls++
		}
	}
	for _, p := range lvl.Placements {
		if _, err := f.CreatePlacement(p); err != nil {
			return 0, err
		}
	}
	start := geom.Vec{X: lvl.StartX, Y: lvl.StartY}
	if start.IsZero() && len(route) > 0 {
		start = route[0].Pos()
	}
	player, err := f.CreatePlayer(start, route, lvl.Looping, stats.MaxHealth)
	if err != nil {
		return 0, err
	}
	f.log.Info("world populated",
		zap.String("level", lvl.Name),
		zap.Int("walls", walls),
		zap.Int("placements", len(lvl.Placements)),
		zap.Stringer("player", player),
	)
	return player, nil
}

package system

import (
	"time"

	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/physics"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

// StepConfig converts accumulated steps into world displacement.
type StepConfig struct {
	StepsPerUnit    int64
	PixelsPerUnit   float64
	MaxUnitsPerTick int
}

func DefaultStepConfig() StepConfig {
	return StepConfig{StepsPerUnit: 5, PixelsPerUnit: 4, MaxUnitsPerTick: 3}
}

// StepBridgeSystem turns accumulated pedometer steps into discrete moves in
// the facing direction, at most MaxUnitsPerTick per tick. A move that would
// overlap a wall stops processing for the tick; the unspent steps stay
// accumulated. Phase 2 (Update).
type StepBridgeSystem struct {
	ws      *world.State
	bus     *event.Bus
	cfg     StepConfig
	tracked *ecs.EntitySet
	halted  func() bool
	log     *zap.Logger
}

func NewStepBridgeSystem(ws *world.State, bus *event.Bus, cfg StepConfig, log *zap.Logger) *StepBridgeSystem {
	def := DefaultStepConfig()
	if cfg.StepsPerUnit <= 0 {
		cfg.StepsPerUnit = def.StepsPerUnit
	}
	if cfg.PixelsPerUnit <= 0 {
		cfg.PixelsPerUnit = def.PixelsPerUnit
	}
	if cfg.MaxUnitsPerTick <= 0 {
		cfg.MaxUnitsPerTick = def.MaxUnitsPerTick
	}
	s := &StepBridgeSystem{
		ws:      ws,
		bus:     bus,
		cfg:     cfg,
		tracked: ecs.NewEntitySet(),
		log:     log,
	}
	event.Subscribe(bus, s.onDirectionChanged)
	return s
}

// SetHalt installs a predicate that suspends unit processing while it
// returns true. Steps keep accumulating.
func (s *StepBridgeSystem) SetHalt(fn func() bool) { s.halted = fn }

func (s *StepBridgeSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *StepBridgeSystem) Requires() ecs.Mask {
	return ecs.MaskOf(ecs.KindPosition, ecs.KindBody, ecs.KindStepInput, ecs.KindPedometer)
}

func (s *StepBridgeSystem) Track(id ecs.EntityID)   { s.tracked.Add(id) }
func (s *StepBridgeSystem) Untrack(id ecs.EntityID) { s.tracked.Remove(id) }

func (s *StepBridgeSystem) Update(_ time.Duration) {
	if s.halted != nil && s.halted() {
		return
	}
	s.tracked.Each(s.advance)
}

func (s *StepBridgeSystem) advance(id ecs.EntityID) {
	ws := s.ws
	ped, ok1 := ws.Pedometers.Get(id)
	in, ok2 := ws.StepInputs.Get(id)
	pos, ok3 := ws.Positions.Get(id)
	bc, ok4 := ws.Bodies.Get(id)
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return
	}

	units := int(ped.AccumulatedSteps / s.cfg.StepsPerUnit)
	if units > s.cfg.MaxUnitsPerTick {
		units = s.cfg.MaxUnitsPerTick
	}
	if units <= 0 {
		return
	}
	dir := geom.Vec{X: in.FacingX, Y: in.FacingY}.Normalize()
	if dir.IsZero() {
		return
	}
	body, ok := ws.Space.Body(bc.Handle)
	if !ok {
		s.log.Warn("step-driven entity has no physics body", zap.Stringer("entity", id))
		return
	}

	shape := body.Shape()
	cur := geom.Vec{X: pos.X, Y: pos.Y}
	moved, blocked := 0, false
	for i := 0; i < units; i++ {
		next := cur.Add(dir.Scale(s.cfg.PixelsPerUnit))
		if ws.Space.OverlapsSolid(shape, next, physics.CategoryWall) {
			blocked = true
			break
		}
		cur = next
		ped.AccumulatedSteps -= s.cfg.StepsPerUnit
		moved++
	}

	if moved > 0 {
		pos.X, pos.Y = cur.X, cur.Y
		ws.Space.SetPosition(bc.Handle, cur)
		if ped.StepsPerMeter > 0 {
			ped.TotalDistance += float64(int64(moved)*s.cfg.StepsPerUnit) / ped.StepsPerMeter
		}
	}
	if blocked {
		s.log.Debug("step move blocked by wall",
			zap.Stringer("entity", id),
			zap.Int("moved", moved),
			zap.Int64("accumulated", ped.AccumulatedSteps),
		)
	}
	event.Emit(s.bus, event.UnitsMoved{Entity: id, Units: moved, Blocked: blocked})
}

func (s *StepBridgeSystem) onDirectionChanged(ev event.DirectionChanged) {
	in, ok := s.ws.StepInputs.Get(ev.Entity)
	if !ok {
		return
	}
	in.FacingX, in.FacingY = ev.DX, ev.DY
	if v, ok := s.ws.Velocities.Get(ev.Entity); ok {
		v.VX, v.VY = 0, 0
	}
	if bc, ok := s.ws.Bodies.Get(ev.Entity); ok {
		s.ws.Space.SetVelocity(bc.Handle, geom.Vec{})
	}
}

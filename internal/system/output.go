package system

import (
	"time"

	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/feed"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/world"
)

// StateView exposes the current session state read-only.
type StateView interface {
	State() game.State
}

// OutputConfig controls frame assembly.
type OutputConfig struct {
	FrameDuration time.Duration // per animation frame while moving
	Frames        int           // animation frames in the walk cycle
	TileMargin    int
}

func DefaultOutputConfig() OutputConfig {
	return OutputConfig{FrameDuration: 150 * time.Millisecond, Frames: 4, TileMargin: 1}
}

// OutputSystem assembles a feed.Frame from the world, the camera, the
// session state and the UI events raised during the tick, and publishes it.
// It also advances the player's walk animation. Phase 4 (Output).
type OutputSystem struct {
	ws    *world.State
	bus   *event.Bus
	cam   *CameraSystem
	view  StateView
	sink  feed.Sink
	cfg   OutputConfig
	ticks uint64
}

func NewOutputSystem(ws *world.State, bus *event.Bus, cam *CameraSystem, view StateView, sink feed.Sink, cfg OutputConfig) *OutputSystem {
	def := DefaultOutputConfig()
	if cfg.FrameDuration <= 0 {
		cfg.FrameDuration = def.FrameDuration
	}
	if cfg.Frames <= 0 {
		cfg.Frames = def.Frames
	}
	return &OutputSystem{ws: ws, bus: bus, cam: cam, view: view, sink: sink, cfg: cfg}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(dt time.Duration) {
	s.ticks++
	f := feed.Frame{Tick: s.ticks}

	if s.view != nil {
		st := s.view.State()
		f.Mode, f.Depth, f.DungeonLength = st.Mode, st.Depth, st.DungeonLength
	}

	if player, ok := s.ws.Player(); ok {
		f.Player = s.playerFrame(player, dt)
	}

	if s.cam != nil {
		cam := s.cam.Camera()
		f.Camera = cam.Transform()
		if m := s.ws.Map; m != nil {
			f.Tiles = cam.VisibleTiles(m.TileSize, m.WidthInTiles, m.HeightInTiles, s.cfg.TileMargin)
		}
	}

	for _, ev := range event.Pending[event.HealthChanged](s.bus) {
		f.Events = append(f.Events, feed.UIEvent{Kind: feed.UIHealth, Current: ev.Current, Max: ev.Max})
	}
	for _, ev := range event.Pending[event.ScoreChanged](s.bus) {
		f.Events = append(f.Events, feed.UIEvent{Kind: feed.UIScore, Coins: ev.Coins, XP: ev.XP, Level: ev.Level})
	}
	for _, ev := range event.Pending[event.Message](s.bus) {
		f.Events = append(f.Events, feed.UIEvent{Kind: feed.UIMessage, Text: ev.Text})
	}

	if s.sink != nil {
		s.sink.Publish(f)
	}
}

func (s *OutputSystem) playerFrame(player ecs.EntityID, dt time.Duration) feed.Player {
	var p feed.Player
	if pos, ok := s.ws.Positions.Get(player); ok {
		p.X, p.Y = pos.X, pos.Y
	}
	if in, ok := s.ws.StepInputs.Get(player); ok {
		p.DirX, p.DirY = in.FacingX, in.FacingY
	}
	for _, ev := range event.Pending[event.UnitsMoved](s.bus) {
		if ev.Entity == player && ev.Units > 0 {
			p.Moving = true
		}
	}
	if v, ok := s.ws.Velocities.Get(player); ok && (v.VX != 0 || v.VY != 0) {
		p.Moving = true
	}
	if d, ok := s.ws.Drawables.Get(player); ok {
		if p.Moving {
			d.FrameTime += dt
			for d.FrameTime >= s.cfg.FrameDuration {
				d.FrameTime -= s.cfg.FrameDuration
				d.Frame = (d.Frame + 1) % s.cfg.Frames
			}
		} else {
			d.Frame, d.FrameTime = 0, 0
		}
		p.Sprite, p.Frame = d.Sprite, d.Frame
	}
	return p
}

// Package session builds the simulation context for one run and routes
// simulation events into the game reducer.
package session

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stepcrawl/server/internal/camera"
	"github.com/stepcrawl/server/internal/combat"
	"github.com/stepcrawl/server/internal/config"
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/core/event"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/data"
	"github.com/stepcrawl/server/internal/feed"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/path"
	"github.com/stepcrawl/server/internal/persist"
	"github.com/stepcrawl/server/internal/scripting"
	"github.com/stepcrawl/server/internal/sensor"
	"github.com/stepcrawl/server/internal/system"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var ErrStopped = errors.New("session stopped")

// Config tunes one session.
type Config struct {
	Step             system.StepConfig
	ArrivalThreshold float64
	FallbackProgress float64 // path progress granted per tick without a sensor
	BossRoundEvery   time.Duration
	MaxReadsPerTick  int
	SensorQueueSize  int
	PaceWindow       time.Duration
	Seed             int64 // 0 derives the seed from the run id
	RunID            string
	DungeonLength    int // 0 uses the level's
	Stats            game.PlayerStats
	Factory          world.FactoryConfig
	Camera           camera.Config
	Combat           combat.Config
	Output           system.OutputConfig
	PersistInterval  int
	SnapshotKey      string
	Language         language.Tag
}

// ConfigFrom maps the file configuration onto a session Config.
func ConfigFrom(c *config.Config) Config {
	sim, g := c.Simulation, c.Game
	return Config{
		Step: system.StepConfig{
			StepsPerUnit:    sim.StepsPerUnit,
			PixelsPerUnit:   sim.PixelsPerUnit,
			MaxUnitsPerTick: sim.MaxUnitsPerTick,
		},
		ArrivalThreshold: sim.ArrivalThreshold,
		FallbackProgress: sim.FallbackProgress,
		MaxReadsPerTick:  sim.MaxReadsPerTick,
		SensorQueueSize:  sim.SensorQueueSize,
		PaceWindow:       sim.PaceWindow,
		Seed:             sim.Seed,
		DungeonLength:    g.DungeonLength,
		Stats: game.PlayerStats{
			Health:    g.Health,
			MaxHealth: g.Health,
			Strength:  g.Strength,
			Agility:   g.Agility,
			Speed:     g.Speed,
			Level:     1,
		},
		Factory: world.FactoryConfig{
			PlayerSize:    g.PlayerSize,
			StepsPerMeter: g.StepsPerMeter,
			PathSpeed:     sim.PathSpeed,
		},
		Camera:          c.Camera,
		Combat:          c.Combat,
		PersistInterval: c.Persistence.IntervalTicks,
		SnapshotKey:     c.Persistence.Key,
	}
}

// Deps are the collaborators of a session. Level is required.
type Deps struct {
	Level   *data.Level
	Map     *data.MapData
	Items   *data.ItemTable
	Scripts *scripting.Engine
	Store   persist.Store   // snapshot loaded by Start
	Writer  *persist.Writer // nil disables persistence
	Sink    feed.Sink
	Source  sensor.Source
}

// Session is one run: the world, its systems, the game state and the glue
// between them. All methods except Stop must be called from the tick
// goroutine.
type Session struct {
	cfg      Config
	log      *zap.Logger
	ws       *world.State
	bus      *event.Bus
	runner   *coresys.Runner
	camera   *system.CameraSystem
	persist  *system.PersistenceSystem
	reducer  game.Reducer
	resolver *combat.Resolver
	rng      *rand.Rand
	printer  *message.Printer

	level   *data.Level
	route   []path.Point
	items   *data.ItemTable
	scripts *scripting.Engine
	ownVM   bool
	store   persist.Store
	writer  *persist.Writer
	source  sensor.Source
	queue   *sensor.Queue
	pace    *sensor.PaceMeter
	link    *sensor.Link

	player     ecs.EntityID
	state      game.State
	stats      game.PlayerStats
	seq        int64
	encounters int
	lastPos    geom.Vec
	carry      float64
	bossClock  time.Duration
	stopped    bool
}

func New(cfg Config, deps Deps, log *zap.Logger) (*Session, error) {
	if deps.Level == nil {
		return nil, errors.New("session requires a level")
	}
	route, err := deps.Level.BuildPath()
	if err != nil {
		return nil, fmt.Errorf("build path %s: %w", deps.Level.Name, err)
	}
	if cfg.SnapshotKey == "" {
		cfg.SnapshotKey = "default"
	}
	if cfg.BossRoundEvery <= 0 {
		cfg.BossRoundEvery = time.Second
	}
	if cfg.SensorQueueSize <= 0 {
		cfg.SensorQueueSize = 64
	}
	if cfg.Combat == (combat.Config{}) {
		cfg.Combat = combat.DefaultConfig()
	}
	if cfg.Language == language.Und {
		cfg.Language = language.English
	}
	scripts, ownScripts := deps.Scripts, false
	if scripts == nil {
		if scripts, err = scripting.NewEngineFromSource("", log); err != nil {
			return nil, err
		}
		ownScripts = true
	}

	s := &Session{
		cfg:      cfg,
		log:      log,
		bus:      event.NewBus(),
		resolver: combat.NewResolver(cfg.Combat),
		printer:  message.NewPrinter(cfg.Language),
		level:    deps.Level,
		route:    route,
		items:    deps.Items,
		scripts:  scripts,
		ownVM:    ownScripts,
		store:    deps.Store,
		writer:   deps.Writer,
		source:   deps.Source,
		queue:    sensor.NewQueue(cfg.SensorQueueSize),
		pace:     sensor.NewPaceMeter(cfg.PaceWindow),
	}
	s.reducer = game.Reducer{Curve: scripts.XPForLevel}

	stats := cfg.Stats
	stats.Level = max(1, stats.Level)
	if stats.MaxHealth <= 0 {
		stats.MaxHealth = max(1, stats.Health)
	}
	if stats.Health <= 0 || stats.Health > stats.MaxHealth {
		stats.Health = stats.MaxHealth
	}
	if stats.XPToNextLevel <= 0 {
		stats.XPToNextLevel = scripts.XPForLevel(stats.Level)
	}
	s.stats = stats

	runID := cfg.RunID
	if runID == "" {
		runID = ulid.Make().String()
	}
	length := cfg.DungeonLength
	if length <= 0 {
		length = deps.Level.DungeonLength
	}
	s.state = game.NewState(runID, length, stats)

	seed := cfg.Seed
	if seed == 0 {
		h := fnv.New64a()
		h.Write([]byte(runID))
		seed = int64(h.Sum64())
	}
	s.rng = rand.New(rand.NewSource(seed))

	s.ws = world.NewState(log)
	s.ws.Map = deps.Map
	s.runner = coresys.NewRunner(s.ws.ECS)

	factory := world.NewFactory(s.ws, cfg.Factory, log)
	if s.player, err = factory.Populate(deps.Level, route, stats); err != nil {
		return nil, fmt.Errorf("populate world: %w", err)
	}
	if pos, ok := s.ws.Positions.Get(s.player); ok {
		s.lastPos = geom.Vec{X: pos.X, Y: pos.Y}
	}

	var mapW, mapH float64
	camCfg := cfg.Camera
	if deps.Map != nil {
		mapW, mapH = deps.Map.PixelSize()
	} else {
		camCfg.ClampToBounds = false
	}
	s.camera = system.NewCameraSystem(s.ws, camera.New(camCfg, mapW, mapH))

	s.registerSystems(deps.Sink)
	s.subscribe()

	log.Info("session created",
		zap.String("run", runID),
		zap.String("level", deps.Level.Name),
		zap.Int("dungeon_length", length),
		zap.Int("waypoints", len(route)),
		zap.Int64("seed", seed),
	)
	return s, nil
}

// registerSystems fixes the per-tick order. Within a phase systems run in
// the order registered here.
func (s *Session) registerSystems(sink feed.Sink) {
	r, ws, log := s.runner, s.ws, s.log

	r.Register(system.NewInputSystem(ws, s.queue, s.pace, s.cfg.MaxReadsPerTick, log))
	r.Register(system.NewEventDispatchSystem(s.bus))

	bridge := system.NewStepBridgeSystem(ws, s.bus, s.cfg.Step, log)
	bridge.SetHalt(s.movementHalted)
	r.Register(bridge)
	r.Register(system.NewMovementSystem(ws, log))
	r.Register(system.NewPathFollowSystem(ws, s.bus, s.cfg.ArrivalThreshold, log))
	r.Register(system.NewCollisionSystem(ws, s.bus, log))

	r.Register(s.camera)
	r.Register(s)

	r.Register(system.NewOutputSystem(ws, s.bus, s.camera, s, sink, s.cfg.Output))
	if s.writer != nil {
		s.persist = system.NewPersistenceSystem(s, s.writer, s.cfg.PersistInterval, log)
		r.Register(s.persist)
	}
	r.Register(system.NewCleanupSystem(ws.ECS, log))
}

// Start restores the persisted snapshot, if any, and connects the sensor.
// A failed load is logged and the run starts fresh.
func (s *Session) Start(ctx context.Context) error {
	if s.stopped {
		return ErrStopped
	}
	if s.store != nil {
		snap, err := s.store.Load(ctx, s.cfg.SnapshotKey)
		switch {
		case errors.Is(err, persist.ErrNoSnapshot):
			s.log.Info("no snapshot, starting new run", zap.String("run", s.state.RunID))
		case err != nil:
			s.log.Warn("snapshot load failed, starting new run", zap.Error(err))
		case snap.Terminal():
			s.log.Info("previous run complete, starting new run",
				zap.String("previous", snap.RunID),
				zap.String("run", s.state.RunID),
			)
		default:
			s.Dispatch(game.LoadState{Snapshot: snap})
			s.relocate(s.state.Depth)
			if s.state.Mode == game.ModeEncounter {
				s.fight(0)
			}
			s.log.Info("run resumed",
				zap.String("run", s.state.RunID),
				zap.String("mode", string(s.state.Mode)),
				zap.Int("depth", s.state.Depth),
			)
		}
	}
	s.enterBossIfDue()
	s.link = sensor.Connect(s.source, s.queue, s.log)
	return nil
}

// Tick advances the simulation by dt.
func (s *Session) Tick(dt time.Duration) error {
	if s.stopped {
		return ErrStopped
	}
	s.runner.Tick(dt)
	return nil
}

// Stop unsubscribes the sensor and submits the final snapshot unless the run
// is paused. Later ticks fail with ErrStopped. Stop is idempotent.
func (s *Session) Stop() game.State {
	if s.stopped {
		return s.state
	}
	s.stopped = true
	if s.link != nil {
		s.link.Disconnect()
	}
	if s.persist != nil {
		s.persist.SaveNow(s.state)
	}
	if s.ownVM {
		s.scripts.Close()
	}
	s.log.Info("session stopped",
		zap.String("run", s.state.RunID),
		zap.String("mode", string(s.state.Mode)),
		zap.Int("depth", s.state.Depth),
		zap.Uint64("ticks", s.runner.Ticks()),
	)
	return s.state
}

// State returns the current game state.
func (s *Session) State() game.State { return s.state }

func (s *Session) World() *world.State { return s.ws }

func (s *Session) Bus() *event.Bus { return s.bus }

func (s *Session) Player() ecs.EntityID { return s.player }

func (s *Session) Route() []path.Point { return s.route }

func (s *Session) Ticks() uint64 { return s.runner.Ticks() }

// Queue is the sensor reading queue drained at tick start.
func (s *Session) Queue() *sensor.Queue { return s.queue }

func (s *Session) SensorAvailable() bool { return s.link != nil && s.link.Available() }

func (s *Session) Pause()  { s.Dispatch(game.Pause{}) }
func (s *Session) Resume() { s.Dispatch(game.Resume{}) }

func (s *Session) Equip(itemID string)   { s.Dispatch(game.Equip{ItemID: itemID}) }
func (s *Session) Unequip(itemID string) { s.Dispatch(game.Unequip{ItemID: itemID}) }

func (s *Session) movementHalted() bool {
	switch s.state.Mode {
	case game.ModeBoss, game.ModePaused, game.ModeComplete:
		return true
	}
	return false
}

// Dispatch applies e to the game state, journals it and raises UI events for
// whatever changed.
func (s *Session) Dispatch(e game.Event) {
	prev := s.state
	s.state = s.reducer.Reduce(prev, e)
	s.record(e)
	s.announce(prev, s.state)
}

func (s *Session) record(e game.Event) {
	if s.writer == nil {
		return
	}
	s.seq++
	entry, err := persist.NewJournalEntry(s.seq, e, time.Now())
	if err != nil {
		s.log.Warn("journal entry dropped", zap.String("event", game.Name(e)), zap.Error(err))
		return
	}
	s.writer.Record(s.state.RunID, entry)
}

func (s *Session) announce(prev, cur game.State) {
	if prev.Health != cur.Health || prev.MaxHealth != cur.MaxHealth {
		if h, ok := s.ws.Healths.Get(s.player); ok {
			h.Current, h.Max = cur.Health, cur.MaxHealth
		}
		event.Emit(s.bus, event.HealthChanged{Current: cur.Health, Max: cur.MaxHealth})
	}
	if prev.Coins != cur.Coins || prev.XP != cur.XP || prev.Level != cur.Level {
		event.Emit(s.bus, event.ScoreChanged{Coins: cur.Coins, XP: cur.XP, Level: cur.Level})
	}
	if cur.Level > prev.Level {
		s.say(msgLevelUp, cur.Level)
	}
	if prev.Mode != cur.Mode {
		s.log.Debug("mode changed",
			zap.String("from", string(prev.Mode)),
			zap.String("to", string(cur.Mode)),
			zap.Int("depth", cur.Depth),
		)
	}
}

// relocate puts the player on the route at depth units of travel and points
// it at the following waypoint. After a defeat this moves the follower's
// index backwards to the respawn segment.
func (s *Session) relocate(depth int) {
	if len(s.route) < 2 {
		return
	}
	p, seg := path.PointAt(s.route, float64(depth)*s.stepConfig().PixelsPerUnit)
	ws := s.ws
	if pos, ok := ws.Positions.Get(s.player); ok {
		pos.X, pos.Y = p.X, p.Y
	}
	if v, ok := ws.Velocities.Get(s.player); ok {
		v.VX, v.VY = 0, 0
	}
	if bc, ok := ws.Bodies.Get(s.player); ok {
		ws.Space.SetPosition(bc.Handle, p)
		ws.Space.SetVelocity(bc.Handle, geom.Vec{})
	}
	if f, ok := ws.Followers.Get(s.player); ok && seg >= 0 {
		f.CurrentIndex = seg
		f.Progress = 0
		if in, ok := ws.StepInputs.Get(s.player); ok {
			d := s.route[seg+1].Pos().Sub(s.route[seg].Pos()).Normalize()
			if !d.IsZero() {
				in.FacingX, in.FacingY = d.X, d.Y
			}
		}
	}
	s.lastPos = p
	s.carry = 0
}

func (s *Session) stepConfig() system.StepConfig {
	c := s.cfg.Step
	def := system.DefaultStepConfig()
	if c.StepsPerUnit <= 0 {
		c.StepsPerUnit = def.StepsPerUnit
	}
	if c.PixelsPerUnit <= 0 {
		c.PixelsPerUnit = def.PixelsPerUnit
	}
	if c.MaxUnitsPerTick <= 0 {
		c.MaxUnitsPerTick = def.MaxUnitsPerTick
	}
	return c
}

func (s *Session) say(format string, args ...any) {
	event.Emit(s.bus, event.Message{Text: s.printer.Sprintf(format, args...)})
}

package session

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/stepcrawl/server/internal/combat"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/data"
	"github.com/stepcrawl/server/internal/feed"
	"github.com/stepcrawl/server/internal/game"
	"github.com/stepcrawl/server/internal/geom"
	"github.com/stepcrawl/server/internal/path"
	"github.com/stepcrawl/server/internal/persist"
	"github.com/stepcrawl/server/internal/sensor"
	"go.uber.org/zap"
)

const dt = 50 * time.Millisecond

func corridor() *data.Level {
	return &data.Level{
		Name:          "corridor",
		DungeonLength: 60,
		Waypoints: []path.Point{
			{X: 0, Y: 0},
			{X: 40, Y: 0, Kind: path.Checkpoint},
			{X: 100, Y: 0, Kind: path.Encounter, Metadata: map[string]string{"enemy": "rat"}},
			{X: 400, Y: 0, Kind: path.Boss},
		},
		Placements: []data.Placement{
			{Kind: data.PlaceTreasure, Name: "purse", X: 60, Y: 0, Coins: 7, Item: "sword"},
			{Kind: data.PlaceTrap, Name: "flagstone", X: 160, Y: 0, Damage: 2},
		},
		Encounters: []game.Enemy{{Name: "rat", Level: 1, Health: 2, Damage: 1}},
		Boss:       game.Enemy{Name: "warden", Level: 2, Health: 3, Damage: 1},
	}
}

func items(t *testing.T) *data.ItemTable {
	t.Helper()
	tbl, err := data.NewItemTable([]data.ItemTemplate{{ID: "sword", Name: "Iron Sword", Slot: "weapon", Bonus: game.StatBonus{Strength: 2}}})
	if err != nil {
		t.Fatal(err)
	}
	return tbl
}

func testConfig() Config {
	return Config{
		FallbackProgress: 100,
		BossRoundEvery:   dt,
		MaxReadsPerTick:  8,
		Combat:           combat.DefaultConfig(),
		Seed:             42,
		RunID:            "run-test",
		Stats:            game.PlayerStats{Health: 100, MaxHealth: 100, Strength: 5, Agility: 5, Level: 1},
	}
}

func newSession(t *testing.T, cfg Config, deps Deps) *Session {
	t.Helper()
	if deps.Level == nil {
		deps.Level = corridor()
	}
	if deps.Items == nil {
		deps.Items = items(t)
	}
	s, err := New(cfg, deps, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func runUntilDone(t *testing.T, s *Session, limit int) {
	t.Helper()
	for i := 0; i < limit && !s.State().Terminal(); i++ {
		if err := s.Tick(dt); err != nil {
			t.Fatal(err)
		}
	}
}

type memStore struct {
	mu      sync.Mutex
	snap    *game.State
	loadErr error
	saves   []game.State
	journal []persist.JournalEntry
}

func (m *memStore) Save(_ context.Context, _ string, s game.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves = append(m.saves, s)
	return nil
}

func (m *memStore) Load(context.Context, string) (game.State, error) {
	if m.loadErr != nil {
		return game.State{}, m.loadErr
	}
	if m.snap == nil {
		return game.State{}, persist.ErrNoSnapshot
	}
	return *m.snap, nil
}

func (m *memStore) AppendEvents(_ context.Context, _ string, entries []persist.JournalEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = append(m.journal, entries...)
	return nil
}

func (m *memStore) LoadEvents(context.Context, string) ([]persist.JournalEntry, error) {
	return m.journal, nil
}

func TestFallbackRunCompletes(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.SensorAvailable() {
		t.Fatal("expected no sensor")
	}
	runUntilDone(t, s, 2000)

	st := s.State()
	if st.Mode != game.ModeComplete {
		t.Fatalf("expected complete run, got %s at depth %d", st.Mode, st.Depth)
	}
	if st.Depth < st.DungeonLength {
		t.Errorf("expected depth %d to reach the dungeon length %d", st.Depth, st.DungeonLength)
	}
	if st.CheckpointDepth == 0 {
		t.Error("expected the checkpoint waypoint recorded")
	}
	if st.TreasuresFound != 1 || len(st.Inventory) != 1 || st.Inventory[0].Template != "sword" {
		t.Errorf("expected the purse and its sword, got %+v", st.Inventory)
	}
	if st.TrapsTriggered != 1 {
		t.Errorf("expected one trap, got %d", st.TrapsTriggered)
	}
	// rat waypoint and the boss
	if st.Encounters != 2 {
		t.Errorf("expected 2 encounters, got %d", st.Encounters)
	}
	if st.Coins < 7 || st.Level < 1 {
		t.Errorf("unexpected rewards %+v", st)
	}

	ticks := s.Ticks()
	if err := s.Tick(dt); err != nil {
		t.Fatal(err)
	}
	if s.State().Mode != game.ModeComplete {
		t.Error("expected complete to be terminal")
	}
	if s.Ticks() != ticks+1 {
		t.Error("expected ticks to keep counting after completion")
	}
}

func TestSameSeedSameRun(t *testing.T) {
	a := newSession(t, testConfig(), Deps{})
	b := newSession(t, testConfig(), Deps{})
	a.Start(context.Background())
	b.Start(context.Background())
	for i := 0; i < 400; i++ {
		a.Tick(dt)
		b.Tick(dt)
	}
	if !reflect.DeepEqual(a.State(), b.State()) {
		t.Errorf("expected identical states:\n%+v\n%+v", a.State(), b.State())
	}
	pa, _ := a.World().Positions.Get(a.Player())
	pb, _ := b.World().Positions.Get(b.Player())
	if *pa != *pb {
		t.Errorf("expected identical positions, got %+v and %+v", pa, pb)
	}
}

func TestJournalReplaysToFinalState(t *testing.T) {
	store := &memStore{}
	w := persist.NewWriter(store, "k", time.Second, zap.NewNop())
	s := newSession(t, testConfig(), Deps{Store: store, Writer: w})
	s.Start(context.Background())
	runUntilDone(t, s, 2000)
	final := s.Stop()
	w.Flush(context.Background())

	if len(store.saves) != 1 || store.saves[0].Mode != game.ModeComplete {
		t.Fatalf("expected the final snapshot saved, got %d saves", len(store.saves))
	}

	var events []game.Event
	for i, je := range store.journal {
		if je.Seq != int64(i+1) {
			t.Fatalf("expected seq %d, got %d", i+1, je.Seq)
		}
		e, err := je.Event()
		if err != nil {
			t.Fatal(err)
		}
		events = append(events, e)
	}
	initial := game.NewState("run-test", 60, game.PlayerStats{Health: 100, MaxHealth: 100, Level: 1, XPToNextLevel: 100})
	if got := (game.Reducer{}).Replay(initial, events); !reflect.DeepEqual(got, final) {
		t.Errorf("expected journal replay to reproduce the run:\n got %+v\nwant %+v", got, final)
	}
}

func TestStartResumesSnapshot(t *testing.T) {
	snap := game.NewState("earlier", 60, game.PlayerStats{Health: 40, MaxHealth: 100, Level: 3, XPToNextLevel: 300})
	snap.Depth = 10
	snap.Coins = 12
	store := &memStore{snap: &snap}
	s := newSession(t, testConfig(), Deps{Store: store})
	if err := s.Start(context.Background()); err != nil {
		t.Fatal(err)
	}

	st := s.State()
	if st.RunID != "earlier" || st.Depth != 10 || st.Coins != 12 || st.Level != 3 || st.Health != 40 {
		t.Errorf("expected snapshot restored, got %+v", st)
	}
	// 10 units of 4 pixels along the route
	pos, _ := s.World().Positions.Get(s.Player())
	if pos.X != 40 || pos.Y != 0 {
		t.Errorf("expected player at (40,0), got %+v", pos)
	}
	h, _ := s.World().Healths.Get(s.Player())
	if h.Current != 40 || h.Max != 100 {
		t.Errorf("expected health component synced, got %+v", h)
	}
}

func TestStartIgnoresCompletedOrBrokenSnapshot(t *testing.T) {
	done := game.Reduce(game.NewState("old", 60, game.PlayerStats{Level: 1}), game.Complete{})
	for name, store := range map[string]*memStore{
		"complete": {snap: &done},
		"broken":   {loadErr: errors.New("checksum")},
		"missing":  {},
	} {
		t.Run(name, func(t *testing.T) {
			s := newSession(t, testConfig(), Deps{Store: store})
			if err := s.Start(context.Background()); err != nil {
				t.Fatal(err)
			}
			st := s.State()
			if st.RunID != "run-test" || st.Mode != game.ModeWalking || st.Depth != 0 {
				t.Errorf("expected a fresh run, got %+v", st)
			}
		})
	}
}

type liveSource struct{}

func (liveSource) IsAvailable() bool                     { return true }
func (liveSource) Subscribe(func(sensor.Reading)) func() { return func() {} }

func TestSensorStepsBecomeDepth(t *testing.T) {
	cfg := testConfig()
	sink := &feed.Latest{}
	s := newSession(t, cfg, Deps{Source: liveSource{}, Sink: sink})
	s.Start(context.Background())
	if !s.SensorAvailable() {
		t.Fatal("expected sensor")
	}

	at := time.Unix(1000, 0)
	s.Queue().Push(sensor.Reading{StepCount: 100, Timestamp: at})
	s.Queue().Push(sensor.Reading{StepCount: 112, Timestamp: at.Add(6 * time.Second)})
	s.Tick(dt)

	pos, _ := s.World().Positions.Get(s.Player())
	if pos.X != 8 || pos.Y != 0 {
		t.Errorf("expected 2 units to (8,0), got %+v", pos)
	}
	if s.State().Depth != 0 {
		t.Error("expected depth to follow on the next tick")
	}
	s.Tick(dt)
	if got := s.State().Depth; got != 2 {
		t.Errorf("expected depth 2, got %d", got)
	}
	ped, _ := s.World().Pedometers.Get(s.Player())
	if ped.AccumulatedSteps != 2 {
		t.Errorf("expected 2 steps carried, got %d", ped.AccumulatedSteps)
	}

	fr, ok := sink.Frame()
	if !ok || fr.Depth != 2 || fr.Tick != 2 {
		t.Errorf("expected published frame at depth 2, got %+v", fr)
	}
}

func TestPauseStopsProgress(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	s.Start(context.Background())
	for i := 0; i < 10; i++ {
		s.Tick(dt)
	}
	s.Pause()
	depth := s.State().Depth
	pos, _ := s.World().Positions.Get(s.Player())
	at := geom.Vec{X: pos.X, Y: pos.Y}
	for i := 0; i < 10; i++ {
		s.Tick(dt)
	}
	if s.State().Mode != game.ModePaused || s.State().Depth != depth {
		t.Errorf("expected paused at depth %d, got %s at %d", depth, s.State().Mode, s.State().Depth)
	}
	// progress granted before the pause still drains through the follower
	if geom.V(pos.X, pos.Y).Dist(at) > 6.01 {
		t.Errorf("expected the player to stop, moved from %v to (%v,%v)", at, pos.X, pos.Y)
	}
	s.Resume()
	for i := 0; i < 10; i++ {
		s.Tick(dt)
	}
	if s.State().Depth <= depth {
		t.Error("expected walking to continue after resume")
	}
}

func TestTrapNeverKills(t *testing.T) {
	lvl := corridor()
	lvl.Placements = []data.Placement{{Kind: data.PlaceTrap, X: 0, Y: 0, Damage: 50}}
	snap := game.NewState("hurt", 60, game.PlayerStats{Health: 3, MaxHealth: 100, Level: 1})
	s := newSession(t, testConfig(), Deps{Level: lvl, Store: &memStore{snap: &snap}})
	s.Start(context.Background())
	s.Tick(dt)
	s.Tick(dt)

	st := s.State()
	if st.TrapsTriggered != 1 || st.Health != 1 {
		t.Errorf("expected trap to leave 1 health, got %d after %d traps", st.Health, st.TrapsTriggered)
	}
}

func TestEquipThroughSession(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	s.Start(context.Background())
	for i := 0; i < 100 && len(s.State().Inventory) == 0; i++ {
		s.Tick(dt)
	}
	st := s.State()
	if len(st.Inventory) != 1 || st.Mode != game.ModeWalking {
		t.Fatalf("expected the sword picked up while walking, got %+v", st)
	}
	id := st.Inventory[0].ID
	s.Equip(id)
	if got := s.State(); len(got.EquippedItems) != 1 || len(got.Inventory) != 0 {
		t.Errorf("expected sword equipped, got %+v", got)
	}
	s.Unequip(id)
	if got := s.State(); len(got.EquippedItems) != 0 || len(got.Inventory) != 1 {
		t.Errorf("expected sword back in the inventory, got %+v", got)
	}
}

func TestStop(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	s.Start(context.Background())
	s.Tick(dt)
	a := s.Stop()
	b := s.Stop()
	if !reflect.DeepEqual(a, b) {
		t.Error("expected Stop to be idempotent")
	}
	if err := s.Tick(dt); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped, got %v", err)
	}
	if err := s.Start(context.Background()); !errors.Is(err, ErrStopped) {
		t.Errorf("expected ErrStopped from Start, got %v", err)
	}
	if !s.Queue().Closed() {
		t.Error("expected sensor queue closed")
	}
}

func TestNewRequiresLevel(t *testing.T) {
	if _, err := New(testConfig(), Deps{}, zap.NewNop()); err == nil {
		t.Error("expected error without a level")
	}
	lvl := corridor()
	lvl.Waypoints = lvl.Waypoints[:1]
	if _, err := New(testConfig(), Deps{Level: lvl}, zap.NewNop()); !errors.Is(err, data.ErrNoPath) {
		t.Errorf("expected ErrNoPath, got %v", err)
	}
}

func TestUpdateSystemOrder(t *testing.T) {
	s := newSession(t, testConfig(), Deps{})
	var got []string
	for _, sys := range s.runner.Systems() {
		if sys.Phase() == coresys.PhaseUpdate {
			got = append(got, fmt.Sprintf("%T", sys))
		}
	}
	want := []string{
		"*system.StepBridgeSystem",
		"*system.MovementSystem",
		"*system.PathFollowSystem",
		"*system.CollisionSystem",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected update order %v, got %v", want, got)
	}
}

func TestPersistsWalkingNotPaused(t *testing.T) {
	cfg := testConfig()
	cfg.PersistInterval = 100
	store := &memStore{}
	w := persist.NewWriter(store, "k", time.Second, zap.NewNop())
	s := newSession(t, cfg, Deps{Store: store, Writer: w})
	s.Start(context.Background())
	for i := 0; i < 5; i++ {
		s.Tick(dt)
	}
	depth := s.State().Depth
	if depth == 0 {
		t.Fatal("expected the walk to gain depth")
	}
	s.Pause()
	s.Tick(dt)
	s.Stop()
	w.Flush(context.Background())

	if len(store.saves) == 0 {
		t.Fatal("expected a snapshot saved")
	}
	last := store.saves[len(store.saves)-1]
	if last.Mode != game.ModeWalking || last.Depth != depth {
		t.Errorf("expected walking at depth %d persisted, got %s at %d", depth, last.Mode, last.Depth)
	}
}

package game

import "testing"

func walking(depth, length int) State {
	s := NewState("run", length, PlayerStats{Health: 50, MaxHealth: 50, Level: 1})
	s.Depth = depth
	return s
}

func TestStepEntersBoss(t *testing.T) {
	s := Reduce(walking(95, 100), Step{Payload: 10})
	if s.Depth != 105 {
		t.Errorf("expected depth 105, got %d", s.Depth)
	}
	if s.Mode != ModeBoss {
		t.Errorf("expected boss, got %s", s.Mode)
	}
}

func TestStepMonotonic(t *testing.T) {
	s := walking(0, 50)
	prev := 0
	for _, p := range []int{3, 0, -4, 7, 1, 40} {
		s = Reduce(s, Step{Payload: p})
		if s.Depth < prev {
			t.Fatalf("depth decreased from %d to %d", prev, s.Depth)
		}
		if (s.Depth >= 50) != (s.Mode == ModeBoss) {
			t.Fatalf("depth %d with mode %s", s.Depth, s.Mode)
		}
		prev = s.Depth
	}
}

func TestStepIgnoredOutsideWalking(t *testing.T) {
	s := walking(10, 100)
	s.Mode = ModeEncounter
	if got := Reduce(s, Step{Payload: 5}); got.Depth != 10 {
		t.Errorf("expected depth unchanged in encounter, got %d", got.Depth)
	}
}

func TestCompleteIsTerminal(t *testing.T) {
	s := Reduce(walking(10, 100), Complete{})
	if !s.Terminal() {
		t.Fatal("expected complete")
	}
	for _, e := range []Event{Step{Payload: 5}, Resume{}, Pause{}, Reward{XP: 10}, LoadState{Snapshot: walking(0, 100)}} {
		if got := Reduce(s, e); got.Mode != ModeComplete || got.Depth != 10 || got.XP != 0 {
			t.Errorf("%s changed a complete run: %+v", Name(e), got)
		}
	}
}

func TestPausedOnlyResumes(t *testing.T) {
	s := Reduce(walking(10, 100), Pause{})
	if s.Mode != ModePaused {
		t.Fatalf("expected paused, got %s", s.Mode)
	}
	if got := Reduce(s, Step{Payload: 5}); got.Depth != 10 {
		t.Error("expected step ignored while paused")
	}
	if got := Reduce(s, TreasureFound{Coins: 5}); got.Coins != 0 {
		t.Error("expected treasure ignored while paused")
	}
	if got := Reduce(s, Resume{}); got.Mode != ModeWalking {
		t.Errorf("expected walking after resume, got %s", got.Mode)
	}
	if got := Reduce(walking(0, 10), Resume{}); got.Mode != ModeWalking {
		t.Error("expected resume outside pause to be a no-op")
	}
}

func TestEncounterFlow(t *testing.T) {
	rat := Enemy{Name: "rat", Health: 5, Damage: 3}
	s := Reduce(walking(10, 100), EncounterStarted{Enemy: rat})
	if s.Mode != ModeEncounter || s.CurrentEnemy == nil || s.Encounters != 1 {
		t.Fatalf("expected encounter with rat, got %+v", s)
	}

	s = Reduce(s, CombatResolved{Result: CombatResult{Outcome: PlayerHit}, DamageTaken: 3})
	if s.Health != 47 || s.CombatResult == nil {
		t.Errorf("expected health 47 with result kept, got %d", s.Health)
	}
	s = Reduce(s, CombatResolved{Result: CombatResult{Outcome: HitEnemy}, DamageDealt: 9})
	if s.CurrentEnemy.Health != 0 {
		t.Errorf("expected enemy health floored at 0, got %d", s.CurrentEnemy.Health)
	}

	s = Reduce(s, ResolveEncounter{})
	if s.Mode != ModeWalking || s.CombatResult != nil || s.CurrentEnemy != nil {
		t.Errorf("expected walking with combat cleared, got %+v", s)
	}
	if s.EnemiesDefeated != 1 {
		t.Errorf("expected 1 defeated, got %d", s.EnemiesDefeated)
	}
}

func TestBossFightKeepsMode(t *testing.T) {
	s := Reduce(walking(99, 100), Step{Payload: 1})
	s = Reduce(s, EncounterStarted{Enemy: Enemy{Name: "warden", Health: 30, Boss: true}})
	if s.Mode != ModeBoss || s.CurrentEnemy == nil {
		t.Fatalf("expected boss fight, got %s", s.Mode)
	}
	if again := Reduce(s, EncounterStarted{Enemy: Enemy{Name: "rat"}}); again.CurrentEnemy.Name != "warden" {
		t.Error("expected a second encounter ignored during the boss fight")
	}
	s = Reduce(s, BossDefeated{})
	if s.Mode != ModeComplete || s.CurrentEnemy != nil {
		t.Errorf("expected complete, got %s", s.Mode)
	}
}

func TestPlayerDefeatedReturnsToCheckpoint(t *testing.T) {
	s := walking(40, 100)
	s = Reduce(s, CheckpointReached{})
	s.Depth = 70
	s = Reduce(s, EncounterStarted{Enemy: Enemy{Name: "knight", Health: 20}})
	s = Reduce(s, CombatResolved{DamageTaken: 80})
	if s.Health != 0 {
		t.Fatalf("expected health 0, got %d", s.Health)
	}
	s = Reduce(s, PlayerDefeated{})
	if s.Mode != ModeWalking || s.Depth != 40 || s.Health != s.MaxHealth {
		t.Errorf("expected respawn at 40 with full health, got %+v", s)
	}
}

func TestCheckpointNeverMovesBack(t *testing.T) {
	s := walking(60, 100)
	s = Reduce(s, CheckpointReached{})
	s.Depth = 20
	s = Reduce(s, CheckpointReached{})
	if s.CheckpointDepth != 60 {
		t.Errorf("expected checkpoint 60, got %d", s.CheckpointDepth)
	}
}

func TestRewardLevelsUp(t *testing.T) {
	r := Reducer{Curve: func(level int) int { return 10 * level }}
	s := walking(0, 100)
	s = r.Reduce(s, Reward{XP: 35, Coins: 4})
	// 35 -> level 2 (10 spent) -> level 3 (20 spent), 5 left toward 30
	if s.Level != 3 || s.XP != 5 || s.XPToNextLevel != 30 {
		t.Errorf("expected level 3 with 5/30 xp, got level %d %d/%d", s.Level, s.XP, s.XPToNextLevel)
	}
	if s.Coins != 4 {
		t.Errorf("expected 4 coins, got %d", s.Coins)
	}
}

func TestTreasureAndTrap(t *testing.T) {
	s := walking(0, 100)
	s = Reduce(s, TreasureFound{Coins: 12, Item: &Item{ID: "i1", Name: "Iron Sword", Slot: "weapon"}})
	if s.Coins != 12 || len(s.Inventory) != 1 || s.TreasuresFound != 1 {
		t.Errorf("expected coins and item collected, got %+v", s)
	}
	s = Reduce(s, TrapSprung{Damage: 7})
	if s.Health != 43 || s.TrapsTriggered != 1 {
		t.Errorf("expected 43 health after trap, got %d", s.Health)
	}
}

func TestEquipReplacesSlot(t *testing.T) {
	s := walking(0, 100)
	s.Inventory = []Item{
		{ID: "a", Slot: "weapon", Bonus: StatBonus{Strength: 2}},
		{ID: "b", Slot: "weapon", Bonus: StatBonus{Strength: 4}},
		{ID: "c", Slot: ""},
	}
	s = Reduce(s, Equip{ItemID: "a"})
	s = Reduce(s, Equip{ItemID: "b"})
	if len(s.EquippedItems) != 1 || s.EquippedItems[0].ID != "b" {
		t.Fatalf("expected only b equipped, got %+v", s.EquippedItems)
	}
	if indexOf(s.Inventory, "a") < 0 {
		t.Error("expected a back in the inventory")
	}
	if got := Reduce(s, Equip{ItemID: "missing"}); len(got.EquippedItems) != 1 {
		t.Error("expected unknown item ignored")
	}

	eff := PlayerStats{Strength: 5}.Effective(s.EquippedItems)
	if eff.Strength != 9 {
		t.Errorf("expected effective strength 9, got %d", eff.Strength)
	}

	s = Reduce(s, Unequip{ItemID: "b"})
	if len(s.EquippedItems) != 0 || indexOf(s.Inventory, "b") < 0 {
		t.Errorf("expected b unequipped, got %+v", s)
	}
}

func TestReduceDoesNotMutateInput(t *testing.T) {
	s := walking(0, 100)
	s.Inventory = []Item{{ID: "a", Slot: "weapon"}}
	before := len(s.Inventory)
	_ = Reduce(s, Equip{ItemID: "a"})
	if len(s.Inventory) != before || s.Inventory[0].ID != "a" {
		t.Error("expected input inventory untouched")
	}
}

func TestLoadStateMerges(t *testing.T) {
	cur := walking(0, 100)
	snap := State{Depth: 42, Coins: 9, Mode: ModeWalking}
	s := Reduce(cur, LoadState{Snapshot: snap})
	if s.Depth != 42 || s.Coins != 9 {
		t.Errorf("expected snapshot values, got %+v", s)
	}
	if s.RunID != "run" || s.DungeonLength != 100 || s.MaxHealth != 50 || s.Level != 1 {
		t.Errorf("expected identity fields kept from current state, got %+v", s)
	}
	if s.Inventory == nil || s.EquippedItems == nil {
		t.Error("expected non-nil item lists")
	}
}

func TestReplay(t *testing.T) {
	events := []Event{
		Step{Payload: 30},
		CheckpointReached{},
		EncounterStarted{Enemy: Enemy{Name: "rat", Health: 1}},
		CombatResolved{Result: CombatResult{Outcome: HitEnemy}, DamageDealt: 1},
		Reward{XP: 10, Coins: 3},
		ResolveEncounter{},
		Step{Payload: 80},
	}
	a := Reducer{}.Replay(walking(0, 100), events)
	b := Reducer{}.Replay(walking(0, 100), events)
	if a.Depth != 110 || a.Mode != ModeBoss || a.CheckpointDepth != 30 || a.EnemiesDefeated != 1 {
		t.Errorf("unexpected replay result %+v", a)
	}
	if a.Depth != b.Depth || a.XP != b.XP || a.Coins != b.Coins || a.Mode != b.Mode {
		t.Error("expected identical replays")
	}
}

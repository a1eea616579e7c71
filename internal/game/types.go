// Package game holds the run's session state and the pure reducer that is
// its only mutator.
package game

// Mode is the discrete session state.
type Mode string

const (
	ModeWalking   Mode = "walking"
	ModeEncounter Mode = "encounter"
	ModeBoss      Mode = "boss"
	ModeComplete  Mode = "complete"
	ModePaused    Mode = "paused"
)

// StatBonus is the stat delta an equipped item grants.
type StatBonus struct {
	Health   int `json:"health,omitempty" yaml:"health"`
	Strength int `json:"strength,omitempty" yaml:"strength"`
	Agility  int `json:"agility,omitempty" yaml:"agility"`
	Speed    int `json:"speed,omitempty" yaml:"speed"`
}

// Item is one owned item instance.
type Item struct {
	ID       string    `json:"id"`
	Template string    `json:"template"`
	Name     string    `json:"name"`
	Slot     string    `json:"slot,omitempty"`
	Bonus    StatBonus `json:"bonus"`
}

// Enemy is the combat-facing description of an opponent.
type Enemy struct {
	Name   string `json:"name" yaml:"name"`
	Level  int    `json:"level" yaml:"level"`
	Health int    `json:"health" yaml:"health"`
	Damage int    `json:"damage" yaml:"damage"`
	Boss   bool   `json:"boss,omitempty" yaml:"boss"`
}

// CombatOutcome is the result of one combat resolution.
type CombatOutcome string

const (
	Dodged    CombatOutcome = "dodged"
	HitEnemy  CombatOutcome = "hit_enemy"
	PlayerHit CombatOutcome = "player_hit"
)

// CombatResult is the last resolved exchange, kept in state for display
// until the encounter is resolved.
type CombatResult struct {
	Outcome     CombatOutcome `json:"outcome"`
	Enemy       Enemy         `json:"enemy"`
	DodgeChance float64       `json:"dodgeChance"`
	HitChance   float64       `json:"hitChance"`
	Roll        float64       `json:"roll"`
}

// PlayerStats are the player's base stats. Effective stats are derived on
// demand from these plus equipped item bonuses.
type PlayerStats struct {
	Health        int     `json:"health"`
	MaxHealth     int     `json:"maxHealth"`
	Strength      int     `json:"strength"`
	Agility       int     `json:"agility"`
	Speed         int     `json:"speed"`
	Pace          float64 `json:"pace"`
	XP            int     `json:"xp"`
	XPToNextLevel int     `json:"xpToNextLevel"`
	Level         int     `json:"level"`
	Coins         int     `json:"coins"`
}

// Effective returns stats with the bonuses of equipped added.
func (s PlayerStats) Effective(equipped []Item) PlayerStats {
	out := s
	for _, it := range equipped {
		out.MaxHealth += it.Bonus.Health
		out.Strength += it.Bonus.Strength
		out.Agility += it.Bonus.Agility
		out.Speed += it.Bonus.Speed
	}
	return out
}

// State is one run's session record. It is persisted as a flat JSON
// snapshot.
type State struct {
	RunID           string        `json:"runId"`
	Mode            Mode          `json:"mode"`
	Depth           int           `json:"depth"`
	DungeonLength   int           `json:"dungeonLength"`
	CheckpointDepth int           `json:"checkpointDepth"`
	XP              int           `json:"xp"`
	XPToNextLevel   int           `json:"xpToNextLevel"`
	Level           int           `json:"level"`
	Coins           int           `json:"coins"`
	Health          int           `json:"health"`
	MaxHealth       int           `json:"maxHealth"`
	EquippedItems   []Item        `json:"equippedItems"`
	Inventory       []Item        `json:"inventory"`
	CurrentEnemy    *Enemy        `json:"currentEnemy,omitempty"`
	CombatResult    *CombatResult `json:"combatResult,omitempty"`
	Encounters      int           `json:"encounters"`
	EnemiesDefeated int           `json:"enemiesDefeated"`
	TreasuresFound  int           `json:"treasuresFound"`
	TrapsTriggered  int           `json:"trapsTriggered"`
}

// NewState returns the state of a fresh run.
func NewState(runID string, dungeonLength int, stats PlayerStats) State {
	return State{
		RunID:         runID,
		Mode:          ModeWalking,
		DungeonLength: dungeonLength,
		XP:            stats.XP,
		XPToNextLevel: stats.XPToNextLevel,
		Level:         max(1, stats.Level),
		Coins:         stats.Coins,
		Health:        stats.Health,
		MaxHealth:     stats.MaxHealth,
		EquippedItems: []Item{},
		Inventory:     []Item{},
	}
}

// Clone deep-copies the slices and pointers of s.
func (s State) Clone() State {
	out := s
	out.EquippedItems = append([]Item{}, s.EquippedItems...)
	out.Inventory = append([]Item{}, s.Inventory...)
	if s.CurrentEnemy != nil {
		e := *s.CurrentEnemy
		out.CurrentEnemy = &e
	}
	if s.CombatResult != nil {
		r := *s.CombatResult
		out.CombatResult = &r
	}
	return out
}

// Terminal reports whether the run has ended.
func (s State) Terminal() bool { return s.Mode == ModeComplete }

// Progress is the fraction of the dungeon walked, capped at 1.
func (s State) Progress() float64 {
	if s.DungeonLength <= 0 {
		return 0
	}
	return min(1, float64(s.Depth)/float64(s.DungeonLength))
}

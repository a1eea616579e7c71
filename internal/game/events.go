package game

// Event is the closed set of inputs to the reducer.
type Event interface {
	eventName() string
}

// Step adds walked depth. Payload is the number of depth units.
type Step struct{ Payload int }

// EncounterStarted enters combat with Enemy.
type EncounterStarted struct{ Enemy Enemy }

// CombatResolved records one resolved exchange and its damage.
type CombatResolved struct {
	Result      CombatResult
	DamageTaken int
	DamageDealt int
}

// ResolveEncounter returns to walking and clears the combat result.
type ResolveEncounter struct{}

// PlayerDefeated sends the player back to the last checkpoint at full health.
type PlayerDefeated struct{}

type BossDefeated struct{}

type Complete struct{}

type Pause struct{}

type Resume struct{}

// LoadState merges a persisted snapshot over the current state.
type LoadState struct{ Snapshot State }

// Reward grants experience and coins, levelling up as thresholds are crossed.
type Reward struct {
	XP    int
	Coins int
}

// CheckpointReached records the current depth as the respawn depth.
type CheckpointReached struct{}

// TreasureFound adds coins and, if Item is set, an inventory item.
type TreasureFound struct {
	Coins int
	Item  *Item
}

type TrapSprung struct{ Damage int }

// Equip moves an inventory item to the equipped list, replacing any item in
// the same slot.
type Equip struct{ ItemID string }

// Unequip moves an equipped item back to the inventory.
type Unequip struct{ ItemID string }

func (Step) eventName() string              { return "STEP" }
func (EncounterStarted) eventName() string  { return "ENCOUNTER" }
func (CombatResolved) eventName() string    { return "COMBAT_RESOLVED" }
func (ResolveEncounter) eventName() string  { return "RESOLVE_ENCOUNTER" }
func (PlayerDefeated) eventName() string    { return "PLAYER_DEFEATED" }
func (BossDefeated) eventName() string      { return "BOSS_DEFEATED" }
func (Complete) eventName() string          { return "COMPLETE" }
func (Pause) eventName() string             { return "PAUSE" }
func (Resume) eventName() string            { return "RESUME" }
func (LoadState) eventName() string         { return "LOAD_STATE" }
func (Reward) eventName() string            { return "REWARD" }
func (CheckpointReached) eventName() string { return "CHECKPOINT" }
func (TreasureFound) eventName() string     { return "TREASURE" }
func (TrapSprung) eventName() string        { return "TRAP" }
func (Equip) eventName() string             { return "EQUIP" }
func (Unequip) eventName() string           { return "UNEQUIP" }

// Name returns the wire name of an event, e.g. "STEP".
func Name(e Event) string { return e.eventName() }

package event

import (
	"github.com/stepcrawl/server/internal/core/ecs"
	"github.com/stepcrawl/server/internal/path"
)

// Simulation events. Each kind has exactly one payload shape; consumers
// subscribe per type.

// DirectionChanged turns a step-driven entity. Velocity is reset so the old
// heading leaves no residual slide.
type DirectionChanged struct {
	Entity ecs.EntityID
	DX, DY float64
}

// ProgressGranted adds path-following fuel to an entity for the next tick.
type ProgressGranted struct {
	Entity ecs.EntityID
	Amount float64
}

// UnitsMoved reports step-driven displacement committed in one tick.
type UnitsMoved struct {
	Entity  ecs.EntityID
	Units   int
	Blocked bool
}

// PathKind is the typed name of a waypoint arrival event.
type PathKind string

const (
	PathCheckpoint PathKind = "path-checkpoint"
	PathEncounter  PathKind = "path-encounter"
	PathTreasure   PathKind = "path-treasure"
	PathTrap       PathKind = "path-trap"
	PathBoss       PathKind = "path-boss"
)

// PathKindFor maps a waypoint kind to its event name. Start points and
// untyped points produce no event.
func PathKindFor(k path.Kind) (PathKind, bool) {
	switch k {
	case path.Checkpoint:
		return PathCheckpoint, true
	case path.Encounter:
		return PathEncounter, true
	case path.Treasure:
		return PathTreasure, true
	case path.Trap:
		return PathTrap, true
	case path.Boss:
		return PathBoss, true
	}
	return "", false
}

// PathReached is emitted when a follower arrives at a typed waypoint.
// Progress is the traversal fraction index/len(path).
type PathReached struct {
	Kind     PathKind
	Entity   ecs.EntityID
	Index    int
	Point    path.Point
	Progress float64
}

// EnemyCollision is raised when the player's body begins touching an enemy.
type EnemyCollision struct {
	Player, Enemy ecs.EntityID
}

// TreasureCollected is raised once per treasure; the treasure body is removed.
type TreasureCollected struct {
	Player, Treasure ecs.EntityID
}

type TrapTriggered struct {
	Player, Trap ecs.EntityID
}

type CheckpointReached struct {
	Player, Checkpoint ecs.EntityID
}

// UI events for the rendering collaborator.

type HealthChanged struct {
	Current, Max int
}

type ScoreChanged struct {
	Coins, XP, Level int
}

type Message struct {
	Text string
}

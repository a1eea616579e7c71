// Package component defines the simulation's component records.
// Pure data, zero behaviour: all mutation happens in systems.
package component

import (
	"time"

	"github.com/stepcrawl/server/internal/path"
	"github.com/stepcrawl/server/internal/physics"
)

type Position struct {
	X, Y float64
}

type Velocity struct {
	VX, VY float64
}

// EntityKind is the declared gameplay type of a collidable entity.
type EntityKind uint8

const (
	KindPlayer EntityKind = iota
	KindWall
	KindEnemy
	KindTreasure
	KindTrap
	KindCheckpoint
)

var entityKindNames = [...]string{"player", "wall", "enemy", "treasure", "trap", "checkpoint"}

func (k EntityKind) String() string {
	if int(k) < len(entityKindNames) {
		return entityKindNames[k]
	}
	return "unknown"
}

// Body links an entity to its rigid body in the physics space.
type Body struct {
	Handle physics.BodyID
	Kind   EntityKind
}

// StepInput tracks the raw sensor counter seen by a step-driven entity and
// the direction steps move it in.
type StepInput struct {
	StepCount         int64
	LastStepTimestamp time.Time
	FacingX, FacingY  float64
}

// Drawable is an opaque reference owned by the rendering collaborator.
type Drawable struct {
	Sprite    string
	Frame     int
	FrameTime time.Duration
}

// PathFollower walks an entity along Path. CurrentIndex is the last waypoint
// reached; Progress is one-shot movement fuel consumed by the next tick.
type PathFollower struct {
	Path         []path.Point
	CurrentIndex int
	Progress     float64
	Speed        float64
	Looping      bool
}

// Pedometer converts raw step counts into movement units.
type Pedometer struct {
	AccumulatedSteps   int64
	LastProcessedSteps int64
	StepsPerMeter      float64
	TotalDistance      float64 // meters
	TotalSteps         int64
	Synced             bool // LastProcessedSteps holds a real reading
}

type Health struct {
	Current, Max int
}

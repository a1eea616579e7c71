package system

import "time"

// Phase defines execution ordering within a single tick. Systems sharing a
// phase run in registration order, so the order within a phase is part of the
// session configuration.
type Phase int

const (
	PhaseInput      Phase = iota // 0: drain sensor queue, apply input commands
	PhasePreUpdate               // 1: deliver last tick's events
	PhaseUpdate                  // 2: step bridge, movement, path following, collision
	PhasePostUpdate              // 3: camera, game session
	PhaseOutput                  // 4: build render frame
	PhasePersist                 // 5: snapshot submission
	PhaseCleanup                 // 6: destroy queued entities
)

var phaseNames = [...]string{"input", "pre_update", "update", "post_update", "output", "persist", "cleanup"}

func (p Phase) String() string {
	if p >= 0 && int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "unknown"
}

// System is the interface every ECS system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}

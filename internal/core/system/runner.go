package system

import (
	"sort"
	"time"

	"github.com/stepcrawl/server/internal/core/ecs"
)

// Runner executes systems in phase order each tick. Systems that also
// implement ecs.Tracker are added to the world on Register, which
// back-registers existing entities.
type Runner struct {
	world   *ecs.World
	systems []System
	sorted  bool
	ticks   uint64
}

func NewRunner(world *ecs.World) *Runner {
	return &Runner{
		world:   world,
		systems: make([]System, 0, 16),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
	if t, ok := s.(ecs.Tracker); ok && r.world != nil {
		r.world.AddSystem(t)
	}
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.ticks++
}

// TickPhase runs only the systems of one phase. Useful in tests that need to
// observe state between phases.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// Ticks reports how many full ticks have run.
func (r *Runner) Ticks() uint64 { return r.ticks }

// Systems returns the systems in execution order.
func (r *Runner) Systems() []System {
	r.ensureSorted()
	out := make([]System, len(r.systems))
	copy(out, r.systems)
	return out
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}

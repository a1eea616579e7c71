package system

import (
	"time"

	"github.com/stepcrawl/server/internal/component"
	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/sensor"
	"github.com/stepcrawl/server/internal/world"
	"go.uber.org/zap"
)

// InputSystem drains the sensor reading queue into the player's pedometer.
// Phase 0 (Input).
type InputSystem struct {
	ws         *world.State
	queue      *sensor.Queue
	pace       *sensor.PaceMeter
	maxPerTick int
	log        *zap.Logger
}

func NewInputSystem(ws *world.State, queue *sensor.Queue, pace *sensor.PaceMeter, maxPerTick int, log *zap.Logger) *InputSystem {
	return &InputSystem{
		ws:         ws,
		queue:      queue,
		pace:       pace,
		maxPerTick: maxPerTick,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(_ time.Duration) {
	if s.queue == nil {
		return
	}
	player, ok := s.ws.Player()
	if !ok {
		// Leave readings queued until the player exists.
		return
	}
	ped, ok := s.ws.Pedometers.Get(player)
	if !ok {
		return
	}
	in, _ := s.ws.StepInputs.Get(player)
	s.queue.Drain(s.maxPerTick, func(r sensor.Reading) {
		before := ped.LastProcessedSteps
		synced := ped.Synced
		ApplyReading(ped, in, r)
		if synced && r.StepCount < before {
			s.log.Warn("step counter reset, re-baselined",
				zap.Int64("previous", before),
				zap.Int64("reading", r.StepCount),
			)
		}
		if s.pace != nil {
			s.pace.Observe(r.StepCount, r.Timestamp)
		}
	})
}

// ApplyReading folds one cumulative step-count reading into ped and returns
// the raw steps it added. The first reading only sets the baseline; a
// decreasing counter re-baselines without adding steps.
func ApplyReading(ped *component.Pedometer, in *component.StepInput, r sensor.Reading) int64 {
	if in != nil {
		in.StepCount = r.StepCount
		in.LastStepTimestamp = r.Timestamp
	}
	if !ped.Synced {
		ped.LastProcessedSteps = r.StepCount
		ped.Synced = true
		return 0
	}
	raw := r.StepCount - ped.LastProcessedSteps
	ped.LastProcessedSteps = r.StepCount
	if raw <= 0 {
		return 0
	}
	ped.AccumulatedSteps += raw
	ped.TotalSteps += raw
	return raw
}

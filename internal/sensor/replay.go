package sensor

import (
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// ReplayEntry is one recorded reading, At relative to the start of the
// recording.
type ReplayEntry struct {
	Steps int64         `yaml:"steps"`
	At    time.Duration `yaml:"at"`
}

type replayFile struct {
	Readings []ReplayEntry `yaml:"readings"`
}

// Replay plays back a recorded step stream. Speed scales playback time
// (2 = twice as fast).
type Replay struct {
	entries []ReplayEntry
	speed   float64
}

func NewReplay(entries []ReplayEntry, speed float64) *Replay {
	if speed <= 0 {
		speed = 1
	}
	return &Replay{entries: entries, speed: speed}
}

// LoadReplay reads a YAML recording.
func LoadReplay(path string, speed float64) (*Replay, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read replay %s: %w", path, err)
	}
	var f replayFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse replay %s: %w", path, err)
	}
	for i := 1; i < len(f.Readings); i++ {
		if f.Readings[i].At < f.Readings[i-1].At {
			return nil, fmt.Errorf("replay %s: reading %d goes back in time", path, i)
		}
	}
	return NewReplay(f.Readings, speed), nil
}

func (r *Replay) IsAvailable() bool { return len(r.entries) > 0 }

func (r *Replay) Len() int { return len(r.entries) }

func (r *Replay) Subscribe(fn func(Reading)) func() {
	stop := make(chan struct{})
	go func() {
		began := time.Now()
		for _, e := range r.entries {
			wait := time.Duration(float64(e.At) / r.speed)
			timer := time.NewTimer(time.Until(began.Add(wait)))
			select {
			case <-timer.C:
				fn(Reading{StepCount: e.Steps, Timestamp: began.Add(e.At)})
			case <-stop:
				timer.Stop()
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

package sensor

import (
	"sync"
	"time"
)

// Simulated is a synthetic walker: it reports a cumulative count growing at
// Cadence steps per minute, sampled every Interval.
type Simulated struct {
	Cadence  float64
	Interval time.Duration
	Start    int64

	mu      sync.Mutex
	running bool
}

func NewSimulated(cadence float64, interval time.Duration) *Simulated {
	if interval <= 0 {
		interval = time.Second
	}
	return &Simulated{Cadence: cadence, Interval: interval}
}

func (s *Simulated) IsAvailable() bool { return s.Cadence > 0 }

func (s *Simulated) Subscribe(fn func(Reading)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	stop := make(chan struct{})
	s.running = true
	go func() {
		ticker := time.NewTicker(s.Interval)
		defer ticker.Stop()
		began := time.Now()
		for {
			select {
			case now := <-ticker.C:
				steps := s.Start + int64(s.Cadence*now.Sub(began).Minutes())
				fn(Reading{StepCount: steps, Timestamp: now})
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			s.mu.Lock()
			s.running = false
			s.mu.Unlock()
		})
	}
}

// Running reports whether a subscription is active.
func (s *Simulated) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

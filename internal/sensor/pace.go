package sensor

import "time"

type paceSample struct {
	steps int64
	at    time.Time
}

// PaceMeter estimates steps per minute over a sliding window of readings.
// It only uses reading timestamps, never the wall clock.
type PaceMeter struct {
	window  time.Duration
	samples []paceSample
}

func NewPaceMeter(window time.Duration) *PaceMeter {
	if window <= 0 {
		window = 30 * time.Second
	}
	return &PaceMeter{window: window}
}

// Observe records a cumulative step count. A counter reset clears history.
func (m *PaceMeter) Observe(steps int64, at time.Time) {
	if n := len(m.samples); n > 0 && (steps < m.samples[n-1].steps || at.Before(m.samples[n-1].at)) {
		m.samples = m.samples[:0]
	}
	m.samples = append(m.samples, paceSample{steps: steps, at: at})
	cutoff := at.Add(-m.window)
	i := 0
	for i < len(m.samples)-1 && m.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		m.samples = append(m.samples[:0], m.samples[i:]...)
	}
}

// Pace returns steps per minute across the window, or 0 with fewer than two
// samples.
func (m *PaceMeter) Pace() float64 {
	if len(m.samples) < 2 {
		return 0
	}
	first, last := m.samples[0], m.samples[len(m.samples)-1]
	elapsed := last.at.Sub(first.at)
	if elapsed <= 0 {
		return 0
	}
	return float64(last.steps-first.steps) / elapsed.Minutes()
}

func (m *PaceMeter) Reset() { m.samples = m.samples[:0] }

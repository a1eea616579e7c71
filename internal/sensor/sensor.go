// Package sensor is the boundary to the device step counter. Sources deliver
// readings asynchronously; the simulation only ever sees them through a
// bounded Queue drained at tick start.
package sensor

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Reading is one cumulative step-counter sample.
type Reading struct {
	StepCount int64     `yaml:"steps" json:"steps"`
	Timestamp time.Time `yaml:"-" json:"timestamp"`
}

// Source is the sensor collaborator. Availability is queried once at session
// start. The returned unsubscribe func stops delivery; callbacks racing with
// it may still arrive and must be tolerated by the subscriber.
type Source interface {
	IsAvailable() bool
	Subscribe(fn func(Reading)) (unsubscribe func())
}

// Unavailable is a Source for devices without a step counter.
type Unavailable struct{}

func (Unavailable) IsAvailable() bool              { return false }
func (Unavailable) Subscribe(func(Reading)) func() { return func() {} }

// Queue is a bounded single-consumer buffer of readings. When full the oldest
// reading is dropped: readings are cumulative, so the newest one supersedes
// everything before it.
type Queue struct {
	ch      chan Reading
	closed  atomic.Bool
	dropped atomic.Uint64
}

func NewQueue(size int) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{ch: make(chan Reading, size)}
}

// Push enqueues r without blocking. It returns false once the queue is closed.
func (q *Queue) Push(r Reading) bool {
	if q.closed.Load() {
		return false
	}
	for {
		select {
		case q.ch <- r:
			return true
		default:
		}
		select {
		case <-q.ch:
			q.dropped.Add(1)
		default:
		}
	}
}

// Drain hands up to limit queued readings to fn without blocking and returns
// how many were handled. limit <= 0 drains everything currently queued.
func (q *Queue) Drain(limit int, fn func(Reading)) int {
	n := 0
	for limit <= 0 || n < limit {
		select {
		case r := <-q.ch:
			fn(r)
			n++
		default:
			return n
		}
	}
	return n
}

func (q *Queue) Len() int        { return len(q.ch) }
func (q *Queue) Dropped() uint64 { return q.dropped.Load() }
func (q *Queue) Closed() bool    { return q.closed.Load() }

// Close makes later pushes no-ops. Already queued readings stay drainable.
func (q *Queue) Close() { q.closed.Store(true) }

// Link subscribes a Queue to a Source for the lifetime of a session.
type Link struct {
	available bool
	queue     *Queue
	unsub     func()
	log       *zap.Logger
}

// Connect queries availability once and, if the source is available,
// forwards its readings into q.
func Connect(src Source, q *Queue, log *zap.Logger) *Link {
	l := &Link{queue: q, log: log, unsub: func() {}}
	if src == nil || !src.IsAvailable() {
		log.Info("step sensor unavailable, movement falls back to path progress")
		return l
	}
	l.available = true
	l.unsub = src.Subscribe(func(r Reading) {
		if !q.Push(r) {
			log.Debug("reading after disconnect discarded", zap.Int64("steps", r.StepCount))
		}
	})
	return l
}

func (l *Link) Available() bool { return l.available }

// Disconnect unsubscribes and closes the queue so late callbacks are dropped.
func (l *Link) Disconnect() {
	l.queue.Close()
	l.unsub()
}

package session

import (
	"context"
	"fmt"
	"time"

	"github.com/looplab/fsm"
	"go.uber.org/zap"
)

// Driver lifecycle states.
const (
	StateIdle    = "idle"
	StateRunning = "running"
	StateStopped = "stopped"
)

// maxCatchUp caps the dt of one tick after a stall, in tick periods.
const maxCatchUp = 4

// Driver owns the tick goroutine of a session. Commands from other
// goroutines are queued and run between ticks.
type Driver struct {
	sess     *Session
	tickRate time.Duration
	log      *zap.Logger
	fsm      *fsm.FSM
	cmds     chan func(*Session)
	done     chan struct{}
}

func NewDriver(sess *Session, tickRate time.Duration, log *zap.Logger) *Driver {
	if tickRate <= 0 {
		tickRate = 50 * time.Millisecond
	}
	d := &Driver{
		sess:     sess,
		tickRate: tickRate,
		log:      log,
		cmds:     make(chan func(*Session), 16),
		done:     make(chan struct{}),
	}
	d.fsm = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: "start", Src: []string{StateIdle}, Dst: StateRunning},
			{Name: "stop", Src: []string{StateIdle, StateRunning}, Dst: StateStopped},
		},
		fsm.Callbacks{
			"enter_" + StateRunning: func(_ context.Context, e *fsm.Event) {
				d.log.Info("frame loop started", zap.Duration("tick_rate", d.tickRate))
			},
			"enter_" + StateStopped: func(_ context.Context, e *fsm.Event) {
				close(d.done)
				d.sess.Stop()
				d.log.Info("frame loop stopped", zap.String("from", e.Src))
			},
		},
	)
	return d
}

// State reports the lifecycle state. Safe from any goroutine.
func (d *Driver) State() string { return d.fsm.Current() }

// Run starts the session and ticks it until ctx is cancelled. The session is
// stopped, and its final snapshot submitted, before Run returns.
func (d *Driver) Run(ctx context.Context) error {
	if err := d.fsm.Event(ctx, "start"); err != nil {
		return fmt.Errorf("start driver: %w", err)
	}
	defer d.stop()

	if err := d.sess.Start(ctx); err != nil {
		return fmt.Errorf("start session: %w", err)
	}

	ticker := time.NewTicker(d.tickRate)
	defer ticker.Stop()
	last := time.Now()
	complete := d.sess.State().Terminal()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-d.cmds:
			fn(d.sess)
		case now := <-ticker.C:
			dt := min(now.Sub(last), maxCatchUp*d.tickRate)
			last = now
			if err := d.sess.Tick(dt); err != nil {
				return err
			}
			if !complete && d.sess.State().Terminal() {
				complete = true
				st := d.sess.State()
				d.log.Info("dungeon complete",
					zap.String("run", st.RunID),
					zap.Int("depth", st.Depth),
					zap.Int("level", st.Level),
					zap.Uint64("ticks", d.sess.Ticks()),
				)
			}
		}
	}
}

func (d *Driver) stop() {
	if d.fsm.Can("stop") {
		if err := d.fsm.Event(context.Background(), "stop"); err != nil {
			d.log.Warn("driver stop", zap.Error(err))
		}
	}
}

// Do queues fn to run on the tick goroutine and waits for it to finish.
func (d *Driver) Do(ctx context.Context, fn func(*Session)) error {
	ran := make(chan struct{})
	cmd := func(s *Session) {
		fn(s)
		close(ran)
	}
	select {
	case d.cmds <- cmd:
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-ran:
		return nil
	case <-d.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Driver) Pause(ctx context.Context) error {
	return d.Do(ctx, func(s *Session) { s.Pause() })
}

func (d *Driver) Resume(ctx context.Context) error {
	return d.Do(ctx, func(s *Session) { s.Resume() })
}

func (d *Driver) Equip(ctx context.Context, itemID string) error {
	return d.Do(ctx, func(s *Session) { s.Equip(itemID) })
}

func (d *Driver) Unequip(ctx context.Context, itemID string) error {
	return d.Do(ctx, func(s *Session) { s.Unequip(itemID) })
}

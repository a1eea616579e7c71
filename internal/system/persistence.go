package system

import (
	"reflect"
	"time"

	coresys "github.com/stepcrawl/server/internal/core/system"
	"github.com/stepcrawl/server/internal/game"
	"go.uber.org/zap"
)

// SnapshotSink accepts snapshots without blocking. *persist.Writer
// satisfies it.
type SnapshotSink interface {
	Submit(s game.State)
}

// PersistenceSystem hands the session state to the snapshot writer on every
// tick that changed it. A paused state is never submitted, so the stored
// snapshot stays the last active one. An unchanged active state is
// re-submitted every interval ticks. Phase 5 (Persist).
type PersistenceSystem struct {
	view      StateView
	sink      SnapshotSink
	log       *zap.Logger
	tickCount int
	interval  int // re-save an unchanged state every N ticks
	last      game.State
	saved     bool
}

func NewPersistenceSystem(view StateView, sink SnapshotSink, intervalTicks int, log *zap.Logger) *PersistenceSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1
	}
	return &PersistenceSystem{
		view:     view,
		sink:     sink,
		log:      log,
		interval: intervalTicks,
	}
}

func (s *PersistenceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistenceSystem) Update(_ time.Duration) {
	st := s.view.State()
	if st.Mode == game.ModePaused {
		return
	}
	s.tickCount++
	if s.saved && s.tickCount < s.interval && reflect.DeepEqual(st.Clone(), s.last) {
		return
	}
	s.SaveNow(st)
}

// SaveNow submits st immediately unless it is paused. Used on shutdown.
func (s *PersistenceSystem) SaveNow(st game.State) {
	if st.Mode == game.ModePaused {
		s.log.Debug("paused snapshot not submitted", zap.String("run", st.RunID))
		return
	}
	s.sink.Submit(st)
	s.last = st.Clone()
	s.saved = true
	s.tickCount = 0
	s.log.Debug("snapshot submitted",
		zap.String("run", st.RunID),
		zap.String("mode", string(st.Mode)),
		zap.Int("depth", st.Depth),
	)
}

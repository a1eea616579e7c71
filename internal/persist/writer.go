package persist

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/stepcrawl/server/internal/game"
	"go.uber.org/zap"
)

// Writer serialises snapshot saves for one key. Submit never blocks: it
// replaces any snapshot still waiting, so at most one save is in flight and
// the newest state always wins. Journal entries are appended before the
// snapshot they led to.
type Writer struct {
	store   Store
	key     string
	timeout time.Duration
	log     *zap.Logger

	mu      sync.Mutex
	pending *game.State
	journal []JournalEntry
	runID   string

	flushMu sync.Mutex
	wake    chan struct{}
	saved   atomic.Uint64
	failed  atomic.Uint64
}

func NewWriter(store Store, key string, timeout time.Duration, log *zap.Logger) *Writer {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Writer{
		store:   store,
		key:     key,
		timeout: timeout,
		log:     log,
		wake:    make(chan struct{}, 1),
	}
}

// Submit queues s for saving.
func (w *Writer) Submit(s game.State) {
	c := s.Clone()
	w.mu.Lock()
	w.pending = &c
	w.mu.Unlock()
	w.signal()
}

// Record queues journal entries for the run. They are written with the next
// flush; stores without a journal drop them.
func (w *Writer) Record(runID string, entries ...JournalEntry) {
	if len(entries) == 0 {
		return
	}
	w.mu.Lock()
	if w.runID != runID && len(w.journal) > 0 {
		w.log.Warn("journal run changed with entries pending",
			zap.String("from", w.runID), zap.String("to", runID))
		w.journal = w.journal[:0]
	}
	w.runID = runID
	w.journal = append(w.journal, entries...)
	w.mu.Unlock()
}

func (w *Writer) signal() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Run saves submitted snapshots until ctx is cancelled, then flushes once
// more so the final state is not lost.
func (w *Writer) Run(ctx context.Context) error {
	for {
		select {
		case <-w.wake:
			w.Flush(ctx)
		case <-ctx.Done():
			w.Flush(context.Background())
			return nil
		}
	}
}

// Flush writes whatever is pending now. Failures are logged; the next
// successful save supersedes them.
func (w *Writer) Flush(ctx context.Context) {
	w.flushMu.Lock()
	defer w.flushMu.Unlock()

	w.mu.Lock()
	snap, journal, runID := w.pending, w.journal, w.runID
	w.pending, w.journal = nil, nil
	w.mu.Unlock()

	if len(journal) > 0 {
		if j, ok := w.store.(Journal); ok {
			jctx, cancel := context.WithTimeout(ctx, w.timeout)
			if err := j.AppendEvents(jctx, runID, journal); err != nil {
				w.log.Error("append run journal failed",
					zap.String("run", runID),
					zap.Int("entries", len(journal)),
					zap.Error(err),
				)
			}
			cancel()
		}
	}

	if snap == nil {
		return
	}
	sctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()
	if err := w.store.Save(sctx, w.key, *snap); err != nil {
		w.failed.Add(1)
		w.log.Error("snapshot save failed",
			zap.String("key", w.key),
			zap.String("run", snap.RunID),
			zap.Error(err),
		)
		return
	}
	w.saved.Add(1)
	w.log.Debug("snapshot saved",
		zap.String("key", w.key),
		zap.String("mode", string(snap.Mode)),
		zap.Int("depth", snap.Depth),
	)
}

// Stats reports completed and failed saves.
func (w *Writer) Stats() (saved, failed uint64) {
	return w.saved.Load(), w.failed.Load()
}

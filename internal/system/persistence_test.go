package system

import (
	"testing"

	"github.com/stepcrawl/server/internal/game"
	"go.uber.org/zap"
)

type stateBox struct{ s game.State }

func (b *stateBox) State() game.State { return b.s }

type submissions struct{ got []game.State }

func (s *submissions) Submit(st game.State) { s.got = append(s.got, st) }

func TestPersistenceSavesEveryChange(t *testing.T) {
	view := &stateBox{s: game.NewState("r", 100, game.PlayerStats{Level: 1})}
	sink := &submissions{}
	p := NewPersistenceSystem(view, sink, 100, zap.NewNop())

	for i := 0; i < 4; i++ {
		view.s = game.Reduce(view.s, game.Step{Payload: 1})
		p.Update(tick)
	}
	if len(sink.got) != 4 {
		t.Fatalf("expected a save per changed tick, got %d", len(sink.got))
	}
	for i, st := range sink.got {
		if st.Depth != i+1 {
			t.Errorf("save %d: expected depth %d, got %d", i, i+1, st.Depth)
		}
	}

	for i := 0; i < 5; i++ {
		p.Update(tick)
	}
	if len(sink.got) != 4 {
		t.Errorf("expected an unchanged state not re-saved, got %d saves", len(sink.got))
	}

	view.s = game.Reduce(view.s, game.TreasureFound{Coins: 3})
	p.Update(tick)
	if len(sink.got) != 5 || sink.got[4].Coins != 3 {
		t.Errorf("expected the coins saved, got %d saves", len(sink.got))
	}
}

func TestPersistenceResavesUnchangedOnInterval(t *testing.T) {
	view := &stateBox{s: game.NewState("r", 100, game.PlayerStats{Level: 1})}
	sink := &submissions{}
	p := NewPersistenceSystem(view, sink, 3, zap.NewNop())

	for i := 0; i < 7; i++ {
		p.Update(tick)
	}
	// first tick, then every third
	if len(sink.got) != 3 {
		t.Errorf("expected 3 saves, got %d", len(sink.got))
	}
}

func TestPersistenceNeverSavesPaused(t *testing.T) {
	view := &stateBox{s: game.NewState("r", 100, game.PlayerStats{Level: 1})}
	sink := &submissions{}
	p := NewPersistenceSystem(view, sink, 2, zap.NewNop())

	view.s = game.Reduce(view.s, game.Step{Payload: 3})
	p.Update(tick)
	if len(sink.got) != 1 || sink.got[0].Depth != 3 {
		t.Fatalf("expected depth 3 saved, got %d saves", len(sink.got))
	}

	view.s = game.Reduce(view.s, game.Pause{})
	for i := 0; i < 5; i++ {
		p.Update(tick)
	}
	p.SaveNow(view.s)
	if len(sink.got) != 1 {
		t.Fatalf("expected nothing saved while paused, got %d saves", len(sink.got))
	}
	if sink.got[0].Mode != game.ModeWalking {
		t.Errorf("expected the last save to stay walking, got %s", sink.got[0].Mode)
	}

	view.s = game.Reduce(view.s, game.Resume{})
	p.Update(tick)
	view.s = game.Reduce(view.s, game.Step{Payload: 2})
	p.Update(tick)
	last := sink.got[len(sink.got)-1]
	if last.Mode != game.ModeWalking || last.Depth != 5 {
		t.Errorf("expected walking at depth 5 saved after resume, got %s at %d", last.Mode, last.Depth)
	}
}

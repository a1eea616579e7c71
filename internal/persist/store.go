// Package persist stores session snapshots. A snapshot is a whole-state
// replacement keyed by name; the latest save always wins.
package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/stepcrawl/server/internal/game"
)

var (
	ErrNoSnapshot = errors.New("no snapshot")
	ErrCorrupt    = errors.New("snapshot checksum mismatch")
)

// Store is the snapshot API of the persistence collaborator.
type Store interface {
	Save(ctx context.Context, key string, s game.State) error
	Load(ctx context.Context, key string) (game.State, error)
}

// Journal is implemented by stores that also keep the reducer event log of a
// run.
type Journal interface {
	AppendEvents(ctx context.Context, runID string, entries []JournalEntry) error
	LoadEvents(ctx context.Context, runID string) ([]JournalEntry, error)
}

// JournalEntry is one reducer event, JSON encoded.
type JournalEntry struct {
	Seq     int64           `json:"seq"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
	At      time.Time       `json:"at"`
}

// NewJournalEntry encodes e.
func NewJournalEntry(seq int64, e game.Event, at time.Time) (JournalEntry, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("encode %s: %w", game.Name(e), err)
	}
	return JournalEntry{Seq: seq, Name: game.Name(e), Payload: raw, At: at}, nil
}

// Event decodes the entry back into a reducer event.
func (j JournalEntry) Event() (game.Event, error) {
	return game.Decode(j.Name, j.Payload)
}

// Nop discards saves and never has a snapshot.
type Nop struct{}

func (Nop) Save(context.Context, string, game.State) error { return nil }

func (Nop) Load(context.Context, string) (game.State, error) {
	return game.State{}, ErrNoSnapshot
}

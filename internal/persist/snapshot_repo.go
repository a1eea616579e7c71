package persist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/stepcrawl/server/internal/game"
)

// SnapshotRepo stores snapshots and run journals in PostgreSQL.
type SnapshotRepo struct {
	db *DB
}

func NewSnapshotRepo(db *DB) *SnapshotRepo {
	return &SnapshotRepo{db: db}
}

func (r *SnapshotRepo) Save(ctx context.Context, key string, s game.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	_, err = r.db.Pool.Exec(ctx,
		`INSERT INTO snapshots (key, run_id, mode, depth, state, updated_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 ON CONFLICT (key) DO UPDATE SET
		     run_id = EXCLUDED.run_id,
		     mode = EXCLUDED.mode,
		     depth = EXCLUDED.depth,
		     state = EXCLUDED.state,
		     updated_at = EXCLUDED.updated_at`,
		key, s.RunID, string(s.Mode), s.Depth, data,
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", key, err)
	}
	return nil
}

func (r *SnapshotRepo) Load(ctx context.Context, key string) (game.State, error) {
	var raw []byte
	err := r.db.Pool.QueryRow(ctx,
		`SELECT state FROM snapshots WHERE key = $1`, key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return game.State{}, ErrNoSnapshot
	}
	if err != nil {
		return game.State{}, fmt.Errorf("load snapshot %s: %w", key, err)
	}
	var s game.State
	if err := json.Unmarshal(raw, &s); err != nil {
		return game.State{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return s, nil
}

// AppendEvents writes a batch of journal entries in a single transaction.
// Entries already stored under the same sequence number are left untouched.
func (r *SnapshotRepo) AppendEvents(ctx context.Context, runID string, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("journal begin: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, e := range entries {
		if _, err := tx.Exec(ctx,
			`INSERT INTO run_events (run_id, seq, name, payload, created_at)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (run_id, seq) DO NOTHING`,
			runID, e.Seq, e.Name, []byte(e.Payload), e.At,
		); err != nil {
			return fmt.Errorf("journal insert: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (r *SnapshotRepo) LoadEvents(ctx context.Context, runID string) ([]JournalEntry, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT seq, name, payload, created_at
		 FROM run_events
		 WHERE run_id = $1
		 ORDER BY seq`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("load journal %s: %w", runID, err)
	}
	defer rows.Close()

	var out []JournalEntry
	for rows.Next() {
		var (
			e   JournalEntry
			raw []byte
		)
		if err := rows.Scan(&e.Seq, &e.Name, &raw, &e.At); err != nil {
			return nil, fmt.Errorf("scan journal %s: %w", runID, err)
		}
		e.Payload = raw
		out = append(out, e)
	}
	return out, rows.Err()
}

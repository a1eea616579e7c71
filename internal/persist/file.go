package persist

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/stepcrawl/server/internal/game"
	"golang.org/x/crypto/blake2b"
)

const fileVersion = 1

type fileEnvelope struct {
	Version  int             `json:"version"`
	Checksum string          `json:"checksum"` // blake2b-256 of State
	State    json.RawMessage `json:"state"`
}

// FileStore keeps one JSON file per snapshot key under dir. Saves are written
// to a temp file and renamed into place, so a crash never leaves a torn
// snapshot.
type FileStore struct {
	dir string
}

func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (f *FileStore) path(key string) string {
	return filepath.Join(f.dir, sanitize(key)+".json")
}

func (f *FileStore) Save(ctx context.Context, key string, s game.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	state, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}
	sum := blake2b.Sum256(state)
	// Compact on purpose: indenting would rewrite the checksummed bytes.
	data, err := json.Marshal(fileEnvelope{
		Version:  fileVersion,
		Checksum: hex.EncodeToString(sum[:]),
		State:    state,
	})
	if err != nil {
		return fmt.Errorf("encode snapshot %s: %w", key, err)
	}

	tmp, err := os.CreateTemp(f.dir, sanitize(key)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp snapshot %s: %w", key, err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write snapshot %s: %w", key, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync snapshot %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close snapshot %s: %w", key, err)
	}
	if err := os.Rename(tmp.Name(), f.path(key)); err != nil {
		return fmt.Errorf("commit snapshot %s: %w", key, err)
	}
	return nil
}

func (f *FileStore) Load(ctx context.Context, key string) (game.State, error) {
	if err := ctx.Err(); err != nil {
		return game.State{}, err
	}
	data, err := os.ReadFile(f.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return game.State{}, ErrNoSnapshot
	}
	if err != nil {
		return game.State{}, fmt.Errorf("read snapshot %s: %w", key, err)
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return game.State{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	sum := blake2b.Sum256(env.State)
	if hex.EncodeToString(sum[:]) != env.Checksum {
		return game.State{}, fmt.Errorf("snapshot %s: %w", key, ErrCorrupt)
	}
	var s game.State
	if err := json.Unmarshal(env.State, &s); err != nil {
		return game.State{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return s, nil
}

func (f *FileStore) journalPath(runID string) string {
	return filepath.Join(f.dir, "journal-"+sanitize(runID)+".jsonl")
}

// AppendEvents appends entries to the run's JSON-lines journal.
func (f *FileStore) AppendEvents(ctx context.Context, runID string, entries []JournalEntry) error {
	if len(entries) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, e := range entries {
		if err := enc.Encode(e); err != nil {
			return fmt.Errorf("encode journal %s: %w", runID, err)
		}
	}
	fh, err := os.OpenFile(f.journalPath(runID), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open journal %s: %w", runID, err)
	}
	if _, err := fh.Write(buf.Bytes()); err != nil {
		fh.Close()
		return fmt.Errorf("append journal %s: %w", runID, err)
	}
	return fh.Close()
}

func (f *FileStore) LoadEvents(ctx context.Context, runID string) ([]JournalEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fh, err := os.Open(f.journalPath(runID))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal %s: %w", runID, err)
	}
	defer fh.Close()

	var out []JournalEntry
	sc := bufio.NewScanner(fh)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		if len(bytes.TrimSpace(sc.Bytes())) == 0 {
			continue
		}
		var e JournalEntry
		if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
			return nil, fmt.Errorf("decode journal %s line %d: %w", runID, len(out)+1, err)
		}
		out = append(out, e)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read journal %s: %w", runID, err)
	}
	return out, nil
}

func sanitize(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '_'
	}, key)
}

// Package state persists the account and open position list durably.
package state

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/verdict/internal/domain"
)

// State is the durable snapshot written after every tick that mutates it.
type State struct {
	Account       domain.Account    `json:"account"`
	OpenPositions []domain.Position `json:"open_positions"`
	Window        []string          `json:"window"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Store writes snapshots atomically: marshal to a temporary file in the same
// directory, then rename over the durable one, so a crash mid-write never
// corrupts the last known-good state.
type Store struct {
	path string
}

// NewStore creates a store backed by the given file path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("state store path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "create state dir")
	}
	return &Store{path: path}, nil
}

// Load reads the last durable snapshot. The second return value is false when
// no snapshot exists yet.
func (s *Store) Load() (State, bool, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return State{}, false, nil
		}
		return State{}, false, errors.Wrap(err, "read state file")
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return State{}, false, errors.Wrap(err, "decode state file")
	}
	return st, true, nil
}

// Save atomically replaces the durable snapshot.
func (s *Store) Save(st State) error {
	st.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode state")
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "create temp state file")
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "write temp state file")
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrap(err, "sync temp state file")
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "close temp state file")
	}

	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return errors.Wrap(err, "replace state file")
	}
	return nil
}

// EncodeWindow converts directions to their persisted string form.
func EncodeWindow(directions []domain.Direction) []string {
	out := make([]string, len(directions))
	for i, d := range directions {
		out[i] = d.String()
	}
	return out
}

// DecodeWindow restores directions from their persisted string form.
func DecodeWindow(raw []string) []domain.Direction {
	out := make([]domain.Direction, len(raw))
	for i, s := range raw {
		out[i] = domain.ParseDirection(s)
	}
	return out
}

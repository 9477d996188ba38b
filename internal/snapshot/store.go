// Package snapshot persists feed snapshots as JSON files. Each key holds at
// most one file; a new snapshot overwrites the previous one, so the store
// never grows with match duration.
package snapshot

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rgupta1997/fanverse-live/internal/domain"
)

// matchIDPattern mirrors the engine's identifier validation. The store checks
// again because filenames are derived from these values.
var matchIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// Store writes snapshots under a root directory:
//
//	<root>/<matchId>.json               main snapshot
//	<root>/<matchId>_error.json         main fetch error
//	<root>/<matchId>/inning_<n>.json    commentary snapshot
//	<root>/<matchId>/inning_<n>_error.json
type Store struct {
	root string
}

func NewStore(root string) (*Store, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create snapshot root: %w", err)
	}
	return &Store{root: root}, nil
}

func (s *Store) WriteMain(snap *domain.MatchSnapshot) error {
	if err := checkMatchID(snap.MatchID); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.root, snap.MatchID+".json"), snap)
}

func (s *Store) WriteMainError(rec *domain.FetchErrorRecord) error {
	if err := checkMatchID(rec.MatchID); err != nil {
		return err
	}
	return s.writeJSON(filepath.Join(s.root, rec.MatchID+"_error.json"), rec)
}

func (s *Store) WriteCommentary(snap *domain.CommentarySnapshot) error {
	if err := checkMatchID(snap.MatchID); err != nil {
		return err
	}
	if snap.Inning < 1 {
		return fmt.Errorf("%w: inning %d", domain.ErrInvalidMatchID, snap.Inning)
	}
	dir := filepath.Join(s.root, snap.MatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create match directory: %w", err)
	}
	return s.writeJSON(filepath.Join(dir, fmt.Sprintf("inning_%d.json", snap.Inning)), snap)
}

func (s *Store) WriteCommentaryError(rec *domain.FetchErrorRecord) error {
	if err := checkMatchID(rec.MatchID); err != nil {
		return err
	}
	if rec.Inning < 1 {
		return fmt.Errorf("%w: inning %d", domain.ErrInvalidMatchID, rec.Inning)
	}
	dir := filepath.Join(s.root, rec.MatchID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create match directory: %w", err)
	}
	return s.writeJSON(filepath.Join(dir, fmt.Sprintf("inning_%d_error.json", rec.Inning)), rec)
}

func (s *Store) ReadMain(matchID string) (*domain.MatchSnapshot, error) {
	if err := checkMatchID(matchID); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, matchID+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read main snapshot: %w", err)
	}

	var snap domain.MatchSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode main snapshot: %w", err)
	}
	return &snap, nil
}

// writeJSON writes atomically (temp file + rename) so an external reader
// never observes a torn snapshot.
func (s *Store) writeJSON(path string, value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to close snapshot file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func checkMatchID(id string) error {
	if !matchIDPattern.MatchString(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidMatchID, id)
	}
	return nil
}

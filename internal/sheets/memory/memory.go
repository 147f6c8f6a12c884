// Package memory is an in-process SnapshotMirror used when no spreadsheet is
// configured and in tests.
package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	sheets map[string][][]any
	writes int
}

var _ sheets.SnapshotMirror = (*Store)(nil)

func New() *Store {
	return &Store{sheets: make(map[string][][]any)}
}

// MirrorProfile replaces the rows kept for profile.
func (s *Store) MirrorProfile(_ context.Context, profile string, snap core.Snapshot) error {
	rows := append([][]any{sheets.Header}, sheets.Rows(snap)...)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sheets[profile] = rows
	s.writes++
	return nil
}

// Rows returns the mirrored rows of profile, header included.
func (s *Store) Rows(profile string) ([][]any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows, ok := s.sheets[profile]
	return rows, ok
}

// Writes counts MirrorProfile calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}

// Package storage implements the file-backed cross-run state of the pipeline:
// the relevance score cache, the seen-set, and the per-day digest files.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
)

// ScoreStore is a read-through cache of relevance scores keyed by identity.
// A score, once written, is never overwritten or deleted; that bounds rater
// calls to new identities only and keeps ranking stable across runs. The
// persisted form is a sorted, indented JSON object so diffs stay readable.
type ScoreStore struct {
	path string

	mu     sync.Mutex
	scores map[string]int
}

var _ ports.ScoreStore = (*ScoreStore)(nil)

// NewScoreStore wires the store to its backing file.
func NewScoreStore(path string) *ScoreStore {
	return &ScoreStore{path: path, scores: map[string]int{}}
}

// Load reads the backing file. A missing or empty file is an empty mapping;
// a present-but-unparsable file is ErrCorruptStore, never "no data".
func (s *ScoreStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.scores = map[string]int{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read score store %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}

	var scores map[string]int
	if err := json.Unmarshal(data, &scores); err != nil {
		return fmt.Errorf("%w: score store %s: %v", domain.ErrCorruptStore, s.path, err)
	}

	s.scores = scores
	return nil
}

// Get returns the cached score for an identity.
func (s *ScoreStore) Get(id string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	score, ok := s.scores[id]
	return score, ok
}

// Put records a fresh score. Overwriting an existing identity violates the
// store contract and fails with ErrDuplicateScore; callers check before put.
func (s *ScoreStore) Put(id string, score int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scores[id]; ok {
		return fmt.Errorf("%w: %s", domain.ErrDuplicateScore, id)
	}
	s.scores[id] = score
	return nil
}

// Len reports the number of cached scores.
func (s *ScoreStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.scores)
}

// Commit persists the full mapping via write-temp-then-rename so a crash
// mid-write leaves the prior committed file readable.
func (s *ScoreStore) Commit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(s.scores, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal score store: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

// writeFileAtomic writes data to path through a sibling temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}

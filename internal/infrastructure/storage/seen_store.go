package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"sync"

	"arxivdigest/internal/domain"
	"arxivdigest/internal/ports"
)

// SeenStore is the monotonically growing set of identities ever selected for
// publication. Persisted as a sorted JSON array of strings.
type SeenStore struct {
	path string

	mu  sync.Mutex
	ids map[string]struct{}
}

var _ ports.SeenSetStore = (*SeenStore)(nil)

// NewSeenStore wires the store to its backing file.
func NewSeenStore(path string) *SeenStore {
	return &SeenStore{path: path, ids: map[string]struct{}{}}
}

// Load reads the backing file; missing or empty means an empty set, while an
// unparsable file is ErrCorruptStore.
func (s *SeenStore) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.ids = map[string]struct{}{}

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read seen store %s: %w", s.path, err)
	}
	if len(data) == 0 {
		return nil
	}

	var ids []string
	if err := json.Unmarshal(data, &ids); err != nil {
		return fmt.Errorf("%w: seen store %s: %v", domain.ErrCorruptStore, s.path, err)
	}

	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return nil
}

// Contains reports whether an identity was selected in any prior run.
func (s *SeenStore) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.ids[id]
	return ok
}

// Len reports the number of seen identities.
func (s *SeenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.ids)
}

// Commit persists the union of the loaded set and newIDs atomically. The set
// only ever grows; there is no removal operation.
func (s *SeenStore) Commit(newIDs []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range newIDs {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}

	ids := make([]string, 0, len(s.ids))
	for id := range s.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	data, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal seen store: %w", err)
	}

	return writeFileAtomic(s.path, data)
}

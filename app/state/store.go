package state

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
)

// persistedState is the on-disk JSON shape of State.
type persistedState struct {
	Seen                  map[string]string `json:"seen"`
	UpdatedAt             *string           `json:"updated_at"`
	ContentHashes         map[string]string `json:"content_hashes"`
	DynamicMonitoredPages []string          `json:"dynamic_monitored_pages,omitempty"`
}

// Store persists State as a single JSON file, replaced wholesale on save.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// Load reads the persisted state. It never fails the caller: a missing file
// yields an empty state, a malformed one yields an empty state and a warning.
func (s *Store) Load() State {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read state file, starting from empty state", "path", s.path, "error", err)
		}
		return New()
	}

	var persisted persistedState
	if err := json.Unmarshal(data, &persisted); err != nil {
		slog.Warn("Failed to parse state file, starting from empty state", "path", s.path, "error", err)
		return New()
	}

	st := New()
	if persisted.Seen != nil {
		st.Seen = persisted.Seen
	}
	if persisted.UpdatedAt != nil {
		st.UpdatedAt = *persisted.UpdatedAt
	}
	if persisted.ContentHashes != nil {
		st.ContentHashes = persisted.ContentHashes
	}
	for _, page := range persisted.DynamicMonitoredPages {
		st.DynamicMonitoredPages[page] = struct{}{}
	}
	return st
}

// Save replaces the persisted state atomically.
func (s *Store) Save(st State) error {
	persisted := persistedState{
		Seen:                  st.Seen,
		ContentHashes:         st.ContentHashes,
		DynamicMonitoredPages: sortedKeys(st.DynamicMonitoredPages),
	}
	if st.UpdatedAt != "" {
		persisted.UpdatedAt = &st.UpdatedAt
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write state file: %w", err)
	}
	return nil
}

func sortedKeys(set map[string]struct{}) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// writeFileAtomic writes data next to the target and renames it into place,
// so readers never observe a partially written file.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*.json")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

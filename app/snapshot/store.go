package snapshot

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// persistedSnapshot is the on-disk JSON shape of a Snapshot.
type persistedSnapshot struct {
	PageName  string  `json:"page_name"`
	Content   string  `json:"content"`
	Timestamp string  `json:"timestamp"`
	Diff      *string `json:"diff"`
}

// Store persists all page snapshots in a single JSON file keyed by page name,
// replaced wholesale on save.
type Store struct {
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

// LoadAll reads all persisted snapshots. Missing or malformed files yield an
// empty map; the latter is logged.
func (s *Store) LoadAll() map[string]Snapshot {
	snapshots := make(map[string]Snapshot)

	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("Failed to read snapshots file", "path", s.path, "error", err)
		}
		return snapshots
	}

	var persisted map[string]persistedSnapshot
	if err := json.Unmarshal(data, &persisted); err != nil {
		slog.Warn("Failed to parse snapshots file, starting empty", "path", s.path, "error", err)
		return snapshots
	}

	for pageName, p := range persisted {
		snap := Snapshot{
			PageName:  p.PageName,
			Content:   p.Content,
			Timestamp: p.Timestamp,
		}
		if p.Diff != nil {
			snap.Diff = *p.Diff
		}
		snapshots[pageName] = snap
	}
	return snapshots
}

// SaveAll replaces the persisted snapshots atomically.
func (s *Store) SaveAll(snapshots map[string]Snapshot) error {
	persisted := make(map[string]persistedSnapshot, len(snapshots))
	for pageName, snap := range snapshots {
		p := persistedSnapshot{
			PageName:  snap.PageName,
			Content:   snap.Content,
			Timestamp: snap.Timestamp,
		}
		if snap.Diff != "" {
			d := snap.Diff
			p.Diff = &d
		}
		persisted[pageName] = p
	}

	data, err := json.MarshalIndent(persisted, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("failed to write snapshots file: %w", err)
	}
	return nil
}

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

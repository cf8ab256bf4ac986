package snapshot

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/contre95/plexify/src/music"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Entry is the cached state of one playlist.
type Entry struct {
	Name       string              `json:"name"`
	SnapshotID string              `json:"snapshotId"`
	Tracks     []music.RemoteTrack `json:"tracks"`
	FetchedAt  time.Time           `json:"fetchedAt"`
}

// Store is a JSON file keyed by playlist id. It is loaded once and written back
// with Save.
type Store struct {
	path    string
	mu      sync.RWMutex
	entries map[string]Entry
	dirty   bool
}

// DefaultPath returns the snapshot file location under the XDG cache directory.
func DefaultPath() (string, error) {
	return xdg.CacheFile(filepath.Join("plexify", "snapshots.json"))
}

// Open loads the store at path. A missing file yields an empty store; an
// unreadable one is logged and replaced.
func Open(path string) (*Store, error) {
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve snapshot path: %w", err)
		}
		path = p
	}
	s := &Store{path: path, entries: make(map[string]Entry)}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("No snapshot cache yet", "path", path)
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot cache: %w", err)
	}
	if err := json.Unmarshal(data, &s.entries); err != nil {
		slog.Warn("Discarding corrupt snapshot cache", "path", path, "error", err)
		s.entries = make(map[string]Entry)
	}
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Lookup returns the cached tracks when the snapshot id matches.
func (s *Store) Lookup(playlistID, snapshotID string) ([]music.RemoteTrack, bool) {
	if snapshotID == "" {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[playlistID]
	if !ok || e.SnapshotID != snapshotID {
		return nil, false
	}
	return e.Tracks, true
}

// Put records the tracks of a playlist at the given snapshot.
func (s *Store) Put(pl music.RemotePlaylist) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[pl.ID] = Entry{
		Name:       pl.Name,
		SnapshotID: pl.SnapshotID,
		Tracks:     pl.Tracks,
		FetchedAt:  time.Now().UTC(),
	}
	s.dirty = true
}

// Invalidate drops a playlist so it is fetched again next time.
func (s *Store) Invalidate(playlistID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[playlistID]; ok {
		delete(s.entries, playlistID)
		s.dirty = true
	}
}

// Len returns the number of cached playlists.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Save writes the store atomically when something changed.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.dirty {
		return nil
	}
	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot cache: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot cache: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace snapshot cache: %w", err)
	}
	s.dirty = false
	slog.Debug("Snapshot cache saved", "path", s.path, "playlists", len(s.entries))
	return nil
}

package catalog

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contre95/plexify/src/music"
)

// SnapshotCache keeps playlist tracks keyed by playlist id and snapshot id.
type SnapshotCache interface {
	Lookup(playlistID, snapshotID string) ([]music.RemoteTrack, bool)
	Put(pl music.RemotePlaylist)
	Invalidate(playlistID string)
	Save() error
}

// Service resolves configured references into playlists and loads their
// tracks, hitting the remote catalog only when a playlist changed.
type Service struct {
	catalog music.Catalog
	cache   SnapshotCache
}

// NewService creates a new catalog service.
func NewService(catalog music.Catalog, cache SnapshotCache) *Service {
	return &Service{catalog: catalog, cache: cache}
}

// Resolve turns references into playlist headers, without tracks. Playlists
// reachable through several references are returned once, in first-seen order.
// Missing playlists are logged and skipped.
func (s *Service) Resolve(ctx context.Context, refs []music.CatalogRef) ([]music.RemotePlaylist, error) {
	var (
		out     []music.RemotePlaylist
		seen    = make(map[string]bool)
		special []string
	)
	add := func(pls ...music.RemotePlaylist) {
		for _, pl := range pls {
			if seen[pl.ID] {
				continue
			}
			seen[pl.ID] = true
			out = append(out, pl)
		}
	}

	for _, ref := range refs {
		switch r := ref.(type) {
		case music.UserRef:
			pls, err := s.catalog.UserPlaylists(ctx, r.ID)
			if err != nil {
				if music.IsSkippable(err) {
					slog.Warn("Skipping user reference", "ref", r.String(), "error", err)
					continue
				}
				return nil, fmt.Errorf("failed to list playlists for %s: %w", r, err)
			}
			slog.Info("Retrieved user playlists", "user", r.ID, "count", len(pls))
			add(pls...)
		case music.PlaylistRef:
			pl, err := s.catalog.Playlist(ctx, r.ID)
			if err != nil {
				if music.IsSkippable(err) {
					slog.Warn("Skipping playlist reference", "ref", r.String(), "error", err)
					continue
				}
				return nil, fmt.Errorf("failed to get playlist %s: %w", r.ID, err)
			}
			add(*pl)
		case music.SpecialRef:
			special = append(special, r.Name)
		default:
			slog.Warn("Unknown catalog reference", "ref", fmt.Sprint(ref))
		}
	}

	if len(special) > 0 {
		pls, err := s.catalog.FindPlaylistsByName(ctx, special)
		if err != nil {
			if !music.IsSkippable(err) {
				return nil, fmt.Errorf("failed to look up playlists by name: %w", err)
			}
			slog.Warn("Skipping named playlists", "names", special, "error", err)
		}
		found := make(map[string]bool, len(pls))
		for _, pl := range pls {
			found[pl.Name] = true
		}
		for _, name := range special {
			if !found[name] {
				slog.Warn("Named playlist not found for current user", "name", name)
			}
		}
		add(pls...)
	}
	return out, nil
}

// LoadTracks fills pl.Tracks from the snapshot cache when the fingerprint is
// unchanged, otherwise from the remote catalog. It reports whether the cache served it.
func (s *Service) LoadTracks(ctx context.Context, pl *music.RemotePlaylist) (bool, error) {
	if s.cache != nil {
		if tracks, ok := s.cache.Lookup(pl.ID, pl.SnapshotID); ok {
			pl.Tracks = tracks
			slog.Debug("Playlist unchanged, using cached tracks", "playlist", pl.Name, "snapshot", pl.SnapshotID, "tracks", len(tracks))
			return true, nil
		}
	}
	tracks, err := s.catalog.PlaylistTracks(ctx, pl.ID)
	if err != nil {
		return false, fmt.Errorf("failed to list tracks of %q: %w", pl.Name, err)
	}
	pl.Tracks = tracks
	if s.cache != nil {
		s.cache.Put(*pl)
	}
	slog.Info("Retrieved playlist tracks", "playlist", pl.Name, "tracks", len(tracks))
	return false, nil
}

// RemoveTrack removes a track remotely and forgets the cached snapshot.
func (s *Service) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	if err := s.catalog.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return err
	}
	if s.cache != nil {
		s.cache.Invalidate(playlistID)
	}
	return nil
}

// Persist writes the snapshot cache.
func (s *Service) Persist() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Save()
}

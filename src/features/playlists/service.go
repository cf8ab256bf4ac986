package playlists

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/contre95/plexify/src/features/acquisition"
	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/music"
)

// Acquirer materializes a remote track as a file in a folder.
type Acquirer interface {
	Acquire(ctx context.Context, track music.RemoteTrack, destDir string) acquisition.Outcome
}

// Destinations maps a playlist to the folder its downloads land in and
// deletes files under the library root.
type Destinations interface {
	PlaylistDir(playlistName string) (string, error)
	Remove(path string) error
}

// Mode is the reconciliation mode of a playlist.
type Mode string

const (
	OneWay Mode = "one-way"
	Mirror Mode = "mirror"
)

// Report describes what a reconciliation changed.
type Report struct {
	Playlist   string              `json:"playlist"`
	Mode       Mode                `json:"mode"`
	Resolved   int                 `json:"resolved"`
	Unresolved []music.RemoteTrack `json:"unresolved,omitempty"`
	Created    bool                `json:"created"`
	Added      int                 `json:"added"`
	Removed    int                 `json:"removed"`
}

// Service reconciles remote playlists into the local library.
type Service struct {
	library       music.Library
	acquirer      Acquirer
	destinations  Destinations
	configManager *config.Manager
}

// NewService creates a new playlists service.
func NewService(lib music.Library, acquirer Acquirer, destinations Destinations, cfgManager *config.Manager) *Service {
	return &Service{
		library:       lib,
		acquirer:      acquirer,
		destinations:  destinations,
		configManager: cfgManager,
	}
}

// Library exposes the local library.
func (s *Service) Library() music.Library {
	return s.library
}

// ModeOf returns the reconciliation mode for a playlist name.
func (s *Service) ModeOf(name string) Mode {
	if s.configManager.Get().IsMirror(name) {
		return Mirror
	}
	return OneWay
}

// Reconcile resolves every track of pl to a library item, acquiring the
// missing ones, and brings the local playlist of the same name in line.
// Mirror playlists also lose the items no longer present remotely, and the
// files behind them. Not-found and bad-request errors from the library are logged and
// skipped; any other error aborts the playlist.
func (s *Service) Reconcile(ctx context.Context, pl music.RemotePlaylist, stats *music.CycleStats) (*Report, error) {
	report := &Report{Playlist: pl.Name, Mode: s.ModeOf(pl.Name)}
	logger := slog.With("playlist", pl.Name, "mode", report.Mode)
	logger.Info("Reconciling playlist", "tracks", len(pl.Tracks))

	resolved, err := s.resolve(ctx, logger, pl, stats, report)
	if err != nil {
		return report, err
	}
	report.Resolved = len(resolved)

	local, err := s.library.GetPlaylist(ctx, pl.Name)
	if err != nil {
		if !music.IsSkippable(err) {
			return report, fmt.Errorf("failed to get local playlist %q: %w", pl.Name, err)
		}
		logger.Warn("Could not load local playlist", "error", err)
		return report, nil
	}

	if local == nil {
		if len(resolved) == 0 {
			logger.Info("No tracks resolved, not creating playlist")
			return report, nil
		}
		if err := s.library.CreatePlaylist(ctx, pl.Name, resolved); err != nil {
			return report, s.skip(logger, "create playlist", err)
		}
		report.Created = true
		report.Added = len(resolved)
		logger.Info("Created playlist", "items", len(resolved))
		return report, nil
	}

	if report.Mode == Mirror {
		if err := s.removeStale(ctx, logger, pl, local, resolved, stats, report); err != nil {
			return report, err
		}
	}

	existing := local.Identities()
	present := make(map[string]bool, len(local.Tracks))
	for _, t := range local.Tracks {
		present[t.Key] = true
	}
	var toAdd []music.LocalTrack
	for _, t := range resolved {
		if _, ok := existing[t.Identity()]; ok || present[t.Key] {
			continue
		}
		toAdd = append(toAdd, t)
	}
	if len(toAdd) == 0 {
		logger.Debug("Playlist already up to date")
		return report, nil
	}
	if err := s.library.AddItems(ctx, local, toAdd); err != nil {
		return report, s.skip(logger, "add items", err)
	}
	report.Added = len(toAdd)
	logger.Info("Added items to playlist", "count", len(toAdd))
	return report, nil
}

// resolve maps remote tracks to library items in playlist order, one item
// per identity.
func (s *Service) resolve(ctx context.Context, logger *slog.Logger, pl music.RemotePlaylist, stats *music.CycleStats, report *Report) ([]music.LocalTrack, error) {
	var (
		resolved []music.LocalTrack
		seen     = make(map[music.TrackIdentity]bool)
		destDir  string
	)
	for _, track := range pl.Tracks {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		id := track.Identity()
		if seen[id] {
			continue
		}

		match, err := s.library.FindMatching(ctx, track.Title, track.Artist)
		if err != nil {
			if !music.IsSkippable(err) {
				return nil, fmt.Errorf("failed to search library for %s: %w", id, err)
			}
			logger.Warn("Library search failed", "track", id.String(), "error", err)
		}

		if match == nil && err == nil {
			if destDir == "" {
				if destDir, err = s.destinations.PlaylistDir(pl.Name); err != nil {
					return nil, fmt.Errorf("failed to prepare folder for %q: %w", pl.Name, err)
				}
			}
			match, err = s.acquire(ctx, logger, track, destDir, stats)
			if err != nil {
				return nil, err
			}
		}

		if match == nil {
			report.Unresolved = append(report.Unresolved, track)
			continue
		}
		seen[id] = true
		resolved = append(resolved, *match)
	}
	return resolved, nil
}

// acquire fetches a missing track and looks it up again once the library
// has rescanned the folder.
func (s *Service) acquire(ctx context.Context, logger *slog.Logger, track music.RemoteTrack, destDir string, stats *music.CycleStats) (*music.LocalTrack, error) {
	logger.Info("Track missing from library", "track", track.Artist+" - "+track.Title)
	out := s.acquirer.Acquire(ctx, track, destDir)
	out.Record(stats)
	if out.Kind == acquisition.Failed {
		logger.Warn("Could not acquire track", "track", track.Title, "reason", out.Reason)
		return nil, nil
	}

	if err := s.library.Refresh(ctx, destDir); err != nil {
		logger.Warn("Library refresh failed", "path", destDir, "error", err)
	}
	match, err := s.library.FindMatching(ctx, track.Title, track.Artist)
	if err != nil {
		if !music.IsSkippable(err) {
			return nil, fmt.Errorf("failed to search library for %s: %w", track.Identity(), err)
		}
		logger.Warn("Library search failed after acquisition", "track", track.Title, "error", err)
		return nil, nil
	}
	if match == nil {
		logger.Info("Acquired track not indexed yet, will retry next cycle", "track", track.Title, "path", out.Path)
	}
	return match, nil
}

// removeStale drops the local items that left the remote playlist and
// deletes their files. An item stays while its key resolved this cycle or
// its identity is still listed remotely. Library entries are left to the
// next scan.
func (s *Service) removeStale(ctx context.Context, logger *slog.Logger, pl music.RemotePlaylist, local *music.LocalPlaylist, resolved []music.LocalTrack, stats *music.CycleStats, report *Report) error {
	wanted := make(map[music.TrackIdentity]bool, len(pl.Tracks)+len(resolved))
	keys := make(map[string]bool, len(resolved))
	for _, t := range pl.Tracks {
		wanted[t.Identity()] = true
	}
	for _, t := range resolved {
		wanted[t.Identity()] = true
		keys[t.Key] = true
	}

	var stale, kept []music.LocalTrack
	for _, t := range local.Tracks {
		if keys[t.Key] || wanted[t.Identity()] {
			kept = append(kept, t)
			continue
		}
		stale = append(stale, t)
	}
	if len(stale) == 0 {
		return nil
	}

	if err := s.library.RemoveItems(ctx, local, stale); err != nil {
		return s.skip(logger, "remove items", err)
	}
	local.Tracks = kept
	for _, t := range stale {
		if err := s.removeFiles(t); err != nil {
			stats.DeletionsFailed++
			logger.Warn("Failed to delete track files", "track", t.Artist+" - "+t.Title, "error", err)
			continue
		}
		stats.DeletionsSucceeded++
		report.Removed++
		logger.Info("Deleted track no longer in playlist", "track", t.Artist+" - "+t.Title)
	}
	return nil
}

func (s *Service) removeFiles(t music.LocalTrack) error {
	var errs []error
	for _, f := range t.Files {
		if err := s.destinations.Remove(f); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// skip logs skippable library errors and returns the others wrapped.
func (s *Service) skip(logger *slog.Logger, op string, err error) error {
	if music.IsSkippable(err) {
		logger.Warn("Library rejected "+op, "error", err)
		return nil
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

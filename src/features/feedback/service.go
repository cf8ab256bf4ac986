package feedback

import (
	"context"
	"log/slog"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/music"
)

// RemoteRemover removes a single track from a remote playlist.
type RemoteRemover interface {
	RemoveTrack(ctx context.Context, playlistID, trackID string) error
}

// Report counts what a feedback pass did.
type Report struct {
	Rejected      int `json:"rejected"`
	RemoteRemoved int `json:"remoteRemoved"`
	RemoteFailed  int `json:"remoteFailed"`
	Deleted       int `json:"deleted"`
	DeleteFailed  int `json:"deleteFailed"`
}

// Service turns low ratings in the library into removals on both sides.
type Service struct {
	library       music.Library
	remote        RemoteRemover
	configManager *config.Manager
}

// NewService creates a new feedback service.
func NewService(lib music.Library, remote RemoteRemover, cfgManager *config.Manager) *Service {
	return &Service{
		library:       lib,
		remote:        remote,
		configManager: cfgManager,
	}
}

// Enabled reports whether rating driven cleanup is switched on.
func (s *Service) Enabled() bool {
	return s.configManager.Get().Feedback.Enabled
}

// Process looks, for every playlist, at the tracks of the library section of
// the same name rated at or below the reject threshold. Each of them is
// removed from the remote playlist when it is found there, and deleted from
// the library either way. The two removals never block each other.
func (s *Service) Process(ctx context.Context, playlists []music.RemotePlaylist, stats *music.CycleStats) Report {
	var report Report
	if !s.Enabled() {
		return report
	}
	threshold := s.configManager.Get().Feedback.RejectRating
	rejected := func(rating float64) bool { return rating > 0 && rating <= threshold }

	for _, pl := range playlists {
		if ctx.Err() != nil {
			return report
		}
		if pl.ID == "" {
			continue
		}
		logger := slog.With("playlist", pl.Name)
		tracks, err := s.library.RatedTracks(ctx, pl.Name, rejected)
		if err != nil {
			if music.IsSkippable(err) {
				logger.Debug("No library section for playlist", "error", err)
			} else {
				logger.Warn("Failed to list rated tracks", "error", err)
			}
			continue
		}
		for _, t := range tracks {
			report.Rejected++
			s.reject(ctx, logger, pl, t, stats, &report)
		}
	}
	if report.Rejected > 0 {
		slog.Info("Feedback processed", "rejected", report.Rejected, "remoteRemoved", report.RemoteRemoved, "deleted", report.Deleted)
	}
	return report
}

func (s *Service) reject(ctx context.Context, logger *slog.Logger, pl music.RemotePlaylist, t music.LocalTrack, stats *music.CycleStats, report *Report) {
	name := t.Artist + " - " + t.Title
	if remote, ok := pl.FindTrack(t.Identity()); ok {
		if err := s.remote.RemoveTrack(ctx, pl.ID, remote.ID); err != nil {
			report.RemoteFailed++
			logger.Warn("Failed to remove rejected track from remote playlist", "track", name, "error", err)
		} else {
			report.RemoteRemoved++
			logger.Info("Removed rejected track from remote playlist", "track", name)
		}
	} else {
		logger.Info("Rejected track not in remote playlist", "track", name)
	}

	if err := s.library.DeleteTrack(ctx, t); err != nil {
		stats.DeletionsFailed++
		report.DeleteFailed++
		logger.Warn("Failed to delete rejected track", "track", name, "error", err)
		return
	}
	stats.DeletionsSucceeded++
	report.Deleted++
	logger.Info("Deleted rejected track", "track", name, "rating", t.Rating)
}

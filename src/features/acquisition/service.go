package acquisition

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/infra/files"
	"github.com/contre95/plexify/src/music"
)

// Service acquires missing tracks: it looks for a copy already on disk, then
// tries each search tier and format, then the direct download tool, and tags
// whatever file appeared.
type Service struct {
	configManager *config.Manager
	files         *files.FileOrganizer
	searchers     []Searcher
	fetcher       Fetcher
	direct        DirectFetcher
	tagWriter     TagWriter
	tagReader     TagReader
	artwork       ArtworkService
}

// NewService creates a new acquisition service. Searchers are tried in order.
// direct, tagReader and artwork may be nil.
func NewService(cfgManager *config.Manager, organizer *files.FileOrganizer, searchers []Searcher, fetcher Fetcher, direct DirectFetcher, tagWriter TagWriter, tagReader TagReader, artwork ArtworkService) *Service {
	return &Service{
		configManager: cfgManager,
		files:         organizer,
		searchers:     searchers,
		fetcher:       fetcher,
		direct:        direct,
		tagWriter:     tagWriter,
		tagReader:     tagReader,
		artwork:       artwork,
	}
}

// Acquire makes sure track exists as an audio file in destDir.
func (s *Service) Acquire(ctx context.Context, track music.RemoteTrack, destDir string) Outcome {
	if out, ok := s.Existing(ctx, track, destDir); ok {
		return out
	}
	return s.Fetch(ctx, track, destDir)
}

// Existing reports a Skipped outcome when destDir already holds the track,
// lossless files first. A match found under another name is renamed to the
// canonical name when that name is free.
func (s *Service) Existing(ctx context.Context, track music.RemoteTrack, destDir string) (Outcome, bool) {
	stem := s.files.Stem(track.Artist, track.Title)
	entries, err := os.ReadDir(destDir)
	if err != nil {
		return Outcome{}, false
	}

	wantStems := []string{music.Strict(stem), music.Strict(track.Artist + " - " + track.Title)}
	want := track.Identity()
	for _, ext := range files.AudioExtensions {
		canonical := filepath.Join(destDir, stem+ext)
		if _, err := os.Stat(canonical); err == nil {
			return skipped(canonical, "already present"), true
		}
		for _, e := range entries {
			name := e.Name()
			if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ext) {
				continue
			}
			path := filepath.Join(destDir, name)
			if !s.sameTrack(ctx, path, wantStems, want) {
				continue
			}
			return skipped(s.canonicalize(path, canonical), "already present"), true
		}
	}
	return Outcome{}, false
}

// sameTrack matches a file by strict file name stem, then by embedded tags.
func (s *Service) sameTrack(ctx context.Context, path string, wantStems []string, want music.TrackIdentity) bool {
	nameStem := music.Strict(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	for _, w := range wantStems {
		if nameStem == w {
			return true
		}
	}
	if s.tagReader == nil {
		return false
	}
	id, err := s.tagReader.ReadIdentity(ctx, path)
	if err != nil {
		slog.Debug("Could not read tags", "path", path, "error", err)
		return false
	}
	return !id.IsZero() && id.Equal(want)
}

// canonicalize renames path to canonical unless that name is taken.
func (s *Service) canonicalize(path, canonical string) string {
	if path == canonical {
		return path
	}
	if _, err := os.Stat(canonical); err == nil {
		return path
	}
	if err := s.files.Move(path, canonical); err != nil {
		slog.Warn("Failed to rename file to canonical name", "from", path, "to", canonical, "error", err)
		return path
	}
	slog.Info("Renamed file to canonical name", "from", filepath.Base(path), "to", filepath.Base(canonical))
	return canonical
}

// Fetch runs the network tiers without checking for an existing copy. A
// tier is searched only after every format of the previous tier failed.
func (s *Service) Fetch(ctx context.Context, track music.RemoteTrack, destDir string) Outcome {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return failed(fmt.Sprintf("destination unavailable: %v", err), false)
	}
	stem := s.files.Stem(track.Artist, track.Title)
	query := track.Artist + " - " + track.Title
	logger := slog.With("track", query, "dir", destDir)

	var reasons []string
	seen := make(map[string]bool)
	for _, searcher := range s.searchers {
		if ctx.Err() != nil {
			return failed(ctx.Err().Error(), true)
		}
		loc, err := searcher.Search(ctx, query)
		if err != nil {
			logger.Warn("Search tier failed", "tier", searcher.Name(), "error", err)
			reasons = append(reasons, fmt.Sprintf("%s: %v", searcher.Name(), err))
			continue
		}
		if loc == "" || seen[loc] {
			reasons = append(reasons, searcher.Name()+": no search results")
			continue
		}
		seen[loc] = true

		for _, format := range s.formats() {
			if ctx.Err() != nil {
				return failed(ctx.Err().Error(), true)
			}
			path, err := s.attempt(destDir, func() error {
				return s.fetcher.Fetch(ctx, loc, destDir, stem, format)
			}, "."+format)
			if path != "" {
				return s.finish(ctx, track, path, stem)
			}
			logger.Warn("Fetch attempt failed", "tier", searcher.Name(), "locator", loc, "format", format, "error", err)
			reasons = append(reasons, fmt.Sprintf("%s as %s: %v", loc, format, err))
		}
	}
	if len(s.searchers) == 0 {
		reasons = append(reasons, "no search results")
	}

	if s.direct != nil && track.URL != "" && ctx.Err() == nil {
		path, err := s.attempt(destDir, func() error {
			return s.direct.Fetch(ctx, track.URL, destDir)
		}, "")
		if path != "" {
			return s.finish(ctx, track, path, stem)
		}
		logger.Warn("Direct download failed", "url", track.URL, "error", err)
		reasons = append(reasons, fmt.Sprintf("direct: %v", err))
	}

	logger.Error("Failed to acquire track")
	return failed(strings.Join(reasons, "; "), true)
}

func (s *Service) formats() []string {
	if s.configManager != nil && !s.configManager.Get().Acquisition.PreferLossless {
		return []string{"mp3"}
	}
	return []string{"flac", "mp3"}
}

// attempt runs fn and returns the audio file it created in dir, preferring
// ext. A zero exit status without a new file is a failure.
func (s *Service) attempt(dir string, fn func() error, ext string) (string, error) {
	before, err := files.List(dir)
	if err != nil {
		return "", err
	}
	runErr := fn()
	after, err := files.List(dir)
	if err != nil {
		return "", err
	}
	created := files.Created(dir, before, after)
	if len(created) == 0 {
		if runErr == nil {
			runErr = fmt.Errorf("no new audio file appeared")
		}
		return "", runErr
	}
	for _, want := range append([]string{ext}, files.AudioExtensions...) {
		if want == "" {
			continue
		}
		if match := files.ByExtension(created, want); len(match) > 0 {
			return match[0], nil
		}
	}
	return created[0], nil
}

// finish renames the new file to its canonical name and tags it. Tagging
// problems never fail the acquisition.
func (s *Service) finish(ctx context.Context, track music.RemoteTrack, path, stem string) Outcome {
	path = s.canonicalize(path, filepath.Join(filepath.Dir(path), stem+strings.ToLower(filepath.Ext(path))))

	artworkPath := ""
	if s.artwork != nil && track.ArtworkURL != "" && s.artworkEnabled() {
		p, err := s.artwork.DownloadArtwork(ctx, track.ArtworkURL)
		if err != nil {
			slog.Warn("Failed to download artwork", "track", track.Title, "error", err)
		} else {
			artworkPath = p
		}
	}
	if s.tagWriter != nil {
		if err := s.tagWriter.WriteFileTags(ctx, path, track, artworkPath); err != nil {
			slog.Warn("Failed to tag file", "path", path, "error", err)
		}
	}
	slog.Info("Acquired track", "track", track.Artist+" - "+track.Title, "path", path)
	return Outcome{Kind: Fetched, Path: path, Networked: true}
}

func (s *Service) artworkEnabled() bool {
	return s.configManager == nil || s.configManager.Get().Acquisition.Artwork.Enabled
}

package artwork

import (
	"context"
	"crypto/md5"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/gosimple/slug"
)

const cacheTTL = 24 * time.Hour

// Service downloads cover images into a local cache directory so the tagger
// can embed them.
type Service struct {
	dir    string
	client *http.Client
}

// NewService creates an artwork service caching into dir. An empty dir uses
// the user cache directory.
func NewService(dir string, client *http.Client) (*Service, error) {
	if dir == "" {
		marker, err := xdg.CacheFile("plexify/artwork/.keep")
		if err != nil {
			return nil, fmt.Errorf("failed to resolve artwork cache dir: %w", err)
		}
		dir = filepath.Dir(marker)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create artwork cache dir: %w", err)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &Service{dir: dir, client: client}, nil
}

// DownloadArtwork returns a local path holding the image at url, downloading
// it unless a fresh copy is cached.
func (s *Service) DownloadArtwork(ctx context.Context, url string) (string, error) {
	if url == "" {
		return "", fmt.Errorf("empty artwork URL")
	}

	cachePath := filepath.Join(s.dir, cacheName(url))
	if info, err := os.Stat(cachePath); err == nil {
		if time.Since(info.ModTime()) < cacheTTL {
			slog.Debug("Using cached artwork", "path", cachePath)
			return cachePath, nil
		}
		os.Remove(cachePath)
	}

	slog.Debug("Downloading artwork", "url", url, "path", cachePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to download artwork: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("artwork download failed with status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp(s.dir, ".artwork-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write artwork file: %w", err)
	}
	tmp.Close()
	if err := os.Rename(tmp.Name(), cachePath); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store artwork file: %w", err)
	}
	return cachePath, nil
}

// Prune removes cached images older than the cache lifetime.
func (s *Service) Prune() int {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return 0
	}
	removed := 0
	for _, e := range entries {
		info, err := e.Info()
		if err != nil || e.IsDir() || time.Since(info.ModTime()) < cacheTTL {
			continue
		}
		if os.Remove(filepath.Join(s.dir, e.Name())) == nil {
			removed++
		}
	}
	return removed
}

// cacheName derives a stable, readable file name for url.
func cacheName(url string) string {
	base := slug.Make(strings.TrimSuffix(path.Base(url), path.Ext(url)))
	if len(base) > 40 {
		base = base[:40]
	}
	return fmt.Sprintf("%s-%x%s", base, md5.Sum([]byte(url)), imageExtension(url))
}

func imageExtension(url string) string {
	if strings.Contains(strings.ToLower(url), ".png") {
		return ".png"
	}
	return ".jpg"
}

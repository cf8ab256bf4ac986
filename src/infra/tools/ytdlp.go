package tools

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// YtDlp wraps the yt-dlp command line tool.
type YtDlp struct {
	path    string
	timeout time.Duration
	runner  Runner
}

// NewYtDlp creates a yt-dlp wrapper. Every invocation is bounded by timeout.
func NewYtDlp(path string, timeout time.Duration, runner Runner) *YtDlp {
	if path == "" {
		path = "yt-dlp"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &YtDlp{path: path, timeout: timeout, runner: runner}
}

// Name identifies the tier in logs.
func (y *YtDlp) Name() string { return "yt-dlp" }

// Search returns the locator of the first video matching query, or "" when
// nothing was found.
func (y *YtDlp) Search(ctx context.Context, query string) (string, error) {
	out, err := y.runner.Run(ctx, y.timeout, y.path,
		"--print", "id",
		"--skip-download",
		"--no-warnings",
		"ytsearch1:"+query,
	)
	if err != nil {
		return "", fmt.Errorf("yt-dlp search %q: %w", query, err)
	}
	id := strings.TrimSpace(string(out))
	if i := strings.IndexByte(id, '\n'); i >= 0 {
		id = strings.TrimSpace(id[:i])
	}
	if id == "" {
		return "", nil
	}
	return WatchURL(id), nil
}

// Fetch downloads the audio of locator into dir/stem.<format>, converting
// with the given format (flac or mp3). Existing files are never overwritten.
func (y *YtDlp) Fetch(ctx context.Context, locator, dir, stem, format string) error {
	_, err := y.runner.Run(ctx, y.timeout, y.path,
		"--format", "bestaudio",
		"--extract-audio",
		"--audio-format", format,
		"--audio-quality", "0",
		"--output", filepath.Join(dir, stem+".%(ext)s"),
		"--no-overwrites",
		"--no-playlist",
		"--no-progress",
		locator,
	)
	if err != nil {
		return fmt.Errorf("yt-dlp fetch %s as %s: %w", locator, format, err)
	}
	return nil
}

// WatchURL turns a bare video id into a watch URL.
func WatchURL(id string) string {
	if strings.HasPrefix(id, "http://") || strings.HasPrefix(id, "https://") {
		return id
	}
	return "https://www.youtube.com/watch?v=" + id
}

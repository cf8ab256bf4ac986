package config

import (
	"context"
	"errors"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/contre95/plexify/src/infra/watcher"
	"github.com/contre95/plexify/src/music"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
libraryPath: /music
spotify:
  clientId: id
  clientSecret: secret
  uris:
    - spotify:user:alice
    - spotify:playlist:p1
plex:
  url: http://plex:32400
  token: tok
sync:
  interval: 30m
  specialPlaylists: [Discover Weekly]
`

func clearEnv(t *testing.T) {
	for _, k := range []string{"SPOTIPY_CLIENT_ID", "SPOTIPY_CLIENT_SECRET", "SPOTIFY_REFRESH_TOKEN", "SPOTIFY_URIS",
		"PLEX_URL", "PLEX_TOKEN", "SPOTIPY_PATH", "MUSIC_PATH", "SECONDS_TO_WAIT", "LOG_LEVEL", "YOUTUBE_API_KEY", "TELEGRAM_TOKEN"} {
		t.Setenv(k, "")
	}
}

func TestParse_AppliesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Minute, cfg.Sync.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Sync.RetryDelay)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 120*time.Second, cfg.Acquisition.DirectTimeout)
	assert.Equal(t, float64(2), cfg.Feedback.RejectRating)

	refs, err := cfg.Refs()
	require.NoError(t, err)
	assert.Equal(t, []music.CatalogRef{
		music.UserRef{ID: "alice"},
		music.PlaylistRef{ID: "p1"},
		music.SpecialRef{Name: "Discover Weekly"},
	}, refs)
}

func TestParse_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SPOTIFY_URIS", "spotify:playlist:a, spotify:playlist:b")
	t.Setenv("SECONDS_TO_WAIT", "60")
	t.Setenv("PLEX_TOKEN", "from-env")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, []string{"spotify:playlist:a", "spotify:playlist:b"}, cfg.Spotify.URIs)
	assert.Equal(t, time.Minute, cfg.Sync.Interval)
	assert.Equal(t, "from-env", cfg.Plex.Token)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestParse_RejectsMissingCredentials(t *testing.T) {
	clearEnv(t)
	_, err := Parse([]byte("libraryPath: /music\n"))
	assert.Error(t, err)
}

func TestParse_RejectsInvalidURI(t *testing.T) {
	clearEnv(t)
	data := strings.Replace(validYAML, "spotify:user:alice", "spotify:user", 1)
	_, err := Parse([]byte(data))
	require.Error(t, err)
	assert.ErrorIs(t, err, music.ErrInvalidRef)
}

func TestLoad_WritesDefaultAndFails(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCreatedDefault))
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestIsMirror_CaseInsensitive(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.IsMirror(" discover weekly "))
	assert.True(t, cfg.IsMirror("RELEASE RADAR"))
	assert.False(t, cfg.IsMirror("Road Trip"))
}

func TestRestartRequired_ListsStartupOnlyKeys(t *testing.T) {
	old := Default()
	hot := Default()
	hot.Sync.Interval = time.Hour
	hot.Acquisition.Delay = time.Minute
	hot.Sync.MirrorPlaylists = []string{"Road Trip"}
	assert.Empty(t, RestartRequired(old, hot))

	cold := Default()
	cold.Acquisition.YtDlpPath = "/opt/yt-dlp"
	cold.Acquisition.Timeout = time.Minute
	cold.Retry.MaxAttempts = 9
	assert.Equal(t, []string{"acquisition.timeout", "acquisition.ytdlpPath", "retry"}, RestartRequired(old, cold))
	assert.Nil(t, RestartRequired(nil, cold))
}

func TestRedacted_MasksSecrets(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	m := NewManager(cfg)

	out := m.GetJSON()
	assert.NotContains(t, out, `"secret"`)
	assert.NotContains(t, out, `"tok"`)
	assert.Contains(t, out, redacted)
	assert.Equal(t, "secret", m.Get().Spotify.ClientSecret, "redaction must not touch the live config")
}

func TestGetConfigRoute(t *testing.T) {
	clearEnv(t)
	cfg, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	app := fiber.New()
	RegisterRoutes(app, NewManager(cfg))

	resp, err := app.Test(httptest.NewRequest("GET", "/api/config?fmt=yaml", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/api/config?fmt=xml", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestWatch_ReloadsValidChanges(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := strings.Replace(validYAML, "/music", filepath.Join(dir, "music"), 1)
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	m, err := Load(path)
	require.NoError(t, err)
	changed := make(chan *Config, 4)
	m.OnChange(func(c *Config) { changed <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Watch(ctx)
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("not: [valid"), 0644))
	time.Sleep(watcher.DefaultDebounce + 300*time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(data, "30m", "45m", 1)), 0644))

	select {
	case c := <-changed:
		assert.Equal(t, 45*time.Minute, c.Sync.Interval)
	case <-time.After(3 * time.Second):
		t.Fatal("configuration was not reloaded")
	}
	assert.Equal(t, 45*time.Minute, m.Get().Sync.Interval)
}

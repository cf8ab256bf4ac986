package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/contre95/plexify/src/music"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrCreatedDefault is returned by Load when no file existed and a default one was written.
var ErrCreatedDefault = errors.New("default configuration created, fill in the credentials")

var validate = validator.New()

// Load reads a YAML file from the given path and returns a new Manager.
// If the file doesn't exist, a default configuration is written and
// ErrCreatedDefault is returned.
func Load(path string) (*Manager, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		slog.Info("Config file not found, creating default configuration", "path", path)
		if err := saveConfig(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return nil, fmt.Errorf("%w: %s", ErrCreatedDefault, path)
	}

	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	manager := NewManager(cfg)
	manager.path = path
	if err := manager.EnsureDirectories(); err != nil {
		return nil, err
	}
	return manager, nil
}

// read decodes, overrides and validates the file at path.
func read(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse builds a validated configuration from YAML. Keys absent from data keep
// their default values and environment variables take precedence over both.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if len(bytes.TrimSpace(data)) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config: %w", err)
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	applyFallbacks(cfg)

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := cfg.Refs(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// applyEnv overrides values with the environment variables of the original deployment.
func applyEnv(cfg *Config) error {
	setString(&cfg.Spotify.ClientID, "SPOTIPY_CLIENT_ID")
	setString(&cfg.Spotify.ClientSecret, "SPOTIPY_CLIENT_SECRET")
	setString(&cfg.Spotify.RefreshToken, "SPOTIFY_REFRESH_TOKEN")
	setString(&cfg.Plex.URL, "PLEX_URL")
	setString(&cfg.Plex.Token, "PLEX_TOKEN")
	setString(&cfg.LibraryPath, "SPOTIPY_PATH")
	setString(&cfg.LibraryPath, "MUSIC_PATH")
	setString(&cfg.Logger.Level, "LOG_LEVEL")
	setString(&cfg.Acquisition.YouTubeAPIKey, "YOUTUBE_API_KEY")
	setString(&cfg.Telegram.Token, "TELEGRAM_TOKEN")

	if uris := os.Getenv("SPOTIFY_URIS"); uris != "" {
		cfg.Spotify.URIs = splitList(uris)
	}
	if secs := os.Getenv("SECONDS_TO_WAIT"); secs != "" {
		n, err := strconv.Atoi(secs)
		if err != nil || n < 0 {
			return fmt.Errorf("invalid SECONDS_TO_WAIT %q", secs)
		}
		cfg.Sync.Interval = time.Duration(n) * time.Second
	}
	cfg.Logger.Level = strings.ToLower(cfg.Logger.Level)
	return nil
}

func setString(dst *string, env string) {
	if v := os.Getenv(env); v != "" {
		*dst = v
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// applyFallbacks replaces zero values that have no meaning with the defaults.
func applyFallbacks(cfg *Config) {
	if cfg.Sync.Interval <= 0 {
		cfg.Sync.Interval = defaultConfig.Sync.Interval
	}
	if cfg.Sync.RetryDelay <= 0 {
		cfg.Sync.RetryDelay = defaultConfig.Sync.RetryDelay
	}
	if cfg.Acquisition.Timeout <= 0 {
		cfg.Acquisition.Timeout = defaultConfig.Acquisition.Timeout
	}
	if cfg.Acquisition.DirectTimeout <= 0 {
		cfg.Acquisition.DirectTimeout = defaultConfig.Acquisition.DirectTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = defaultConfig.Retry.MaxAttempts
	}
	if cfg.Retry.Backoff <= 0 {
		cfg.Retry.Backoff = defaultConfig.Retry.Backoff
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = defaultConfig.Server.Port
	}
}

// Refs parses the configured catalog references. Special playlist names are
// appended as name lookups.
func (c *Config) Refs() ([]music.CatalogRef, error) {
	refs, err := music.ParseCatalogRefs(c.Spotify.URIs)
	if err != nil {
		return nil, err
	}
	for _, name := range c.Sync.SpecialPlaylists {
		if name = strings.TrimSpace(name); name != "" {
			refs = append(refs, music.SpecialRef{Name: name})
		}
	}
	return refs, nil
}

// IsMirror reports whether the playlist named name is reconciled in both directions.
func (c *Config) IsMirror(name string) bool {
	name = strings.TrimSpace(name)
	for _, m := range c.Sync.MirrorPlaylists {
		if strings.EqualFold(strings.TrimSpace(m), name) {
			return true
		}
	}
	return false
}

// saveConfig saves the configuration to the specified file path
func saveConfig(path string, cfg *Config) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()
	encoder := yaml.NewEncoder(file)
	encoder.SetIndent(2)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	slog.Info("Configuration saved", "path", path)
	return nil
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"gopkg.in/yaml.v3"
)

const redacted = "<redacted>"

// Manager holds the application configuration and provides thread-safe access to it.
type Manager struct {
	mu     sync.RWMutex
	config *Config
	path   string
	subs   []func(*Config)
}

// NewManager creates a new Manager.
func NewManager(config *Config) *Manager {
	return &Manager{config: config}
}

// Get returns the current configuration. Callers must not modify it.
func (m *Manager) Get() *Config {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.config
}

// Path returns the file the configuration was loaded from, if any.
func (m *Manager) Path() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.path
}

// OnChange registers fn to be called with every configuration applied by Update.
func (m *Manager) OnChange(fn func(*Config)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, fn)
}

// Update swaps the configuration and notifies subscribers.
func (m *Manager) Update(config *Config) {
	m.mu.Lock()
	oldConfig := m.config
	m.config = config
	subs := append([]func(*Config){}, m.subs...)
	m.mu.Unlock()

	if oldConfig != nil {
		slog.Debug("Configuration updated",
			"library_path_changed", oldConfig.LibraryPath != config.LibraryPath,
			"uris_changed", fmt.Sprint(oldConfig.Spotify.URIs) != fmt.Sprint(config.Spotify.URIs),
			"interval_changed", oldConfig.Sync.Interval != config.Sync.Interval,
			"feedback_enabled_changed", oldConfig.Feedback.Enabled != config.Feedback.Enabled,
			"logger_level_changed", oldConfig.Logger.Level != config.Logger.Level,
		)
	}
	if keys := RestartRequired(oldConfig, config); len(keys) > 0 {
		slog.Warn("Some settings only apply after a restart", "keys", keys)
	}
	for _, fn := range subs {
		fn(config)
	}
}

// RestartRequired lists the changed keys that are read once at startup.
func RestartRequired(oldConfig, newConfig *Config) []string {
	if oldConfig == nil || newConfig == nil {
		return nil
	}
	var keys []string
	check := func(key string, changed bool) {
		if changed {
			keys = append(keys, key)
		}
	}
	o, n := oldConfig, newConfig
	check("libraryPath", o.LibraryPath != n.LibraryPath)
	check("snapshotPath", o.SnapshotPath != n.SnapshotPath)
	check("server", o.Server != n.Server)
	check("database.path", o.Database.Path != n.Database.Path)
	check("spotify.credentials", o.Spotify.ClientID != n.Spotify.ClientID ||
		o.Spotify.ClientSecret != n.Spotify.ClientSecret || o.Spotify.RefreshToken != n.Spotify.RefreshToken)
	check("plex", o.Plex != n.Plex)
	check("acquisition.timeout", o.Acquisition.Timeout != n.Acquisition.Timeout)
	check("acquisition.directTimeout", o.Acquisition.DirectTimeout != n.Acquisition.DirectTimeout)
	check("acquisition.ytdlpPath", o.Acquisition.YtDlpPath != n.Acquisition.YtDlpPath)
	check("acquisition.spotdlPath", o.Acquisition.SpotDLPath != n.Acquisition.SpotDLPath)
	check("acquisition.youtubeApiKey", o.Acquisition.YouTubeAPIKey != n.Acquisition.YouTubeAPIKey)
	check("acquisition.asciiFilenames", o.Acquisition.ASCIIFilenames != n.Acquisition.ASCIIFilenames)
	check("acquisition.artwork.enabled", !o.Acquisition.Artwork.Enabled && n.Acquisition.Artwork.Enabled)
	check("retry", o.Retry != n.Retry)
	check("telegram", o.Telegram.Enabled != n.Telegram.Enabled || o.Telegram.Token != n.Telegram.Token)
	return keys
}

// EnsureDirectories creates the library directory if it doesn't exist.
func (m *Manager) EnsureDirectories() error {
	cfg := m.Get()
	if err := os.MkdirAll(cfg.LibraryPath, 0755); err != nil {
		return fmt.Errorf("failed to create library directory %s: %w", cfg.LibraryPath, err)
	}
	slog.Info("Required directories created/verified", "library", cfg.LibraryPath)
	return nil
}

// Redacted gets a copy of the Config with every secret masked.
func (m *Manager) Redacted() Config {
	cfgCpy := *m.Get()
	mask := func(s *string) {
		if *s != "" {
			*s = redacted
		}
	}
	mask(&cfgCpy.Spotify.ClientSecret)
	mask(&cfgCpy.Spotify.RefreshToken)
	mask(&cfgCpy.Plex.Token)
	mask(&cfgCpy.Telegram.Token)
	mask(&cfgCpy.Acquisition.YouTubeAPIKey)
	return cfgCpy
}

// GetJSON returns the redacted configuration as a JSON string.
func (m *Manager) GetJSON() string {
	jsonBytes, err := jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(m.Redacted())
	if err != nil {
		slog.Error("failed to marshal config to JSON", "error", err)
		return err.Error()
	}
	return string(jsonBytes)
}

// GetYAML returns the redacted configuration as YAML.
func (m *Manager) GetYAML() string {
	yamlBytes, err := yaml.Marshal(m.Redacted())
	if err != nil {
		slog.Error("failed to marshal config to YAML", "error", err)
		return err.Error()
	}
	return string(yamlBytes)
}

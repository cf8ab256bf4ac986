package config

import "time"

// Config holds the application configuration.
type Config struct {
	LibraryPath  string      `yaml:"libraryPath" json:"libraryPath" validate:"required"`
	SnapshotPath string      `yaml:"snapshotPath" json:"snapshotPath"`
	Logger       Logger      `yaml:"logger" json:"logger"`
	Server       Server      `yaml:"server" json:"server"`
	Database     Database    `yaml:"database" json:"database"`
	Spotify      Spotify     `yaml:"spotify" json:"spotify"`
	Plex         Plex        `yaml:"plex" json:"plex"`
	Sync         Sync        `yaml:"sync" json:"sync"`
	Feedback     Feedback    `yaml:"feedback" json:"feedback"`
	Acquisition  Acquisition `yaml:"acquisition" json:"acquisition"`
	Retry        Retry       `yaml:"retry" json:"retry"`
	Telegram     Telegram    `yaml:"telegram" json:"telegram"`
}

// Logger holds the configuration for the app logging
type Logger struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Level   string `yaml:"level" json:"level" validate:"omitempty,oneof=debug info warn error"`
	Format  string `yaml:"format" json:"format" validate:"omitempty,oneof=text json logfmt"`
}

// Server hold the configuration for the Fiber server Config
type Server struct {
	Enabled     bool   `yaml:"enabled" json:"enabled"`
	PrintRoutes bool   `yaml:"show_routes" json:"show_routes"`
	Port        uint32 `yaml:"port" json:"port"`
}

// Database holds the configuration for the cycle history database
type Database struct {
	Path      string        `yaml:"path" json:"path"`
	Retention time.Duration `yaml:"retention" json:"retention"` // Zero keeps every cycle
}

// Spotify holds the catalog credentials and the references to reconcile.
type Spotify struct {
	ClientID     string   `yaml:"clientId" json:"clientId" validate:"required"`
	ClientSecret string   `yaml:"clientSecret" json:"clientSecret" validate:"required"`
	RefreshToken string   `yaml:"refreshToken" json:"refreshToken"`
	URIs         []string `yaml:"uris" json:"uris" validate:"required,min=1"`
}

type Plex struct {
	URL   string `yaml:"url" json:"url" validate:"required,url"`
	Token string `yaml:"token" json:"token" validate:"required"`
}

// Sync holds the cycle scheduling and playlist modes.
type Sync struct {
	Interval         time.Duration `yaml:"interval" json:"interval"`
	RetryDelay       time.Duration `yaml:"retryDelay" json:"retryDelay"`
	MirrorPlaylists  []string      `yaml:"mirrorPlaylists" json:"mirrorPlaylists"`
	SpecialPlaylists []string      `yaml:"specialPlaylists" json:"specialPlaylists"`
}

// Feedback holds the rating driven cleanup settings.
type Feedback struct {
	Enabled      bool    `yaml:"enabled" json:"enabled"`
	RejectRating float64 `yaml:"rejectRating" json:"rejectRating" validate:"gte=0,lte=10"`
}

// Acquisition holds the fetch pipeline settings.
type Acquisition struct {
	PreferLossless bool          `yaml:"preferLossless" json:"preferLossless"`
	Timeout        time.Duration `yaml:"timeout" json:"timeout"`
	DirectTimeout  time.Duration `yaml:"directTimeout" json:"directTimeout"`
	Delay          time.Duration `yaml:"delay" json:"delay"`
	YtDlpPath      string        `yaml:"ytdlpPath" json:"ytdlpPath"`
	SpotDLPath     string        `yaml:"spotdlPath" json:"spotdlPath"`
	YouTubeAPIKey  string        `yaml:"youtubeApiKey" json:"youtubeApiKey"`
	ASCIIFilenames bool          `yaml:"asciiFilenames" json:"asciiFilenames"`
	Artwork        Artwork       `yaml:"artwork" json:"artwork"`
}

// Artwork holds configuration for embedded artwork
type Artwork struct {
	Enabled bool `yaml:"enabled" json:"enabled"`
	Size    int  `yaml:"size" json:"size"`
	Quality int  `yaml:"quality" json:"quality" validate:"gte=0,lte=100"`
}

// Retry holds the catalog retry policy.
type Retry struct {
	MaxAttempts int           `yaml:"maxAttempts" json:"maxAttempts" validate:"gte=0"`
	Backoff     time.Duration `yaml:"backoff" json:"backoff"`
}

type Telegram struct {
	Enabled      bool     `yaml:"enabled" json:"enabled"`
	Token        string   `yaml:"token" json:"token" validate:"required_if=Enabled true"`
	ChatID       int64    `yaml:"chatId" json:"chatId"`
	AllowedUsers []string `yaml:"allowedUsers" json:"allowedUsers"`
}

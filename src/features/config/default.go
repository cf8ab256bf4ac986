package config

import "time"

var defaultConfig = Config{
	LibraryPath:  "./music",
	SnapshotPath: "",
	Logger: Logger{
		Enabled: true,
		Level:   "info",
		Format:  "text",
	},
	Server: Server{
		Enabled:     true,
		PrintRoutes: false,
		Port:        3535,
	},
	Database: Database{
		Path:      "./plexify.db",
		Retention: 90 * 24 * time.Hour,
	},
	Spotify: Spotify{
		ClientID:     "",
		ClientSecret: "",
		RefreshToken: "", // Needed for special playlists and feedback removals
		URIs:         []string{},
	},
	Plex: Plex{
		URL:   "http://localhost:32400",
		Token: "",
	},
	Sync: Sync{
		Interval:         time.Hour,
		RetryDelay:       5 * time.Minute,
		MirrorPlaylists:  []string{"Discover Weekly", "Release Radar"},
		SpecialPlaylists: []string{},
	},
	Feedback: Feedback{
		Enabled:      false,
		RejectRating: 2, // One star
	},
	Acquisition: Acquisition{
		PreferLossless: true,
		Timeout:        5 * time.Minute,
		DirectTimeout:  120 * time.Second,
		Delay:          5 * time.Second,
		YtDlpPath:      "yt-dlp",
		SpotDLPath:     "spotdl",
		Artwork: Artwork{
			Enabled: true,
			Size:    1000,
			Quality: 85,
		},
	},
	Retry: Retry{
		MaxAttempts: 5,
		Backoff:     time.Second,
	},
	Telegram: Telegram{
		Enabled:      false,
		Token:        "",                                   // Can be obtained with https://t.me/BotFather
		AllowedUsers: []string{"<your_telegram_username>"}, // No @
	},
}

// Default returns a copy of the default configuration.
func Default() *Config {
	cfg := defaultConfig
	cfg.Spotify.URIs = append([]string(nil), defaultConfig.Spotify.URIs...)
	cfg.Sync.MirrorPlaylists = append([]string(nil), defaultConfig.Sync.MirrorPlaylists...)
	cfg.Sync.SpecialPlaylists = append([]string(nil), defaultConfig.Sync.SpecialPlaylists...)
	cfg.Telegram.AllowedUsers = append([]string(nil), defaultConfig.Telegram.AllowedUsers...)
	return &cfg
}

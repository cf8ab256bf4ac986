package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/contre95/plexify/src/features/acquisition"
	"github.com/contre95/plexify/src/features/catalog"
	"github.com/contre95/plexify/src/features/config"
	"github.com/contre95/plexify/src/features/feedback"
	"github.com/contre95/plexify/src/features/hosting"
	"github.com/contre95/plexify/src/features/logging"
	"github.com/contre95/plexify/src/features/metrics"
	"github.com/contre95/plexify/src/features/playlists"
	"github.com/contre95/plexify/src/features/syncing"
	"github.com/contre95/plexify/src/infra/artwork"
	"github.com/contre95/plexify/src/infra/database"
	"github.com/contre95/plexify/src/infra/files"
	"github.com/contre95/plexify/src/infra/plex"
	"github.com/contre95/plexify/src/infra/retry"
	"github.com/contre95/plexify/src/infra/snapshot"
	"github.com/contre95/plexify/src/infra/spotify"
	"github.com/contre95/plexify/src/infra/tag"
	"github.com/contre95/plexify/src/infra/tools"
	"github.com/contre95/plexify/src/infra/youtube"
	"github.com/contre95/plexify/src/music"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// Set at build time with -ldflags "-X main.version=...".
var version = "dev"

var configPath string

var rootCmd = &cobra.Command{
	Use:   "plexify",
	Short: "Plexify - Spotify playlists → Plex",
	Long: `Plexify keeps Plex playlists in step with Spotify playlists, downloading
the tracks the library is missing.`,
	SilenceUsage: true,
	RunE:         runLoop,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync forever, serving the status API and bot",
	RunE:  runLoop,
}

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single sync cycle and exit",
	RunE:  runOnce,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), version)
	},
}

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Authorize Plexify with Spotify and print a refresh token",
	Long: `Runs the Spotify authorization flow in a browser and prints the refresh token
needed for special playlists and feedback removals. The redirect URL must be
registered in the Spotify developer dashboard.`,
	RunE: runToken,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the configuration file")
	tokenCmd.Flags().String("client-id", os.Getenv("SPOTIPY_CLIENT_ID"), "Spotify client id")
	tokenCmd.Flags().String("client-secret", os.Getenv("SPOTIPY_CLIENT_SECRET"), "Spotify client secret")
	tokenCmd.Flags().String("redirect-url", spotify.DefaultRedirectURL, "OAuth redirect URL served locally")
	rootCmd.AddCommand(runCmd, onceCmd, versionCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds the wired services.
type app struct {
	cfg       *config.Manager
	sync      *syncing.Service
	playlists *playlists.Service
	collector *metrics.Collector
	history   *database.SqliteHistory
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("Failed to close history database", "error", err)
		}
	}
}

func setup(ctx context.Context) (*app, error) {
	cfgManager, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	slog.SetDefault(logging.SetupLogger(cfgManager, os.Stderr))
	if err := cfgManager.EnsureDirectories(); err != nil {
		return nil, err
	}
	cfg := cfgManager.Get()

	fileOrganizer := files.NewFileOrganizer(cfg.LibraryPath, cfg.Acquisition.ASCIIFilenames)

	// Remote catalog with its snapshot cache
	spotifyClient := spotify.NewClient(ctx, spotify.Credentials{
		ClientID:     cfg.Spotify.ClientID,
		ClientSecret: cfg.Spotify.ClientSecret,
		RefreshToken: cfg.Spotify.RefreshToken,
	}, retry.New(cfg.Retry.MaxAttempts, cfg.Retry.Backoff))
	snapshots, err := snapshot.Open(cfg.SnapshotPath)
	if err != nil {
		return nil, err
	}
	catalogService := catalog.NewService(spotifyClient, snapshots)

	// Local library
	plexClient := plex.NewClient(cfg.Plex.URL, cfg.Plex.Token, fileOrganizer, nil)

	// Acquisition tiers: yt-dlp's own search, then the YouTube Data API when keyed
	runner := tools.ExecRunner{}
	ytdlp := tools.NewYtDlp(cfg.Acquisition.YtDlpPath, cfg.Acquisition.Timeout, runner)
	searchers := []acquisition.Searcher{ytdlp}
	if cfg.Acquisition.YouTubeAPIKey != "" {
		yt, err := youtube.NewSearcher(ctx, cfg.Acquisition.YouTubeAPIKey)
		if err != nil {
			slog.Warn("YouTube search disabled", "error", err)
		} else {
			searchers = append(searchers, yt)
		}
	}
	spotdl := tools.NewSpotDL(cfg.Acquisition.SpotDLPath, cfg.Acquisition.DirectTimeout, runner)

	var (
		covers   acquisition.ArtworkService
		coverSvc *artwork.Service
	)
	if cfg.Acquisition.Artwork.Enabled {
		coverSvc, err = artwork.NewService("", nil)
		if err != nil {
			slog.Warn("Artwork embedding disabled", "error", err)
		} else {
			covers = coverSvc
		}
	}

	acquisitionService := acquisition.NewService(cfgManager, fileOrganizer, searchers, ytdlp, spotdl,
		tag.NewTagWriter(cfgManager), tag.NewTagReader(0), covers)
	acquisitionQueue := acquisition.NewQueue(acquisitionService, func() time.Duration {
		return cfgManager.Get().Acquisition.Delay
	})

	playlistsService := playlists.NewService(plexClient, acquisitionQueue, fileOrganizer, cfgManager)
	feedbackService := feedback.NewService(plexClient, catalogService, cfgManager)

	history, err := database.NewSqliteHistory(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	syncService := syncing.NewService(cfgManager, catalogService, playlistsService, feedbackService, acquisitionQueue, history)
	collector := metrics.NewCollector()
	syncService.AddObserver(collector)
	if covers != nil {
		syncService.AddObserver(syncing.ObserverFunc(func(music.CycleReport) {
			if n := coverSvc.Prune(); n > 0 {
				slog.Debug("Pruned cached artwork", "removed", n)
			}
		}))
	}

	return &app{
		cfg:       cfgManager,
		sync:      syncService,
		playlists: playlistsService,
		collector: collector,
		history:   history,
	}, nil
}

func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

func runToken(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	clientID, _ := cmd.Flags().GetString("client-id")
	clientSecret, _ := cmd.Flags().GetString("client-secret")
	redirectURL, _ := cmd.Flags().GetString("redirect-url")

	auth, err := spotify.NewAuthorizer(clientID, clientSecret, redirectURL)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Make sure %s is a redirect URI of your Spotify app, then open:\n\n%s\n\n", redirectURL, auth.URL())
	refreshToken, err := auth.Wait(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "SPOTIFY_REFRESH_TOKEN=%s\n", refreshToken)
	return nil
}

func runOnce(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	report, err := a.sync.RunCycle(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), report.Stats.Summary())
	return nil
}

func runLoop(cmd *cobra.Command, _ []string) error {
	ctx, stop := signalContext(cmd)
	defer stop()

	a, err := setup(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg.Get()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.sync.Loop(ctx)
	})

	g.Go(func() error {
		if err := a.cfg.Watch(ctx); err != nil {
			slog.Warn("Config hot reload disabled", "error", err)
		}
		return nil
	})

	if cfg.Telegram.Enabled {
		bot, err := hosting.NewTelegramBot(a.cfg, a.sync)
		if err != nil {
			slog.Error("Failed to initialize Telegram bot", "error", err)
		} else {
			a.sync.AddObserver(bot)
			g.Go(func() error {
				bot.Start()
				return nil
			})
			g.Go(func() error {
				<-ctx.Done()
				bot.Stop()
				slog.Info("Telegram bot stopped")
				return nil
			})
		}
	}

	if cfg.Server.Enabled {
		server := hosting.NewServer(a.cfg, a.sync, a.playlists, a.collector)
		g.Go(func() error {
			slog.Info("Server started", "port", cfg.Server.Port)
			if err := server.Start(); err != nil {
				return fmt.Errorf("server stopped: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			slog.Info("Shutting down server...")
			return server.Shutdown()
		})
	}

	err = g.Wait()
	slog.Info("Plexify stopped")
	return err
}

// Package main provides the albumshuffle CLI application entry point.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"albumshuffle/internal/core"
	httpserver "albumshuffle/internal/http"
	"albumshuffle/internal/spotify"
	"albumshuffle/internal/store"
)

var (
	cfgFile string
	config  *core.Config
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "albumshuffle",
	Short: "Shuffle a Spotify library album by album",
	Long: `albumshuffle loads all of your Spotify playlists, regroups their tracks into
albums (keeping track order inside every album), shuffles the albums and
publishes roughly 20 hours of them to a "Shuffle" playlist.`,
	SilenceUsage: true,
}

var shuffleLibraryCmd = &cobra.Command{
	Use:   "shuffle-library",
	Short: "Shuffle the user's entire library into a playlist",
	RunE:  runShuffleLibrary,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Run the Spotify authorization flow and store the token",
	RunE:  runLogin,
}

var historyCmd = &cobra.Command{
	Use:   "history [run-id]",
	Short: "Show recent shuffle runs, or the groups of one run",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("spotify-client-id", "", "Spotify client ID")
	rootCmd.PersistentFlags().String("spotify-client-secret", "", "Spotify client secret")
	rootCmd.PersistentFlags().String("spotify-redirect-url", "http://localhost:8888/callback", "OAuth redirect URL")
	rootCmd.PersistentFlags().String("spotify-token-path", "./spotify_token.json", "path of the persisted OAuth token")
	rootCmd.PersistentFlags().Float64("api-rate-limit", 10, "Spotify API requests per second")
	rootCmd.PersistentFlags().String("target-playlist", "Shuffle", "name of the playlist to publish to")
	rootCmd.PersistentFlags().Duration("goal-duration", 20*time.Hour, "approximate total duration of the shuffled playlist")
	rootCmd.PersistentFlags().Duration("min-album-duration", 10*time.Minute, "shortest album run that is kept as a group")
	rootCmd.PersistentFlags().Duration("mix-min-duration", 45*time.Minute, "lower bound of the DJ-mix playlist window")
	rootCmd.PersistentFlags().Duration("mix-max-duration", 90*time.Minute, "upper bound of the DJ-mix playlist window")
	rootCmd.PersistentFlags().StringSlice("exclude-playlist", nil, "playlist names to skip (repeatable)")
	rootCmd.PersistentFlags().String("history-path", "./albumshuffle_history.db", "path of the run-history database")
	rootCmd.PersistentFlags().String("server-host", "127.0.0.1", "local HTTP server host")
	rootCmd.PersistentFlags().Int("server-port", 8888, "local HTTP server port")

	historyCmd.Flags().Int("limit", 10, "number of runs to show")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bind flags: %v\n", err)
		os.Exit(1)
	}

	rootCmd.AddCommand(shuffleLibraryCmd, loginCmd, historyCmd)
}

func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".env")
		viper.SetConfigType("env")
	}

	viper.SetEnvPrefix("ALBUMSHUFFLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()

	// The registered API application credentials are conventionally exported
	// as CLIENT_ID / CLIENT_SECRET, so accept those names too.
	_ = viper.BindEnv("spotify-client-id", "ALBUMSHUFFLE_SPOTIFY_CLIENT_ID", "CLIENT_ID")
	_ = viper.BindEnv("spotify-client-secret", "ALBUMSHUFFLE_SPOTIFY_CLIENT_SECRET", "CLIENT_SECRET")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			fmt.Fprintf(os.Stderr, "Error reading config file: %v\n", err)
			os.Exit(1)
		}
	}

	config = buildConfig()
	logger = buildLogger(config.Log.Level)
}

func buildConfig() *core.Config {
	cfg := core.DefaultConfig()

	cfg.Spotify.ClientID = viper.GetString("spotify-client-id")
	cfg.Spotify.ClientSecret = viper.GetString("spotify-client-secret")
	cfg.Spotify.RedirectURL = viper.GetString("spotify-redirect-url")
	cfg.Spotify.TokenPath = viper.GetString("spotify-token-path")
	if rateLimit := viper.GetFloat64("api-rate-limit"); rateLimit > 0 {
		cfg.Spotify.RateLimit = rateLimit
	}

	cfg.Shuffle.TargetPlaylist = viper.GetString("target-playlist")
	if goal := viper.GetDuration("goal-duration"); goal > 0 {
		cfg.Shuffle.GoalDuration = goal
	}
	if d := viper.GetDuration("min-album-duration"); d > 0 {
		cfg.Shuffle.MinAlbumDuration = d
	}
	if d := viper.GetDuration("mix-min-duration"); d > 0 {
		cfg.Shuffle.MixMinDuration = d
	}
	if d := viper.GetDuration("mix-max-duration"); d > 0 {
		cfg.Shuffle.MixMaxDuration = d
	}
	if excluded := viper.GetStringSlice("exclude-playlist"); len(excluded) > 0 {
		cfg.Shuffle.ExcludePlaylists = excluded
	}

	cfg.Store.HistoryPath = viper.GetString("history-path")

	cfg.Server.Host = viper.GetString("server-host")
	cfg.Server.Port = viper.GetInt("server-port")

	cfg.Log.Level = viper.GetString("log-level")

	return cfg
}

func buildLogger(level string) *zap.Logger {
	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		zapLevel = zapcore.InfoLevel
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zapLevel)

	builtLogger, err := cfg.Build()
	if err != nil {
		panic(fmt.Sprintf("Failed to build logger: %v", err))
	}

	return builtLogger
}

func validateConfig() error {
	if config.Spotify.ClientID == "" {
		return fmt.Errorf("spotify client ID is required")
	}

	if config.Spotify.ClientSecret == "" {
		return fmt.Errorf("spotify client secret is required")
	}

	return nil
}

func runShuffleLibrary(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	logger.Info("Starting shuffle",
		zap.String("targetPlaylist", config.Shuffle.TargetPlaylist),
		zap.Duration("goalDuration", config.Shuffle.GoalDuration))

	history, err := store.OpenHistory(config.Store.HistoryPath, logger.Named("history"))
	if err != nil {
		return err
	}
	defer history.Close()

	dedup := store.NewDedupStore(config.Store.DedupCapacity, config.Store.DedupFalsePositiveRate)

	callback := httpserver.NewOAuthHandler(logger.Named("oauth"))
	server := httpserver.NewServer(&config.Server, callback, logger.Named("http"))
	client := spotify.NewClient(&config.Spotify, server, logger.Named("spotify"))

	g, gCtx := errgroup.WithContext(ctx)

	// The server carries the OAuth callback and metrics; it is stopped once
	// the pipeline finishes.
	serverCtx, stopServer := context.WithCancel(gCtx)
	defer stopServer()

	g.Go(func() error {
		return server.Start(serverCtx)
	})

	g.Go(func() error {
		defer stopServer()

		if err := client.Authenticate(gCtx, callback); err != nil {
			return fmt.Errorf("failed to authenticate with Spotify: %w", err)
		}

		pipeline := core.NewPipeline(config, client, dedup, history, server, logger.Named("pipeline"))
		return pipeline.Run(gCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Shuffle failed", zap.Error(err))
		return err
	}

	logger.Info("Shuffle finished")
	return nil
}

func runLogin(_ *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := validateConfig(); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	callback := httpserver.NewOAuthHandler(logger.Named("oauth"))
	server := httpserver.NewServer(&config.Server, callback, logger.Named("http"))
	client := spotify.NewClient(&config.Spotify, server, logger.Named("spotify"))

	g, gCtx := errgroup.WithContext(ctx)

	serverCtx, stopServer := context.WithCancel(gCtx)
	defer stopServer()

	g.Go(func() error {
		return server.Start(serverCtx)
	})

	g.Go(func() error {
		defer stopServer()
		return client.Authenticate(gCtx, callback)
	})

	return g.Wait()
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	history, err := store.OpenHistory(config.Store.HistoryPath, logger.Named("history"))
	if err != nil {
		return err
	}
	defer history.Close()

	if len(args) == 1 {
		runID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid run ID %q: %w", args[0], err)
		}
		return printRunGroups(ctx, history, runID)
	}

	limit, err := cmd.Flags().GetInt("limit")
	if err != nil {
		return err
	}

	runs, err := history.RecentRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("No shuffle runs recorded yet.")
		return nil
	}

	for _, run := range runs {
		fmt.Printf("#%-4d %s  %-20s %4d groups %5d tracks  %.1fh\n",
			run.ID,
			run.CreatedAt.Format("2006-01-02 15:04"),
			run.PlaylistName,
			run.GroupCount,
			run.TrackCount,
			run.Duration.Hours())
	}

	return nil
}

func printRunGroups(ctx context.Context, history *store.HistoryStore, runID int64) error {
	groups, err := history.RunGroups(ctx, runID)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Printf("No groups recorded for run %d.\n", runID)
		return nil
	}

	for _, group := range groups {
		fmt.Printf("%3d. %-40s %3d tracks  %s\n",
			group.Position+1,
			group.Name,
			group.TrackCount,
			group.Duration.Round(time.Second))
	}

	return nil
}

package core

import (
	"time"
)

type Config struct {
	Spotify SpotifyConfig
	Shuffle ShuffleConfig
	Server  ServerConfig
	Store   StoreConfig
	Log     LogConfig
}

type SpotifyConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	TokenPath    string
	RateLimit    float64
}

type ShuffleConfig struct {
	TargetPlaylist   string
	GoalDuration     time.Duration
	MinAlbumDuration time.Duration
	MixMinDuration   time.Duration
	MixMaxDuration   time.Duration
	ExcludePlaylists []string
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	HistoryPath            string
	DedupCapacity          int
	DedupFalsePositiveRate float64
}

type LogConfig struct {
	Level  string
	Format string
}

func DefaultConfig() *Config {
	return &Config{
		Spotify: SpotifyConfig{
			RedirectURL: "http://localhost:8888/callback",
			TokenPath:   "./spotify_token.json",
			RateLimit:   10,
		},
		Shuffle: ShuffleConfig{
			TargetPlaylist:   "Shuffle",
			GoalDuration:     20 * time.Hour,
			MinAlbumDuration: 10 * time.Minute,
			MixMinDuration:   45 * time.Minute,
			MixMaxDuration:   90 * time.Minute,
			ExcludePlaylists: []string{
				"Discover Weekly",
				"Starred",
				"Liked from Radio",
			},
		},
		Server: ServerConfig{
			Host:         "127.0.0.1",
			Port:         8888,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Store: StoreConfig{
			HistoryPath:            "./albumshuffle_history.db",
			DedupCapacity:          50000,
			DedupFalsePositiveRate: 0.001,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

package core

import (
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Spotify.RedirectURL != "http://localhost:8888/callback" {
		t.Errorf("Unexpected default redirect URL: %s", cfg.Spotify.RedirectURL)
	}

	if cfg.Shuffle.TargetPlaylist != "Shuffle" {
		t.Errorf("Unexpected default target playlist: %s", cfg.Shuffle.TargetPlaylist)
	}

	if cfg.Shuffle.GoalDuration != 20*time.Hour {
		t.Errorf("Unexpected default goal duration: %v", cfg.Shuffle.GoalDuration)
	}

	if cfg.Shuffle.MinAlbumDuration != 10*time.Minute {
		t.Errorf("Unexpected default min album duration: %v", cfg.Shuffle.MinAlbumDuration)
	}

	if cfg.Shuffle.MixMinDuration >= cfg.Shuffle.MixMaxDuration {
		t.Errorf("Mix window bounds inverted: %v >= %v",
			cfg.Shuffle.MixMinDuration, cfg.Shuffle.MixMaxDuration)
	}

	if len(cfg.Shuffle.ExcludePlaylists) == 0 {
		t.Error("Expected a default playlist exclusion list")
	}

	if cfg.Server.Port != 8888 {
		t.Errorf("Server port %d does not match the redirect URL port 8888", cfg.Server.Port)
	}

	if cfg.Store.DedupCapacity <= 0 {
		t.Error("Expected a positive dedup capacity")
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Unexpected default log level: %s", cfg.Log.Level)
	}
}

package core

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	stageLoad    = "load"
	stageShuffle = "shuffle"
	stagePublish = "publish"
)

// Pipeline runs one shuffle-library invocation: load the library into track
// groups, shuffle them against the goal duration, and publish the result to
// the target playlist. Strictly linear; any error aborts the run.
type Pipeline struct {
	config   *Config
	library  Library
	loader   *Loader
	shuffler *Shuffler
	history  HistoryRecorder
	metrics  Metrics
	logger   *zap.Logger
}

func NewPipeline(
	config *Config,
	library Library,
	dedup DedupStore,
	history HistoryRecorder,
	metrics Metrics,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		config:   config,
		library:  library,
		loader:   NewLoader(&config.Shuffle, library, dedup, metrics, logger.Named("loader")),
		shuffler: NewShuffler(logger.Named("shuffler")),
		history:  history,
		metrics:  metrics,
		logger:   logger,
	}
}

func (p *Pipeline) Run(ctx context.Context) error {
	groups, err := p.timedLoad(ctx)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		return fmt.Errorf("no track groups found in library")
	}

	start := time.Now()
	selected := p.shuffler.Shuffle(groups, p.config.Shuffle.GoalDuration)
	p.recordStage(stageShuffle, time.Since(start))

	trackIDs := FlattenTrackIDs(selected)
	duration := TotalDuration(selected)

	playlist, err := p.timedPublish(ctx, trackIDs)
	if err != nil {
		return err
	}

	p.logger.Info("Published shuffled playlist",
		zap.String("playlist", playlist.Name),
		zap.String("playlistID", playlist.ID),
		zap.Int("groups", len(selected)),
		zap.Int("tracks", len(trackIDs)),
		zap.Float64("playTimeHours", duration.Hours()))

	if p.metrics != nil {
		p.metrics.SetPublished(len(trackIDs), duration)
	}

	p.recordHistory(ctx, playlist, selected, len(trackIDs), duration)
	return nil
}

func (p *Pipeline) timedLoad(ctx context.Context) ([]TrackGroup, error) {
	start := time.Now()
	groups, err := p.loader.LoadGroups(ctx)
	p.recordStage(stageLoad, time.Since(start))
	return groups, err
}

func (p *Pipeline) timedPublish(ctx context.Context, trackIDs []string) (Playlist, error) {
	start := time.Now()
	defer func() {
		p.recordStage(stagePublish, time.Since(start))
	}()

	playlist, err := p.library.EnsurePlaylist(ctx, p.config.Shuffle.TargetPlaylist)
	if err != nil {
		return Playlist{}, fmt.Errorf("failed to resolve target playlist: %w", err)
	}

	if err := p.library.ReplaceTracks(ctx, playlist.ID, trackIDs); err != nil {
		return Playlist{}, fmt.Errorf("failed to publish playlist: %w", err)
	}

	return playlist, nil
}

// recordHistory persists the run. History failures don't fail the run; the
// playlist is already published at this point.
func (p *Pipeline) recordHistory(ctx context.Context, playlist Playlist, selected []TrackGroup, trackCount int, duration time.Duration) {
	if p.history == nil {
		return
	}

	run := Run{
		CreatedAt:    time.Now(),
		PlaylistID:   playlist.ID,
		PlaylistName: playlist.Name,
		GroupCount:   len(selected),
		TrackCount:   trackCount,
		Duration:     duration,
	}

	runGroups := make([]RunGroup, 0, len(selected))
	for i, group := range selected {
		runGroups = append(runGroups, RunGroup{
			Position:   i,
			Name:       group.Name,
			TrackCount: len(group.Tracks),
			Duration:   group.Duration(),
		})
	}

	if _, err := p.history.RecordRun(ctx, run, runGroups); err != nil {
		p.logger.Warn("Failed to record run history", zap.Error(err))
	}
}

func (p *Pipeline) recordStage(stage string, d time.Duration) {
	if p.metrics != nil {
		p.metrics.RecordStageDuration(stage, d)
	}
}

package core

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"albumshuffle/pkg/fuzzy"
)

const (
	groupStatusKept      = "kept"
	groupStatusDuplicate = "duplicate"

	playlistStatusLoaded   = "loaded"
	playlistStatusExcluded = "excluded"
)

// Loader walks the user's playlists and turns them into track groups.
type Loader struct {
	library    Library
	rules      GroupRules
	dedup      DedupStore
	normalizer *fuzzy.Normalizer
	excluded   []string
	target     string
	metrics    Metrics
	logger     *zap.Logger
}

func NewLoader(
	config *ShuffleConfig,
	library Library,
	dedup DedupStore,
	metrics Metrics,
	logger *zap.Logger,
) *Loader {
	return &Loader{
		library:    library,
		rules:      RulesFromConfig(config),
		dedup:      dedup,
		normalizer: fuzzy.NewNormalizer(),
		excluded:   config.ExcludePlaylists,
		target:     config.TargetPlaylist,
		metrics:    metrics,
		logger:     logger,
	}
}

// LoadGroups fetches every playlist the user owns or follows, skips excluded
// playlists and the shuffle target itself, and partitions the rest into track
// groups. A group whose tracks have all been seen in an earlier playlist is
// dropped so the same album saved twice shuffles once.
func (l *Loader) LoadGroups(ctx context.Context) ([]TrackGroup, error) {
	playlists, err := l.library.CurrentUserPlaylists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}

	var groups []TrackGroup
	for _, playlist := range playlists {
		if l.isExcluded(playlist.Name) {
			l.logger.Debug("Skipping excluded playlist",
				zap.String("playlist", playlist.Name))
			l.recordPlaylist(playlistStatusExcluded)
			continue
		}

		tracks, err := l.library.PlaylistTracks(ctx, playlist.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to load tracks of playlist %q: %w", playlist.Name, err)
		}
		l.recordPlaylist(playlistStatusLoaded)

		for _, group := range l.rules.PartitionPlaylist(playlist.Name, tracks) {
			if l.dedup != nil && l.dedup.HasAll(group.TrackIDs()) {
				l.logger.Debug("Skipping duplicate group",
					zap.String("group", group.Name),
					zap.String("playlist", playlist.Name))
				l.recordGroup(groupStatusDuplicate)
				continue
			}

			if l.dedup != nil {
				l.dedup.AddAll(group.TrackIDs())
			}
			groups = append(groups, group)
			l.recordGroup(groupStatusKept)
		}
	}

	l.logger.Info("Library loaded",
		zap.Int("playlists", len(playlists)),
		zap.Int("groups", len(groups)),
		zap.Duration("totalDuration", TotalDuration(groups)))

	return groups, nil
}

func (l *Loader) isExcluded(name string) bool {
	if l.normalizer.Match(name, l.target) {
		return true
	}

	for _, excluded := range l.excluded {
		if l.normalizer.Match(name, excluded) {
			return true
		}
	}

	return false
}

func (l *Loader) recordPlaylist(status string) {
	if l.metrics != nil {
		l.metrics.RecordPlaylist(status)
	}
}

func (l *Loader) recordGroup(status string) {
	if l.metrics != nil {
		l.metrics.RecordGroup(status)
	}
}

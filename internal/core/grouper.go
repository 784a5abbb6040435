package core

import (
	"time"
)

// GroupRules controls how a playlist's tracks are partitioned into shuffle
// units.
type GroupRules struct {
	// MinAlbumDuration is the minimum total duration for an album run to be
	// kept. Shorter runs are loose singles, not albums.
	MinAlbumDuration time.Duration
	// MixMinDuration and MixMaxDuration bound the "DJ mix" window: a playlist
	// whose total duration falls strictly inside the window is kept whole as a
	// single group instead of being split by album.
	MixMinDuration time.Duration
	MixMaxDuration time.Duration
}

// RulesFromConfig builds GroupRules from the shuffle configuration.
func RulesFromConfig(cfg *ShuffleConfig) GroupRules {
	return GroupRules{
		MinAlbumDuration: cfg.MinAlbumDuration,
		MixMinDuration:   cfg.MixMinDuration,
		MixMaxDuration:   cfg.MixMaxDuration,
	}
}

// PartitionPlaylist splits a playlist's tracks into track groups. Track order
// inside every group equals the playlist order.
func (r GroupRules) PartitionPlaylist(playlistName string, tracks []Track) []TrackGroup {
	if len(tracks) == 0 {
		return nil
	}

	total := trackListDuration(tracks)
	if total > r.MixMinDuration && total < r.MixMaxDuration {
		// Mix-length playlists are a unit of their own.
		group := newGroup(tracks)
		group.Name = playlistName
		return []TrackGroup{group}
	}

	return r.partitionByAlbum(tracks)
}

// partitionByAlbum splits the track list into maximal consecutive runs sharing
// an album ID and drops runs too short to be an album.
func (r GroupRules) partitionByAlbum(tracks []Track) []TrackGroup {
	var groups []TrackGroup

	for len(tracks) > 0 {
		splitIdx := len(tracks)
		for i, t := range tracks {
			if t.AlbumID != tracks[0].AlbumID {
				splitIdx = i
				break
			}
		}

		run := tracks[:splitIdx]
		tracks = tracks[splitIdx:]

		group := newGroup(run)
		if group.Duration() > r.MinAlbumDuration {
			groups = append(groups, group)
		}
	}

	return groups
}

func newGroup(tracks []Track) TrackGroup {
	copied := make([]Track, len(tracks))
	copy(copied, tracks)

	return TrackGroup{
		Name:   tracks[0].Album,
		Tracks: copied,
	}
}

func trackListDuration(tracks []Track) time.Duration {
	var total time.Duration
	for _, t := range tracks {
		total += t.Duration
	}
	return total
}

package core

import (
	"context"
	"time"
)

// Track is a single playable track as loaded from a playlist. Position within
// the originating playlist is implied by slice order.
type Track struct {
	ID       string
	Title    string
	Artist   string
	Album    string
	AlbumID  string
	Duration time.Duration
}

// TrackGroup is an ordered run of tracks treated as one shuffle unit, usually
// an album's worth of tracks from a single playlist. Track order inside a
// group is the originating playlist order and is never altered.
type TrackGroup struct {
	Name   string
	Tracks []Track
}

// Duration returns the total play time of all tracks in the group.
func (g TrackGroup) Duration() time.Duration {
	var total time.Duration
	for _, t := range g.Tracks {
		total += t.Duration
	}
	return total
}

// TrackIDs returns the group's track IDs in playback order.
func (g TrackGroup) TrackIDs() []string {
	ids := make([]string, 0, len(g.Tracks))
	for _, t := range g.Tracks {
		ids = append(ids, t.ID)
	}
	return ids
}

// FlattenTrackIDs concatenates the track IDs of all groups in order.
func FlattenTrackIDs(groups []TrackGroup) []string {
	var ids []string
	for _, g := range groups {
		ids = append(ids, g.TrackIDs()...)
	}
	return ids
}

// TotalDuration sums the durations of all groups.
func TotalDuration(groups []TrackGroup) time.Duration {
	var total time.Duration
	for _, g := range groups {
		total += g.Duration()
	}
	return total
}

type Playlist struct {
	ID         string
	Name       string
	Owner      string
	TrackCount int
}

// Run is one published shuffle, as recorded in the history store.
type Run struct {
	ID           int64
	CreatedAt    time.Time
	PlaylistID   string
	PlaylistName string
	GroupCount   int
	TrackCount   int
	Duration     time.Duration
}

// RunGroup is one group of a recorded run, in published order.
type RunGroup struct {
	Position   int
	Name       string
	TrackCount int
	Duration   time.Duration
}

// Library is the Spotify surface the pipeline needs.
type Library interface {
	CurrentUserPlaylists(ctx context.Context) ([]Playlist, error)
	PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error)
	EnsurePlaylist(ctx context.Context, name string) (Playlist, error)
	ReplaceTracks(ctx context.Context, playlistID string, trackIDs []string) error
}

type DedupStore interface {
	Has(trackID string) bool
	Add(trackID string)
	HasAll(trackIDs []string) bool
	AddAll(trackIDs []string)
	Size() int
	Clear()
}

type HistoryRecorder interface {
	RecordRun(ctx context.Context, run Run, groups []RunGroup) (int64, error)
}

// Metrics receives pipeline instrumentation. Implementations must be safe for
// concurrent use; all pipeline call sites tolerate a nil Metrics.
type Metrics interface {
	RecordAPIRequest(endpoint string)
	RecordPlaylist(status string)
	RecordGroup(status string)
	RecordStageDuration(stage string, d time.Duration)
	SetPublished(trackCount int, d time.Duration)
}

package core

import (
	"testing"
	"time"
)

func testRules() GroupRules {
	return GroupRules{
		MinAlbumDuration: 10 * time.Minute,
		MixMinDuration:   45 * time.Minute,
		MixMaxDuration:   90 * time.Minute,
	}
}

func track(id, albumID string, duration time.Duration) Track {
	return Track{
		ID:       id,
		Title:    "title " + id,
		Album:    "album " + albumID,
		AlbumID:  albumID,
		Duration: duration,
	}
}

func TestPartitionPlaylist_ByAlbum(t *testing.T) {
	tracks := []Track{
		track("a1", "albumA", 15 * time.Minute),
		track("a2", "albumA", 15 * time.Minute),
		track("b1", "albumB", 20 * time.Minute),
		track("b2", "albumB", 20 * time.Minute),
		track("a3", "albumA", 25 * time.Minute),
	}

	groups := testRules().PartitionPlaylist("My Library", tracks)

	if len(groups) != 3 {
		t.Fatalf("Expected 3 groups, got %d", len(groups))
	}

	// Consecutive runs split on album change; albumA reappearing later is a
	// separate group.
	expectedIDs := [][]string{{"a1", "a2"}, {"b1", "b2"}, {"a3"}}
	for i, group := range groups {
		ids := group.TrackIDs()
		if len(ids) != len(expectedIDs[i]) {
			t.Fatalf("Group %d: expected %d tracks, got %d", i, len(expectedIDs[i]), len(ids))
		}
		for j, id := range ids {
			if id != expectedIDs[i][j] {
				t.Errorf("Group %d track %d: expected %s, got %s", i, j, expectedIDs[i][j], id)
			}
		}
	}
}

func TestPartitionPlaylist_DropsShortRuns(t *testing.T) {
	// Total is 107m, past the mix window, so the playlist partitions by album.
	tracks := []Track{
		track("a1", "albumA", 50 * time.Minute),
		track("s1", "single1", 3 * time.Minute),
		track("s2", "single2", 4 * time.Minute),
		track("b1", "albumB", 50 * time.Minute),
	}

	groups := testRules().PartitionPlaylist("My Library", tracks)

	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups (singles dropped), got %d", len(groups))
	}

	if groups[0].TrackIDs()[0] != "a1" || groups[1].TrackIDs()[0] != "b1" {
		t.Errorf("Expected albumA and albumB groups, got %q and %q", groups[0].Name, groups[1].Name)
	}
}

func TestPartitionPlaylist_RunExactlyAtThresholdDropped(t *testing.T) {
	tracks := []Track{
		track("x1", "albumX", 10 * time.Minute),
	}

	groups := testRules().PartitionPlaylist("My Library", tracks)

	// The threshold is strict: a run must exceed it to count as an album.
	if len(groups) != 0 {
		t.Fatalf("Expected run at exactly the minimum duration to be dropped, got %d groups", len(groups))
	}
}

func TestPartitionPlaylist_MixWindow(t *testing.T) {
	tests := []struct {
		name          string
		trackDuration time.Duration
		trackCount    int
		expectGroups  int
		expectMix     bool
	}{
		{
			name:          "inside mix window becomes one group",
			trackDuration: 10 * time.Minute,
			trackCount:    6, // 60m total
			expectGroups:  1,
			expectMix:     true,
		},
		{
			name:          "below mix window partitions by album",
			trackDuration: 11 * time.Minute,
			trackCount:    4, // 44m total, each album above the 10m floor
			expectGroups:  4,
		},
		{
			name:          "above mix window partitions by album",
			trackDuration: 25 * time.Minute,
			trackCount:    4, // 100m total
			expectGroups:  4,
		},
		{
			name:          "exactly at lower bound partitions by album",
			trackDuration: 15 * time.Minute,
			trackCount:    3, // 45m total
			expectGroups:  3,
		},
		{
			name:          "exactly at upper bound partitions by album",
			trackDuration: 30 * time.Minute,
			trackCount:    3, // 90m total
			expectGroups:  3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var tracks []Track
			for i := 0; i < tt.trackCount; i++ {
				tracks = append(tracks, track(
					"t"+string(rune('0'+i)),
					"album"+string(rune('A'+i)),
					tt.trackDuration,
				))
			}

			groups := testRules().PartitionPlaylist("Friday Mix", tracks)

			if len(groups) != tt.expectGroups {
				t.Fatalf("Expected %d groups, got %d", tt.expectGroups, len(groups))
			}

			if tt.expectMix {
				if groups[0].Name != "Friday Mix" {
					t.Errorf("Mix group should carry the playlist name, got %q", groups[0].Name)
				}
				if len(groups[0].Tracks) != tt.trackCount {
					t.Errorf("Mix group should contain all %d tracks, got %d", tt.trackCount, len(groups[0].Tracks))
				}
			}
		})
	}
}

func TestPartitionPlaylist_CoversAllKeptTracksOnce(t *testing.T) {
	tracks := []Track{
		track("a1", "albumA", 20 * time.Minute),
		track("a2", "albumA", 20 * time.Minute),
		track("b1", "albumB", 15 * time.Minute),
		track("c1", "albumC", 25 * time.Minute),
		track("c2", "albumC", 25 * time.Minute),
		track("c3", "albumC", 25 * time.Minute),
	}

	groups := testRules().PartitionPlaylist("My Library", tracks)

	seen := make(map[string]int)
	for _, group := range groups {
		for _, id := range group.TrackIDs() {
			seen[id]++
		}
	}

	for _, tr := range tracks {
		if seen[tr.ID] != 1 {
			t.Errorf("Track %s appears %d times in partition output, expected exactly once", tr.ID, seen[tr.ID])
		}
	}
}

func TestPartitionPlaylist_Empty(t *testing.T) {
	groups := testRules().PartitionPlaylist("Empty", nil)
	if groups != nil {
		t.Errorf("Expected nil groups for empty playlist, got %v", groups)
	}
}

func TestPartitionPlaylist_GroupNameIsAlbumName(t *testing.T) {
	tracks := []Track{
		track("a1", "albumA", 30 * time.Minute),
	}

	groups := testRules().PartitionPlaylist("My Library", tracks)

	if len(groups) != 1 {
		t.Fatalf("Expected 1 group, got %d", len(groups))
	}
	if groups[0].Name != "album albumA" {
		t.Errorf("Expected group named after album, got %q", groups[0].Name)
	}
}

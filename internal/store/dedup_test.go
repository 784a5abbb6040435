package store

import (
	"fmt"
	"testing"
)

func TestDedupStore_Basic(t *testing.T) {
	store := NewDedupStore(100, 0.001)

	if store.Has("track1") {
		t.Error("Empty store should not have any tracks")
	}

	if store.Size() != 0 {
		t.Errorf("Empty store size should be 0, got %d", store.Size())
	}

	store.Add("track1")
	if !store.Has("track1") {
		t.Error("Store should have track1 after adding")
	}

	if store.Size() != 1 {
		t.Errorf("Store size should be 1 after adding one track, got %d", store.Size())
	}

	// Duplicate addition is a no-op
	store.Add("track1")
	if store.Size() != 1 {
		t.Errorf("Store size should still be 1 after adding duplicate, got %d", store.Size())
	}

	store.Add("track2")
	store.Add("track3")

	if store.Size() != 3 {
		t.Errorf("Store size should be 3 after adding three tracks, got %d", store.Size())
	}
}

func TestDedupStore_HasAll(t *testing.T) {
	store := NewDedupStore(100, 0.001)
	store.AddAll([]string{"a", "b", "c"})

	tests := []struct {
		name     string
		trackIDs []string
		expected bool
	}{
		{"all seen", []string{"a", "b", "c"}, true},
		{"subset seen", []string{"a", "c"}, true},
		{"one unseen", []string{"a", "b", "d"}, false},
		{"none seen", []string{"x", "y"}, false},
		{"empty slice is never a duplicate", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := store.HasAll(tt.trackIDs); got != tt.expected {
				t.Errorf("HasAll(%v) = %v, expected %v", tt.trackIDs, got, tt.expected)
			}
		})
	}
}

func TestDedupStore_AddAll(t *testing.T) {
	store := NewDedupStore(100, 0.001)

	store.AddAll([]string{"track1", "", "track2", "", "track3"})

	// Empty IDs are ignored
	if store.Size() != 3 {
		t.Errorf("Store size should be 3 (ignoring empty strings), got %d", store.Size())
	}

	for _, track := range []string{"track1", "track2", "track3"} {
		if !store.Has(track) {
			t.Errorf("Store should have track %s", track)
		}
	}
}

func TestDedupStore_Clear(t *testing.T) {
	store := NewDedupStore(100, 0.001)
	store.AddAll([]string{"track1", "track2", "track3"})

	store.Clear()

	if store.Size() != 0 {
		t.Errorf("Store size should be 0 after clear, got %d", store.Size())
	}

	for _, track := range []string{"track1", "track2", "track3"} {
		if store.Has(track) {
			t.Errorf("Store should not have track %s after clear", track)
		}
	}
}

func TestDedupStore_MaxCapacity(t *testing.T) {
	maxTracks := 5
	store := NewDedupStore(maxTracks, 0.001)

	for i := 0; i < maxTracks+3; i++ {
		store.Add(fmt.Sprintf("track%d", i))
	}

	if store.Size() > maxTracks {
		t.Errorf("Store size should not exceed %d, got %d", maxTracks, store.Size())
	}

	// The most recently added tracks survive eviction
	for _, track := range []string{"track5", "track6", "track7"} {
		if !store.Has(track) {
			t.Errorf("Store should have recent track %s", track)
		}
	}
}

func TestDedupStore_BloomFilterEffectiveness(t *testing.T) {
	store := NewDedupStore(1000, 0.001)

	numTracks := 500
	for i := 0; i < numTracks; i++ {
		store.Add(fmt.Sprintf("track_%d", i))
	}

	for i := 0; i < numTracks; i++ {
		trackID := fmt.Sprintf("track_%d", i)
		if !store.Has(trackID) {
			t.Errorf("Store should have track %s", trackID)
		}
	}

	falsePositives := 0
	testCount := 1000

	for i := numTracks; i < numTracks+testCount; i++ {
		if store.Has(fmt.Sprintf("nonexistent_%d", i)) {
			falsePositives++
		}
	}

	falsePositiveRate := float64(falsePositives) / float64(testCount)
	if falsePositiveRate > 0.01 {
		t.Errorf("Bloom filter false positive rate too high: %f (expected < 0.01)", falsePositiveRate)
	}
}

func BenchmarkDedupStore_HasAll(b *testing.B) {
	store := NewDedupStore(10000, 0.001)

	ids := make([]string, 20)
	for i := range ids {
		ids[i] = fmt.Sprintf("track_%d", i)
	}
	store.AddAll(ids)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		store.HasAll(ids)
	}
}

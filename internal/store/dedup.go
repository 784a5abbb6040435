// Package store provides the in-run track deduplication store and the sqlite
// run-history store.
package store

import (
	"sync"

	"github.com/bits-and-blooms/bloom/v3"
	lru "github.com/hashicorp/golang-lru/v2"
)

// DedupStore tracks which track IDs have already been assigned to a group
// during library loading, so an album saved in several playlists only enters
// the shuffle pool once. Bloom filter for the fast negative path, exact map
// for correctness, LRU for bounded memory.
type DedupStore struct {
	trackIDs               map[string]struct{}
	bloom                  *bloom.BloomFilter
	lru                    *lru.Cache[string, struct{}]
	mutex                  sync.RWMutex
	maxTracks              int
	bloomFalsePositiveRate float64
}

// NewDedupStore creates a deduplication store with the specified capacity and
// Bloom filter false positive rate.
func NewDedupStore(maxTracks int, bloomFalsePositiveRate float64) *DedupStore {
	lruCache, _ := lru.New[string, struct{}](maxTracks)

	if maxTracks < 0 || maxTracks > int(^uint(0)>>1) {
		panic("maxTracks value out of range for uint conversion")
	}
	bloomFilter := bloom.NewWithEstimates(uint(maxTracks), bloomFalsePositiveRate)

	return &DedupStore{
		trackIDs:               make(map[string]struct{}),
		bloom:                  bloomFilter,
		lru:                    lruCache,
		maxTracks:              maxTracks,
		bloomFalsePositiveRate: bloomFalsePositiveRate,
	}
}

// Has checks if a track ID has been seen.
func (ds *DedupStore) Has(trackID string) bool {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return ds.has(trackID)
}

func (ds *DedupStore) has(trackID string) bool {
	if !ds.bloom.TestString(trackID) {
		return false
	}

	_, exists := ds.trackIDs[trackID]
	return exists
}

// Add records a track ID as seen.
func (ds *DedupStore) Add(trackID string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()
	ds.add(trackID)
}

func (ds *DedupStore) add(trackID string) {
	if trackID == "" {
		return
	}

	if _, exists := ds.trackIDs[trackID]; exists {
		return
	}

	ds.trackIDs[trackID] = struct{}{}
	ds.bloom.AddString(trackID)
	ds.lru.Add(trackID, struct{}{})

	if len(ds.trackIDs) > ds.maxTracks {
		ds.evictOldest()
	}
}

// HasAll reports whether every given track ID has been seen. An empty slice
// reports false: a group with no tracks is never a duplicate of anything.
func (ds *DedupStore) HasAll(trackIDs []string) bool {
	if len(trackIDs) == 0 {
		return false
	}

	ds.mutex.RLock()
	defer ds.mutex.RUnlock()

	for _, trackID := range trackIDs {
		if !ds.has(trackID) {
			return false
		}
	}
	return true
}

// AddAll records all given track IDs as seen.
func (ds *DedupStore) AddAll(trackIDs []string) {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	for _, trackID := range trackIDs {
		ds.add(trackID)
	}
}

// Size returns the number of track IDs currently stored.
func (ds *DedupStore) Size() int {
	ds.mutex.RLock()
	defer ds.mutex.RUnlock()
	return len(ds.trackIDs)
}

// Clear removes all track IDs from the store.
func (ds *DedupStore) Clear() {
	ds.mutex.Lock()
	defer ds.mutex.Unlock()

	ds.trackIDs = make(map[string]struct{})
	ds.bloom = bloom.NewWithEstimates(uint(ds.maxTracks), ds.bloomFalsePositiveRate)
	ds.lru.Purge()
}

func (ds *DedupStore) evictOldest() {
	if ds.lru.Len() == 0 {
		return
	}

	oldestKey, _, ok := ds.lru.GetOldest()
	if !ok {
		return
	}

	delete(ds.trackIDs, oldestKey)
	ds.lru.Remove(oldestKey)
}

package ttl

import (
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"

	"goflare.io/cinder/internal/models"
)

// shard is one independently lockable partition of the key space.
type shard struct {
	mu    sync.RWMutex
	items map[string]*models.Entry

	// filter holds every key inserted since the last rebuild. It may report
	// keys that are gone, never the reverse.
	filter   *bloom.BloomFilter
	capacity uint
	fpRate   float64
}

func newShard(expectedItems uint, fpRate float64) *shard {
	if expectedItems == 0 {
		expectedItems = 1
	}
	return &shard{
		items:    make(map[string]*models.Entry),
		filter:   bloom.NewWithEstimates(expectedItems, fpRate),
		capacity: expectedItems,
		fpRate:   fpRate,
	}
}

// lookup returns the stored entry, expired or not.
func (s *shard) lookup(key []byte) (*models.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.filter.Test(key) {
		return nil, false
	}
	entry, ok := s.items[string(key)]
	return entry, ok
}

// put stores entry and returns the entry it replaced.
func (s *shard) put(key []byte, entry *models.Entry) (*models.Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.items[string(key)]
	s.items[string(key)] = entry
	s.filter.Add(key)
	return prev, ok
}

// removeIfExpired deletes key only if the entry currently stored is expired
// at now; a concurrent SET of a fresh value is left alone.
func (s *shard) removeIfExpired(key []byte, now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.items[string(key)]
	if !ok || !entry.IsExpired(now) {
		return false
	}
	delete(s.items, string(key))
	return true
}

// removeExpired deletes every entry expired at now and returns how many were
// removed. The filter is rebuilt from the survivors when anything was removed
// or the live set outgrew the filter's sizing.
func (s *shard) removeExpired(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, entry := range s.items {
		if entry.IsExpired(now) {
			delete(s.items, key)
			removed++
		}
	}

	if removed > 0 || uint(len(s.items)) > s.capacity {
		s.rebuildFilterLocked()
	}
	return removed
}

func (s *shard) rebuildFilterLocked() {
	capacity := s.capacity
	if want := uint(len(s.items)) * 2; want > capacity {
		capacity = want
	}

	filter := bloom.NewWithEstimates(capacity, s.fpRate)
	for key := range s.items {
		filter.AddString(key)
	}
	s.filter = filter
	s.capacity = capacity
}

func (s *shard) len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Package iocache is for caching I/O calls.
//
// The collector parses every mail message and calendar component once while
// walking an archive. The parsed text is kept here so that pass 2 can score
// archive items without reading the archive a second time.
package iocache

import (
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/huangsam/evidence/internal/contract"
)

// DefaultCapacity is the number of archive items kept in memory.
const DefaultCapacity = 20_000

// ItemStore is a bounded, concurrency-safe LRU of archive item text keyed by record ID.
type ItemStore struct {
	cache     *lru.Cache[string, string]
	capacity  int
	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64
}

var _ contract.ItemStore = &ItemStore{} // Compile-time check

// NewItemStore creates a store holding at most capacity items.
// A non-positive capacity uses DefaultCapacity.
func NewItemStore(capacity int) (*ItemStore, error) {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &ItemStore{capacity: capacity}
	cache, err := lru.NewWithEvict(capacity, func(string, string) {
		s.evictions.Add(1)
	})
	if err != nil {
		return nil, err
	}
	s.cache = cache
	return s, nil
}

// Get returns the cached text for id.
func (s *ItemStore) Get(id string) (string, bool) {
	text, ok := s.cache.Get(id)
	if ok {
		s.hits.Add(1)
	} else {
		s.misses.Add(1)
	}
	return text, ok
}

// Put stores the text for id, evicting the least recently used item when full.
func (s *ItemStore) Put(id string, text string) {
	s.cache.Add(id, text)
}

// Len returns the number of cached items.
func (s *ItemStore) Len() int {
	return s.cache.Len()
}

// Status returns a point-in-time view of the store counters.
func (s *ItemStore) Status() Status {
	return Status{
		Entries:   s.cache.Len(),
		Capacity:  s.capacity,
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
	}
}

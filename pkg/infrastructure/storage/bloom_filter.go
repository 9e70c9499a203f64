package storage

import (
	"sync"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
	"github.com/bits-and-blooms/bloom/v3"
)

// BloomFilter implements repository.VisitedFilter.
// The bloom filter answers negative lookups without touching the exact set,
// which is only consulted on a "maybe". The exact set keeps answers exact, so
// a saturated or undersized filter costs lookups, never pages.
type BloomFilter struct {
	filter *bloom.BloomFilter
	exact  map[string]struct{}
	mu     sync.Mutex
}

// Config holds Bloom filter configuration
type Config struct {
	Size              uint
	FalsePositiveRate float64
}

// NewBloomFilter creates a new Bloom filter
func NewBloomFilter(config Config) repository.VisitedFilter {
	if config.Size == 0 {
		config.Size = 100000
	}
	if config.FalsePositiveRate <= 0 || config.FalsePositiveRate >= 1 {
		config.FalsePositiveRate = 0.01
	}
	return &BloomFilter{
		filter: bloom.NewWithEstimates(config.Size, config.FalsePositiveRate),
		exact:  make(map[string]struct{}),
	}
}

// Contains checks if a key has been seen before
func (bf *BloomFilter) Contains(key string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	return bf.containsLocked(key)
}

// Add adds a key to the filter
func (bf *BloomFilter) Add(key string) {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	bf.addLocked(key)
}

// TestAndAdd adds the key and reports whether it was already present
func (bf *BloomFilter) TestAndAdd(key string) bool {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.containsLocked(key) {
		return true
	}
	bf.addLocked(key)
	return false
}

func (bf *BloomFilter) containsLocked(key string) bool {
	if !bf.filter.TestString(key) {
		return false
	}
	_, ok := bf.exact[key]
	return ok
}

func (bf *BloomFilter) addLocked(key string) {
	bf.filter.AddString(key)
	bf.exact[key] = struct{}{}
}

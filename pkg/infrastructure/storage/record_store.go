package storage

import (
	"sync"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
)

// ErrStoreSealed is returned by Upsert once the run moved to writing sitemaps
var ErrStoreSealed = entity.ErrStoreSealed

// KeyFunc maps a URL to its dedup key
type KeyFunc func(raw string) string

// RecordStore implements repository.RecordStore
type RecordStore struct {
	key     KeyFunc
	index   map[string]*entity.URLRecord
	records []*entity.URLRecord
	sealed  bool
	mu      sync.Mutex
}

// NewRecordStore creates a store deduplicating by key
func NewRecordStore(key KeyFunc) repository.RecordStore {
	return &RecordStore{
		key:   key,
		index: make(map[string]*entity.URLRecord),
	}
}

// Upsert inserts the record or merges it into the stored record with the same key
func (s *RecordStore) Upsert(record *entity.URLRecord) (*entity.URLRecord, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.sealed {
		return nil, false, ErrStoreSealed
	}

	k := s.key(record.Value)
	existing, ok := s.index[k]
	if !ok {
		s.index[k] = record
		s.records = append(s.records, record)
		return record, true, nil
	}

	s.mergeLocked(existing, record)
	return existing, false, nil
}

// mergeLocked folds from into to; a flushed record is left untouched
func (s *RecordStore) mergeLocked(to, from *entity.URLRecord) {
	if to.Flushed {
		return
	}
	if from.Depth > to.Depth {
		to.Depth = from.Depth
	}
	if to.LastMod == "" {
		to.LastMod = from.LastMod
	}
	for _, alt := range from.Alternatives {
		if s.hasAlternativeLocked(to, alt.Value) {
			continue
		}
		to.Alternatives = append(to.Alternatives, alt)
	}
}

func (s *RecordStore) hasAlternativeLocked(record *entity.URLRecord, value string) bool {
	k := s.key(value)
	for _, alt := range record.Alternatives {
		if s.key(alt.Value) == k {
			return true
		}
	}
	return false
}

// Records returns the stored records in insertion order
func (s *RecordStore) Records() []*entity.URLRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*entity.URLRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Len returns the number of stored records
func (s *RecordStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.records)
}

// Seal rejects every later Upsert
func (s *RecordStore) Seal() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sealed = true
}

// Reset empties the store and unseals it
func (s *RecordStore) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.index = make(map[string]*entity.URLRecord)
	s.records = nil
	s.sealed = false
}

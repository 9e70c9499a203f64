package repository

import (
	"context"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// VisitedFilter deduplicates discovered links
type VisitedFilter interface {
	// Contains checks if a key has been seen before
	Contains(key string) bool
	// Add adds a key to the filter
	Add(key string)
	// TestAndAdd adds the key and reports whether it was already present
	TestAndAdd(key string) bool
}

// RecordStore owns the URL records of a run
type RecordStore interface {
	// Upsert inserts the record or merges it into the stored one with the same key.
	// It returns the stored record and whether it was newly inserted.
	Upsert(record *entity.URLRecord) (*entity.URLRecord, bool, error)
	// Records returns the stored records in insertion order
	Records() []*entity.URLRecord
	// Len returns the number of stored records
	Len() int
	// Seal rejects every later Upsert
	Seal()
	// Reset empties the store and unseals it
	Reset()
}

// Frontier holds URLs waiting to be fetched
type Frontier interface {
	// Enqueue adds a task to the frontier
	Enqueue(task *entity.CrawlTask) bool
	// Dequeue blocks until a task is available, the frontier is closed or ctx is done
	Dequeue(ctx context.Context) (*entity.CrawlTask, bool)
	// Len returns the current frontier length
	Len() int
	// Close closes the frontier
	Close()
}

// PendingQueue holds fetched pages waiting for the scheduler
type PendingQueue interface {
	// Push appends an item
	Push(item *entity.QueueItem)
	// TakeUpTo removes and returns at most n items from the head
	TakeUpTo(n int) []*entity.QueueItem
	// Len returns the current queue length
	Len() int
	// Reset drops all items
	Reset()
}

// ResultWriter writes accepted records
type ResultWriter interface {
	// Write writes a single record
	Write(record *entity.URLRecord) error
	// Flush ensures all buffered data is written
	Flush() error
	// Close closes the writer
	Close() error
}

// LogWriter writes structured logs
type LogWriter interface {
	// WriteHTTPLog writes an HTTP request/response log
	WriteHTTPLog(entry *entity.FetchLog) error
	// Close closes the log writer
	Close() error
}

// SitemapWriter spreads records over sitemap partitions
type SitemapWriter interface {
	// AddURL assigns a record to a partition
	AddURL(record *entity.URLRecord) error
	// Flush writes every buffered record
	Flush() error
	// Finish closes every partition
	Finish() error
	// Paths returns the partition files in creation order
	Paths() []string
	// Discard deletes every partition file
	Discard()
}

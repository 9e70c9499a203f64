package sitemap

import (
	"fmt"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// Rotator spreads records over partitions of at most maxEntries URLs
type Rotator struct {
	opts       Options
	maxEntries int
	streams    []*Stream
	current    *Stream
	count      int
}

// NewRotator creates a rotator; maxEntries <= 0 means a single partition
func NewRotator(maxEntries int, opts Options) *Rotator {
	return &Rotator{
		opts:       opts,
		maxEntries: maxEntries,
	}
}

// AddURL assigns a record to the current partition, opening a new one when full
func (r *Rotator) AddURL(record *entity.URLRecord) error {
	if r.current == nil || (r.maxEntries > 0 && r.count == r.maxEntries) {
		stream, err := NewStream(r.opts)
		if err != nil {
			return err
		}
		r.streams = append(r.streams, stream)
		r.current = stream
		r.count = 0
	}
	if err := r.current.Add(record); err != nil {
		return err
	}
	r.count++
	return nil
}

// Flush writes the buffered records of every partition
func (r *Rotator) Flush() error {
	for _, stream := range r.streams {
		if err := stream.Flush(); err != nil {
			return fmt.Errorf("flush %s: %w", stream.Path(), err)
		}
	}
	return nil
}

// Finish closes every partition
func (r *Rotator) Finish() error {
	for _, stream := range r.streams {
		if err := stream.Close(); err != nil {
			return fmt.Errorf("finish %s: %w", stream.Path(), err)
		}
	}
	return nil
}

// Paths returns the temp file of every partition in creation order
func (r *Rotator) Paths() []string {
	paths := make([]string, 0, len(r.streams))
	for _, stream := range r.streams {
		paths = append(paths, stream.Path())
	}
	return paths
}

// Discard deletes every partition file
func (r *Rotator) Discard() {
	for _, stream := range r.streams {
		stream.Remove()
	}
	r.streams = nil
	r.current = nil
	r.count = 0
}

package storage

import (
	"context"
	"sync"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
)

// TaskQueue implements repository.Frontier
type TaskQueue struct {
	ch     chan *entity.CrawlTask
	closed bool
	mu     sync.RWMutex
}

// NewTaskQueue creates a new task queue
func NewTaskQueue(size int) repository.Frontier {
	return &TaskQueue{
		ch: make(chan *entity.CrawlTask, size),
	}
}

// Enqueue adds a task to the queue without blocking.
// It returns false when the queue is closed or full.
func (q *TaskQueue) Enqueue(task *entity.CrawlTask) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return false
	}

	select {
	case q.ch <- task:
		return true
	default:
		return false
	}
}

// Dequeue removes and returns a task from the queue
func (q *TaskQueue) Dequeue(ctx context.Context) (*entity.CrawlTask, bool) {
	select {
	case task, ok := <-q.ch:
		return task, ok
	case <-ctx.Done():
		return nil, false
	}
}

// Len returns the current queue length
func (q *TaskQueue) Len() int {
	return len(q.ch)
}

// Close closes the queue
func (q *TaskQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.ch)
	}
}

// PendingQueue implements repository.PendingQueue
type PendingQueue struct {
	items []*entity.QueueItem
	mu    sync.Mutex
}

// NewPendingQueue creates an empty pending queue
func NewPendingQueue() repository.PendingQueue {
	return &PendingQueue{}
}

// Push appends an item
func (q *PendingQueue) Push(item *entity.QueueItem) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, item)
}

// TakeUpTo removes and returns at most n items from the head
func (q *PendingQueue) TakeUpTo(n int) []*entity.QueueItem {
	q.mu.Lock()
	defer q.mu.Unlock()

	if n <= 0 || len(q.items) == 0 {
		return nil
	}
	if n > len(q.items) {
		n = len(q.items)
	}
	taken := make([]*entity.QueueItem, n)
	copy(taken, q.items[:n])
	q.items = q.items[n:]
	return taken
}

// Len returns the current queue length
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.items)
}

// Reset drops all items
func (q *PendingQueue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = nil
}

package crawl

import (
	"context"
	"sync"
	"sync/atomic"
)

// Worker processes crawl tasks from the driver frontier
type Worker struct {
	id     int
	driver *Driver

	currentURL atomic.Value // stores string
	isActive   atomic.Bool
}

// Run starts the worker processing loop
func (w *Worker) Run(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()

	for {
		task, ok := w.driver.frontier.Dequeue(ctx)
		if !ok {
			return
		}

		w.isActive.Store(true)
		w.currentURL.Store(task.URL)
		w.driver.process(ctx, task)
		w.isActive.Store(false)
		w.currentURL.Store("")
		w.driver.done()
	}
}

// IsActive returns whether the worker is currently processing a task
func (w *Worker) IsActive() bool {
	return w.isActive.Load()
}

// GetCurrentURL returns the URL currently being processed
func (w *Worker) GetCurrentURL() string {
	if v := w.currentURL.Load(); v != nil {
		return v.(string)
	}
	return ""
}

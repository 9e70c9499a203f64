package application

import (
	"sync"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// EventObserver receives run events in emission order
type EventObserver interface {
	OnEvent(event *entity.Event)
}

// EventObserverFunc adapts a function to EventObserver
type EventObserverFunc func(event *entity.Event)

// OnEvent calls f(event)
func (f EventObserverFunc) OnEvent(event *entity.Event) {
	f(event)
}

// MetricsObserver observes metrics changes
type MetricsObserver interface {
	OnMetricsUpdate(metrics *entity.Metrics)
	AddURL(url string) // Notify when a URL is added to the sitemap
}

// eventBus delivers events synchronously and keeps the run counters.
// Nothing is delivered after the done event.
type eventBus struct {
	deliver   sync.Mutex
	mu        sync.Mutex
	observers []EventObserver
	added     int64
	ignored   int64
	errored   int64
	closed    bool
}

func (b *eventBus) subscribe(observer EventObserver) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.observers = append(b.observers, observer)
}

func (b *eventBus) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.added, b.ignored, b.errored = 0, 0, 0
	b.closed = false
}

// publish counts and delivers event; it reports false once the bus is closed
func (b *eventBus) publish(event *entity.Event) bool {
	// deliver orders events; mu only guards the counters so observers may read them
	b.deliver.Lock()
	defer b.deliver.Unlock()

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return false
	}
	switch event.Type {
	case entity.EventAdd:
		b.added++
	case entity.EventIgnore:
		b.ignored++
	case entity.EventError:
		b.errored++
	case entity.EventDone:
		b.closed = true
		if event.Stats != nil {
			event.Stats.Added = b.added
			event.Stats.Ignored = b.ignored
			event.Stats.Errored = b.errored
		}
	}
	observers := append([]EventObserver(nil), b.observers...)
	b.mu.Unlock()

	for _, observer := range observers {
		observer.OnEvent(event)
	}
	return true
}

func (b *eventBus) counts() (added, ignored, errored int64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.added, b.ignored, b.errored
}

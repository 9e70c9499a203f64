package entity

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrAlreadyCrawled is returned when a URL was already stored in this run
	ErrAlreadyCrawled = errors.New("url was crawled before")
	// ErrBroken is returned when a URL is unreachable
	ErrBroken = errors.New("url is broken")
	// ErrHostNotFound is returned when the seed host cannot be resolved
	ErrHostNotFound = errors.New("host could not be found")
	// ErrStoreSealed is returned by a record store once sitemaps are being written
	ErrStoreSealed = errors.New("record store is sealed")
)

// EventType enumerates the lifecycle events of a run
type EventType int

const (
	EventAdd EventType = iota
	EventIgnore
	EventError
	EventDone
)

func (t EventType) String() string {
	switch t {
	case EventAdd:
		return "add"
	case EventIgnore:
		return "ignore"
	case EventError:
		return "error"
	case EventDone:
		return "done"
	}
	return "unknown"
}

// CrawlError describes a per-URL failure
type CrawlError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	URL     string `json:"url"`
}

// NewCrawlError builds an error whose message is the status text of code
func NewCrawlError(code int, url string) *CrawlError {
	return &CrawlError{Code: code, Message: http.StatusText(code), URL: url}
}

func (e *CrawlError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%d %s", e.Code, e.URL)
	}
	return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.URL)
}

// Event is delivered to observers in emission order
type Event struct {
	Type   EventType
	Record *URLRecord
	URL    string
	Error  *CrawlError
	// Err is set on an add event whose language detection failed
	Err   error
	Stats *Stats
}

// Stats summarises a finished run
type Stats struct {
	Added            int64
	Ignored          int64
	Errored          int64
	URLs             []*URLRecord
	MaxObservedDepth int
	Paths            []string
	Err              error
}

// Metrics is a live snapshot of a run for presenters
type Metrics struct {
	State          string
	PendingLength  int
	FrontierLength int
	InFlight       int
	MaxConcurrency int
	Fetched        int64
	FetchErrors    int64
	Added          int64
	Ignored        int64
	Errored        int64
	MaxDepth       int
	ActiveURLs     []string
	StartTime      time.Time
	LastUpdateTime time.Time
}

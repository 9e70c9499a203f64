package service

import (
	"context"
	"net/url"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

// URLNormalizer computes comparison keys for URLs
type URLNormalizer interface {
	// Normalize returns the normalized form of a URL
	Normalize(raw string) (string, error)
	// Key returns the dedup key of a URL, falling back to the trimmed input
	Key(raw string) string
	// Equal reports whether two URLs normalize to the same key
	Equal(a, b string) bool
}

// ScopeValidator decides which discovered URLs may be fetched
type ScopeValidator interface {
	// IsInScope checks host and path against the crawl seed
	IsInScope(u *url.URL) bool
	// IsExcluded checks file extension and URL pattern exclusions
	IsExcluded(u *url.URL) bool
	// IsAllowed combines scheme, scope and exclusion checks
	IsAllowed(u *url.URL) bool
	// IsSeedHost reports whether host is the seed host, ignoring www
	IsSeedHost(host string) bool
}

// PageFetcher fetches web content
type PageFetcher interface {
	// Fetch fetches a URL and returns the response
	Fetch(ctx context.Context, url string) (*HTTPResponse, error)
	// Exists reports whether a URL answers with a non-error status
	Exists(ctx context.Context, url string) bool
}

// HTTPResponse represents an HTTP response
type HTTPResponse struct {
	URL          string
	FinalURL     string
	StatusCode   int
	Headers      map[string]string
	ContentType  string
	LastModified string
	Body         []byte
	Message      *entity.FetchLog
}

// PageInfo is what the inspector extracts from an HTML document
type PageInfo struct {
	Links      []string
	Canonical  string
	Lang       string
	Alternates []entity.Alternative
	NoIndex    bool
	NoFollow   bool
	Text       string
}

// PageInspector parses HTML documents
type PageInspector interface {
	// Inspect parses body, resolving references against pageURL
	Inspect(pageURL string, body []byte) (*PageInfo, error)
}

// LanguageDetector guesses the language of a text
type LanguageDetector interface {
	// Detect returns a BCP 47 tag for text
	Detect(text string) (string, error)
}

// LocaleTokenizer maps a language to the path segments that name it
type LocaleTokenizer interface {
	// Tokens returns the path segments identifying lang
	Tokens(lang string) []string
}

// RobotsPolicy evaluates robots.txt rules
type RobotsPolicy interface {
	// Allowed reports whether the target URL may be fetched
	Allowed(ctx context.Context, target *url.URL) bool
}

// HostResolver checks that a host name exists before it is crawled
type HostResolver interface {
	// CheckHost returns an error wrapping entity.ErrHostNotFound when host does not exist
	CheckHost(ctx context.Context, host string) error
}

// RateLimiter throttles requests per host
type RateLimiter interface {
	// Wait blocks until a request to host is permitted
	Wait(ctx context.Context, host string) error
}

// CrawlObserver receives the outcome of every fetch made by a Crawler
type CrawlObserver interface {
	// OnFetchComplete is called for an indexable page fetched successfully
	OnFetchComplete(item *entity.QueueItem)
	// OnFetchError is called for a recoverable fetch failure
	OnFetchError(err *entity.CrawlError)
	// OnIgnored is called for a page excluded by robots rules or noindex
	OnIgnored(url string)
	// OnFetched is called after every request with its status code
	OnFetched(url string, statusCode int, err error)
}

// Crawler discovers and fetches the pages of a site
type Crawler interface {
	// Run crawls from seed until the frontier is drained or ctx is done.
	// It returns an error wrapping entity.ErrHostNotFound when the seed host does not resolve.
	Run(ctx context.Context, seed string, observer CrawlObserver) error
	// Queue adds a URL to the frontier of a running crawl
	Queue(rawURL string, depth int) bool
	// FrontierLen returns the number of URLs waiting to be fetched
	FrontierLen() int
}

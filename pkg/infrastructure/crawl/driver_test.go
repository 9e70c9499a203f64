package crawl

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/domainservice"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/html"
	httpinfra "github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/http"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/robots"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/storage"
)

type recorder struct {
	mu       sync.Mutex
	complete map[string]int
	ignored  []string
	errors   []*entity.CrawlError
	fetched  int
}

func newRecorder() *recorder {
	return &recorder{complete: make(map[string]int)}
}

func (r *recorder) OnFetchComplete(item *entity.QueueItem) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.complete[item.URL] = item.Depth
}

func (r *recorder) OnFetchError(err *entity.CrawlError) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, err)
}

func (r *recorder) OnIgnored(url string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ignored = append(r.ignored, url)
}

func (r *recorder) OnFetched(url string, statusCode int, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fetched++
}

func newSite() *httptest.Server {
	mux := http.NewServeMux()
	page := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write([]byte(body))
		}
	}
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /private\n"))
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		page(`<html><body>
			<a href="/a">a</a>
			<a href="/private">private</a>
			<a href="/hidden">hidden</a>
			<a href="/missing">missing</a>
			<a href="/logo.png">logo</a>
			<a href="https://elsewhere.example/">elsewhere</a>
		</body></html>`)(w, r)
	})
	mux.HandleFunc("/a", page(`<html><body><a href="/b">b</a><a href="/">home</a></body></html>`))
	mux.HandleFunc("/b", page(`<html><body><a href="/a?ref=b">a again</a></body></html>`))
	mux.HandleFunc("/private", page(`<html><body>secret</body></html>`))
	mux.HandleFunc("/hidden", page(`<html><head><meta name="robots" content="noindex"></head><body><a href="/c">c</a></body></html>`))
	mux.HandleFunc("/c", page(`<html><body>c</body></html>`))
	return httptest.NewServer(mux)
}

func newTestDriver(t *testing.T, seed string, config Config, fetcher service.PageFetcher, client *http.Client) *Driver {
	t.Helper()
	seedURL, _ := url.Parse(seed)
	validator, err := domainservice.NewValidator(domainservice.ValidatorConfig{
		Seed:           seedURL,
		FilterByDomain: true,
		IgnoreWWW:      true,
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	logWriter, _ := storage.NewLogWriter("")
	return NewDriver(config, Dependencies{
		Fetcher:    fetcher,
		Inspector:  html.NewInspector(),
		Validator:  validator,
		Normalizer: domainservice.NewNormalizer(domainservice.NormalizerConfig{StripQuerystring: true, IgnoreWWW: true}),
		Robots:     robots.NewAgent(robots.Config{Respect: true}, client),
		Limiter:    httpinfra.NewHostLimiter(0, 1),
		LogWriter:  logWriter,
		NewFrontier: func() repository.Frontier {
			return storage.NewTaskQueue(1000)
		},
		NewVisited: func() repository.VisitedFilter {
			return storage.NewBloomFilter(storage.Config{Size: 1000, FalsePositiveRate: 0.01})
		},
	})
}

func TestDriver_Run(t *testing.T) {
	server := newSite()
	defer server.Close()

	fetcher := httpinfra.NewFetcher(httpinfra.Config{Timeout: 5 * time.Second})
	driver := newTestDriver(t, server.URL+"/", Config{NumWorkers: 4, StripQuerystring: true, RespectRobotsTxt: true}, fetcher, server.Client())

	rec := newRecorder()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := driver.Run(ctx, server.URL+"/", rec); err != nil {
		t.Fatalf("Run: %v", err)
	}

	wantDepths := map[string]int{
		server.URL + "/":  0,
		server.URL + "/a": 1,
		server.URL + "/b": 2,
		server.URL + "/c": 2,
	}
	if len(rec.complete) != len(wantDepths) {
		t.Errorf("completed = %v, want %v", rec.complete, wantDepths)
	}
	for u, depth := range wantDepths {
		got, ok := rec.complete[u]
		if !ok {
			t.Errorf("%s was not completed", u)
			continue
		}
		if got != depth {
			t.Errorf("depth(%s) = %d, want %d", u, got, depth)
		}
	}

	sort.Strings(rec.ignored)
	wantIgnored := []string{server.URL + "/hidden", server.URL + "/private"}
	if len(rec.ignored) != len(wantIgnored) {
		t.Fatalf("ignored = %v, want %v", rec.ignored, wantIgnored)
	}
	for i := range wantIgnored {
		if rec.ignored[i] != wantIgnored[i] {
			t.Errorf("ignored[%d] = %s, want %s", i, rec.ignored[i], wantIgnored[i])
		}
	}

	if len(rec.errors) != 1 || rec.errors[0].Code != http.StatusNotFound {
		t.Errorf("errors = %v, want a single 404", rec.errors)
	}
}

func TestDriver_MaxDepth(t *testing.T) {
	server := newSite()
	defer server.Close()

	fetcher := httpinfra.NewFetcher(httpinfra.Config{Timeout: 5 * time.Second})
	driver := newTestDriver(t, server.URL+"/", Config{MaxDepth: 1, NumWorkers: 2}, fetcher, server.Client())

	rec := newRecorder()
	if err := driver.Run(context.Background(), server.URL+"/", rec); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for u, depth := range rec.complete {
		if depth > 1 {
			t.Errorf("%s crawled at depth %d beyond MaxDepth", u, depth)
		}
	}
	if _, ok := rec.complete[server.URL+"/a"]; !ok {
		t.Error("/a should be crawled at depth 1")
	}
}

type dnsFailFetcher struct{}

func (dnsFailFetcher) Fetch(ctx context.Context, u string) (*service.HTTPResponse, error) {
	return &service.HTTPResponse{URL: u}, &url.Error{Op: "Get", URL: u, Err: &net.DNSError{Err: "no such host", Name: "missing.invalid", IsNotFound: true}}
}

func (dnsFailFetcher) Exists(ctx context.Context, u string) bool { return false }

func TestDriver_HostNotFound(t *testing.T) {
	seed := "http://missing.invalid/"
	driver := newTestDriver(t, seed, Config{NumWorkers: 2}, dnsFailFetcher{}, nil)
	driver.config.RespectRobotsTxt = false

	rec := newRecorder()
	err := driver.Run(context.Background(), seed, rec)
	if !errors.Is(err, entity.ErrHostNotFound) {
		t.Fatalf("Run error = %v, want %v", err, entity.ErrHostNotFound)
	}
	if len(rec.complete) != 0 || len(rec.errors) != 0 {
		t.Errorf("fatal run reported pages: complete=%v errors=%v", rec.complete, rec.errors)
	}
}

type fakeResolver struct {
	err     error
	checked []string
}

func (r *fakeResolver) CheckHost(ctx context.Context, host string) error {
	r.checked = append(r.checked, host)
	return r.err
}

func TestDriver_Preflight(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		notFound bool
	}{
		{"missing host", fmt.Errorf("missing.test: %w", entity.ErrHostNotFound), true},
		{"unreachable resolver", errors.New("no response from any DNS server"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newSite()
			defer server.Close()

			fetcher := httpinfra.NewFetcher(httpinfra.Config{Timeout: 5 * time.Second})
			driver := newTestDriver(t, server.URL+"/", Config{NumWorkers: 2, RespectRobotsTxt: true}, fetcher, server.Client())
			resolver := &fakeResolver{err: tt.err}
			driver.deps.Resolver = resolver

			rec := newRecorder()
			err := driver.Run(context.Background(), server.URL+"/", rec)
			if got := errors.Is(err, entity.ErrHostNotFound); got != tt.notFound {
				t.Fatalf("Run error = %v, want not found %v", err, tt.notFound)
			}
			if len(resolver.checked) != 1 || resolver.checked[0] != "127.0.0.1" {
				t.Errorf("checked = %v, want [127.0.0.1]", resolver.checked)
			}
			if tt.notFound && len(rec.complete) != 0 {
				t.Errorf("missing host should not be crawled, got %v", rec.complete)
			}
			if !tt.notFound && len(rec.complete) == 0 {
				t.Error("a failing resolver should not stop the crawl")
			}
		})
	}
}

func TestDriver_QueueWhenIdle(t *testing.T) {
	driver := newTestDriver(t, "http://example.com/", Config{}, dnsFailFetcher{}, nil)
	if driver.Queue("http://example.com/x", 1) {
		t.Error("Queue should fail when the driver is not running")
	}
}

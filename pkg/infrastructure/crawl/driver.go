package crawl

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	httpinfra "github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/http"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned when Run is called on a busy driver
var ErrAlreadyRunning = errors.New("crawl is already running")

// Config holds the crawl driver configuration
type Config struct {
	// MaxDepth bounds link depth; 0 means unlimited
	MaxDepth         int
	NumWorkers       int
	StripQuerystring bool
	RespectRobotsTxt bool
}

// Dependencies bundles the collaborators of a Driver
type Dependencies struct {
	Fetcher     service.PageFetcher
	Inspector   service.PageInspector
	Validator   service.ScopeValidator
	Normalizer  service.URLNormalizer
	Robots      service.RobotsPolicy
	Resolver    service.HostResolver
	Limiter     service.RateLimiter
	LogWriter   repository.LogWriter
	NewFrontier func() repository.Frontier
	NewVisited  func() repository.VisitedFilter
	Logger      logrus.FieldLogger
}

// Driver implements service.Crawler with a pool of fetch workers
type Driver struct {
	config Config
	deps   Dependencies

	mu          sync.RWMutex
	frontier    repository.Frontier
	visited     repository.VisitedFilter
	observer    service.CrawlObserver
	workers     []*Worker
	outstanding atomic.Int64
	running     atomic.Bool

	fatalOnce sync.Once
	fatal     error
	cancel    context.CancelFunc
}

// NewDriver creates a crawl driver
func NewDriver(config Config, deps Dependencies) *Driver {
	if config.NumWorkers <= 0 {
		config.NumWorkers = 1
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	return &Driver{config: config, deps: deps}
}

// Run crawls from seed until the frontier is drained or ctx is done
func (d *Driver) Run(ctx context.Context, seed string, observer service.CrawlObserver) error {
	if !d.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer d.running.Store(false)

	seedURL, err := url.Parse(strings.TrimSpace(seed))
	if err != nil || !seedURL.IsAbs() {
		return fmt.Errorf("invalid seed url %q", seed)
	}

	if d.deps.Resolver != nil {
		if err := d.deps.Resolver.CheckHost(ctx, seedURL.Hostname()); err != nil {
			if errors.Is(err, entity.ErrHostNotFound) {
				return fmt.Errorf("site %q: %w", seedURL.Host, err)
			}
			d.deps.Logger.WithError(err).Warn("dns preflight failed, crawling anyway")
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.mu.Lock()
	d.frontier = d.deps.NewFrontier()
	d.visited = d.deps.NewVisited()
	d.observer = observer
	d.cancel = cancel
	d.fatal = nil
	d.fatalOnce = sync.Once{}
	d.outstanding.Store(0)
	d.workers = make([]*Worker, d.config.NumWorkers)
	d.mu.Unlock()

	d.visited.Add(d.deps.Normalizer.Key(seedURL.String()))
	if !d.push(seedURL.String(), 0) {
		return fmt.Errorf("enqueue seed %q", seed)
	}

	var wg sync.WaitGroup
	for i := 0; i < d.config.NumWorkers; i++ {
		worker := &Worker{id: i, driver: d}
		d.workers[i] = worker
		wg.Add(1)
		go worker.Run(ctx, &wg)
	}
	wg.Wait()

	d.frontier.Close()

	if d.fatal != nil {
		return d.fatal
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	d.deps.Logger.Debug("crawl frontier drained")
	return nil
}

// Queue adds a URL to the frontier of a running crawl
func (d *Driver) Queue(rawURL string, depth int) bool {
	d.mu.RLock()
	ready := d.running.Load() && d.frontier != nil
	d.mu.RUnlock()
	if !ready {
		return false
	}
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || !d.deps.Validator.IsAllowed(u) {
		return false
	}
	return d.admit(u, depth)
}

// FrontierLen returns the number of URLs waiting to be fetched
func (d *Driver) FrontierLen() int {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.frontier == nil {
		return 0
	}
	return d.frontier.Len()
}

// ActiveURLs returns the URLs currently being fetched
func (d *Driver) ActiveURLs() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var active []string
	for _, worker := range d.workers {
		if worker != nil && worker.IsActive() {
			if u := worker.GetCurrentURL(); u != "" {
				active = append(active, u)
			}
		}
	}
	return active
}

// admit deduplicates u and pushes it to the frontier
func (d *Driver) admit(u *url.URL, depth int) bool {
	if d.config.StripQuerystring {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	u.Fragment = ""
	link := u.String()
	if d.visited.TestAndAdd(d.deps.Normalizer.Key(link)) {
		return false
	}
	return d.push(link, depth)
}

func (d *Driver) push(link string, depth int) bool {
	d.outstanding.Add(1)
	if d.frontier.Enqueue(&entity.CrawlTask{URL: link, Depth: depth, CreatedAt: time.Now()}) {
		return true
	}
	d.done()
	d.deps.Logger.WithField("url", link).Warn("frontier full, dropping url")
	return false
}

// done marks one task finished and closes the frontier once none remain
func (d *Driver) done() {
	if d.outstanding.Add(-1) == 0 {
		d.frontier.Close()
	}
}

func (d *Driver) fail(err error) {
	d.fatalOnce.Do(func() {
		d.fatal = err
		d.cancel()
	})
}

// process fetches one task and reports its outcome
func (d *Driver) process(ctx context.Context, task *entity.CrawlTask) {
	logger := d.deps.Logger.WithField("url", task.URL)
	u, err := url.Parse(task.URL)
	if err != nil {
		d.observer.OnFetchError(&entity.CrawlError{Code: http.StatusBadRequest, Message: err.Error(), URL: task.URL})
		return
	}

	if d.config.RespectRobotsTxt && d.deps.Robots != nil && !d.deps.Robots.Allowed(ctx, u) {
		logger.Debug("disallowed by robots.txt")
		d.observer.OnIgnored(task.URL)
		return
	}

	if d.deps.Limiter != nil {
		if err := d.deps.Limiter.Wait(ctx, u.Host); err != nil {
			return
		}
	}

	resp, err := d.deps.Fetcher.Fetch(ctx, task.URL)
	if resp != nil && resp.Message != nil {
		resp.Message.Depth = task.Depth
		d.deps.LogWriter.WriteHTTPLog(resp.Message)
	}
	status := 0
	if resp != nil {
		status = resp.StatusCode
	}
	d.observer.OnFetched(task.URL, status, err)

	if err != nil {
		if ctx.Err() != nil {
			return
		}
		switch {
		case httpinfra.IsHostNotFound(err) && d.deps.Validator.IsSeedHost(u.Hostname()):
			d.fail(fmt.Errorf("site %q: %w", u.Host, entity.ErrHostNotFound))
		case httpinfra.IsTimeout(err):
			d.observer.OnFetchError(entity.NewCrawlError(http.StatusRequestTimeout, task.URL))
		default:
			logger.WithError(err).Debug("fetch failed")
			d.observer.OnFetchError(&entity.CrawlError{Code: http.StatusBadRequest, Message: err.Error(), URL: task.URL})
		}
		return
	}

	if resp.StatusCode >= 300 {
		d.observer.OnFetchError(entity.NewCrawlError(resp.StatusCode, task.URL))
		return
	}

	if resp.FinalURL != "" && resp.FinalURL != task.URL {
		d.visited.Add(d.deps.Normalizer.Key(resp.FinalURL))
	}

	var info *service.PageInfo
	if isHTML(resp.ContentType, resp.Body) {
		info, err = d.deps.Inspector.Inspect(resp.FinalURL, resp.Body)
		if err != nil {
			logger.WithError(err).Debug("html inspection failed")
		}
	}

	if info != nil && info.NoIndex {
		d.observer.OnIgnored(task.URL)
	} else {
		d.observer.OnFetchComplete(&entity.QueueItem{
			URL:     task.URL,
			Depth:   task.Depth,
			LastMod: resp.LastModified,
			Body:    resp.Body,
		})
	}

	if info != nil {
		d.discover(task, info.Links)
	}
}

// discover queues in-scope links one level below task
func (d *Driver) discover(task *entity.CrawlTask, links []string) {
	depth := task.Depth + 1
	if d.config.MaxDepth > 0 && depth > d.config.MaxDepth {
		return
	}
	for _, link := range links {
		u, err := url.Parse(link)
		if err != nil || !d.deps.Validator.IsAllowed(u) {
			continue
		}
		d.admit(u, depth)
	}
}

func isHTML(contentType string, body []byte) bool {
	if contentType == "" {
		contentType = http.DetectContentType(body)
	}
	contentType = strings.ToLower(contentType)
	return strings.Contains(contentType, "html")
}

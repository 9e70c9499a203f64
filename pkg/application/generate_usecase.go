package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/sitemap"
	"github.com/sirupsen/logrus"
)

// ErrAlreadyRunning is returned when a run is started on a busy use case
var ErrAlreadyRunning = errors.New("sitemap generation is already running")

// State is the lifecycle state of the use case
type State int

const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	}
	return "unknown"
}

// Dependencies bundles the collaborators of the use case
type Dependencies struct {
	Crawler    service.Crawler
	Fetcher    service.PageFetcher
	Inspector  service.PageInspector
	Detector   service.LanguageDetector
	Tokenizer  service.LocaleTokenizer
	Normalizer service.URLNormalizer

	Store   repository.RecordStore
	Pending repository.PendingQueue
	// ResultWriter receives every sitemap record when set
	ResultWriter repository.ResultWriter
	// NewSitemapWriter defaults to a sitemap.Rotator built from Config
	NewSitemapWriter func() repository.SitemapWriter

	Logger logrus.FieldLogger
}

// GenerateUseCase crawls a site and writes its sitemap
type GenerateUseCase struct {
	config Config

	// Services
	crawler    service.Crawler
	fetcher    service.PageFetcher
	inspector  service.PageInspector
	detector   service.LanguageDetector
	normalizer service.URLNormalizer
	merger     *AlternativesMerger
	finalizer  *Finalizer

	// Repositories
	store            repository.RecordStore
	pending          repository.PendingQueue
	resultWriter     repository.ResultWriter
	newSitemapWriter func() repository.SitemapWriter

	logger logrus.FieldLogger
	events eventBus

	// State
	mu               sync.Mutex
	state            State
	run              *runState
	paths            []string
	stats            *entity.Stats
	metricsObservers []MetricsObserver
}

// runState holds everything that lives for a single run
type runState struct {
	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	err      error

	inflight    sync.WaitGroup
	inflightN   atomic.Int64
	maxDepth    atomic.Int64
	fetched     atomic.Int64
	fetchErrors atomic.Int64
	startTime   time.Time
}

// NewGenerateUseCase creates a new generate use case
func NewGenerateUseCase(config Config, deps Dependencies) (*GenerateUseCase, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if config.IndexSuffix == "" {
		config.IndexSuffix = sitemap.SuffixUniform
	}
	if config.ChangeFreq != "" && !sitemap.ValidChangeFreq(config.ChangeFreq) {
		deps.Logger.WithField("changefreq", config.ChangeFreq).Warn("ignoring invalid changefreq")
		config.ChangeFreq = ""
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	uc := &GenerateUseCase{
		config:           config,
		crawler:          deps.Crawler,
		fetcher:          deps.Fetcher,
		inspector:        deps.Inspector,
		detector:         deps.Detector,
		normalizer:       deps.Normalizer,
		merger:           NewAlternativesMerger(deps.Normalizer, deps.Tokenizer),
		finalizer:        NewFinalizer(config.Filepath, config.SeedURL, config.IndexSuffix),
		store:            deps.Store,
		pending:          deps.Pending,
		resultWriter:     deps.ResultWriter,
		newSitemapWriter: deps.NewSitemapWriter,
		logger:           deps.Logger,
	}
	if uc.newSitemapWriter == nil {
		uc.newSitemapWriter = func() repository.SitemapWriter {
			return sitemap.NewRotator(config.MaxEntriesPerFile, config.sitemapOptions())
		}
	}
	return uc, nil
}

// RegisterObserver registers an event observer
func (uc *GenerateUseCase) RegisterObserver(observer EventObserver) {
	uc.events.subscribe(observer)
}

// RegisterMetricsObserver registers a metrics observer
func (uc *GenerateUseCase) RegisterMetricsObserver(observer MetricsObserver) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.metricsObservers = append(uc.metricsObservers, observer)
}

// Start begins a crawl in the background
func (uc *GenerateUseCase) Start(ctx context.Context) error {
	run, err := uc.begin(ctx)
	if err != nil {
		return err
	}
	uc.injectForcedURLs()
	go uc.loop(run)
	return nil
}

// Run crawls the site and blocks until the sitemap is written
func (uc *GenerateUseCase) Run(ctx context.Context) error {
	if err := uc.Start(ctx); err != nil {
		return err
	}
	return uc.Wait(ctx)
}

// Wait blocks until the current run completes. Cancelling ctx stops the run.
func (uc *GenerateUseCase) Wait(ctx context.Context) error {
	uc.mu.Lock()
	run := uc.run
	uc.mu.Unlock()
	if run == nil {
		return nil
	}

	select {
	case <-run.done:
	case <-ctx.Done():
		uc.Stop()
		<-run.done
	}
	return run.err
}

// Stop stops the crawl; in-flight pages get StopGrace to settle before the sitemap is written
func (uc *GenerateUseCase) Stop() {
	uc.mu.Lock()
	run := uc.run
	running := uc.state == StateRunning
	uc.mu.Unlock()
	if run == nil || !running {
		return
	}
	run.stopOnce.Do(func() {
		close(run.stopCh)
	})
}

// QueueURL adds a URL to the frontier of the running crawl
func (uc *GenerateUseCase) QueueURL(rawURL string) bool {
	if uc.State() != StateRunning {
		return false
	}
	return uc.crawler.Queue(rawURL, 1)
}

// CreateSitemapFromURLs writes a sitemap for records without crawling
func (uc *GenerateUseCase) CreateSitemapFromURLs(ctx context.Context, records []*entity.URLRecord) error {
	run, err := uc.begin(ctx)
	if err != nil {
		return err
	}
	uc.injectForcedURLs()

	for _, record := range records {
		if run.ctx.Err() != nil {
			break
		}
		rec := record.Clone()
		if rec.Lang == "" {
			rec.Lang = entity.DefaultLang
		}
		uc.observeDepth(run, rec.Depth)
		stored, inserted, err := uc.store.Upsert(rec)
		switch {
		case err != nil:
			uc.emit(&entity.Event{Type: entity.EventError, URL: rec.Value, Error: &entity.CrawlError{Code: http.StatusBadRequest, Message: err.Error(), URL: rec.Value}})
		case !inserted:
			uc.emit(&entity.Event{Type: entity.EventIgnore, URL: stored.Value})
		default:
			uc.emit(&entity.Event{Type: entity.EventAdd, URL: stored.Value, Record: stored.Clone()})
		}
	}

	uc.complete(run)
	return run.err
}

// Paths returns the files written by the last run, index first
func (uc *GenerateUseCase) Paths() []string {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	paths := make([]string, len(uc.paths))
	copy(paths, uc.paths)
	return paths
}

// Stats returns the statistics of the last finished run, or nil
func (uc *GenerateUseCase) Stats() *entity.Stats {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.stats == nil {
		return nil
	}
	stats := *uc.stats
	return &stats
}

// State returns the current lifecycle state
func (uc *GenerateUseCase) State() State {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	return uc.state
}

// GetMetrics returns the current metrics
func (uc *GenerateUseCase) GetMetrics() *entity.Metrics {
	uc.mu.Lock()
	run := uc.run
	state := uc.state
	uc.mu.Unlock()

	added, ignored, errored := uc.events.counts()
	metrics := &entity.Metrics{
		State:          state.String(),
		PendingLength:  uc.pending.Len(),
		FrontierLength: uc.crawler.FrontierLen(),
		MaxConcurrency: uc.config.MaxConcurrency,
		Added:          added,
		Ignored:        ignored,
		Errored:        errored,
		LastUpdateTime: time.Now(),
	}
	if run != nil {
		metrics.InFlight = int(run.inflightN.Load())
		metrics.Fetched = run.fetched.Load()
		metrics.FetchErrors = run.fetchErrors.Load()
		metrics.MaxDepth = int(run.maxDepth.Load())
		metrics.StartTime = run.startTime
	}
	if active, ok := uc.crawler.(interface{ ActiveURLs() []string }); ok {
		metrics.ActiveURLs = active.ActiveURLs()
	}
	return metrics
}

// notifyMetricsObservers notifies all registered observers
func (uc *GenerateUseCase) notifyMetricsObservers() {
	uc.mu.Lock()
	observers := uc.metricsObservers
	uc.mu.Unlock()
	if len(observers) == 0 {
		return
	}

	metrics := uc.GetMetrics()
	for _, observer := range observers {
		observer.OnMetricsUpdate(metrics)
	}
}

// begin moves the use case to Running with fresh run state
func (uc *GenerateUseCase) begin(ctx context.Context) (*runState, error) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	if uc.state != StateIdle {
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	run := &runState{
		ctx:       runCtx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
		done:      make(chan struct{}),
		startTime: time.Now(),
	}
	uc.state = StateRunning
	uc.run = run
	uc.paths = nil
	uc.stats = nil

	uc.store.Reset()
	uc.pending.Reset()
	uc.events.reset()
	return run, nil
}

// injectForcedURLs stores the configured URLs without fetching them
func (uc *GenerateUseCase) injectForcedURLs() {
	for _, forced := range uc.config.ForcedURLs {
		record := entity.NewURLRecord(forced.Value, entity.ForcedDepth, "")
		if forced.Lang != "" {
			record.Lang = forced.Lang
		}
		for _, alt := range forced.Alternatives {
			record.Alternatives = append(record.Alternatives, entity.Alternative{Value: alt.Value, Lang: alt.Lang})
		}
		if _, _, err := uc.store.Upsert(record); err != nil {
			uc.logger.WithField("url", forced.Value).WithError(err).Warn("failed to add forced url")
		}
	}
}

func (uc *GenerateUseCase) setState(state State) {
	uc.mu.Lock()
	defer uc.mu.Unlock()

	uc.state = state
}

func (uc *GenerateUseCase) observeDepth(run *runState, depth int) {
	for {
		current := run.maxDepth.Load()
		if int64(depth) <= current || run.maxDepth.CompareAndSwap(current, int64(depth)) {
			return
		}
	}
}

// emit publishes event and forwards added URLs to metrics observers
func (uc *GenerateUseCase) emit(event *entity.Event) {
	if !uc.events.publish(event) {
		return
	}
	if event.Type != entity.EventAdd || event.Record == nil {
		return
	}
	uc.mu.Lock()
	observers := uc.metricsObservers
	uc.mu.Unlock()
	for _, observer := range observers {
		observer.AddURL(event.Record.Value)
	}
}

// complete writes the sitemap and emits done; it runs once per run
func (uc *GenerateUseCase) complete(run *runState) {
	uc.store.Seal()
	records := uc.store.Records()

	if uc.config.RecommendAlternatives {
		uc.merger.Merge(records)
	}

	paths, err := uc.writeSitemaps(records)
	if err == nil && uc.resultWriter != nil {
		err = uc.writeReport(records)
	}
	if err != nil {
		uc.logger.WithError(err).Error("failed to write sitemap")
	}

	urls := make([]*entity.URLRecord, 0, len(records))
	for _, record := range records {
		urls = append(urls, record.Clone())
	}
	uc.finish(run, &entity.Stats{
		URLs:             urls,
		MaxObservedDepth: int(run.maxDepth.Load()),
		Paths:            paths,
		Err:              err,
	}, err)
}

// abort ends a run without writing anything
func (uc *GenerateUseCase) abort(run *runState, err error) {
	run.cancel()
	uc.waitInflight(run, uc.config.StopGrace)
	uc.store.Seal()

	uc.logger.WithError(err).Error("crawl aborted")
	uc.emit(&entity.Event{
		Type:  entity.EventError,
		URL:   uc.config.SeedURL,
		Error: &entity.CrawlError{Message: err.Error(), URL: uc.config.SeedURL},
		Err:   err,
	})
	uc.finish(run, &entity.Stats{MaxObservedDepth: int(run.maxDepth.Load()), Err: err}, err)
}

func (uc *GenerateUseCase) finish(run *runState, stats *entity.Stats, err error) {
	uc.mu.Lock()
	uc.paths = stats.Paths
	uc.stats = stats
	uc.mu.Unlock()

	uc.emit(&entity.Event{Type: entity.EventDone, Stats: stats})
	uc.notifyMetricsObservers()

	run.err = err
	run.cancel()
	uc.setState(StateIdle)
	close(run.done)
}

func (uc *GenerateUseCase) writeSitemaps(records []*entity.URLRecord) ([]string, error) {
	if len(records) == 0 {
		return nil, nil
	}

	writer := uc.newSitemapWriter()
	for _, record := range records {
		if err := writer.AddURL(record); err != nil {
			writer.Discard()
			return nil, fmt.Errorf("add %s to sitemap: %w", record.Value, err)
		}
	}
	if err := writer.Flush(); err != nil {
		writer.Discard()
		return nil, err
	}
	if err := writer.Finish(); err != nil {
		writer.Discard()
		return nil, err
	}
	return uc.finalizer.Finalize(writer.Paths())
}

func (uc *GenerateUseCase) writeReport(records []*entity.URLRecord) error {
	for _, record := range records {
		if err := uc.resultWriter.Write(record); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}
	if err := uc.resultWriter.Flush(); err != nil {
		return fmt.Errorf("flush report: %w", err)
	}
	return nil
}

// waitInflight waits for dispatched accept attempts, giving up after timeout
func (uc *GenerateUseCase) waitInflight(run *runState, timeout time.Duration) bool {
	settled := make(chan struct{})
	go func() {
		run.inflight.Wait()
		close(settled)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-settled:
		return true
	case <-timer.C:
		uc.logger.WithField("in_flight", run.inflightN.Load()).Warn("in-flight pages did not settle in time")
		return false
	}
}

// OnFetchComplete implements service.CrawlObserver
func (uc *GenerateUseCase) OnFetchComplete(item *entity.QueueItem) {
	uc.pending.Push(item)
}

// OnFetchError implements service.CrawlObserver
func (uc *GenerateUseCase) OnFetchError(err *entity.CrawlError) {
	uc.logger.WithField("url", err.URL).WithField("code", err.Code).Debug(err.Message)
	uc.emit(&entity.Event{Type: entity.EventError, URL: err.URL, Error: err})
}

// OnIgnored implements service.CrawlObserver
func (uc *GenerateUseCase) OnIgnored(url string) {
	uc.emit(&entity.Event{Type: entity.EventIgnore, URL: url})
}

// OnFetched implements service.CrawlObserver
func (uc *GenerateUseCase) OnFetched(url string, statusCode int, err error) {
	uc.mu.Lock()
	run := uc.run
	uc.mu.Unlock()
	if run == nil {
		return
	}
	run.fetched.Add(1)
	if err != nil || statusCode >= 400 {
		run.fetchErrors.Add(1)
	}
}

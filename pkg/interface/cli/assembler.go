package cli

import (
	"errors"
	"fmt"
	"net/url"

	"github.com/WangYihang/Sitemap-Generator/pkg/application"
	"github.com/WangYihang/Sitemap-Generator/pkg/common"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/repository"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/crawl"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/dns"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/domainservice"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/html"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/http"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/lang"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/robots"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/sitemap"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/storage"
	"github.com/sirupsen/logrus"
)

// Assembler assembles all components for the application
type Assembler struct {
	config *Config
	logger logrus.FieldLogger

	logWriter    repository.LogWriter
	resultWriter repository.ResultWriter
}

// NewAssembler creates a new assembler
func NewAssembler(config *Config, logger logrus.FieldLogger) *Assembler {
	return &Assembler{config: config, logger: logger}
}

// UseCaseConfig maps the command line configuration onto the use case
func (a *Assembler) UseCaseConfig() application.Config {
	c := application.DefaultConfig()
	c.SeedURL = a.config.Args.URL
	c.MaxEntriesPerFile = a.config.MaxEntries
	c.MaxDepth = a.config.MaxDepth
	c.MaxConcurrency = a.config.MaxConcurrency
	c.RespectRobotsTxt = !a.config.IgnoreRobots
	c.StripQuerystring = !a.config.KeepQuerystring
	c.IgnoreWWWDomain = !a.config.KeepWWW
	c.FilterByDomain = !a.config.AnyDomain
	c.LastModEnabled = a.config.LastMod
	c.ChangeFreq = a.config.ChangeFreq
	c.PriorityMap = a.config.Priority
	c.RecommendAlternatives = a.config.RecommendAlternatives
	c.ReplaceByCanonical = a.config.ReplaceByCanonical
	c.ForcedURLs = a.config.ForcedURLs
	c.Filepath = a.config.Filepath
	c.IndexSuffix = sitemap.SuffixMode(a.config.IndexSuffix)
	c.SchedulerInterval = a.config.Interval
	c.StopGrace = a.config.StopGrace
	c.SettleTimeout = a.config.SettleTimeout
	return c
}

// AssembleUseCase assembles the generate use case with all dependencies
func (a *Assembler) AssembleUseCase() (*application.GenerateUseCase, error) {
	for _, warning := range a.config.Warnings {
		a.logger.Warn(warning)
	}

	config := a.UseCaseConfig()
	seed, err := url.Parse(config.SeedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse seed url: %w", err)
	}

	// Create domain services
	normalizer := domainservice.NewNormalizer(domainservice.NormalizerConfig{
		StripQuerystring: config.StripQuerystring,
		IgnoreWWW:        config.IgnoreWWWDomain,
	})
	validator, err := domainservice.NewValidator(domainservice.ValidatorConfig{
		Seed:              seed,
		FilterByDomain:    config.FilterByDomain,
		IgnoreWWW:         config.IgnoreWWWDomain,
		IncludeSubdomains: a.config.Subdomains,
		ExcludedFileTypes: a.config.ExcludeExt,
		ExcludedURLs:      a.config.ExcludeURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scope validator: %w", err)
	}

	// Create HTTP fetcher
	userAgent := a.config.UserAgent
	if userAgent == "" {
		userAgent = common.PV.UserAgent()
	}
	fetcher := http.NewFetcher(http.Config{
		Timeout:          a.config.Timeout,
		MaxResponseSize:  a.config.MaxResponseSize,
		UserAgent:        userAgent,
		IgnoreInvalidSSL: a.config.IgnoreInvalidSSL,
	})

	// Create repositories
	logWriter, err := storage.NewLogWriter(a.config.HTTPLogFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create log writer: %w", err)
	}
	a.logWriter = logWriter

	if a.config.ReportFile != "" {
		resultWriter, err := storage.NewResultWriter(a.config.ReportFile)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create result writer: %w", err)
		}
		a.resultWriter = resultWriter
	}

	crawlDeps := crawl.Dependencies{
		Fetcher:    fetcher,
		Inspector:  html.NewInspector(),
		Validator:  validator,
		Normalizer: normalizer,
		Robots:     robots.NewAgent(robots.Config{UserAgent: userAgent, Respect: config.RespectRobotsTxt}, fetcher.Client()),
		Limiter:    http.NewHostLimiter(a.config.RateLimit, a.config.RateBurst),
		LogWriter:  logWriter,
		NewFrontier: func() repository.Frontier {
			return storage.NewTaskQueue(a.config.QueueSize)
		},
		NewVisited: func() repository.VisitedFilter {
			return storage.NewBloomFilter(storage.Config{
				Size:              a.config.BloomFilterSize,
				FalsePositiveRate: a.config.BloomFilterFP,
			})
		},
		Logger: a.logger,
	}
	if a.config.DNSPreflight {
		crawlDeps.Resolver = dns.NewResolver(dns.Config{Servers: a.config.DNSServers, Timeout: a.config.Timeout})
	}

	driver := crawl.NewDriver(crawl.Config{
		MaxDepth:         config.MaxDepth,
		NumWorkers:       config.MaxConcurrency,
		StripQuerystring: config.StripQuerystring,
		RespectRobotsTxt: config.RespectRobotsTxt,
	}, crawlDeps)

	deps := application.Dependencies{
		Crawler:    driver,
		Fetcher:    fetcher,
		Inspector:  html.NewInspector(),
		Detector:   lang.NewDetector(),
		Tokenizer:  lang.NewTokenizer(),
		Normalizer: normalizer,
		Store:      storage.NewRecordStore(normalizer.Key),
		Pending:    storage.NewPendingQueue(),
		Logger:     a.logger,
	}
	if a.resultWriter != nil {
		deps.ResultWriter = a.resultWriter
	}

	useCase, err := application.NewGenerateUseCase(config, deps)
	if err != nil {
		a.Close()
		return nil, err
	}
	return useCase, nil
}

// Close closes the writers opened by AssembleUseCase
func (a *Assembler) Close() error {
	var errs []error
	if a.resultWriter != nil {
		errs = append(errs, a.resultWriter.Close())
		a.resultWriter = nil
	}
	if a.logWriter != nil {
		errs = append(errs, a.logWriter.Close())
		a.logWriter = nil
	}
	return errors.Join(errs...)
}

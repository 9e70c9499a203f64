package cli

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/jessevdk/go-flags"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration
type Config struct {
	Args struct {
		URL string `positional-arg-name:"URL" description:"Seed URL to crawl"`
	} `positional-args:"yes"`

	// Sitemap
	Filepath              string    `short:"o" long:"filepath" env:"SITEMAP_FILEPATH" description:"Path of the sitemap (or sitemap index) to write" default:"sitemap.xml"`
	MaxEntries            int       `long:"max-entries" env:"SITEMAP_MAX_ENTRIES" description:"Maximum URLs per sitemap file" default:"50000"`
	IndexSuffix           string    `long:"index-suffix" env:"SITEMAP_INDEX_SUFFIX" description:"Partition naming in the sitemap index" choice:"uniform" choice:"legacy" default:"uniform"`
	LastMod               bool      `long:"lastmod" env:"SITEMAP_LASTMOD" description:"Add <lastmod> from the Last-Modified header"`
	ChangeFreq            string    `long:"changefreq" env:"SITEMAP_CHANGEFREQ" description:"Value of <changefreq> (always, hourly, daily, weekly, monthly, yearly, never)"`
	Priority              []float64 `long:"priority" env:"SITEMAP_PRIORITY" env-delim:"," description:"Priority by depth, starting at depth 1 (repeatable)"`
	RecommendAlternatives bool      `long:"recommend-alternatives" env:"SITEMAP_RECOMMEND_ALTERNATIVES" description:"Link pages that differ only by a language path segment"`
	ReplaceByCanonical    bool      `long:"replace-by-canonical" env:"SITEMAP_REPLACE_BY_CANONICAL" description:"Store the canonical URL of a page instead of the crawled one"`
	ForcedURLsFile        string    `long:"forced-urls" env:"SITEMAP_FORCED_URLS" description:"YAML file of URLs always added to the sitemap"`

	// Crawling
	MaxDepth        int           `long:"max-depth" env:"SITEMAP_MAX_DEPTH" description:"Maximum link depth to crawl (0 is unlimited)" default:"0"`
	CrawlerMaxDepth int           `long:"crawler-max-depth" env:"SITEMAP_CRAWLER_MAX_DEPTH" description:"Deprecated alias of --max-depth" hidden:"yes"`
	MaxConcurrency  int           `short:"c" long:"max-concurrency" env:"SITEMAP_MAX_CONCURRENCY" description:"Concurrent fetches and accepts" default:"5"`
	IgnoreRobots    bool          `long:"ignore-robots" env:"SITEMAP_IGNORE_ROBOTS" description:"Do not respect robots.txt"`
	KeepQuerystring bool          `long:"keep-querystring" env:"SITEMAP_KEEP_QUERYSTRING" description:"Keep query strings when comparing URLs"`
	KeepWWW         bool          `long:"keep-www" env:"SITEMAP_KEEP_WWW" description:"Treat www.host and host as different sites"`
	AnyDomain       bool          `long:"any-domain" env:"SITEMAP_ANY_DOMAIN" description:"Follow links to other hosts"`
	Subdomains      bool          `long:"include-subdomains" env:"SITEMAP_INCLUDE_SUBDOMAINS" description:"Follow links to subdomains of the seed domain"`
	ExcludeExt      []string      `long:"exclude-ext" env:"SITEMAP_EXCLUDE_EXT" env-delim:"," description:"File extensions never fetched (replaces the defaults)"`
	ExcludeURL      []string      `long:"exclude-url" env:"SITEMAP_EXCLUDE_URL" env-delim:"," description:"URL fragments never fetched (replaces the defaults)"`
	Interval        time.Duration `long:"interval" env:"SITEMAP_INTERVAL" description:"Scheduler tick interval" default:"200ms"`
	StopGrace       time.Duration `long:"stop-grace" env:"SITEMAP_STOP_GRACE" description:"How long in-flight pages may settle after a stop" default:"5s"`
	SettleTimeout   time.Duration `long:"settle-timeout" env:"SITEMAP_SETTLE_TIMEOUT" description:"How long in-flight pages may settle after the crawl ends" default:"30s"`
	QueueSize       int           `long:"queue-size" env:"SITEMAP_QUEUE_SIZE" description:"Size of the crawl frontier" default:"100000"`

	// HTTP
	UserAgent        string        `long:"user-agent" env:"SITEMAP_USER_AGENT" description:"HTTP User-Agent header"`
	Timeout          time.Duration `long:"timeout" env:"SITEMAP_TIMEOUT" description:"HTTP request timeout" default:"30s"`
	MaxResponseSize  int64         `long:"max-response-size" env:"SITEMAP_MAX_RESPONSE_SIZE" description:"Maximum HTTP response size in bytes" default:"10485760"`
	IgnoreInvalidSSL bool          `long:"ignore-invalid-ssl" env:"SITEMAP_IGNORE_INVALID_SSL" description:"Skip TLS certificate verification"`
	RateLimit        float64       `long:"rate-limit" env:"SITEMAP_RATE_LIMIT" description:"Requests per second per host (0 is unlimited)" default:"0"`
	RateBurst        int           `long:"rate-burst" env:"SITEMAP_RATE_BURST" description:"Request burst per host" default:"1"`

	// DNS
	DNSPreflight bool     `long:"dns-preflight" env:"SITEMAP_DNS_PREFLIGHT" description:"Check that the seed host exists before crawling"`
	DNSServers   []string `long:"dns-server" env:"SITEMAP_DNS_SERVERS" env-delim:"," description:"DNS server used by --dns-preflight (repeatable)"`

	// Dedup
	BloomFilterSize uint    `long:"bloom-size" env:"SITEMAP_BLOOM_SIZE" description:"Bloom filter size (number of expected elements)" default:"1000000"`
	BloomFilterFP   float64 `long:"bloom-fp" env:"SITEMAP_BLOOM_FP" description:"Bloom filter false positive rate" default:"0.01"`

	// Logging
	LogLevel    string `long:"log-level" env:"SITEMAP_LOG_LEVEL" description:"Log level" choice:"debug" choice:"info" choice:"warn" choice:"error" default:"info"`
	LogFormat   string `long:"log-format" env:"SITEMAP_LOG_FORMAT" description:"Log format" choice:"text" choice:"json" default:"text"`
	LogFile     string `long:"log-file" env:"SITEMAP_LOG_FILE" description:"Write logs to this file instead of stderr"`
	HTTPLogFile string `long:"http-log" env:"SITEMAP_HTTP_LOG" description:"HTTP request/response log file (JSONL)"`
	ReportFile  string `long:"report" env:"SITEMAP_REPORT" description:"Write the sitemap records to this file (JSONL)"`

	// UI
	ShowDashboard bool   `long:"dashboard" env:"SITEMAP_DASHBOARD" description:"Show interactive TUI dashboard"`
	MetricsAddr   string `long:"metrics-addr" env:"SITEMAP_METRICS_ADDR" description:"Serve Prometheus metrics on this address"`
	Version       bool   `short:"V" long:"version" description:"Print the version and exit"`

	// ForcedURLs is loaded from ForcedURLsFile
	ForcedURLs []*entity.URLRecord
	// Warnings collects deprecation notices found while parsing
	Warnings []string
}

// ParseFlags loads .env and parses command line flags
func ParseFlags() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := ParseArgs(os.Args[1:])
	if err != nil {
		if flags.WroteHelp(err) {
			// Help has been printed by the library, exit cleanly
			os.Exit(0)
		}
		return nil, err
	}
	return cfg, nil
}

// ParseArgs parses args into a validated configuration
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}

	parser := flags.NewParser(cfg, flags.Default)
	parser.Usage = "[OPTIONS] URL"

	if _, err := parser.ParseArgs(args); err != nil {
		return nil, err
	}
	if cfg.Version {
		return cfg, nil
	}

	if cfg.CrawlerMaxDepth > 0 {
		cfg.Warnings = append(cfg.Warnings, "--crawler-max-depth is deprecated, use --max-depth")
		if cfg.MaxDepth == 0 {
			cfg.MaxDepth = cfg.CrawlerMaxDepth
		}
	}

	if cfg.ForcedURLsFile != "" {
		forced, err := LoadForcedURLs(cfg.ForcedURLsFile)
		if err != nil {
			return nil, err
		}
		cfg.ForcedURLs = forced
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Args.URL == "" {
		return fmt.Errorf("a seed URL is required")
	}

	u, err := url.Parse(c.Args.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("seed URL must be an absolute http(s) URL, got %q", c.Args.URL)
	}

	if c.MaxEntries <= 0 {
		return fmt.Errorf("max entries must be > 0, got %d", c.MaxEntries)
	}

	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max concurrency must be > 0, got %d", c.MaxConcurrency)
	}

	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must be >= 0, got %d", c.MaxDepth)
	}

	if c.QueueSize <= 0 {
		return fmt.Errorf("queue size must be > 0, got %d", c.QueueSize)
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("HTTP timeout must be > 0, got %s", c.Timeout)
	}

	if c.Interval <= 0 {
		return fmt.Errorf("scheduler interval must be > 0, got %s", c.Interval)
	}

	if c.MaxResponseSize <= 0 {
		return fmt.Errorf("max response size must be > 0, got %d", c.MaxResponseSize)
	}

	if c.RateLimit < 0 {
		return fmt.Errorf("rate limit must be >= 0, got %f", c.RateLimit)
	}

	for _, p := range c.Priority {
		if p < 0 || p > 1 {
			return fmt.Errorf("priority must be between 0 and 1, got %f", p)
		}
	}

	if c.BloomFilterFP <= 0 || c.BloomFilterFP >= 1 {
		return fmt.Errorf("bloom filter false positive rate must be between 0 and 1, got %f", c.BloomFilterFP)
	}

	return nil
}

// LoadForcedURLs reads a YAML list of records:
//
//	# forced.yaml
//	- url: https://example.com/landing
//	  lang: en
//	  alternatives:
//	    - url: https://example.com/de/landing
//	      lang: de
func LoadForcedURLs(path string) ([]*entity.URLRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open forced urls: %w", err)
	}
	defer f.Close()

	var records []*entity.URLRecord
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(&records); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse forced urls %s: %w", path, err)
	}

	for i, record := range records {
		if record == nil || record.Value == "" {
			return nil, fmt.Errorf("forced url #%d has no url", i+1)
		}
		u, err := url.Parse(record.Value)
		if err != nil || !u.IsAbs() {
			return nil, fmt.Errorf("forced url %q must be absolute", record.Value)
		}
	}
	return records, nil
}

package application

import (
	"fmt"
	"net/url"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/sitemap"
)

// Config holds the generate use case configuration
type Config struct {
	SeedURL string

	MaxEntriesPerFile int
	// MaxDepth bounds link depth; 0 means unlimited
	MaxDepth       int
	MaxConcurrency int

	RespectRobotsTxt bool
	StripQuerystring bool
	IgnoreWWWDomain  bool
	FilterByDomain   bool

	LastModEnabled bool
	ChangeFreq     string
	PriorityMap    []float64

	RecommendAlternatives bool
	ReplaceByCanonical    bool
	ForcedURLs            []*entity.URLRecord

	Filepath    string
	IndexSuffix sitemap.SuffixMode
	TempDir     string

	SchedulerInterval time.Duration
	StopGrace         time.Duration
	SettleTimeout     time.Duration
}

// DefaultConfig returns the configuration used when a field is left unset
func DefaultConfig() Config {
	return Config{
		MaxEntriesPerFile: 50000,
		MaxConcurrency:    5,
		RespectRobotsTxt:  true,
		StripQuerystring:  true,
		IgnoreWWWDomain:   true,
		FilterByDomain:    true,
		Filepath:          "sitemap.xml",
		IndexSuffix:       sitemap.SuffixUniform,
		SchedulerInterval: 200 * time.Millisecond,
		StopGrace:         5 * time.Second,
		SettleTimeout:     30 * time.Second,
	}
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	u, err := url.Parse(c.SeedURL)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("seed url %q must be an absolute http(s) url", c.SeedURL)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("seed url %q must use http or https", c.SeedURL)
	}
	if c.MaxEntriesPerFile < 1 {
		return fmt.Errorf("max entries per file must be at least 1")
	}
	if c.MaxConcurrency < 1 {
		return fmt.Errorf("max concurrency must be at least 1")
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("max depth must not be negative")
	}
	if c.Filepath == "" {
		return fmt.Errorf("filepath is required")
	}
	for _, p := range c.PriorityMap {
		if p < 0 || p > 1 {
			return fmt.Errorf("priority %v out of range [0, 1]", p)
		}
	}
	switch c.IndexSuffix {
	case "", sitemap.SuffixUniform, sitemap.SuffixLegacy:
	default:
		return fmt.Errorf("unknown index suffix mode %q", c.IndexSuffix)
	}
	if c.SchedulerInterval <= 0 {
		return fmt.Errorf("scheduler interval must be positive")
	}
	return nil
}

func (c *Config) sitemapOptions() sitemap.Options {
	return sitemap.Options{
		ChangeFreq:     c.ChangeFreq,
		PriorityMap:    c.PriorityMap,
		LastModEnabled: c.LastModEnabled,
		TempDir:        c.TempDir,
	}
}

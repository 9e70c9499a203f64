package domainservice

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/purell"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
)

// NormalizerConfig controls URL normalization
type NormalizerConfig struct {
	StripQuerystring bool
	IgnoreWWW        bool
}

// Normalizer implements service.URLNormalizer
type Normalizer struct {
	flags            purell.NormalizationFlags
	stripQuerystring bool
}

// NewNormalizer creates a new URL normalizer
func NewNormalizer(config NormalizerConfig) service.URLNormalizer {
	flags := purell.FlagLowercaseScheme |
		purell.FlagLowercaseHost |
		purell.FlagUppercaseEscapes |
		purell.FlagDecodeUnnecessaryEscapes |
		purell.FlagRemoveDefaultPort |
		purell.FlagRemoveEmptyQuerySeparator |
		purell.FlagRemoveDotSegments |
		purell.FlagRemoveDuplicateSlashes |
		purell.FlagRemoveFragment |
		purell.FlagRemoveTrailingSlash |
		purell.FlagSortQuery
	if config.IgnoreWWW {
		flags |= purell.FlagRemoveWWW
	}
	return &Normalizer{
		flags:            flags,
		stripQuerystring: config.StripQuerystring,
	}
}

// Normalize returns the normalized form of a URL
func (n *Normalizer) Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("parse %q: missing host", raw)
	}
	if n.stripQuerystring {
		u.RawQuery = ""
		u.ForceQuery = false
	}
	return purell.NormalizeURL(u, n.flags), nil
}

// Key returns the dedup key of a URL; http and https map to the same key
func (n *Normalizer) Key(raw string) string {
	normalized, err := n.Normalize(raw)
	if err != nil {
		return strings.TrimSpace(raw)
	}
	if i := strings.Index(normalized, "://"); i >= 0 {
		return normalized[i+1:]
	}
	return normalized
}

// Equal reports whether two URLs normalize to the same key
func (n *Normalizer) Equal(a, b string) bool {
	return n.Key(a) == n.Key(b)
}

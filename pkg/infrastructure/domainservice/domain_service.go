package domainservice

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	"golang.org/x/net/publicsuffix"
)

// DefaultExcludedFileTypes are extensions never fetched by the crawler
var DefaultExcludedFileTypes = []string{
	"gif", "jpg", "jpeg", "png", "ico", "bmp", "ogg", "webp",
	"mp4", "webm", "mp3", "ttf", "woff", "woff2", "eot", "json",
	"rss", "atom", "gz", "zip", "rar", "7z", "css", "js", "gzip",
	"exe", "svg", "xml",
}

// DefaultExcludedURLs are path fragments never fetched by the crawler
var DefaultExcludedURLs = []string{"/wp-json/"}

// ValidatorConfig holds the scope rules of a crawl
type ValidatorConfig struct {
	Seed              *url.URL
	FilterByDomain    bool
	IgnoreWWW         bool
	IncludeSubdomains bool
	ExcludedFileTypes []string
	ExcludedURLs      []string
}

// Validator implements service.ScopeValidator
type Validator struct {
	seedHost          string
	seedRoot          string
	pathPrefix        string
	filterByDomain    bool
	ignoreWWW         bool
	includeSubdomains bool
	extRegex          *regexp.Regexp
	urlRegex          *regexp.Regexp
}

// NewValidator creates a new scope validator
func NewValidator(config ValidatorConfig) (service.ScopeValidator, error) {
	if config.Seed == nil || config.Seed.Host == "" {
		return nil, fmt.Errorf("seed URL must be absolute")
	}

	host := strings.ToLower(config.Seed.Hostname())
	v := &Validator{
		seedHost:          host,
		pathPrefix:        config.Seed.Path,
		filterByDomain:    config.FilterByDomain,
		ignoreWWW:         config.IgnoreWWW,
		includeSubdomains: config.IncludeSubdomains,
	}
	if v.pathPrefix == "" {
		v.pathPrefix = "/"
	}
	if root, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		v.seedRoot = root
	} else {
		v.seedRoot = host
	}

	if config.ExcludedFileTypes == nil {
		config.ExcludedFileTypes = DefaultExcludedFileTypes
	}
	if config.ExcludedURLs == nil {
		config.ExcludedURLs = DefaultExcludedURLs
	}
	if len(config.ExcludedFileTypes) > 0 {
		exts := make([]string, 0, len(config.ExcludedFileTypes))
		for _, ext := range config.ExcludedFileTypes {
			exts = append(exts, regexp.QuoteMeta(strings.TrimPrefix(ext, ".")))
		}
		v.extRegex = regexp.MustCompile(`(?i)\.(` + strings.Join(exts, "|") + `)$`)
	}
	if len(config.ExcludedURLs) > 0 {
		patterns := make([]string, 0, len(config.ExcludedURLs))
		for _, p := range config.ExcludedURLs {
			patterns = append(patterns, regexp.QuoteMeta(p))
		}
		v.urlRegex = regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))
	}
	return v, nil
}

// IsSeedHost reports whether host is the seed host, ignoring www when configured
func (v *Validator) IsSeedHost(host string) bool {
	host = strings.ToLower(strings.TrimSpace(host))
	if host == v.seedHost {
		return true
	}
	if v.ignoreWWW {
		return stripWWW(host) == stripWWW(v.seedHost)
	}
	return false
}

// IsInScope checks host and path against the crawl seed
func (v *Validator) IsInScope(u *url.URL) bool {
	if u == nil {
		return false
	}
	if v.filterByDomain && !v.hostInScope(u.Hostname()) {
		return false
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return strings.HasPrefix(path, v.pathPrefix)
}

func (v *Validator) hostInScope(host string) bool {
	host = strings.ToLower(host)
	if v.IsSeedHost(host) {
		return true
	}
	if !v.includeSubdomains {
		return false
	}
	return host == v.seedRoot || strings.HasSuffix(host, "."+v.seedRoot)
}

// IsExcluded checks file extension and URL pattern exclusions
func (v *Validator) IsExcluded(u *url.URL) bool {
	if u == nil {
		return true
	}
	if v.extRegex != nil && v.extRegex.MatchString(u.Path) {
		return true
	}
	if v.urlRegex != nil && v.urlRegex.MatchString(u.RequestURI()) {
		return true
	}
	return false
}

// IsAllowed combines scheme, scope and exclusion checks
func (v *Validator) IsAllowed(u *url.URL) bool {
	if u == nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return false
	}
	return v.IsInScope(u) && !v.IsExcluded(u)
}

func stripWWW(host string) string {
	return strings.TrimPrefix(host, "www.")
}

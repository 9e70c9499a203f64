package entity

import "time"

// DefaultLang is the language assumed for a page until detection says otherwise
const DefaultLang = "en"

// ForcedDepth is the depth given to URLs injected through configuration
const ForcedDepth = 100

// Alternative is a language variant of a URL record
type Alternative struct {
	Value   string `json:"url" yaml:"url"`
	Lang    string `json:"lang" yaml:"lang"`
	Flushed bool   `json:"-" yaml:"-"`
}

// URLRecord represents one accepted page of the sitemap
type URLRecord struct {
	Value        string        `json:"url" yaml:"url"`
	Depth        int           `json:"depth" yaml:"-"`
	Lang         string        `json:"lang" yaml:"lang"`
	LastMod      string        `json:"lastmod,omitempty" yaml:"-"`
	Alternatives []Alternative `json:"alternatives,omitempty" yaml:"alternatives"`
	Flushed      bool          `json:"-" yaml:"-"`
}

// NewURLRecord creates a record with the default language
func NewURLRecord(value string, depth int, lastMod string) *URLRecord {
	return &URLRecord{
		Value:   value,
		Depth:   depth,
		Lang:    DefaultLang,
		LastMod: lastMod,
	}
}

// HasAlternatives reports whether the record carries any language variants
func (r *URLRecord) HasAlternatives() bool {
	return len(r.Alternatives) > 0
}

// Clone returns a deep copy that is safe to hand to observers
func (r *URLRecord) Clone() *URLRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Alternatives != nil {
		c.Alternatives = make([]Alternative, len(r.Alternatives))
		copy(c.Alternatives, r.Alternatives)
	}
	return &c
}

// QueueItem is a successfully fetched page waiting to be accepted
type QueueItem struct {
	URL     string
	Depth   int
	LastMod string
	Body    []byte
	Busy    bool
}

// CrawlTask is a URL scheduled for fetching by the crawl driver
type CrawlTask struct {
	URL       string
	Depth     int
	CreatedAt time.Time
}

// FormatLastMod converts a Last-Modified header into a W3C datetime.
// An empty or unparsable header yields an empty string.
func FormatLastMod(header string) string {
	if header == "" {
		return ""
	}
	t, err := time.Parse(time.RFC1123, header)
	if err != nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

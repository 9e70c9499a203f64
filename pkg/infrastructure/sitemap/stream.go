package sitemap

import (
	"bufio"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
)

const (
	xmlProlog      = `<?xml version="1.0" encoding="UTF-8"?>`
	sitemapNS      = "http://www.sitemaps.org/schemas/sitemap/0.9"
	xhtmlNamespace = "http://www.w3.org/1999/xhtml"
)

// ErrStreamClosed is returned when writing to a finished partition
var ErrStreamClosed = errors.New("sitemap stream is closed")

// Options controls how records are rendered
type Options struct {
	ChangeFreq     string
	PriorityMap    []float64
	LastModEnabled bool
	// TempDir is where partition files are created; empty means os.TempDir
	TempDir string
}

// Stream writes one sitemap partition to a temporary file
type Stream struct {
	opts    Options
	path    string
	file    *os.File
	w       *bufio.Writer
	pending []*entity.URLRecord
	started bool
	closed  bool
}

// NewStream creates a partition backed by a fresh temp file
func NewStream(opts Options) (*Stream, error) {
	file, err := os.CreateTemp(opts.TempDir, "sitemap_*.xml")
	if err != nil {
		return nil, fmt.Errorf("create sitemap partition: %w", err)
	}
	return &Stream{
		opts: opts,
		path: file.Name(),
		file: file,
		w:    bufio.NewWriter(file),
	}, nil
}

// Path returns the temp file path
func (s *Stream) Path() string {
	return s.path
}

// Add buffers a record until the next Flush
func (s *Stream) Add(record *entity.URLRecord) error {
	if s.closed {
		return ErrStreamClosed
	}
	s.pending = append(s.pending, record)
	return nil
}

// Flush writes the buffered records, opening <urlset> on first use.
// The root element is left open until Close.
func (s *Stream) Flush() error {
	if s.closed {
		return ErrStreamClosed
	}
	if !s.started {
		s.writeHeader(s.needsXHTML())
	}
	for _, record := range s.pending {
		s.writeURL(record)
	}
	s.pending = nil
	return s.w.Flush()
}

// Close writes </urlset> and closes the file
func (s *Stream) Close() error {
	if s.closed {
		return ErrStreamClosed
	}
	if err := s.Flush(); err != nil {
		return err
	}
	s.closed = true
	s.w.WriteString("\n</urlset>\n")
	if err := s.w.Flush(); err != nil {
		s.file.Close()
		return fmt.Errorf("write sitemap partition: %w", err)
	}
	return s.file.Close()
}

// Remove closes the stream if needed and deletes its temp file
func (s *Stream) Remove() error {
	if !s.closed {
		s.closed = true
		s.file.Close()
	}
	return os.Remove(s.path)
}

func (s *Stream) needsXHTML() bool {
	for _, record := range s.pending {
		if record.HasAlternatives() {
			return true
		}
	}
	return false
}

func (s *Stream) writeHeader(xhtml bool) {
	s.started = true
	s.w.WriteString(xmlProlog)
	s.w.WriteString("\n<urlset xmlns=\"" + sitemapNS + "\"")
	if xhtml {
		s.w.WriteString(" xmlns:xhtml=\"" + xhtmlNamespace + "\"")
	}
	s.w.WriteString(">")
}

func (s *Stream) writeURL(record *entity.URLRecord) {
	s.w.WriteString("\n  <url>\n")
	s.w.WriteString("    <loc>" + escape(record.Value) + "</loc>\n")
	for i := range record.Alternatives {
		alt := &record.Alternatives[i]
		s.w.WriteString(`    <xhtml:link rel="alternate" hreflang="` + escape(alt.Lang) +
			`" href="` + escape(alt.Value) + "\"/>\n")
		alt.Flushed = true
	}
	if s.opts.ChangeFreq != "" {
		s.w.WriteString("    <changefreq>" + s.opts.ChangeFreq + "</changefreq>\n")
	}
	if p, ok := PriorityForDepth(s.opts.PriorityMap, record.Depth); ok {
		s.w.WriteString("    <priority>" + FormatPriority(p) + "</priority>\n")
	}
	if s.opts.LastModEnabled && record.LastMod != "" {
		s.w.WriteString("    <lastmod>" + escape(record.LastMod) + "</lastmod>\n")
	}
	s.w.WriteString("  </url>")
	record.Flushed = true
}

func escape(s string) string {
	var b strings.Builder
	xml.EscapeText(&b, []byte(s))
	return b.String()
}

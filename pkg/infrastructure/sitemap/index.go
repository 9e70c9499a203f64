package sitemap

import (
	"fmt"
	"path/filepath"
	"strings"
)

// SuffixMode selects how partitions are named in the sitemap index
type SuffixMode string

const (
	// SuffixUniform names every partition _part1.._partN
	SuffixUniform SuffixMode = "uniform"
	// SuffixLegacy reproduces the historical index layout
	SuffixLegacy SuffixMode = "legacy"
)

// ExtendFilename inserts suffix before the extension of name
func ExtendFilename(name, suffix string) string {
	ext := filepath.Ext(name)
	return strings.TrimSuffix(name, ext) + suffix + ext
}

// PartitionName returns the on-disk name of partition i (1-based)
func PartitionName(name string, i int) string {
	return ExtendFilename(name, fmt.Sprintf("_part%d", i))
}

// BuildIndex renders the legacy index: entries 1..count-1, suffixed only when count > 2.
// It returns an empty string when count <= 1.
func BuildIndex(baseURL, filename string, count int) string {
	if count <= 1 {
		return ""
	}
	var locs []string
	for i := 1; i < count; i++ {
		suffix := ""
		if count > 2 {
			suffix = fmt.Sprintf("_part%d", i)
		}
		locs = append(locs, joinURL(baseURL, ExtendFilename(filename, suffix)))
	}
	return renderIndex(locs)
}

// BuildUniformIndex renders an index referencing every partition.
// It returns an empty string when count <= 1.
func BuildUniformIndex(baseURL, filename string, count int) string {
	if count <= 1 {
		return ""
	}
	locs := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		locs = append(locs, joinURL(baseURL, PartitionName(filename, i)))
	}
	return renderIndex(locs)
}

// Index builds the index for mode
func Index(mode SuffixMode, baseURL, filename string, count int) string {
	if mode == SuffixLegacy {
		return BuildIndex(baseURL, filename, count)
	}
	return BuildUniformIndex(baseURL, filename, count)
}

func joinURL(baseURL, name string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + name
}

func renderIndex(locs []string) string {
	var b strings.Builder
	b.WriteString(xmlProlog)
	b.WriteString("\n<sitemapindex xmlns=\"" + sitemapNS + "\">")
	for _, loc := range locs {
		b.WriteString("\n  <sitemap>\n    <loc>" + escape(loc) + "</loc>\n  </sitemap>")
	}
	b.WriteString("\n</sitemapindex>\n")
	return b.String()
}

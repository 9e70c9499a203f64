package sitemap

import (
	"strconv"
	"strings"
)

// ChangeFreqs lists the values sitemaps.org accepts for <changefreq>
var ChangeFreqs = []string{"always", "hourly", "daily", "weekly", "monthly", "yearly", "never"}

// ValidChangeFreq reports whether freq is an accepted <changefreq> value
func ValidChangeFreq(freq string) bool {
	for _, f := range ChangeFreqs {
		if f == freq {
			return true
		}
	}
	return false
}

// PriorityForDepth maps a crawl depth onto priorityMap.
// Depth 0 and 1 use the first entry; depths past the end use the last one.
func PriorityForDepth(priorityMap []float64, depth int) (float64, bool) {
	if len(priorityMap) == 0 {
		return 0, false
	}
	idx := depth - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(priorityMap) {
		idx = len(priorityMap) - 1
	}
	return priorityMap[idx], true
}

// FormatPriority renders a priority with at least one decimal place
func FormatPriority(p float64) string {
	s := strconv.FormatFloat(p, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

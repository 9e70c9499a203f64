package application

import (
	"net/url"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
)

// AlternativesMerger links records that differ only by a locale path segment
type AlternativesMerger struct {
	normalizer service.URLNormalizer
	tokenizer  service.LocaleTokenizer
}

// NewAlternativesMerger creates a merger
func NewAlternativesMerger(normalizer service.URLNormalizer, tokenizer service.LocaleTokenizer) *AlternativesMerger {
	return &AlternativesMerger{normalizer: normalizer, tokenizer: tokenizer}
}

// Merge appends language variants to every record, then a self reference
// to each record that received any. Flushed records are left untouched.
func (m *AlternativesMerger) Merge(records []*entity.URLRecord) {
	pure := make([]string, len(records))
	for i, record := range records {
		pure[i] = m.languageFree(record)
	}

	for i, a := range records {
		if a.Flushed {
			continue
		}
		for j, b := range records {
			if i == j || a.Value == b.Value || pure[i] != pure[j] {
				continue
			}
			if strings.EqualFold(a.Lang, b.Lang) || m.covers(a, b.Value, b.Lang) {
				continue
			}
			a.Alternatives = append(a.Alternatives, entity.Alternative{Value: b.Value, Lang: b.Lang})
		}
	}

	for _, record := range records {
		if record.Flushed || !record.HasAlternatives() {
			continue
		}
		if m.covers(record, record.Value, record.Lang) {
			continue
		}
		record.Alternatives = append(record.Alternatives, entity.Alternative{Value: record.Value, Lang: record.Lang})
	}
}

// covers reports whether record already lists value or lang as an alternate
func (m *AlternativesMerger) covers(record *entity.URLRecord, value, lang string) bool {
	for _, alt := range record.Alternatives {
		if m.normalizer.Equal(alt.Value, value) || strings.EqualFold(alt.Lang, lang) {
			return true
		}
	}
	return false
}

// languageFree returns the record key with every locale segment of its language removed
func (m *AlternativesMerger) languageFree(record *entity.URLRecord) string {
	u, err := url.Parse(record.Value)
	if err != nil {
		return m.normalizer.Key(record.Value)
	}

	tokens := make(map[string]struct{})
	for _, token := range m.tokenizer.Tokens(record.Lang) {
		tokens[token] = struct{}{}
	}

	segments := strings.Split(u.Path, "/")
	kept := segments[:0]
	for _, segment := range segments {
		if _, ok := tokens[strings.ToLower(segment)]; ok {
			continue
		}
		kept = append(kept, segment)
	}
	u.Path = strings.Join(kept, "/")
	u.RawPath = ""
	if !strings.HasPrefix(u.Path, "/") {
		u.Path = "/" + u.Path
	}
	return m.normalizer.Key(u.String())
}

package html

import (
	"bytes"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
)

var (
	// "mailto:", "javascript:", "tel:" and friends
	opaqueScheme = regexp.MustCompile(`(?i)^[a-z][a-z0-9+.-]*:(?://)?`)
	whitespace   = regexp.MustCompile(`\s+`)
)

// Inspector implements service.PageInspector with goquery
type Inspector struct{}

// NewInspector creates a new HTML inspector
func NewInspector() service.PageInspector {
	return &Inspector{}
}

// Inspect parses body, resolving links against <base href> or pageURL
func (i *Inspector) Inspect(pageURL string, body []byte) (*service.PageInfo, error) {
	page, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("parse page url: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	info := &service.PageInfo{}
	doc.Find("meta[name]").Each(func(_ int, s *goquery.Selection) {
		if !strings.EqualFold(strings.TrimSpace(s.AttrOr("name", "")), "robots") {
			return
		}
		content := strings.ToLower(s.AttrOr("content", ""))
		info.NoIndex = info.NoIndex || strings.Contains(content, "noindex")
		info.NoFollow = info.NoFollow || strings.Contains(content, "nofollow")
	})

	base := page
	if href, ok := doc.Find("base[href]").First().Attr("href"); ok {
		if b, err := page.Parse(strings.TrimSpace(href)); err == nil {
			base = b
		}
	}

	if lang, ok := doc.Find("html").First().Attr("lang"); ok {
		info.Lang = strings.TrimSpace(lang)
	}

	head := doc.Find("head")
	head.Find(`link[rel="canonical"]`).Each(func(_ int, s *goquery.Selection) {
		if href := cleanHref(s.AttrOr("href", "")); href != "" {
			if u, err := base.Parse(href); err == nil {
				info.Canonical = u.String()
			}
		}
	})

	head.Find(`link[rel="alternate"][hreflang]`).Each(func(_ int, s *goquery.Selection) {
		lang := strings.TrimSpace(s.AttrOr("hreflang", ""))
		href := cleanHref(s.AttrOr("href", ""))
		if lang == "" || href == "" {
			return
		}
		u, err := base.Parse(href)
		if err != nil {
			return
		}
		info.Alternates = append(info.Alternates, entity.Alternative{Value: u.String(), Lang: lang})
	})

	if !info.NoFollow {
		info.Links = extractLinks(doc, page, base)
	}

	text := doc.Find("body").Clone()
	text.Find("script, style, noscript").Remove()
	info.Text = strings.TrimSpace(whitespace.ReplaceAllString(text.Text(), " "))

	return info, nil
}

func extractLinks(doc *goquery.Document, page, base *url.URL) []string {
	seen := make(map[string]struct{})
	var links []string
	doc.Find(`a[href], link[rel="canonical"]`).Each(func(_ int, s *goquery.Selection) {
		href := cleanHref(s.AttrOr("href", ""))
		if href == "" {
			return
		}
		if strings.Contains(strings.ToLower(s.AttrOr("rel", "")), "nofollow") {
			return
		}
		if m := opaqueScheme.FindString(href); m != "" && !strings.HasSuffix(m, "//") {
			return
		}
		if i := strings.IndexByte(href, '#'); i >= 0 {
			href = href[:i]
			if href == "" {
				return
			}
		}

		resolveAgainst := base
		if strings.HasPrefix(href, "//") {
			resolveAgainst = page
		}
		u, err := resolveAgainst.Parse(href)
		if err != nil || u.Host == "" {
			return
		}
		abs := u.String()
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}

func cleanHref(href string) string {
	return strings.TrimSpace(strings.ReplaceAll(href, "\n", ""))
}

package domainservice

import (
	"net/url"
	"testing"
)

func mustParse(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("url.Parse(%s): %v", raw, err)
	}
	return u
}

func TestNormalizer_Key(t *testing.T) {
	normalizer := NewNormalizer(NormalizerConfig{StripQuerystring: true, IgnoreWWW: true})

	tests := []struct {
		name string
		a    string
		b    string
		want bool
	}{
		{"trailing slash", "https://example.com/a/", "https://example.com/a", true},
		{"scheme", "http://example.com/a", "https://example.com/a", true},
		{"host case", "https://EXAMPLE.com/a", "https://example.com/a", true},
		{"www", "https://www.example.com/a", "https://example.com/a", true},
		{"fragment", "https://example.com/a#top", "https://example.com/a", true},
		{"query stripped", "https://example.com/a?x=1", "https://example.com/a", true},
		{"default port", "https://example.com:443/a", "https://example.com/a", true},
		{"different path", "https://example.com/a", "https://example.com/b", false},
		{"root", "https://example.com/", "https://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizer.Equal(tt.a, tt.b); got != tt.want {
				t.Errorf("Equal(%s, %s) = %v, want %v (keys %s, %s)",
					tt.a, tt.b, got, tt.want, normalizer.Key(tt.a), normalizer.Key(tt.b))
			}
		})
	}
}

func TestNormalizer_KeepsQuery(t *testing.T) {
	normalizer := NewNormalizer(NormalizerConfig{StripQuerystring: false})

	if normalizer.Equal("https://example.com/a?x=1", "https://example.com/a?x=2") {
		t.Error("different query strings should not be equal when queries are kept")
	}
	if !normalizer.Equal("https://example.com/a?b=2&a=1", "https://example.com/a?a=1&b=2") {
		t.Error("query parameter order should not matter")
	}
	if normalizer.Equal("https://www.example.com/", "https://example.com/") {
		t.Error("www should be significant when IgnoreWWW is off")
	}
}

func TestNormalizer_Invalid(t *testing.T) {
	normalizer := NewNormalizer(NormalizerConfig{})

	if _, err := normalizer.Normalize("/relative/path"); err == nil {
		t.Error("Normalize of a relative URL should fail")
	}
	if got := normalizer.Key("  not a url  "); got != "not a url" {
		t.Errorf("Key fallback = %q, want trimmed input", got)
	}
}

func TestValidator_IsInScope(t *testing.T) {
	validator, err := NewValidator(ValidatorConfig{
		Seed:           mustParse(t, "https://example.com/blog"),
		FilterByDomain: true,
		IgnoreWWW:      true,
	})
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"same host subpath", "https://example.com/blog/post", true},
		{"www alias", "https://www.example.com/blog/post", true},
		{"outside path", "https://example.com/shop", false},
		{"other host", "https://attacker.com/blog", false},
		{"subdomain", "https://api.example.com/blog", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validator.IsInScope(mustParse(t, tt.url)); got != tt.expected {
				t.Errorf("IsInScope(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestValidator_IncludeSubdomains(t *testing.T) {
	validator, _ := NewValidator(ValidatorConfig{
		Seed:              mustParse(t, "https://www.example.co.uk/"),
		FilterByDomain:    true,
		IncludeSubdomains: true,
	})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://shop.example.co.uk/", true},
		{"https://example.co.uk/", true},
		{"https://other.co.uk/", false},
	}
	for _, tt := range tests {
		if got := validator.IsInScope(mustParse(t, tt.url)); got != tt.expected {
			t.Errorf("IsInScope(%s) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestValidator_IsExcluded(t *testing.T) {
	validator, _ := NewValidator(ValidatorConfig{
		Seed:           mustParse(t, "https://example.com/"),
		FilterByDomain: true,
	})

	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"html page", "https://example.com/about", false},
		{"image", "https://example.com/logo.PNG", true},
		{"stylesheet", "https://example.com/site.css", true},
		{"wp json", "https://example.com/wp-json/v2/posts", true},
		{"xml feed", "https://example.com/feed.xml", true},
		{"js in name", "https://example.com/jsguide", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := validator.IsExcluded(mustParse(t, tt.url)); got != tt.expected {
				t.Errorf("IsExcluded(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestValidator_IsAllowed(t *testing.T) {
	validator, _ := NewValidator(ValidatorConfig{
		Seed:           mustParse(t, "https://example.com/"),
		FilterByDomain: true,
	})

	tests := []struct {
		url      string
		expected bool
	}{
		{"https://example.com/a", true},
		{"http://example.com/a", true},
		{"ftp://example.com/a", false},
		{"mailto:someone@example.com", false},
	}
	for _, tt := range tests {
		if got := validator.IsAllowed(mustParse(t, tt.url)); got != tt.expected {
			t.Errorf("IsAllowed(%s) = %v, want %v", tt.url, got, tt.expected)
		}
	}
}

func TestNewValidator_RelativeSeed(t *testing.T) {
	if _, err := NewValidator(ValidatorConfig{Seed: mustParse(t, "/relative")}); err == nil {
		t.Error("NewValidator with relative seed should fail")
	}
}

package lang

import (
	"errors"
	"fmt"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	"github.com/abadojack/whatlanggo"
	"golang.org/x/text/language"
	"golang.org/x/text/language/display"
)

// ErrUndetermined is returned when the text gives no reliable language
var ErrUndetermined = errors.New("language could not be determined")

// minTextLength is the shortest text worth running detection on
const minTextLength = 16

// Detector implements service.LanguageDetector with whatlanggo
type Detector struct{}

// NewDetector creates a new language detector
func NewDetector() service.LanguageDetector {
	return &Detector{}
}

// Detect returns a BCP 47 tag for text
func (d *Detector) Detect(text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < minTextLength {
		return "", ErrUndetermined
	}
	info := whatlanggo.Detect(text)
	if !info.IsReliable() {
		return "", ErrUndetermined
	}
	code := info.Lang.Iso6391()
	if code == "" {
		code = info.Lang.Iso6393()
	}
	return Canonical(code)
}

// Canonical parses a language tag and returns its canonical form
func Canonical(tag string) (string, error) {
	t, err := language.Parse(strings.TrimSpace(tag))
	if err != nil {
		return "", fmt.Errorf("parse language tag %q: %w", tag, err)
	}
	return t.String(), nil
}

// localeNames are URL path spellings of a language besides its code
var localeNames = map[string][]string{
	"en": {"english"},
	"es": {"espanol", "spanish"},
	"fr": {"francais", "french"},
	"de": {"deutsch", "german"},
	"it": {"italiano", "italian"},
	"pt": {"portugues", "portuguese"},
	"nl": {"nederlands", "dutch"},
	"ru": {"russian"},
	"ja": {"japanese"},
	"zh": {"chinese"},
}

// Tokenizer implements service.LocaleTokenizer
type Tokenizer struct{}

// NewTokenizer creates a new locale tokenizer
func NewTokenizer() service.LocaleTokenizer {
	return &Tokenizer{}
}

// Tokens returns the lowercase path segments identifying lang:
// the full tag, its base language, and known spellings of the language name
func (t *Tokenizer) Tokens(lang string) []string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		return nil
	}
	seen := make(map[string]struct{})
	var tokens []string
	add := func(s string) {
		s = strings.ToLower(s)
		if s == "" {
			return
		}
		if _, ok := seen[s]; ok {
			return
		}
		seen[s] = struct{}{}
		tokens = append(tokens, s)
	}

	add(lang)
	tag, err := language.Parse(lang)
	if err != nil {
		return tokens
	}
	add(tag.String())
	add(strings.ReplaceAll(tag.String(), "-", "_"))
	base, _ := tag.Base()
	add(base.String())
	for _, name := range localeNames[base.String()] {
		add(name)
	}
	add(display.English.Languages().Name(language.Make(base.String())))
	return tokens
}

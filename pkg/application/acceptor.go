package application

import (
	"context"
	"fmt"
	"strings"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
)

// RejectedError reports why a URL was not added to the store.
// Reason is entity.ErrAlreadyCrawled or entity.ErrBroken.
type RejectedError struct {
	Reason error
	URL    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%s: %s", e.Reason, e.URL)
}

func (e *RejectedError) Unwrap() error {
	return e.Reason
}

// acceptance is the outcome of a successful tryAdd
type acceptance struct {
	record *entity.URLRecord
	// detectErr is set when the language fell back to the default
	detectErr error
}

// tryAdd checks, inspects and stores a fetched page
func (uc *GenerateUseCase) tryAdd(ctx context.Context, item *entity.QueueItem) (*acceptance, error) {
	value := item.URL
	lastMod := ""
	if uc.config.LastModEnabled {
		lastMod = entity.FormatLastMod(item.LastMod)
	}

	if !uc.fetcher.Exists(ctx, value) {
		return nil, &RejectedError{Reason: entity.ErrBroken, URL: value}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	body := item.Body
	if len(body) == 0 {
		fetched, ok := uc.fetchBody(ctx, value)
		if !ok {
			return nil, &RejectedError{Reason: entity.ErrBroken, URL: value}
		}
		body = fetched
	}
	info := uc.inspect(value, body)

	if uc.config.ReplaceByCanonical && info != nil && info.Canonical != "" && !uc.normalizer.Equal(info.Canonical, value) {
		if uc.fetcher.Exists(ctx, info.Canonical) {
			uc.logger.WithField("url", value).WithField("canonical", info.Canonical).Debug("replacing by canonical url")
			value = info.Canonical
			if canonicalBody, ok := uc.fetchBody(ctx, value); ok {
				info = uc.inspect(value, canonicalBody)
			}
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	record := entity.NewURLRecord(value, item.Depth, lastMod)
	detectErr := uc.detect(record, info)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stored, inserted, err := uc.store.Upsert(record)
	if err != nil {
		return nil, fmt.Errorf("store %s: %w", value, err)
	}
	if !inserted {
		return nil, &RejectedError{Reason: entity.ErrAlreadyCrawled, URL: stored.Value}
	}
	return &acceptance{record: stored, detectErr: detectErr}, nil
}

func (uc *GenerateUseCase) fetchBody(ctx context.Context, value string) ([]byte, bool) {
	resp, err := uc.fetcher.Fetch(ctx, value)
	if err != nil || resp.StatusCode >= 400 {
		return nil, false
	}
	return resp.Body, true
}

func (uc *GenerateUseCase) inspect(value string, body []byte) *service.PageInfo {
	info, err := uc.inspector.Inspect(value, body)
	if err != nil {
		uc.logger.WithField("url", value).WithError(err).Debug("page inspection failed")
		return nil
	}
	return info
}

// detect sets the language and hreflang alternates of record.
// The returned error is non-nil when the default language was kept.
func (uc *GenerateUseCase) detect(record *entity.URLRecord, info *service.PageInfo) error {
	if info == nil {
		return fmt.Errorf("detect language of %s: no document", record.Value)
	}

	var detectErr error
	if lang := strings.TrimSpace(info.Lang); lang != "" {
		record.Lang = strings.ToLower(lang)
	} else if lang, err := uc.detector.Detect(info.Text); err == nil {
		record.Lang = lang
	} else {
		detectErr = fmt.Errorf("detect language of %s: %w", record.Value, err)
	}

	seen := make(map[string]struct{}, len(info.Alternates))
	for _, alt := range info.Alternates {
		key := uc.normalizer.Key(alt.Value)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		if uc.normalizer.Equal(alt.Value, record.Value) && alt.Lang != "" {
			record.Lang = alt.Lang
			detectErr = nil
		}
		record.Alternatives = append(record.Alternatives, entity.Alternative{Value: alt.Value, Lang: alt.Lang})
	}
	return detectErr
}

package application

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	httpinfra "github.com/WangYihang/Sitemap-Generator/pkg/infrastructure/http"
)

type page struct {
	status int
	body   string
}

// mapFetcher serves pages from memory
type mapFetcher map[string]page

func (f mapFetcher) Fetch(ctx context.Context, u string) (*service.HTTPResponse, error) {
	p, ok := f[u]
	if !ok {
		return &service.HTTPResponse{URL: u, StatusCode: http.StatusNotFound}, nil
	}
	return &service.HTTPResponse{URL: u, StatusCode: p.status, Body: []byte(p.body)}, nil
}

func (f mapFetcher) Exists(ctx context.Context, u string) bool {
	p, ok := f[u]
	return ok && p.status < 400
}

func TestGenerateUseCase_ReplaceByCanonical(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><body><a href="/a">a</a> <a href="/dup">dup</a></body></html>`))
	})
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><body>a</body></html>`))
	})
	mux.HandleFunc("/dup", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<html lang="en"><head><link rel="canonical" href="/a"></head><body>dup</body></html>`))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	config := testConfig(t, server.URL+"/")
	config.ReplaceByCanonical = true
	fetcher := httpinfra.NewFetcher(httpinfra.Config{Timeout: 5 * time.Second})
	uc := newTestUseCase(t, config, newTestDriver(t, config, fetcher, server.Client()), fetcher)

	events := &eventLog{}
	uc.RegisterObserver(events)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := uc.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats := events.last().Stats
	if stats.Added != 2 || stats.Ignored != 1 || stats.Errored != 0 {
		t.Errorf("done stats = {%d, %d, %d}, want {2, 1, 0}", stats.Added, stats.Ignored, stats.Errored)
	}
	var locs []string
	for _, record := range stats.URLs {
		locs = append(locs, record.Value)
	}
	sort.Strings(locs)
	want := []string{server.URL + "/", server.URL + "/a"}
	if strings.Join(locs, " ") != strings.Join(want, " ") {
		t.Errorf("stored urls = %v, want %v", locs, want)
	}
}

func TestGenerateUseCase_AcceptOutcomes(t *testing.T) {
	const (
		target  = "https://example.com/page"
		english = `<html><body><p>The library opens every morning at nine and closes in the evening after the last visitors have returned their books. ` +
			`Children come after school to read stories, and their parents often stay to browse the newspapers and magazines.</p></body></html>`
	)

	tests := []struct {
		name     string
		fetcher  mapFetcher
		body     string
		wantType entity.EventType
		wantCode int
		wantErr  error
		wantLang string
	}{
		{
			name:     "missing page",
			fetcher:  mapFetcher{},
			wantType: entity.EventError,
			wantCode: http.StatusNotFound,
			wantErr:  entity.ErrBroken,
		},
		{
			name:     "server error",
			fetcher:  mapFetcher{target: {status: http.StatusInternalServerError}},
			wantType: entity.EventError,
			wantCode: http.StatusNotFound,
			wantErr:  entity.ErrBroken,
		},
		{
			name:     "undetectable language",
			fetcher:  mapFetcher{target: {status: http.StatusOK}},
			body:     `<html><body>ok</body></html>`,
			wantType: entity.EventAdd,
			wantLang: entity.DefaultLang,
		},
		{
			name:     "detected language",
			fetcher:  mapFetcher{target: {status: http.StatusOK}},
			body:     english,
			wantType: entity.EventAdd,
			wantLang: "en",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			uc := newTestUseCase(t, testConfig(t, "https://example.com/"), &stubCrawler{}, tt.fetcher)
			events := &eventLog{}
			uc.RegisterObserver(events)

			uc.accept(context.Background(), &entity.QueueItem{URL: target, Depth: 1, Body: []byte(tt.body)})

			event := events.last()
			if event == nil || event.Type != tt.wantType {
				t.Fatalf("accept(%s) event = %+v, want %s", tt.name, event, tt.wantType)
			}
			switch tt.wantType {
			case entity.EventError:
				if event.Error == nil || event.Error.Code != tt.wantCode {
					t.Errorf("accept(%s) error = %+v, want code %d", tt.name, event.Error, tt.wantCode)
				}
				if !errors.Is(event.Err, tt.wantErr) {
					t.Errorf("accept(%s) Err = %v, want %v", tt.name, event.Err, tt.wantErr)
				}
			case entity.EventAdd:
				if event.Record.Lang != tt.wantLang {
					t.Errorf("accept(%s) lang = %s, want %s", tt.name, event.Record.Lang, tt.wantLang)
				}
				if undetected := tt.body != english; (event.Err != nil) != undetected {
					t.Errorf("accept(%s) Err = %v, want detection error %v", tt.name, event.Err, undetected)
				}
			}
		})
	}
}

func TestGenerateUseCase_AcceptAfterSeal(t *testing.T) {
	fetcher := mapFetcher{"https://example.com/late": {status: http.StatusOK}}
	uc := newTestUseCase(t, testConfig(t, "https://example.com/"), &stubCrawler{}, fetcher)
	events := &eventLog{}
	uc.RegisterObserver(events)

	uc.store.Seal()
	uc.accept(context.Background(), &entity.QueueItem{URL: "https://example.com/late", Depth: 1, Body: []byte("<html></html>")})

	if n := len(events.events); n != 0 {
		t.Errorf("accept after seal emitted %d events, want 0", n)
	}
	if _, _, errored := uc.events.counts(); errored != 0 {
		t.Errorf("Errored = %d, want 0", errored)
	}
}

func TestGenerateUseCase_ObserverReadsMetrics(t *testing.T) {
	fetcher := mapFetcher{"https://example.com/page": {status: http.StatusOK}}
	uc := newTestUseCase(t, testConfig(t, "https://example.com/"), &stubCrawler{}, fetcher)

	var added int64
	uc.RegisterObserver(EventObserverFunc(func(event *entity.Event) {
		added = uc.GetMetrics().Added
	}))

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		uc.accept(context.Background(), &entity.QueueItem{URL: "https://example.com/page", Depth: 1, Body: []byte("<html></html>")})
	}()

	select {
	case <-finished:
	case <-time.After(5 * time.Second):
		t.Fatal("observer calling GetMetrics blocked event delivery")
	}
	if added != 1 {
		t.Errorf("GetMetrics().Added inside observer = %d, want 1", added)
	}
}

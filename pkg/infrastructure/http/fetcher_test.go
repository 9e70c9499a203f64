package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func newTestFetcher() *Fetcher {
	return NewFetcher(Config{Timeout: 5 * time.Second, UserAgent: "test-agent"})
}

func TestFetcher_Fetch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "test-agent" {
			t.Errorf("User-Agent = %s, want test-agent", r.Header.Get("User-Agent"))
		}
		w.Header().Set("Last-Modified", "Wed, 21 Oct 2015 07:28:00 GMT")
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	resp, err := newTestFetcher().Fetch(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", resp.StatusCode)
	}
	if string(resp.Body) != "<html></html>" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.LastModified != "Wed, 21 Oct 2015 07:28:00 GMT" {
		t.Errorf("LastModified = %q", resp.LastModified)
	}
	if resp.Message == nil || resp.Message.Response == nil {
		t.Error("Message should record the exchange")
	}
}

func TestFetcher_Decoding(t *testing.T) {
	payload := []byte("<html><body>compressed</body></html>")

	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	gw.Write(payload)
	gw.Close()

	var br bytes.Buffer
	bw := brotli.NewWriter(&br)
	bw.Write(payload)
	bw.Close()

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{"identity", "", payload},
		{"gzip", "gzip", gz.Bytes()},
		{"brotli", "br", br.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				w.Write(tt.body)
			}))
			defer server.Close()

			resp, err := newTestFetcher().Fetch(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("Fetch: %v", err)
			}
			if !bytes.Equal(resp.Body, payload) {
				t.Errorf("Body = %q, want %q", resp.Body, payload)
			}
		})
	}
}

func TestFetcher_Exists(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/no-head", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	fetcher := newTestFetcher()
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{"ok", server.URL + "/ok", true},
		{"missing", server.URL + "/missing", false},
		{"head refused", server.URL + "/no-head", true},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := fetcher.Exists(context.Background(), tt.url); got != tt.expected {
				t.Errorf("Exists(%s) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}

func TestFetcher_TooManyRedirects(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, server.URL+r.URL.Path+"x", http.StatusFound)
	}))
	defer server.Close()

	if _, err := newTestFetcher().Fetch(context.Background(), server.URL+"/"); err == nil {
		t.Error("Fetch should fail after too many redirects")
	}
}

func TestIsHostNotFound(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"dns not found", &net.DNSError{Err: "no such host", Name: "x.invalid", IsNotFound: true}, true},
		{"dns temporary", &net.DNSError{Err: "server misbehaving", IsTemporary: true}, false},
		{"other", errors.New("boom"), false},
	}
	for _, tt := range tests {
		if got := IsHostNotFound(tt.err); got != tt.want {
			t.Errorf("IsHostNotFound(%s) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestHostLimiter(t *testing.T) {
	limiter := NewHostLimiter(0, 1)
	if err := limiter.Wait(context.Background(), "example.com"); err != nil {
		t.Errorf("disabled limiter Wait = %v", err)
	}

	limiter = NewHostLimiter(1, 1)
	limiter.Wait(context.Background(), "example.com")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "example.com"); err == nil {
		t.Error("second Wait within the same second should fail on a short deadline")
	}
	if err := limiter.Wait(context.Background(), "other.com"); err != nil {
		t.Errorf("Wait on another host = %v", err)
	}
}

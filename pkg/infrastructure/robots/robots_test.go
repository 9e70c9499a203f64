package robots

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
)

func TestAgent_Allowed(t *testing.T) {
	var hits int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			atomic.AddInt32(&hits, 1)
			w.Write([]byte("User-agent: *\nDisallow: /private\n"))
			return
		}
	}))
	defer server.Close()

	agent := NewAgent(Config{UserAgent: "SitemapGenerator", Respect: true}, server.Client())

	tests := []struct {
		path     string
		expected bool
	}{
		{"/", true},
		{"/public/page", true},
		{"/private", false},
		{"/private/page", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			target, _ := url.Parse(server.URL + tt.path)
			if got := agent.Allowed(context.Background(), target); got != tt.expected {
				t.Errorf("Allowed(%s) = %v, want %v", tt.path, got, tt.expected)
			}
		})
	}

	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("robots.txt fetched %d times, want 1", n)
	}
}

func TestAgent_NotRespected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nDisallow: /\n"))
	}))
	defer server.Close()

	agent := NewAgent(Config{Respect: false}, server.Client())
	target, _ := url.Parse(server.URL + "/anything")
	if !agent.Allowed(context.Background(), target) {
		t.Error("Allowed should be true when robots.txt is not respected")
	}
}

func TestAgent_MissingRobots(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	agent := NewAgent(Config{Respect: true}, server.Client())
	target, _ := url.Parse(server.URL + "/page")
	if !agent.Allowed(context.Background(), target) {
		t.Error("missing robots.txt should allow everything")
	}
}

func TestAgent_RelativeURL(t *testing.T) {
	agent := NewAgent(Config{Respect: true}, nil)
	target, _ := url.Parse("/relative")
	if agent.Allowed(context.Background(), target) {
		t.Error("relative URLs should never be allowed")
	}
}

package http

import (
	"compress/flate"
	"compress/gzip"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/WangYihang/Sitemap-Generator/pkg/domain/entity"
	"github.com/WangYihang/Sitemap-Generator/pkg/domain/service"
	"github.com/andybalholm/brotli"
)

// Fetcher implements service.PageFetcher
type Fetcher struct {
	client          *http.Client
	maxResponseSize int64
	userAgent       string
}

// Config holds HTTP fetcher configuration
type Config struct {
	Timeout           time.Duration
	MaxResponseSize   int64
	UserAgent         string
	IgnoreInvalidSSL  bool
	MaxRedirects      int
	DisableKeepAlives bool
}

// NewFetcher creates a new HTTP fetcher
func NewFetcher(config Config) *Fetcher {
	if config.MaxRedirects <= 0 {
		config.MaxRedirects = 10
	}
	if config.MaxResponseSize <= 0 {
		config.MaxResponseSize = 10 * 1024 * 1024
	}

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		TLSHandshakeTimeout:   10 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		DisableKeepAlives:     config.DisableKeepAlives,
	}
	if config.IgnoreInvalidSSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}

	maxRedirects := config.MaxRedirects
	return &Fetcher{
		client: &http.Client{
			Timeout:   config.Timeout,
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
		maxResponseSize: config.MaxResponseSize,
		userAgent:       config.UserAgent,
	}
}

// Client exposes the underlying HTTP client for robots.txt fetches
func (f *Fetcher) Client() *http.Client {
	return f.client
}

// Fetch implements service.PageFetcher
func (f *Fetcher) Fetch(ctx context.Context, url string) (*service.HTTPResponse, error) {
	req, err := f.newRequest(ctx, http.MethodGet, url)
	if err != nil {
		return &service.HTTPResponse{URL: url}, err
	}

	msg := &entity.FetchLog{Request: &entity.FetchRequest{
		Method: req.Method,
		URL:    req.URL.String(),
		Header: flattenHeader(req.Header),
	}}

	start := time.Now()
	resp, err := f.client.Do(req)
	msg.Elapsed = time.Since(start).Milliseconds()
	if err != nil {
		msg.Error = err.Error()
		return &service.HTTPResponse{URL: url, Message: msg}, err
	}

	body, err := f.readBody(resp)
	headers := flattenHeader(resp.Header)
	finalURL := url
	if resp.Request != nil && resp.Request.URL != nil {
		finalURL = resp.Request.URL.String()
	}

	msg.Response = &entity.FetchResponse{
		URL:           finalURL,
		Proto:         resp.Proto,
		StatusCode:    resp.StatusCode,
		Header:        headers,
		ContentLength: len(body),
	}
	out := &service.HTTPResponse{
		URL:          url,
		FinalURL:     finalURL,
		StatusCode:   resp.StatusCode,
		Headers:      headers,
		ContentType:  resp.Header.Get("Content-Type"),
		LastModified: resp.Header.Get("Last-Modified"),
		Body:         body,
		Message:      msg,
	}
	if err != nil {
		msg.Error = err.Error()
		return out, err
	}
	return out, nil
}

// Exists reports whether url answers a HEAD (or GET when HEAD is refused) below 400
func (f *Fetcher) Exists(ctx context.Context, url string) bool {
	if url == "" {
		return false
	}
	status, err := f.status(ctx, http.MethodHead, url)
	if err == nil && (status == http.StatusMethodNotAllowed || status == http.StatusNotImplemented) {
		status, err = f.status(ctx, http.MethodGet, url)
	}
	return err == nil && status < 400
}

func (f *Fetcher) status(ctx context.Context, method, url string) (int, error) {
	req, err := f.newRequest(ctx, method, url)
	if err != nil {
		return 0, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return 0, err
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, 64*1024))
	resp.Body.Close()
	return resp.StatusCode, nil
}

func (f *Fetcher) newRequest(ctx context.Context, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Encoding", "gzip, deflate, br")
	return req, nil
}

func (f *Fetcher) readBody(resp *http.Response) ([]byte, error) {
	reader := io.Reader(resp.Body)
	closers := []io.Closer{resp.Body}

	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			resp.Body.Close()
			return nil, fmt.Errorf("gzip decode: %w", err)
		}
		reader = gz
		closers = append(closers, gz)
	case "br":
		reader = brotli.NewReader(resp.Body)
	case "deflate":
		fl := flate.NewReader(resp.Body)
		reader = fl
		closers = append(closers, fl)
	}

	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
	}()

	body, err := io.ReadAll(io.LimitReader(reader, f.maxResponseSize))
	if err != nil {
		return body, fmt.Errorf("read body: %w", err)
	}
	return body, nil
}

func flattenHeader(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = strings.Join(v, ", ")
	}
	return out
}

// IsHostNotFound reports whether err is a DNS "no such host" failure
func IsHostNotFound(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return dnsErr.IsNotFound
	}
	return false
}

// IsTimeout reports whether err is a request timeout
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

package util

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestNewProxyFunc_NoProxy(t *testing.T) {
	fn := NewProxyFunc("http://proxy:8080", "http://secure-proxy:8443", "localhost, .internal.example")

	tests := []struct {
		rawURL string
		want   string
	}{
		{"http://news.example.com/page.json", "http://proxy:8080"},
		{"https://news.example.com/page.json", "http://secure-proxy:8443"},
		{"http://localhost:11434/api/embed", ""},
		{"https://scans.internal.example/p1.json", ""},
	}

	for _, tt := range tests {
		u, _ := url.Parse(tt.rawURL)
		got, err := fn(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("proxy func failed: %v", err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("%s: expected proxy %q, got %q", tt.rawURL, tt.want, gotStr)
		}
	}
}

func TestRobotsChecker(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			hits++
			_, _ = w.Write([]byte("User-agent: Broadsheet\nDisallow: /private/\nCrawl-delay: 2\n"))
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	checker := NewRobotsChecker("Broadsheet/0.1 (+https://example.com)", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := checker.CanFetch(ctx, server.URL+"/issues/1.json")
	if err != nil {
		t.Fatalf("CanFetch failed: %v", err)
	}
	if !allowed {
		t.Error("expected public path to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", delay)
	}

	if checker.IsAllowed(ctx, server.URL+"/private/scan.json") {
		t.Error("expected private path to be disallowed")
	}
	if hits != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", hits)
	}

	if !checker.IsAllowed(ctx, "file:///tmp/issue.json") {
		t.Error("non-http URLs are always allowed")
	}
}

func TestRobotsChecker_Missing(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	defer server.Close()

	checker := NewRobotsChecker("Broadsheet/0.1", 5*time.Second)
	if !checker.IsAllowed(context.Background(), server.URL+"/anything") {
		t.Error("expected missing robots.txt to allow everything")
	}
}

func TestNormalizeUserAgent(t *testing.T) {
	if got := NormalizeUserAgent("Broadsheet/0.1 (+https://x)"); got != "Broadsheet" {
		t.Errorf("unexpected token %q", got)
	}
	if got := NormalizeUserAgent(""); got != "" {
		t.Errorf("unexpected token %q", got)
	}
}

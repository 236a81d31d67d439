package util

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"
)

func TestNormalizeUserAgent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CallAudit/0.1 (+https://github.com/ppiankov/callaudit)", "CallAudit"},
		{"curl/8.4.0", "curl"},
		{"plain", "plain"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeUserAgent(tt.in); got != tt.want {
			t.Errorf("NormalizeUserAgent(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRobotsChecker_DisallowAndCache(t *testing.T) {
	var robotsHits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			robotsHits.Add(1)
			_, _ = fmt.Fprint(w, "User-agent: CallAudit\nDisallow: /private/\nCrawl-delay: 2\n")
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rc := NewRobotsChecker("CallAudit", 5*time.Second)
	ctx := context.Background()

	allowed, delay, err := rc.CanFetch(ctx, srv.URL+"/calls/1.txt")
	if err != nil {
		t.Fatalf("CanFetch: %v", err)
	}
	if !allowed {
		t.Error("expected /calls/ to be allowed")
	}
	if delay != 2*time.Second {
		t.Errorf("expected crawl delay 2s, got %v", delay)
	}

	if rc.IsAllowed(ctx, srv.URL+"/private/1.txt") {
		t.Error("expected /private/ to be disallowed")
	}
	if robotsHits.Load() != 1 {
		t.Errorf("expected robots.txt fetched once, got %d", robotsHits.Load())
	}

	rc.Forget()
	_ = rc.IsAllowed(ctx, srv.URL+"/calls/2.txt")
	if robotsHits.Load() != 2 {
		t.Errorf("expected refetch after Forget, got %d", robotsHits.Load())
	}
}

func TestRobotsChecker_MissingRobotsAllows(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	rc := NewRobotsChecker("CallAudit", 5*time.Second)
	if !rc.IsAllowed(context.Background(), srv.URL+"/anything") {
		t.Error("expected allow when robots.txt is missing")
	}
}

func TestRobotsChecker_UnreachableAllows(t *testing.T) {
	rc := NewRobotsChecker("CallAudit", 500*time.Millisecond)
	allowed, _, err := rc.CanFetch(context.Background(), "http://127.0.0.1:1/x")
	if err != nil || !allowed {
		t.Errorf("expected allow on unreachable host, got %v %v", allowed, err)
	}
}

func TestRobotsChecker_BadURL(t *testing.T) {
	rc := NewRobotsChecker("CallAudit", time.Second)
	if _, _, err := rc.CanFetch(context.Background(), "not a url"); err == nil {
		t.Error("expected error for URL without host")
	}
}

func TestNewProxyFunc(t *testing.T) {
	proxy := NewProxyFunc("http://proxy.internal:3128", "http://secure.internal:3128", "calls.example.com")

	tests := []struct {
		target string
		want   string
	}{
		{"http://transcripts.example.org/a", "http://proxy.internal:3128"},
		{"https://transcripts.example.org/a", "http://secure.internal:3128"},
		{"https://calls.example.com/a", ""},
	}
	for _, tt := range tests {
		u, _ := url.Parse(tt.target)
		got, err := proxy(&http.Request{URL: u})
		if err != nil {
			t.Fatalf("proxy(%s): %v", tt.target, err)
		}
		gotStr := ""
		if got != nil {
			gotStr = got.String()
		}
		if gotStr != tt.want {
			t.Errorf("proxy(%s) = %q, want %q", tt.target, gotStr, tt.want)
		}
	}
}

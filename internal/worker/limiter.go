package worker

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Limiter spaces out requests per remote host. Sources without a host
// (local files) are never limited.
type Limiter struct {
	mu           sync.RWMutex
	hosts        map[string]*rate.Limiter
	delayed      map[string]time.Duration // Hosts slowed down by a crawl delay
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a limiter allowing requestsPerSecond per host
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		hosts:        make(map[string]*rate.Limiter),
		delayed:      make(map[string]time.Duration),
		defaultRate:  rate.Limit(requestsPerSecond),
		defaultBurst: burst,
	}
}

// Wait blocks until source's host may be contacted
func (l *Limiter) Wait(ctx context.Context, source string) error {
	host, err := hostKey(source)
	if err != nil {
		return err
	}
	if host == "" {
		return ctx.Err()
	}
	return l.forHost(host).Wait(ctx)
}

// Allow reports whether source's host may be contacted now, consuming a token
func (l *Limiter) Allow(source string) bool {
	host, err := hostKey(source)
	if err != nil {
		return false
	}
	if host == "" {
		return true
	}
	return l.forHost(host).Allow()
}

// ApplyCrawlDelay slows source's host to one request per delay when that is
// stricter than the default rate. It returns whether the rate changed.
func (l *Limiter) ApplyCrawlDelay(source string, delay time.Duration) bool {
	host, err := hostKey(source)
	if err != nil || host == "" || delay <= 0 {
		return false
	}

	limit := rate.Every(delay)
	if l.defaultRate > 0 && limit >= l.defaultRate {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if prev, ok := l.delayed[host]; ok && prev >= delay {
		return false
	}
	l.delayed[host] = delay
	l.hosts[host] = rate.NewLimiter(limit, 1)
	return true
}

// Hosts returns the hosts seen so far, sorted
func (l *Limiter) Hosts() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	hosts := make([]string, 0, len(l.hosts))
	for h := range l.hosts {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

func (l *Limiter) forHost(host string) *rate.Limiter {
	l.mu.RLock()
	limiter, ok := l.hosts[host]
	l.mu.RUnlock()
	if ok {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if limiter, ok := l.hosts[host]; ok {
		return limiter
	}
	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.hosts[host] = limiter
	return limiter
}

// hostKey returns the normalized host of an http(s) source, or "" for
// anything else
func hostKey(source string) (string, error) {
	if !strings.Contains(source, "://") {
		return "", nil
	}
	u, err := url.Parse(source)
	if err != nil {
		return "", fmt.Errorf("parse source: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", nil
	}
	return normalizeHost(u.Host), nil
}

// normalizeHost lowercases and strips default ports so that
// "Example.com:443" and "example.com" share one bucket
func normalizeHost(host string) string {
	host = strings.ToLower(host)
	if h, port, err := net.SplitHostPort(host); err == nil && (port == "80" || port == "443") {
		return h
	}
	return host
}

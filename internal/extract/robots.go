package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/quillon/newslens/pkg/httpclient"
	"github.com/temoto/robotstxt"
)

// robotsCache fetches and caches robots.txt per host. Lookup failures
// fail open: an unreachable robots.txt never blocks extraction.
type robotsCache struct {
	client *httpclient.Client
	logger *slog.Logger

	mu    sync.RWMutex
	hosts map[string]*robotstxt.RobotsData
}

func newRobotsCache(client *httpclient.Client, logger *slog.Logger) *robotsCache {
	return &robotsCache{
		client: client,
		logger: logger,
		hosts:  make(map[string]*robotstxt.RobotsData),
	}
}

// allowed reports whether userAgent may fetch target per the host's
// robots.txt.
func (r *robotsCache) allowed(ctx context.Context, target, userAgent string) bool {
	u, err := url.Parse(target)
	if err != nil || u.Host == "" {
		return true
	}
	origin := u.Scheme + "://" + u.Host

	data, err := r.lookup(ctx, origin)
	if err != nil {
		r.logger.Debug("robots.txt unavailable, allowing", "host", origin, "err", err)
		return true
	}
	if data == nil {
		return true
	}
	return data.TestAgent(u.Path, userAgent)
}

func (r *robotsCache) lookup(ctx context.Context, origin string) (*robotstxt.RobotsData, error) {
	r.mu.RLock()
	data, ok := r.hosts[origin]
	r.mu.RUnlock()
	if ok {
		return data, nil
	}

	resp, err := r.client.Get(ctx, origin+"/robots.txt", nil)
	if err != nil {
		return nil, fmt.Errorf("fetch robots.txt: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 512<<10))
	if err != nil {
		return nil, fmt.Errorf("read robots.txt: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		// Missing robots.txt allows everything; cache the decision.
		r.store(origin, nil)
		return nil, nil
	}

	data, err = robotstxt.FromStatusAndBytes(resp.StatusCode, body)
	if err != nil {
		return nil, fmt.Errorf("parse robots.txt: %w", err)
	}

	r.store(origin, data)
	return data, nil
}

func (r *robotsCache) store(origin string, data *robotstxt.RobotsData) {
	r.mu.Lock()
	r.hosts[origin] = data
	r.mu.Unlock()
}

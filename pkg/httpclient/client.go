// Package httpclient wraps net/http with the timeout, redirect and cookie
// behaviour the pipeline needs when talking to news providers and
// article hosts.
package httpclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"time"
)

// Config defines the setup for a Client.
type Config struct {
	Timeout time.Duration
	// MaxRedirects bounds redirect chains; negative disables following
	// redirects entirely.
	MaxRedirects int
	// UseCookieJar keeps cookies across requests to the same host, which
	// some news sites require before serving article bodies.
	UseCookieJar bool
	// Transport overrides the default transport, e.g. for tests.
	Transport http.RoundTripper
}

// Client is a thin wrapper over http.Client with a context-first Do.
type Client struct {
	*http.Client
}

// New builds a Client from cfg. A zero Timeout defaults to 30s.
func New(cfg Config) (*Client, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	c := &http.Client{Timeout: cfg.Timeout}

	switch {
	case cfg.MaxRedirects < 0:
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	case cfg.MaxRedirects > 0:
		limit := cfg.MaxRedirects
		c.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			if len(via) >= limit {
				return fmt.Errorf("stopped after %d redirects", limit)
			}
			return nil
		}
	}

	if cfg.UseCookieJar {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		c.Jar = jar
	}

	if cfg.Transport != nil {
		c.Transport = cfg.Transport
	}

	return &Client{Client: c}, nil
}

// Do executes req under ctx. The context governs per-request cancellation
// independent of the client-wide timeout.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	resp, err := c.Client.Do(req.Clone(ctx))
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Get issues a GET for url with the provided headers.
func (c *Client) Get(ctx context.Context, url string, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return c.Do(ctx, req)
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/pkg/httpclient"
)

// NewsAPIConfig configures the search API adapter.
type NewsAPIConfig struct {
	APIKey  string
	BaseURL string
	// Language filters results; defaults to "en".
	Language string
	Timeout  time.Duration
}

// NewsAPIAdapter queries a NewsAPI-style "everything" search endpoint.
type NewsAPIAdapter struct {
	cfg    NewsAPIConfig
	client *httpclient.Client
	logger *slog.Logger
}

// NewNewsAPI builds the search API adapter.
func NewNewsAPI(cfg NewsAPIConfig, logger *slog.Logger) (*NewsAPIAdapter, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://newsapi.org"
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout, MaxRedirects: 3})
	if err != nil {
		return nil, fmt.Errorf("newsapi client: %w", err)
	}

	return &NewsAPIAdapter{cfg: cfg, client: client, logger: logger}, nil
}

func (a *NewsAPIAdapter) Name() string { return "newsapi" }

// newsAPIResponse is the provider's documented JSON shape. Parsed here at
// the adapter boundary only.
type newsAPIResponse struct {
	Status   string `json:"status"`
	Code     string `json:"code"`
	Message  string `json:"message"`
	Articles []struct {
		Source struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"source"`
		Title       string `json:"title"`
		URL         string `json:"url"`
		PublishedAt string `json:"publishedAt"`
	} `json:"articles"`
}

// Fetch runs the search and maps results to stubs. Zero results is not an
// error.
func (a *NewsAPIAdapter) Fetch(ctx context.Context, q model.Query) ([]model.ArticleStub, error) {
	params := url.Values{}
	params.Set("q", strconv.Quote(q.Topic))
	params.Set("language", a.cfg.Language)
	params.Set("sortBy", "relevancy")
	if q.MaxResults > 0 {
		params.Set("pageSize", strconv.Itoa(q.MaxResults))
	}
	if !q.From.IsZero() {
		params.Set("from", q.From.UTC().Format(time.RFC3339))
	}
	if !q.To.IsZero() {
		params.Set("to", q.To.UTC().Format(time.RFC3339))
	}

	endpoint := a.cfg.BaseURL + "/v2/everything?" + params.Encode()

	resp, err := a.client.Get(ctx, endpoint, map[string]string{"X-Api-Key": a.cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("%w: newsapi: %v", ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: newsapi read: %v", ErrSourceUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusUpgradeRequired:
		// NewsAPI signals plan limits with 426 as well as 429.
		return nil, fmt.Errorf("%w: newsapi status %d", ErrSourceQuotaExceeded, resp.StatusCode)
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: newsapi auth status %d", ErrSourceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: newsapi status %d", ErrSourceUnavailable, resp.StatusCode)
	}

	var parsed newsAPIResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("%w: newsapi decode: %v", ErrSourceUnavailable, err)
	}
	if parsed.Status != "ok" {
		if parsed.Code == "rateLimited" {
			return nil, fmt.Errorf("%w: newsapi: %s", ErrSourceQuotaExceeded, parsed.Message)
		}
		return nil, fmt.Errorf("%w: newsapi: %s %s", ErrSourceUnavailable, parsed.Code, parsed.Message)
	}

	stubs := make([]model.ArticleStub, 0, len(parsed.Articles))
	for _, art := range parsed.Articles {
		if art.URL == "" {
			continue
		}
		published, perr := time.Parse(time.RFC3339, art.PublishedAt)
		if perr != nil {
			a.logger.Debug("unparseable publishedAt", "url", art.URL, "value", art.PublishedAt)
		}
		stubs = append(stubs, model.ArticleStub{
			SourceID:    art.Source.ID,
			URL:         art.URL,
			Title:       art.Title,
			PublishedAt: published,
			Provider:    a.Name(),
		})
	}

	a.logger.Debug("newsapi fetch complete", "topic", q.Topic, "stubs", len(stubs))
	return stubs, nil
}

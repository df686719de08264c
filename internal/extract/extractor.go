// Package extract retrieves and parses full article text for canonical
// articles, isolating per-URL failures from the rest of the run.
package extract

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
	"unicode/utf8"

	"golang.org/x/sync/errgroup"

	"github.com/quillon/newslens/internal/metrics"
	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/pkg/httpclient"
	"github.com/quillon/newslens/pkg/ratelimit"
	"github.com/quillon/newslens/pkg/useragent"
)

// Config holds the extraction policy values.
type Config struct {
	// Concurrency bounds simultaneous article fetches.
	Concurrency int
	// Timeout converts a hung fetch into a per-URL failure.
	Timeout time.Duration
	// MinBodyRunes rejects short bodies as boilerplate.
	MinBodyRunes int
	// RespectRobots checks robots.txt before each fetch.
	RespectRobots bool
	// RPS and Jitter pace fetches across all workers.
	RPS    float64
	Jitter float64
	// UserAgents overrides the rotation pool.
	UserAgents []string
}

// Extractor fetches article bodies with bounded concurrency.
type Extractor struct {
	cfg     Config
	client  *httpclient.Client
	uas     *useragent.Pool
	limiter *ratelimit.Limiter
	robots  *robotsCache
	logger  *slog.Logger
}

// New builds an Extractor.
func New(cfg Config, logger *slog.Logger) (*Extractor, error) {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MinBodyRunes <= 0 {
		cfg.MinBodyRunes = 250
	}
	if logger == nil {
		logger = slog.Default()
	}

	client, err := httpclient.New(httpclient.Config{
		Timeout:      cfg.Timeout,
		MaxRedirects: 5,
		UseCookieJar: true,
	})
	if err != nil {
		return nil, fmt.Errorf("extract client: %w", err)
	}

	e := &Extractor{
		cfg:     cfg,
		client:  client,
		uas:     useragent.NewPool(cfg.UserAgents),
		limiter: ratelimit.New(cfg.RPS, cfg.Jitter),
		logger:  logger,
	}
	if cfg.RespectRobots {
		e.robots = newRobotsCache(client, logger)
	}
	return e, nil
}

// Run extracts text for every article in place. Articles whose URLs all
// fail keep a title-only fallback and are marked failed; nothing blocks
// the batch. Run returns when the whole batch is done or ctx expires;
// articles cancelled mid-flight are marked failed.
func (e *Extractor) Run(ctx context.Context, articles []*model.CanonicalArticle) {
	var g errgroup.Group
	g.SetLimit(e.cfg.Concurrency)

	for _, article := range articles {
		article := article
		g.Go(func() error {
			e.extract(ctx, article)
			return nil
		})
	}
	_ = g.Wait()
}

// extract tries each contributing URL in preference order and stops at
// the first success.
func (e *Extractor) extract(ctx context.Context, article *model.CanonicalArticle) {
	start := time.Now()

	for _, u := range article.URLs {
		if ctx.Err() != nil {
			break
		}
		body, err := e.fetchOne(ctx, u)
		if err != nil {
			// Per-URL failure: logged, never propagated.
			e.logger.Debug("extraction failed", "url", u, "err", err)
			continue
		}
		article.FullText = body
		article.ExtractionStatus = model.StatusOK
		metrics.ExtractionsTotal.WithLabelValues("ok").Inc()
		metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
		return
	}

	// Exhausted every URL: fall back to the title so enrichment still has
	// something to work with.
	article.FullText = article.Title
	article.TextIsFallback = true
	article.ExtractionStatus = model.StatusFailed
	metrics.ExtractionsTotal.WithLabelValues("failed").Inc()
	metrics.ExtractionDuration.Observe(time.Since(start).Seconds())
	e.logger.Warn("all URLs failed extraction",
		"canonical_id", article.CanonicalID,
		"urls", len(article.URLs),
	)
}

// fetchOne downloads and parses a single URL under the per-fetch timeout.
func (e *Extractor) fetchOne(ctx context.Context, target string) (string, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}

	fetchCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	ua := e.uas.Next()
	if e.robots != nil && !e.robots.allowed(fetchCtx, target, ua) {
		return "", fmt.Errorf("blocked by robots.txt: %s", target)
	}

	resp, err := e.client.Get(fetchCtx, target, map[string]string{
		"User-Agent":      ua,
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.5",
	})
	if err != nil {
		return "", fmt.Errorf("get %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get %s: status %d", target, resp.StatusCode)
	}

	html, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", target, err)
	}

	_, body, err := ParseBody(html)
	if err != nil {
		return "", err
	}
	if utf8.RuneCountInString(body) < e.cfg.MinBodyRunes {
		return "", fmt.Errorf("body too short (%d runes): %s", utf8.RuneCountInString(body), target)
	}
	return body, nil
}

// Package enrich annotates canonical articles with NLP fields and an LLM
// summary. The two sub-steps are independent failure domains: a failed
// summary never costs an article its entities or sentiment.
package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/quillon/newslens/internal/llm"
	"github.com/quillon/newslens/internal/metrics"
	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/pkg/retry"
)

// maxPromptRunes bounds how much article text is sent per summary call.
const maxPromptRunes = 6000

// Config holds the enrichment policy values.
type Config struct {
	// Concurrency bounds in-flight LLM requests. Separate from the
	// extraction bound: cost and provider limits differ.
	Concurrency int
	// LLMRPS paces LLM requests; 0 disables pacing.
	LLMRPS float64
	// SummaryMaxTokens bounds each generated summary.
	SummaryMaxTokens int
	// Retry governs summary attempts on transient errors.
	Retry retry.Policy
	// RateLimitDelay is the longer pause after a rate-limited response.
	RateLimitDelay time.Duration
	// TopKeywords caps the keyword list per article.
	TopKeywords int
}

// Enricher runs the NLP and summary passes over a batch.
type Enricher struct {
	cfg     Config
	client  llm.Client
	sem     *semaphore.Weighted
	limiter *rate.Limiter
	logger  *slog.Logger
}

// New builds an Enricher. A nil client disables summaries; articles then
// carry NLP fields only and the summary field is not counted as failed.
func New(cfg Config, client llm.Client, logger *slog.Logger) *Enricher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.SummaryMaxTokens <= 0 {
		cfg.SummaryMaxTokens = 150
	}
	if logger == nil {
		logger = slog.Default()
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.LLMRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.LLMRPS), 1)
	}

	return &Enricher{
		cfg:     cfg,
		client:  client,
		sem:     semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter: limiter,
		logger:  logger,
	}
}

// Run enriches every article and returns the wrapped batch. The NLP pass
// always completes, even past the run deadline, because it is local and
// cheap; only LLM calls observe ctx. Articles whose summary is cancelled
// or exhausted are marked failed on that field alone.
func (e *Enricher) Run(ctx context.Context, q model.Query, articles []*model.CanonicalArticle) []*model.EnrichedArticle {
	enriched := make([]*model.EnrichedArticle, len(articles))

	var g errgroup.Group
	for i, article := range articles {
		i, article := i, article
		g.Go(func() error {
			enriched[i] = e.enrichOne(ctx, q, article)
			return nil
		})
	}
	_ = g.Wait()

	return enriched
}

func (e *Enricher) enrichOne(ctx context.Context, q model.Query, article *model.CanonicalArticle) *model.EnrichedArticle {
	ea := &model.EnrichedArticle{CanonicalArticle: article}

	analysis := Analyze(article.FullText, q.Topic, e.cfg.TopKeywords)
	ea.Entities = analysis.Entities
	ea.Keywords = analysis.Keywords
	ea.Sentiment = analysis.Sentiment
	ea.Mentions = analysis.Mentions
	ea.EnrichmentStatus.Entities = model.StatusOK

	if e.client == nil {
		return ea
	}

	summary, err := e.summarize(ctx, article)
	if err != nil {
		e.logger.Warn("summary failed",
			"canonical_id", article.CanonicalID,
			"err", err,
		)
		ea.EnrichmentStatus.Summary = model.StatusFailed
		metrics.LLMRequestsTotal.WithLabelValues("failed").Inc()
		return ea
	}

	ea.Summary = summary
	ea.EnrichmentStatus.Summary = model.StatusOK
	metrics.LLMRequestsTotal.WithLabelValues("ok").Inc()
	return ea
}

// summarize requests the LLM summary under the semaphore, rate limiter
// and retry policy.
func (e *Enricher) summarize(ctx context.Context, article *model.CanonicalArticle) (string, error) {
	if err := e.sem.Acquire(ctx, 1); err != nil {
		return "", fmt.Errorf("llm slot: %w", err)
	}
	defer e.sem.Release(1)

	prompt := buildPrompt(article)

	attempt := 0
	return retry.Do(ctx, e.cfg.Retry,
		func(ctx context.Context) (string, error) {
			attempt++
			if attempt > 1 {
				metrics.LLMRetriesTotal.Inc()
			}
			if err := e.limiter.Wait(ctx); err != nil {
				return "", fmt.Errorf("llm rate: %w", err)
			}
			return e.client.Complete(ctx, prompt, e.cfg.SummaryMaxTokens)
		},
		llm.Retryable,
		func(err error, d time.Duration) time.Duration {
			// Rate-limit responses warrant a longer pause than the
			// standard backoff.
			if errors.Is(err, llm.ErrRateLimited) && e.cfg.RateLimitDelay > d {
				return e.cfg.RateLimitDelay
			}
			return d
		},
	)
}

func buildPrompt(article *model.CanonicalArticle) string {
	text := article.FullText
	if runes := []rune(text); len(runes) > maxPromptRunes {
		text = string(runes[:maxPromptRunes])
	}
	return "Please summarize the following article text:\n\n---\n\n" + text
}

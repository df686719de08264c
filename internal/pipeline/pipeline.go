// Package pipeline orchestrates one end-to-end run: source fan-out,
// deduplication, extraction, enrichment and aggregation. Stages run as
// full batch barriers; a stage only starts once the previous one has
// finished for every article.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/quillon/newslens/internal/analytics"
	"github.com/quillon/newslens/internal/metrics"
	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/internal/source"
)

// ErrNoSourcesAvailable is returned when every source adapter fails and
// there is nothing to process. Individual adapter failures are absorbed
// as long as at least one adapter returns.
var ErrNoSourcesAvailable = errors.New("no sources available")

// Stage names a pipeline phase, in execution order.
type Stage string

const (
	StageFetching      Stage = "fetching"
	StageDeduplicating Stage = "deduplicating"
	StageExtracting    Stage = "extracting"
	StageEnriching     Stage = "enriching"
	StageAggregating   Stage = "aggregating"
	StageDone          Stage = "done"
)

// Deduper collapses raw stubs into canonical articles.
type Deduper interface {
	Dedupe(stubs []model.ArticleStub) []*model.CanonicalArticle
}

// Extractor fills in FullText for a batch of canonical articles.
type Extractor interface {
	Run(ctx context.Context, articles []*model.CanonicalArticle)
}

// Enricher annotates canonical articles with NLP fields and summaries.
type Enricher interface {
	Run(ctx context.Context, q model.Query, articles []*model.CanonicalArticle) []*model.EnrichedArticle
}

// Result is the outcome of one run. Failed articles are included in
// Articles with their per-field statuses; FailedCount and Partial make
// the degradation visible without hiding the data.
type Result struct {
	RunID string      `json:"run_id"`
	Query model.Query `json:"query"`
	// Articles sorted by publication time, newest first.
	Articles []*model.EnrichedArticle `json:"articles"`
	// SourceErrors maps adapter name to its failure message for adapters
	// that returned no stubs. Source failures do not flip Partial; that
	// tracks per-article degradation only.
	SourceErrors map[string]string `json:"source_errors,omitempty"`
	StubCount    int               `json:"stub_count"`
	FailedCount  int               `json:"failed_count"`
	Partial      bool              `json:"partial"`
	Stats        analytics.Stats   `json:"stats"`
	StartedAt    time.Time         `json:"started_at"`
	FinishedAt   time.Time         `json:"finished_at"`
}

// Decode parses a JSON result document back into a Result, the inverse
// of encoding one for the archive.
func Decode(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return &res, nil
}

// Pipeline wires the stage implementations together.
type Pipeline struct {
	adapters []source.Adapter
	deduper  Deduper
	extract  Extractor
	enrich   Enricher
	deadline time.Duration
	logger   *slog.Logger
}

// New builds a Pipeline. The deadline bounds the whole run; zero means
// no bound beyond the caller's context.
func New(adapters []source.Adapter, deduper Deduper, extractor Extractor, enricher Enricher, deadline time.Duration, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		adapters: adapters,
		deduper:  deduper,
		extract:  extractor,
		enrich:   enricher,
		deadline: deadline,
		logger:   logger,
	}
}

// Run executes all stages for q. It returns an error only when the run
// cannot produce a result at all: no adapters configured, every adapter
// failed, or the context was cancelled before fetching finished.
// Everything downstream degrades per article instead of failing the run.
func (p *Pipeline) Run(ctx context.Context, q model.Query) (*Result, error) {
	if len(p.adapters) == 0 {
		return nil, fmt.Errorf("%w: no adapters configured", ErrNoSourcesAvailable)
	}

	if p.deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.deadline)
		defer cancel()
	}

	res := &Result{
		RunID:     uuid.NewString(),
		Query:     q,
		StartedAt: time.Now().UTC(),
	}
	log := p.logger.With("run_id", res.RunID, "topic", q.Topic)

	stubs, srcErrs, err := p.fetchAll(ctx, q, log)
	if err != nil {
		return nil, err
	}
	res.SourceErrors = srcErrs
	res.StubCount = len(stubs)

	log.Info("fetch complete", "stubs", len(stubs), "failed_sources", len(srcErrs))

	start := time.Now()
	canonical := p.deduper.Dedupe(stubs)
	metrics.ObserveStage(string(StageDeduplicating), time.Since(start))
	log.Info("dedup complete", "canonical", len(canonical))

	start = time.Now()
	p.extract.Run(ctx, canonical)
	metrics.ObserveStage(string(StageExtracting), time.Since(start))

	start = time.Now()
	enriched := p.enrich.Run(ctx, q, canonical)
	metrics.ObserveStage(string(StageEnriching), time.Since(start))

	start = time.Now()
	res.Stats = analytics.Aggregate(enriched)
	metrics.ObserveStage(string(StageAggregating), time.Since(start))

	sort.SliceStable(enriched, func(i, j int) bool {
		ti, tj := enriched[i].PublishedAt, enriched[j].PublishedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return enriched[i].CanonicalID < enriched[j].CanonicalID
	})
	res.Articles = enriched

	for _, a := range enriched {
		if a.Failed() {
			res.FailedCount++
		}
	}
	res.Partial = res.FailedCount > 0
	res.FinishedAt = time.Now().UTC()

	log.Info("run complete",
		"articles", len(res.Articles),
		"failed", res.FailedCount,
		"partial", res.Partial,
		"took", res.FinishedAt.Sub(res.StartedAt),
	)
	return res, nil
}

// fetchAll fans out to every adapter in parallel and merges the stubs.
// Adapter failures are collected, not propagated, unless all fail.
func (p *Pipeline) fetchAll(ctx context.Context, q model.Query, log *slog.Logger) ([]model.ArticleStub, map[string]string, error) {
	start := time.Now()
	defer func() { metrics.ObserveStage(string(StageFetching), time.Since(start)) }()

	var (
		mu      sync.Mutex
		stubs   []model.ArticleStub
		srcErrs = make(map[string]string)
	)

	var g errgroup.Group
	for _, a := range p.adapters {
		a := a
		g.Go(func() error {
			got, err := a.Fetch(ctx, q)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				log.Warn("source fetch failed", "provider", a.Name(), "err", err)
				metrics.SourceFetchesTotal.WithLabelValues(a.Name(), "failed").Inc()
				srcErrs[a.Name()] = err.Error()
				return nil
			}
			metrics.SourceFetchesTotal.WithLabelValues(a.Name(), "ok").Inc()
			metrics.StubsFetchedTotal.WithLabelValues(a.Name()).Add(float64(len(got)))
			stubs = append(stubs, got...)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil && len(stubs) == 0 {
		return nil, nil, fmt.Errorf("fetch: %w", err)
	}
	if len(srcErrs) == len(p.adapters) {
		return nil, nil, fmt.Errorf("%w: all %d adapters failed", ErrNoSourcesAvailable, len(p.adapters))
	}
	return stubs, srcErrs, nil
}

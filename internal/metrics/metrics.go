// Package metrics exposes Prometheus instrumentation for the pipeline.
package metrics

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SourceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_source_fetches_total",
			Help: "Source adapter fetches by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	StubsFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_stubs_fetched_total",
			Help: "Article stubs returned by each provider",
		},
		[]string{"provider"},
	)

	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_extractions_total",
			Help: "Article text extractions by outcome",
		},
		[]string{"outcome"},
	)

	ExtractionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "newslens_extraction_duration_seconds",
			Help:    "Duration of per-article text extraction",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30},
		},
	)

	LLMRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "newslens_llm_requests_total",
			Help: "LLM summary requests by outcome",
		},
		[]string{"outcome"},
	)

	LLMRetriesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "newslens_llm_retries_total",
			Help: "LLM summary attempts beyond the first",
		},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "newslens_stage_duration_seconds",
			Help:    "Duration of each pipeline stage",
			Buckets: []float64{0.1, 0.5, 1, 5, 15, 60, 300},
		},
		[]string{"stage"},
	)
)

// ObserveStage records a stage duration.
func ObserveStage(stage string, d time.Duration) {
	StageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Serve exposes /metrics on addr until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: addr, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	}
}

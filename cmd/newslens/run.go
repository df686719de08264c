package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/quillon/newslens/internal/config"
	"github.com/quillon/newslens/internal/dedup"
	"github.com/quillon/newslens/internal/enrich"
	"github.com/quillon/newslens/internal/extract"
	"github.com/quillon/newslens/internal/llm"
	"github.com/quillon/newslens/internal/metrics"
	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/internal/pipeline"
	"github.com/quillon/newslens/internal/report"
	"github.com/quillon/newslens/internal/source"
	"github.com/quillon/newslens/internal/storage"
	"github.com/quillon/newslens/pkg/retry"
)

func runCmd() *cobra.Command {
	var (
		configPath string
		maxResults int
		fromStr    string
		toStr      string
		format     string
		output     string
		noArchive  bool
		verbose    bool
	)

	cmd := &cobra.Command{
		Use:   "run <topic>",
		Short: "Fetch, enrich and summarize coverage of a topic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q := model.Query{Topic: args[0], MaxResults: maxResults}

			var err error
			if q.From, err = parseDay(fromStr); err != nil {
				return fmt.Errorf("--from: %w", err)
			}
			if q.To, err = parseDay(toStr); err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			if format != "text" && format != "json" {
				return fmt.Errorf("--format must be text or json, got %q", format)
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			logger := newLogger(verbose)
			return runPipeline(cmd.Context(), cfg, q, format, output, noArchive, logger)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "config file (default: newslens.yaml)")
	cmd.Flags().IntVarP(&maxResults, "max", "n", 50, "maximum articles per source")
	cmd.Flags().StringVar(&fromStr, "from", "", "only coverage published on or after this day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&toStr, "to", "", "only coverage published on or before this day (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&format, "format", "f", "text", "output format: text or json")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().BoolVar(&noArchive, "no-archive", false, "skip archiving this run")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	return cmd
}

func runPipeline(ctx context.Context, cfg config.Config, q model.Query, format, output string, noArchive bool, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		go func() {
			if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
				logger.Warn("metrics listener failed", "err", err)
			}
		}()
	}

	adapters, err := buildAdapters(cfg, logger)
	if err != nil {
		return err
	}

	extractor, err := extract.New(extract.Config{
		Concurrency:   cfg.ExtractConcurrency,
		Timeout:       cfg.ExtractTimeout,
		MinBodyRunes:  cfg.MinBodyRunes,
		RespectRobots: cfg.RespectRobots,
		RPS:           cfg.ExtractRPS,
		Jitter:        cfg.ExtractJitter,
		UserAgents:    cfg.UserAgents,
	}, logger)
	if err != nil {
		return fmt.Errorf("build extractor: %w", err)
	}

	var client llm.Client
	if cfg.LLMAPIKey != "" {
		openai, err := llm.NewOpenAI(llm.OpenAIConfig{
			APIKey:  cfg.LLMAPIKey,
			BaseURL: cfg.LLMBaseURL,
			Model:   cfg.LLMModel,
		}, logger)
		if err != nil {
			return fmt.Errorf("build llm client: %w", err)
		}
		client = openai
	} else {
		logger.Info("no LLM API key configured, summaries disabled")
	}

	enricher := enrich.New(enrich.Config{
		Concurrency:      cfg.EnrichConcurrency,
		LLMRPS:           cfg.LLMRPS,
		SummaryMaxTokens: cfg.SummaryMaxTokens,
		Retry: retry.Policy{
			MaxAttempts: cfg.SummaryAttempts,
			BaseDelay:   cfg.SummaryBaseDelay,
			Jitter:      cfg.SummaryJitter,
		},
		RateLimitDelay: cfg.RateLimitDelay,
		TopKeywords:    cfg.TopKeywords,
	}, client, logger)

	deduper := dedup.New(cfg.SimilarityThreshold, cfg.MergeWindow, logger)

	p := pipeline.New(adapters, deduper, extractor, enricher, cfg.RunDeadline, logger)
	res, err := p.Run(ctx, q)
	if err != nil {
		return err
	}

	if !noArchive {
		if err := archiveRun(ctx, cfg, res); err != nil {
			// The digest is still worth printing when archiving fails.
			logger.Warn("archive failed", "err", err)
		}
	}

	out := os.Stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if format == "json" {
		return report.WriteJSON(out, res)
	}
	return report.WriteText(out, res)
}

func buildAdapters(cfg config.Config, logger *slog.Logger) ([]source.Adapter, error) {
	var adapters []source.Adapter

	if cfg.NewsAPIKey != "" {
		api, err := source.NewNewsAPI(source.NewsAPIConfig{
			APIKey:  cfg.NewsAPIKey,
			BaseURL: cfg.NewsAPIBaseURL,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("build newsapi adapter: %w", err)
		}
		adapters = append(adapters, api)
	} else {
		logger.Info("no news API key configured, search adapter disabled")
	}

	adapters = append(adapters, source.NewFeed(source.FeedConfig{
		BaseURL: cfg.FeedBaseURL,
	}, logger))

	return adapters, nil
}

func archiveRun(ctx context.Context, cfg config.Config, res *pipeline.Result) error {
	backend, err := openBackend(ctx, cfg)
	if err != nil || backend == nil {
		return err
	}
	defer backend.Close()

	rec, err := storage.FromResult(res)
	if err != nil {
		return err
	}
	return backend.Save(ctx, rec)
}

func parseDay(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("expected YYYY-MM-DD: %w", err)
	}
	return t, nil
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

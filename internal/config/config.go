// Package config collects every policy value the pipeline consumes into a
// single documented struct. Nothing below the orchestrator reads ambient
// configuration.
package config

import (
	"errors"
	"time"
)

// Config is the full configuration surface of a pipeline run.
type Config struct {
	// NewsAPIKey authenticates against the news-search API. Empty disables
	// that adapter.
	NewsAPIKey string `mapstructure:"news_api_key"`
	// NewsAPIBaseURL overrides the search API endpoint, mainly for tests.
	NewsAPIBaseURL string `mapstructure:"news_api_base_url"`
	// FeedBaseURL overrides the Google News RSS endpoint, mainly for tests.
	FeedBaseURL string `mapstructure:"feed_base_url"`

	// LLMAPIKey authenticates the summary model. Empty disables summaries.
	LLMAPIKey string `mapstructure:"llm_api_key"`
	// LLMBaseURL points at an OpenAI-compatible chat completions endpoint.
	LLMBaseURL string `mapstructure:"llm_base_url"`
	// LLMModel names the summary model.
	LLMModel string `mapstructure:"llm_model"`
	// SummaryMaxTokens bounds the length of each generated summary.
	SummaryMaxTokens int `mapstructure:"summary_max_tokens"`

	// SimilarityThreshold is the minimum Jaccard title similarity for two
	// stubs to merge into one canonical article.
	SimilarityThreshold float64 `mapstructure:"similarity_threshold"`
	// MergeWindow is the maximum publication-time distance for a
	// similarity merge.
	MergeWindow time.Duration `mapstructure:"merge_window"`

	// ExtractConcurrency bounds concurrent article fetches.
	ExtractConcurrency int `mapstructure:"extract_concurrency"`
	// ExtractTimeout converts a hung article fetch into a failure.
	ExtractTimeout time.Duration `mapstructure:"extract_timeout"`
	// ExtractRPS paces article fetches; 0 disables pacing.
	ExtractRPS float64 `mapstructure:"extract_rps"`
	// ExtractJitter randomizes fetch pacing, 0 to 1.
	ExtractJitter float64 `mapstructure:"extract_jitter"`
	// MinBodyRunes rejects extracted bodies shorter than this as
	// boilerplate rather than article text.
	MinBodyRunes int `mapstructure:"min_body_runes"`
	// RespectRobots checks robots.txt before fetching article pages.
	RespectRobots bool `mapstructure:"respect_robots"`

	// EnrichConcurrency bounds in-flight LLM requests, separate from the
	// extraction bound because cost and provider limits differ.
	EnrichConcurrency int `mapstructure:"enrich_concurrency"`
	// LLMRPS paces LLM requests; 0 disables pacing.
	LLMRPS float64 `mapstructure:"llm_rps"`
	// SummaryAttempts is the total attempts per summary, including the
	// first.
	SummaryAttempts int `mapstructure:"summary_attempts"`
	// SummaryBaseDelay seeds the exponential backoff between attempts.
	SummaryBaseDelay time.Duration `mapstructure:"summary_base_delay"`
	// SummaryJitter randomizes the backoff delay, 0 to 1.
	SummaryJitter float64 `mapstructure:"summary_jitter"`
	// RateLimitDelay is the longer pause applied after a rate-limited
	// response before the next attempt.
	RateLimitDelay time.Duration `mapstructure:"rate_limit_delay"`

	// TopKeywords caps the keyword list per article.
	TopKeywords int `mapstructure:"top_keywords"`

	// RunDeadline bounds the whole pipeline run; 0 means no deadline.
	RunDeadline time.Duration `mapstructure:"run_deadline"`

	// UserAgents overrides the rotation pool for article fetches.
	UserAgents []string `mapstructure:"user_agents"`

	// ArchiveBackend selects where finished runs are stored: sqlite,
	// postgres, json, csv, or none.
	ArchiveBackend string `mapstructure:"archive_backend"`
	// ArchiveDSN is the backend-specific location: a file path for
	// sqlite/json/csv, a connection string for postgres.
	ArchiveDSN string `mapstructure:"archive_dsn"`

	// MetricsAddr exposes /metrics on this address while a run is in
	// flight. Empty disables the listener.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// Default returns the policy values the pipeline ships with.
func Default() Config {
	return Config{
		NewsAPIBaseURL: "https://newsapi.org",
		FeedBaseURL:    "https://news.google.com",

		LLMBaseURL:       "https://api.openai.com",
		LLMModel:         "gpt-4o-mini",
		SummaryMaxTokens: 150,

		SimilarityThreshold: 0.6,
		MergeWindow:         36 * time.Hour,

		ExtractConcurrency: 8,
		ExtractTimeout:     10 * time.Second,
		ExtractRPS:         4,
		ExtractJitter:      0.2,
		MinBodyRunes:       250,
		RespectRobots:      true,

		EnrichConcurrency: 4,
		LLMRPS:            2,
		SummaryAttempts:   3,
		SummaryBaseDelay:  time.Second,
		SummaryJitter:     0.2,
		RateLimitDelay:    15 * time.Second,

		TopKeywords: 12,

		RunDeadline: 5 * time.Minute,

		ArchiveBackend: "sqlite",
		ArchiveDSN:     "newslens.db",
	}
}

// Validate rejects configurations the pipeline cannot run with.
func (c Config) Validate() error {
	if c.SimilarityThreshold < 0 || c.SimilarityThreshold > 1 {
		return errors.New("similarity_threshold must be in [0,1]")
	}
	if c.ExtractConcurrency <= 0 {
		return errors.New("extract_concurrency must be positive")
	}
	if c.EnrichConcurrency <= 0 {
		return errors.New("enrich_concurrency must be positive")
	}
	if c.SummaryAttempts < 1 {
		return errors.New("summary_attempts must be at least 1")
	}
	if c.SummaryJitter < 0 || c.SummaryJitter > 1 {
		return errors.New("summary_jitter must be in [0,1]")
	}
	if c.MergeWindow < 0 {
		return errors.New("merge_window must not be negative")
	}
	switch c.ArchiveBackend {
	case "", "none", "sqlite", "postgres", "json", "csv":
	default:
		return errors.New("archive_backend must be one of sqlite, postgres, json, csv, none")
	}
	return nil
}

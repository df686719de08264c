package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration layered as defaults, then an optional config
// file, then NEWSLENS_* environment variables. path may be empty, in
// which case newslens.yaml is looked up in the working directory and
// $HOME/.config/newslens.
func Load(path string) (Config, error) {
	v := viper.New()

	for key, val := range defaultsMap() {
		v.SetDefault(key, val)
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("newslens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/newslens")
	}

	v.SetEnvPrefix("NEWSLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// A missing file is fine unless one was named explicitly.
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// defaultsMap flattens Default into viper keys so that file and env
// values override field by field.
func defaultsMap() map[string]any {
	d := Default()
	return map[string]any{
		"news_api_key":         d.NewsAPIKey,
		"news_api_base_url":    d.NewsAPIBaseURL,
		"feed_base_url":        d.FeedBaseURL,
		"llm_api_key":          d.LLMAPIKey,
		"llm_base_url":         d.LLMBaseURL,
		"llm_model":            d.LLMModel,
		"summary_max_tokens":   d.SummaryMaxTokens,
		"similarity_threshold": d.SimilarityThreshold,
		"merge_window":         d.MergeWindow,
		"extract_concurrency":  d.ExtractConcurrency,
		"extract_timeout":      d.ExtractTimeout,
		"extract_rps":          d.ExtractRPS,
		"extract_jitter":       d.ExtractJitter,
		"min_body_runes":       d.MinBodyRunes,
		"respect_robots":       d.RespectRobots,
		"enrich_concurrency":   d.EnrichConcurrency,
		"llm_rps":              d.LLMRPS,
		"summary_attempts":     d.SummaryAttempts,
		"summary_base_delay":   d.SummaryBaseDelay,
		"summary_jitter":       d.SummaryJitter,
		"rate_limit_delay":     d.RateLimitDelay,
		"top_keywords":         d.TopKeywords,
		"run_deadline":         d.RunDeadline,
		"archive_backend":      d.ArchiveBackend,
		"archive_dsn":          d.ArchiveDSN,
		"metrics_addr":         d.MetricsAddr,
	}
}

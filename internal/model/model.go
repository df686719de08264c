// Package model holds the domain types shared across pipeline stages.
package model

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"time"
)

// Query describes a single pipeline run. It is created once by the caller
// and never mutated afterwards.
type Query struct {
	Topic      string
	MaxResults int
	// Optional time window. Zero values mean unbounded on that side.
	From time.Time
	To   time.Time
}

// ArticleStub is a raw, unvalidated article reference as returned by a
// source adapter. Stubs are ephemeral: the deduplicator consumes them and
// they are never seen downstream.
type ArticleStub struct {
	SourceID    string
	URL         string
	Title       string
	PublishedAt time.Time
	Provider    string
}

// Status tracks the outcome of a per-article processing step. Once a
// status reaches StatusFailed it is never retried within the same run.
type Status string

const (
	StatusPending Status = "pending"
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
)

// Sentiment buckets an article's tone into three classes.
type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNeutral  Sentiment = "neutral"
	SentimentNegative Sentiment = "negative"
)

// CanonicalArticle is the merged representation of one real-world story
// across providers. It owns the stubs that contributed to it (recorded as
// URLs and provider names) and is mutated in place by the extraction and
// enrichment stages.
type CanonicalArticle struct {
	CanonicalID string
	// URLs of all contributing stubs, insertion ordered, de-duplicated.
	URLs  []string
	Title string
	// Earliest publication time among contributors.
	PublishedAt time.Time
	Providers   []string
	FullText    string
	// TextIsFallback is true when FullText is the title-only fallback
	// after extraction exhausted every URL.
	TextIsFallback   bool
	ExtractionStatus Status
}

// CanonicalID derives the stable article identifier from a normalized URL
// and title. It is deterministic so that re-running a query produces the
// same IDs for the same stories.
func CanonicalID(normalizedURL, title string) string {
	h := sha256.Sum256([]byte(normalizedURL + "\n" + strings.ToLower(strings.TrimSpace(title))))
	return fmt.Sprintf("%x", h[:16])
}

// AddURL appends u unless already present.
func (c *CanonicalArticle) AddURL(u string) {
	for _, existing := range c.URLs {
		if existing == u {
			return
		}
	}
	c.URLs = append(c.URLs, u)
}

// AddProvider appends p unless already present.
func (c *CanonicalArticle) AddProvider(p string) {
	for _, existing := range c.Providers {
		if existing == p {
			return
		}
	}
	c.Providers = append(c.Providers, p)
}

// Entity is a single named entity found in article text.
type Entity struct {
	Text  string
	Label string
}

// FieldStatus records enrichment outcomes per field. Entity/keyword
// extraction and summary generation are independent failure domains, so
// one can fail while the other succeeds.
type FieldStatus struct {
	Entities Status
	Summary  Status
}

// Failed reports whether any enrichment field failed.
func (f FieldStatus) Failed() bool {
	return f.Entities == StatusFailed || f.Summary == StatusFailed
}

// EnrichedArticle wraps a CanonicalArticle with the NLP and LLM outputs.
type EnrichedArticle struct {
	*CanonicalArticle

	Entities []Entity
	Keywords []string
	Summary  string
	// Mentions are the sentences of the article that reference the query
	// topic, used for sentiment context and reporting.
	Mentions  []string
	Sentiment Sentiment

	EnrichmentStatus FieldStatus
}

// Failed reports whether extraction or any enrichment field failed for
// this article. Failed articles still appear in the result.
func (a *EnrichedArticle) Failed() bool {
	return a.ExtractionStatus == StatusFailed || a.EnrichmentStatus.Failed()
}

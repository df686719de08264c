// Package analytics reduces an enriched batch to topic-level aggregates
// for presentation: sentiment distribution, word-cloud term frequencies,
// a daily timeline and per-source counts. Pure functions, no I/O.
package analytics

import (
	"sort"
	"time"

	"github.com/quillon/newslens/internal/model"
)

// DayCount is one timeline bucket.
type DayCount struct {
	Day   time.Time `json:"day"`
	Count int       `json:"count"`
}

// Stats are the aggregates over one pipeline run.
type Stats struct {
	Total           int                     `json:"total"`
	SentimentCounts map[model.Sentiment]int `json:"sentiment_counts"`
	// TermFrequencies maps keyword to occurrence count across articles,
	// the word-cloud input.
	TermFrequencies map[string]int `json:"term_frequencies"`
	Timeline        []DayCount     `json:"timeline"`
	SourceCounts    map[string]int `json:"source_counts"`
}

// Aggregate computes Stats over the batch. Deterministic for a given
// input sequence; empty input yields zeroed aggregates.
func Aggregate(articles []*model.EnrichedArticle) Stats {
	s := Stats{
		SentimentCounts: make(map[model.Sentiment]int),
		TermFrequencies: make(map[string]int),
		SourceCounts:    make(map[string]int),
	}

	days := make(map[time.Time]int)
	for _, a := range articles {
		s.Total++
		s.SentimentCounts[a.Sentiment]++

		for _, kw := range a.Keywords {
			s.TermFrequencies[kw]++
		}
		for _, provider := range a.Providers {
			s.SourceCounts[provider]++
		}

		if !a.PublishedAt.IsZero() {
			day := a.PublishedAt.UTC().Truncate(24 * time.Hour)
			days[day]++
		}
	}

	s.Timeline = make([]DayCount, 0, len(days))
	for day, count := range days {
		s.Timeline = append(s.Timeline, DayCount{Day: day, Count: count})
	}
	sort.Slice(s.Timeline, func(i, j int) bool {
		return s.Timeline[i].Day.Before(s.Timeline[j].Day)
	})

	return s
}

// TopTerms returns the n most frequent terms, ties broken
// lexicographically, for renderers that cannot consume the full map.
func (s Stats) TopTerms(n int) []string {
	terms := make([]string, 0, len(s.TermFrequencies))
	for t := range s.TermFrequencies {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		fi, fj := s.TermFrequencies[terms[i]], s.TermFrequencies[terms[j]]
		if fi != fj {
			return fi > fj
		}
		return terms[i] < terms[j]
	})
	if len(terms) > n {
		terms = terms[:n]
	}
	return terms
}

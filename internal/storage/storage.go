// Package storage archives completed pipeline runs so past digests can
// be listed and re-read without re-fetching.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/quillon/newslens/internal/pipeline"
)

// RunRecord is one archived run: summary columns for filtering plus the
// full result document as JSON.
type RunRecord struct {
	RunID        string
	Topic        string
	ArticleCount int
	FailedCount  int
	Partial      bool
	// Result is the JSON encoding of the full pipeline result.
	Result     []byte
	StartedAt  time.Time
	FinishedAt time.Time
}

// FromResult builds the archive record for a finished run.
func FromResult(res *pipeline.Result) (*RunRecord, error) {
	doc, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode run %s: %w", res.RunID, err)
	}
	return &RunRecord{
		RunID:        res.RunID,
		Topic:        res.Query.Topic,
		ArticleCount: len(res.Articles),
		FailedCount:  res.FailedCount,
		Partial:      res.Partial,
		Result:       doc,
		StartedAt:    res.StartedAt,
		FinishedAt:   res.FinishedAt,
	}, nil
}

// Filter selects archived runs. Zero-valued fields are ignored.
type Filter struct {
	Topic   string
	Partial *bool
	Since   *time.Time
	Limit   int
	Offset  int
}

// Backend stores and queries archived runs. Query returns records
// newest first.
type Backend interface {
	Save(ctx context.Context, record *RunRecord) error
	Query(ctx context.Context, filter Filter) ([]*RunRecord, error)
	Close() error
}

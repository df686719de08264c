// Package source defines the adapter boundary to external news providers.
// Each adapter normalizes its provider's schema into model.ArticleStub;
// provider-specific shapes never leak downstream.
package source

import (
	"context"
	"errors"

	"github.com/quillon/newslens/internal/model"
)

// Fetch-stage errors. Per-adapter failures are non-fatal; the orchestrator
// fails the run only when every adapter errors.
var (
	// ErrSourceUnavailable covers network and auth failures.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrSourceQuotaExceeded covers provider rate-limit responses.
	ErrSourceQuotaExceeded = errors.New("source quota exceeded")
)

// Adapter fetches raw article stubs for a query from one provider.
// Implementations return an empty slice, not an error, on zero results.
type Adapter interface {
	Fetch(ctx context.Context, q model.Query) ([]model.ArticleStub, error)
	Name() string
}

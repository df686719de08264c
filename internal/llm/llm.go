// Package llm wraps the summary model behind a small client interface
// with a classified error taxonomy the retry layer can act on.
package llm

import (
	"context"
	"errors"
)

// Errors classified from provider responses. RateLimited and Timeout are
// retryable with backoff; ServerError is retryable; anything else is not.
var (
	ErrRateLimited = errors.New("llm rate limited")
	ErrTimeout     = errors.New("llm timeout")
	ErrServerError = errors.New("llm server error")
)

// Client requests completions from a language model.
type Client interface {
	// Complete sends prompt and returns the generated text, bounded by
	// maxTokens.
	Complete(ctx context.Context, prompt string, maxTokens int) (string, error)
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	return errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrTimeout) ||
		errors.Is(err, ErrServerError)
}

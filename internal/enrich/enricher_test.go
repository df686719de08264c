package enrich

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quillon/newslens/internal/llm"
	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/pkg/retry"
)

// fakeLLM scripts per-call outcomes: errs[i] is returned on call i, and
// text after the script runs out.
type fakeLLM struct {
	calls atomic.Int32
	errs  []error
	text  string
	delay time.Duration
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	n := int(f.calls.Add(1)) - 1
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", llm.ErrTimeout, ctx.Err())
		case <-time.After(f.delay):
		}
	}
	if n < len(f.errs) && f.errs[n] != nil {
		return "", f.errs[n]
	}
	return f.text, nil
}

func testConfig() Config {
	return Config{
		Concurrency:      2,
		SummaryMaxTokens: 150,
		Retry:            retry.Policy{MaxAttempts: 3, BaseDelay: time.Millisecond},
		RateLimitDelay:   5 * time.Millisecond,
		TopKeywords:      10,
	}
}

func articleWithText(text string) *model.CanonicalArticle {
	return &model.CanonicalArticle{
		CanonicalID:      "c1",
		Title:            "CA Wildfire Spreads",
		FullText:         text,
		ExtractionStatus: model.StatusOK,
	}
}

func TestEnricher_HappyPath(t *testing.T) {
	client := &fakeLLM{text: "A neutral two-sentence summary."}
	e := New(testConfig(), client, nil)

	articles := []*model.CanonicalArticle{
		articleWithText("The wildfire destroyed homes near Pine Ridge. Governor Anne Lee praised rescue crews."),
	}
	got := e.Run(context.Background(), model.Query{Topic: "wildfire"}, articles)

	if len(got) != 1 {
		t.Fatalf("expected 1 enriched article, got %d", len(got))
	}
	a := got[0]
	if a.Summary != "A neutral two-sentence summary." {
		t.Errorf("unexpected summary %q", a.Summary)
	}
	if a.EnrichmentStatus.Summary != model.StatusOK {
		t.Errorf("expected summary ok, got %s", a.EnrichmentStatus.Summary)
	}
	if a.EnrichmentStatus.Entities != model.StatusOK {
		t.Errorf("expected entities ok, got %s", a.EnrichmentStatus.Entities)
	}
	if len(a.Keywords) == 0 {
		t.Error("expected keywords")
	}
	if a.Sentiment == "" {
		t.Error("expected sentiment populated")
	}
	if a.Failed() {
		t.Error("article should not be marked failed")
	}
}

func TestEnricher_TimeoutThenSuccess(t *testing.T) {
	client := &fakeLLM{
		errs: []error{llm.ErrTimeout, llm.ErrTimeout},
		text: "Third attempt text.",
	}
	e := New(testConfig(), client, nil)

	got := e.Run(context.Background(), model.Query{Topic: "x"}, []*model.CanonicalArticle{articleWithText("Body text.")})

	a := got[0]
	if a.Summary != "Third attempt text." {
		t.Errorf("expected attempt-3 summary, got %q", a.Summary)
	}
	if a.EnrichmentStatus.Summary != model.StatusOK {
		t.Errorf("no failure should be recorded, got %s", a.EnrichmentStatus.Summary)
	}
	if n := client.calls.Load(); n != 3 {
		t.Errorf("expected 3 attempts, got %d", n)
	}
}

func TestEnricher_RetriesExhaustedSummaryFailsFieldsSurvive(t *testing.T) {
	client := &fakeLLM{errs: []error{llm.ErrServerError, llm.ErrServerError, llm.ErrServerError}}
	e := New(testConfig(), client, nil)

	got := e.Run(context.Background(), model.Query{Topic: "wildfire"},
		[]*model.CanonicalArticle{articleWithText("The wildfire destroyed several homes.")})

	a := got[0]
	if a.Summary != "" {
		t.Errorf("expected empty summary, got %q", a.Summary)
	}
	if a.EnrichmentStatus.Summary != model.StatusFailed {
		t.Errorf("expected summary failed, got %s", a.EnrichmentStatus.Summary)
	}
	if a.EnrichmentStatus.Entities != model.StatusOK {
		t.Errorf("entities should survive summary failure, got %s", a.EnrichmentStatus.Entities)
	}
	if a.Sentiment == "" {
		t.Error("sentiment must be populated even when the summary fails")
	}
	if len(a.Keywords) == 0 {
		t.Error("keywords should survive summary failure")
	}
}

func TestEnricher_NonRetryableFailsFast(t *testing.T) {
	bad := fmt.Errorf("llm status 400: bad prompt")
	client := &fakeLLM{errs: []error{bad, bad, bad}}
	e := New(testConfig(), client, nil)

	got := e.Run(context.Background(), model.Query{Topic: "x"}, []*model.CanonicalArticle{articleWithText("Body.")})

	if got[0].EnrichmentStatus.Summary != model.StatusFailed {
		t.Errorf("expected summary failed, got %s", got[0].EnrichmentStatus.Summary)
	}
	if n := client.calls.Load(); n != 1 {
		t.Errorf("non-retryable error should not retry, got %d calls", n)
	}
}

func TestEnricher_NilClientSkipsSummary(t *testing.T) {
	e := New(testConfig(), nil, nil)

	got := e.Run(context.Background(), model.Query{Topic: "x"}, []*model.CanonicalArticle{articleWithText("Body text here.")})

	a := got[0]
	if a.EnrichmentStatus.Summary == model.StatusFailed {
		t.Error("missing client should not count as a summary failure")
	}
	if a.Sentiment == "" {
		t.Error("NLP pass should still run")
	}
}

func TestEnricher_DeadlineMarksRemainingSummariesFailed(t *testing.T) {
	client := &fakeLLM{text: "slow summary", delay: 200 * time.Millisecond}
	cfg := testConfig()
	cfg.Concurrency = 1
	e := New(cfg, client, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	articles := []*model.CanonicalArticle{
		articleWithText("First body."),
		articleWithText("Second body."),
		articleWithText("Third body."),
	}
	got := e.Run(ctx, model.Query{Topic: "x"}, articles)

	if len(got) != 3 {
		t.Fatalf("all articles must still be present, got %d", len(got))
	}
	failed := 0
	for _, a := range got {
		if a.Sentiment == "" {
			t.Error("sentiment must be populated despite the deadline")
		}
		if a.EnrichmentStatus.Summary == model.StatusFailed {
			failed++
			if a.Summary != "" {
				t.Error("failed summary should be empty")
			}
		}
	}
	if failed == 0 {
		t.Error("expected at least one summary to fail under the deadline")
	}
}

func TestEnricher_ConcurrencyBound(t *testing.T) {
	var inFlight, peak atomic.Int32
	blocker := &boundedLLM{inFlight: &inFlight, peak: &peak}

	cfg := testConfig()
	cfg.Concurrency = 2
	e := New(cfg, blocker, nil)

	articles := make([]*model.CanonicalArticle, 6)
	for i := range articles {
		articles[i] = articleWithText(fmt.Sprintf("Body %d.", i))
	}
	e.Run(context.Background(), model.Query{Topic: "x"}, articles)

	if p := peak.Load(); p > 2 {
		t.Errorf("LLM concurrency bound exceeded: peak %d", p)
	}
}

type boundedLLM struct {
	inFlight *atomic.Int32
	peak     *atomic.Int32
}

func (b *boundedLLM) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	cur := b.inFlight.Add(1)
	defer b.inFlight.Add(-1)
	for {
		old := b.peak.Load()
		if cur <= old || b.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	time.Sleep(20 * time.Millisecond)
	return "summary", nil
}

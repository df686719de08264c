package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/internal/source"
)

type fakeAdapter struct {
	name  string
	stubs []model.ArticleStub
	err   error
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Fetch(ctx context.Context, q model.Query) ([]model.ArticleStub, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.stubs, nil
}

// passDeduper maps each stub to its own canonical article.
type passDeduper struct{}

func (passDeduper) Dedupe(stubs []model.ArticleStub) []*model.CanonicalArticle {
	out := make([]*model.CanonicalArticle, 0, len(stubs))
	for _, s := range stubs {
		out = append(out, &model.CanonicalArticle{
			CanonicalID: model.CanonicalID(s.URL, s.Title),
			URLs:        []string{s.URL},
			Title:       s.Title,
			PublishedAt: s.PublishedAt,
			Providers:   []string{s.Provider},
		})
	}
	return out
}

// fakeExtractor marks articles ok with a body, except URLs in fail.
type fakeExtractor struct {
	fail map[string]bool
}

func (f *fakeExtractor) Run(ctx context.Context, articles []*model.CanonicalArticle) {
	for _, a := range articles {
		if f.fail != nil && f.fail[a.URLs[0]] {
			a.FullText = a.Title
			a.TextIsFallback = true
			a.ExtractionStatus = model.StatusFailed
			continue
		}
		a.FullText = a.Title + " body"
		a.ExtractionStatus = model.StatusOK
	}
}

type fakeEnricher struct{}

func (fakeEnricher) Run(ctx context.Context, q model.Query, articles []*model.CanonicalArticle) []*model.EnrichedArticle {
	out := make([]*model.EnrichedArticle, 0, len(articles))
	for _, a := range articles {
		out = append(out, &model.EnrichedArticle{
			CanonicalArticle: a,
			Keywords:         []string{"wildfire"},
			Sentiment:        model.SentimentNeutral,
			EnrichmentStatus: model.FieldStatus{Entities: model.StatusOK, Summary: model.StatusOK},
		})
	}
	return out
}

func stub(url, title, provider string, published time.Time) model.ArticleStub {
	return model.ArticleStub{SourceID: url, URL: url, Title: title, Provider: provider, PublishedAt: published}
}

func newTestPipeline(adapters []source.Adapter, ext Extractor) *Pipeline {
	return New(adapters, passDeduper{}, ext, fakeEnricher{}, 0, nil)
}

func TestRun_HappyPath(t *testing.T) {
	day := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", stubs: []model.ArticleStub{
			stub("https://a.com/1", "Fire spreads", "newsapi", day),
			stub("https://b.com/2", "Containment grows", "newsapi", day.Add(5*time.Hour)),
		}},
		&fakeAdapter{name: "googlenews", stubs: []model.ArticleStub{
			stub("https://c.com/3", "Crews deployed", "googlenews", day.Add(2*time.Hour)),
		}},
	}

	res, err := newTestPipeline(adapters, &fakeExtractor{}).Run(context.Background(), model.Query{Topic: "wildfire"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.RunID == "" {
		t.Error("expected run id")
	}
	if res.StubCount != 3 {
		t.Errorf("expected 3 stubs, got %d", res.StubCount)
	}
	if len(res.Articles) != 3 {
		t.Fatalf("expected 3 articles, got %d", len(res.Articles))
	}
	for i := 1; i < len(res.Articles); i++ {
		if res.Articles[i-1].PublishedAt.Before(res.Articles[i].PublishedAt) {
			t.Error("articles not sorted newest first")
		}
	}
	if res.Partial {
		t.Error("clean run should not be partial")
	}
	if res.FailedCount != 0 {
		t.Errorf("expected no failed articles, got %d", res.FailedCount)
	}
	if res.Stats.Total != 3 {
		t.Errorf("expected aggregated total 3, got %d", res.Stats.Total)
	}
	if res.FinishedAt.Before(res.StartedAt) {
		t.Error("finished before started")
	}
}

func TestRun_AllSourcesFail(t *testing.T) {
	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", err: source.ErrSourceUnavailable},
		&fakeAdapter{name: "googlenews", err: errors.New("dns failure")},
	}

	_, err := newTestPipeline(adapters, &fakeExtractor{}).Run(context.Background(), model.Query{Topic: "x"})
	if !errors.Is(err, ErrNoSourcesAvailable) {
		t.Fatalf("expected ErrNoSourcesAvailable, got %v", err)
	}
}

func TestRun_NoAdapters(t *testing.T) {
	_, err := newTestPipeline(nil, &fakeExtractor{}).Run(context.Background(), model.Query{Topic: "x"})
	if !errors.Is(err, ErrNoSourcesAvailable) {
		t.Fatalf("expected ErrNoSourcesAvailable, got %v", err)
	}
}

func TestRun_OneSourceFailsIsRecorded(t *testing.T) {
	day := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", err: source.ErrSourceQuotaExceeded},
		&fakeAdapter{name: "googlenews", stubs: []model.ArticleStub{
			stub("https://c.com/3", "Crews deployed", "googlenews", day),
		}},
	}

	res, err := newTestPipeline(adapters, &fakeExtractor{}).Run(context.Background(), model.Query{Topic: "x"})
	if err != nil {
		t.Fatalf("one healthy adapter must carry the run: %v", err)
	}
	if res.Partial {
		t.Error("partial tracks article degradation, not source failures")
	}
	if _, ok := res.SourceErrors["newsapi"]; !ok {
		t.Errorf("expected newsapi in source errors, got %v", res.SourceErrors)
	}
	if len(res.Articles) != 1 {
		t.Errorf("expected 1 article, got %d", len(res.Articles))
	}
}

func TestRun_FailedArticlesCounted(t *testing.T) {
	day := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", stubs: []model.ArticleStub{
			stub("https://a.com/1", "Fire spreads", "newsapi", day),
			stub("https://b.com/2", "Containment grows", "newsapi", day),
		}},
	}
	ext := &fakeExtractor{fail: map[string]bool{"https://a.com/1": true}}

	res, err := newTestPipeline(adapters, ext).Run(context.Background(), model.Query{Topic: "x"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.FailedCount != 1 {
		t.Errorf("expected 1 failed article, got %d", res.FailedCount)
	}
	if !res.Partial {
		t.Error("failed article must mark the run partial")
	}
	if len(res.Articles) != 2 {
		t.Errorf("failed article must stay in the result, got %d articles", len(res.Articles))
	}
}

func TestDecode(t *testing.T) {
	day := time.Date(2026, 8, 19, 10, 0, 0, 0, time.UTC)
	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", stubs: []model.ArticleStub{
			stub("https://a.com/1", "Fire spreads", "newsapi", day),
		}},
	}
	res, err := newTestPipeline(adapters, &fakeExtractor{}).Run(context.Background(), model.Query{Topic: "x"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	doc, err := json.Marshal(res)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	decoded, err := Decode(doc)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if decoded.RunID != res.RunID || len(decoded.Articles) != 1 {
		t.Error("decoded result does not match original")
	}

	if _, err := Decode([]byte("{not json")); err == nil {
		t.Error("malformed document must be rejected")
	}
}

func TestRun_CancelledBeforeFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	adapters := []source.Adapter{
		&fakeAdapter{name: "newsapi", err: ctx.Err()},
	}
	_, err := newTestPipeline(adapters, &fakeExtractor{}).Run(ctx, model.Query{Topic: "x"})
	if err == nil {
		t.Fatal("expected error for cancelled run with no stubs")
	}
}

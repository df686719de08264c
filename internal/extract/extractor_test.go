package extract

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/quillon/newslens/internal/model"
)

func articlePage(paragraphs int) string {
	var sb strings.Builder
	sb.WriteString("<html><head><title>T</title></head><body><article>")
	for i := 0; i < paragraphs; i++ {
		fmt.Fprintf(&sb, "<p>Paragraph %d of the article body, padded with enough words to clear the minimum length gate used in tests.</p>", i)
	}
	sb.WriteString("</article></body></html>")
	return sb.String()
}

func newExtractor(t *testing.T, cfg Config) *Extractor {
	t.Helper()
	e, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return e
}

func TestExtractor_Success(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	e := newExtractor(t, Config{MinBodyRunes: 100, RespectRobots: true})
	article := &model.CanonicalArticle{Title: "T", URLs: []string{ts.URL + "/story"}, ExtractionStatus: model.StatusPending}

	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusOK {
		t.Fatalf("expected ok status, got %s", article.ExtractionStatus)
	}
	if !strings.Contains(article.FullText, "Paragraph 0") {
		t.Errorf("unexpected full text: %q", article.FullText)
	}
	if article.TextIsFallback {
		t.Error("expected real text, not fallback")
	}
}

func TestExtractor_AllURLsFailTitleFallback(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer ts.Close()

	e := newExtractor(t, Config{MinBodyRunes: 100})
	article := &model.CanonicalArticle{
		Title:            "Headline only",
		URLs:             []string{ts.URL + "/a", ts.URL + "/b"},
		ExtractionStatus: model.StatusPending,
	}

	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusFailed {
		t.Fatalf("expected failed status, got %s", article.ExtractionStatus)
	}
	if article.FullText != "Headline only" {
		t.Errorf("expected title fallback, got %q", article.FullText)
	}
	if !article.TextIsFallback {
		t.Error("expected fallback flag set")
	}
}

func TestExtractor_SecondURLSucceeds(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/bad" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	e := newExtractor(t, Config{MinBodyRunes: 100})
	article := &model.CanonicalArticle{
		Title:            "T",
		URLs:             []string{ts.URL + "/bad", ts.URL + "/good"},
		ExtractionStatus: model.StatusPending,
	}

	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusOK {
		t.Fatalf("expected ok after second URL, got %s", article.ExtractionStatus)
	}
}

func TestExtractor_ShortBodyRejected(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body><article><p>Too short.</p></article></body></html>`)
	}))
	defer ts.Close()

	e := newExtractor(t, Config{MinBodyRunes: 250})
	article := &model.CanonicalArticle{Title: "T", URLs: []string{ts.URL}, ExtractionStatus: model.StatusPending}

	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusFailed {
		t.Fatalf("expected short body to fail, got %s", article.ExtractionStatus)
	}
}

func TestExtractor_TimeoutBecomesFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	e := newExtractor(t, Config{Timeout: 50 * time.Millisecond, MinBodyRunes: 100})
	article := &model.CanonicalArticle{Title: "T", URLs: []string{ts.URL}, ExtractionStatus: model.StatusPending}

	start := time.Now()
	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusFailed {
		t.Fatalf("expected timeout to fail extraction, got %s", article.ExtractionStatus)
	}
	if time.Since(start) > 2*time.Second {
		t.Error("timeout did not bound the fetch")
	}
}

func TestExtractor_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cur := inFlight.Add(1)
		defer inFlight.Add(-1)
		for {
			old := peak.Load()
			if cur <= old || peak.CompareAndSwap(old, cur) {
				break
			}
		}
		time.Sleep(30 * time.Millisecond)
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	e := newExtractor(t, Config{Concurrency: 2, MinBodyRunes: 100})

	articles := make([]*model.CanonicalArticle, 6)
	for i := range articles {
		articles[i] = &model.CanonicalArticle{
			Title:            "T",
			URLs:             []string{fmt.Sprintf("%s/%d", ts.URL, i)},
			ExtractionStatus: model.StatusPending,
		}
	}

	e.Run(context.Background(), articles)

	if p := peak.Load(); p > 2 {
		t.Errorf("concurrency bound exceeded: peak %d", p)
	}
	for i, a := range articles {
		if a.ExtractionStatus != model.StatusOK {
			t.Errorf("article %d not extracted: %s", i, a.ExtractionStatus)
		}
	}
}

func TestExtractor_RobotsDisallowed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			fmt.Fprint(w, "User-agent: *\nDisallow: /private/\n")
			return
		}
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	e := newExtractor(t, Config{MinBodyRunes: 100, RespectRobots: true})
	article := &model.CanonicalArticle{
		Title:            "T",
		URLs:             []string{ts.URL + "/private/story"},
		ExtractionStatus: model.StatusPending,
	}

	e.Run(context.Background(), []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusFailed {
		t.Fatalf("expected robots.txt to block extraction, got %s", article.ExtractionStatus)
	}
}

func TestExtractor_CancelledContextMarksFailed(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, articlePage(5))
	}))
	defer ts.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := newExtractor(t, Config{MinBodyRunes: 100})
	article := &model.CanonicalArticle{Title: "T", URLs: []string{ts.URL}, ExtractionStatus: model.StatusPending}

	e.Run(ctx, []*model.CanonicalArticle{article})

	if article.ExtractionStatus != model.StatusFailed {
		t.Fatalf("expected cancelled article marked failed, got %s", article.ExtractionStatus)
	}
	if article.FullText != "T" {
		t.Errorf("expected title fallback, got %q", article.FullText)
	}
}

// Package report renders a pipeline result for people: an indented JSON
// document for tooling and a plain-text digest for terminals.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"text/template"
	"time"

	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/internal/pipeline"
)

// summaryUnavailable is printed in place of a summary that failed or was
// never generated.
const summaryUnavailable = "(summary unavailable)"

// WriteJSON writes the full result as indented JSON.
func WriteJSON(w io.Writer, res *pipeline.Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}

// articleView flattens one enriched article for the text template.
type articleView struct {
	Title     string
	Published string
	Providers []string
	Sentiment model.Sentiment
	Summary   string
	Failed    bool
	URL       string
}

// textView is the sorted, template-ready projection of a result.
type textView struct {
	Topic        string
	RunID        string
	StartedAt    string
	Took         string
	Total        int
	FailedCount  int
	Partial      bool
	Sentiments   []labelCount
	TopTerms     []labelCount
	Sources      []labelCount
	Timeline     []labelCount
	SourceErrors []labelCount
	Articles     []articleView
}

type labelCount struct {
	Label string
	Count int
}

const textTmpl = `News Digest: {{.Topic}}
========================
Run:       {{.RunID}}
Started:   {{.StartedAt}} ({{.Took}})
Articles:  {{.Total}} ({{.FailedCount}} degraded{{if .Partial}}, partial run{{end}})

Sentiment:
{{- range .Sentiments}}
  {{.Label}}: {{.Count}}
{{- else}}
  None
{{- end}}

Top terms:
{{- range .TopTerms}}
  {{.Label}}: {{.Count}}
{{- else}}
  None
{{- end}}

Sources:
{{- range .Sources}}
  {{.Label}}: {{.Count}}
{{- end}}
{{- range .SourceErrors}}
  {{.Label}}: failed
{{- end}}

Timeline:
{{- range .Timeline}}
  {{.Label}}: {{.Count}}
{{- else}}
  None
{{- end}}

Articles:
{{- range .Articles}}
- {{.Title}}{{if .Failed}} [degraded]{{end}}
  {{.Published}} | {{range $i, $p := .Providers}}{{if $i}}, {{end}}{{$p}}{{end}} | {{.Sentiment}}
  {{.Summary}}
  {{.URL}}
{{- else}}
  None
{{- end}}
`

// WriteText writes the human-readable digest.
func WriteText(w io.Writer, res *pipeline.Result) error {
	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, buildTextView(res)); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

func buildTextView(res *pipeline.Result) textView {
	v := textView{
		Topic:       res.Query.Topic,
		RunID:       res.RunID,
		StartedAt:   res.StartedAt.Format("2006-01-02 15:04:05"),
		Took:        res.FinishedAt.Sub(res.StartedAt).Round(time.Millisecond).String(),
		Total:       res.Stats.Total,
		FailedCount: res.FailedCount,
		Partial:     res.Partial,
	}

	for _, s := range []model.Sentiment{model.SentimentPositive, model.SentimentNeutral, model.SentimentNegative} {
		if n := res.Stats.SentimentCounts[s]; n > 0 {
			v.Sentiments = append(v.Sentiments, labelCount{string(s), n})
		}
	}

	for _, term := range res.Stats.TopTerms(10) {
		v.TopTerms = append(v.TopTerms, labelCount{term, res.Stats.TermFrequencies[term]})
	}

	v.Sources = sortedCounts(res.Stats.SourceCounts)
	for _, name := range sortedKeys(res.SourceErrors) {
		v.SourceErrors = append(v.SourceErrors, labelCount{name, 0})
	}

	for _, day := range res.Stats.Timeline {
		v.Timeline = append(v.Timeline, labelCount{day.Day.Format("2006-01-02"), day.Count})
	}

	for _, a := range res.Articles {
		av := articleView{
			Title:     a.Title,
			Sentiment: a.Sentiment,
			Providers: a.Providers,
			Summary:   a.Summary,
			Failed:    a.Failed(),
		}
		if a.Summary == "" {
			av.Summary = summaryUnavailable
		}
		if !a.PublishedAt.IsZero() {
			av.Published = a.PublishedAt.Format("2006-01-02 15:04")
		} else {
			av.Published = "unknown date"
		}
		if len(a.URLs) > 0 {
			av.URL = a.URLs[0]
		}
		v.Articles = append(v.Articles, av)
	}

	return v
}

func sortedCounts(m map[string]int) []labelCount {
	out := make([]labelCount, 0, len(m))
	for _, k := range sortedKeysInt(m) {
		out = append(out, labelCount{k, m[k]})
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeysInt(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

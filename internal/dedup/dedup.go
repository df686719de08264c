// Package dedup merges article stubs that cover the same real-world story
// across providers. Exact normalized-URL matches group first; remaining
// stubs merge by title similarity within a publication-time window.
package dedup

import (
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/quillon/newslens/internal/model"
	"github.com/quillon/newslens/internal/source"
)

// stopWords are excluded from title token sets before comparing.
var stopWords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "but": true, "by": true, "for": true, "from": true,
	"has": true, "have": true, "he": true, "her": true, "his": true,
	"in": true, "is": true, "it": true, "its": true, "of": true, "on": true,
	"or": true, "says": true, "she": true, "that": true, "the": true,
	"their": true, "this": true, "to": true, "was": true, "were": true,
	"will": true, "with": true,
}

// Deduplicator groups stubs into canonical articles.
type Deduplicator struct {
	// Threshold is the minimum Jaccard title similarity for a merge.
	Threshold float64
	// Window is the maximum publication-time distance for a similarity
	// merge. Stubs with unknown publication times bypass the check.
	Window time.Duration
	Logger *slog.Logger
}

// New creates a Deduplicator with the given merge policy.
func New(threshold float64, window time.Duration, logger *slog.Logger) *Deduplicator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Deduplicator{Threshold: threshold, Window: window, Logger: logger}
}

// group accumulates the stubs that form one canonical article.
type group struct {
	canonical *model.CanonicalArticle
	tokens    map[string]bool
	// urlTimes remembers when each contributing URL was published so the
	// extractor can try the freshest URL first.
	urlTimes map[string]time.Time
}

// Dedupe merges the combined stub sequence from all adapters. The result
// is ordered by earliest publication time and is independent of input
// order: stubs are pre-sorted on a deterministic key, so the same set of
// stubs always produces the same groups. Every stub lands in exactly one
// canonical article; unmatched stubs become singletons.
func (d *Deduplicator) Dedupe(stubs []model.ArticleStub) []*model.CanonicalArticle {
	if len(stubs) == 0 {
		return nil
	}

	ordered := make([]model.ArticleStub, len(stubs))
	copy(ordered, stubs)
	sort.SliceStable(ordered, func(i, j int) bool {
		a, b := ordered[i], ordered[j]
		na, nb := source.NormalizeURL(a.URL), source.NormalizeURL(b.URL)
		if na != nb {
			return na < nb
		}
		if a.Title != b.Title {
			return a.Title < b.Title
		}
		return a.PublishedAt.Before(b.PublishedAt)
	})

	// Pass 1: exact normalized-URL grouping. Cheap and high precision.
	byURL := make(map[string]*group)
	var urlOrder []string
	for _, stub := range ordered {
		norm := source.NormalizeURL(stub.URL)
		g, ok := byURL[norm]
		if !ok {
			g = newGroup(stub, norm)
			byURL[norm] = g
			urlOrder = append(urlOrder, norm)
			continue
		}
		g.absorb(stub)
	}

	// Pass 2: stubs not matched by URL (singleton URL groups) may still
	// merge into another group by title similarity. Groups are scanned in
	// canonical_id order so exact score ties resolve deterministically.
	var merged []*group
	singles := make([]*group, 0, len(urlOrder))
	for _, norm := range urlOrder {
		g := byURL[norm]
		if len(g.canonical.URLs) > 1 {
			merged = append(merged, g)
		} else {
			singles = append(singles, g)
		}
	}

	for _, single := range singles {
		target := d.bestMatch(merged, single)
		if target == nil {
			merged = append(merged, single)
			continue
		}
		d.Logger.Debug("similarity merge",
			"title", single.canonical.Title,
			"into", target.canonical.Title,
		)
		target.merge(single)
	}

	out := make([]*model.CanonicalArticle, 0, len(merged))
	for _, g := range merged {
		g.orderURLsByRecency()
		out = append(out, g.canonical)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.PublishedAt.Equal(b.PublishedAt) {
			return a.PublishedAt.Before(b.PublishedAt)
		}
		return a.CanonicalID < b.CanonicalID
	})
	return out
}

// bestMatch finds the existing group the single should merge into, or nil
// when no group clears the similarity threshold and time window. The merge
// is all-or-nothing: the caller either absorbs the whole group or keeps it
// separate.
func (d *Deduplicator) bestMatch(groups []*group, single *group) *group {
	candidates := make([]*group, len(groups))
	copy(candidates, groups)
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].canonical.CanonicalID < candidates[j].canonical.CanonicalID
	})

	var best *group
	bestScore := 0.0
	for _, g := range candidates {
		if g == single {
			continue
		}
		if !d.withinWindow(g.canonical.PublishedAt, single.canonical.PublishedAt) {
			continue
		}
		score := jaccard(g.tokens, single.tokens)
		if score < d.Threshold {
			continue
		}
		// Strict > keeps the smallest canonical_id on exact ties.
		if score > bestScore {
			best = g
			bestScore = score
		}
	}
	return best
}

func (d *Deduplicator) withinWindow(a, b time.Time) bool {
	if d.Window <= 0 {
		return true
	}
	if a.IsZero() || b.IsZero() {
		// Unknown publication time cannot veto a merge.
		return true
	}
	delta := a.Sub(b)
	if delta < 0 {
		delta = -delta
	}
	return delta <= d.Window
}

func newGroup(stub model.ArticleStub, normURL string) *group {
	c := &model.CanonicalArticle{
		CanonicalID:      model.CanonicalID(normURL, stub.Title),
		Title:            stub.Title,
		PublishedAt:      stub.PublishedAt,
		ExtractionStatus: model.StatusPending,
	}
	c.AddURL(stub.URL)
	c.AddProvider(stub.Provider)
	g := &group{
		canonical: c,
		tokens:    titleTokens(stub.Title),
		urlTimes:  map[string]time.Time{stub.URL: stub.PublishedAt},
	}
	return g
}

// absorb adds a stub that matched this group by URL.
func (g *group) absorb(stub model.ArticleStub) {
	g.canonical.AddURL(stub.URL)
	g.canonical.AddProvider(stub.Provider)
	g.noteURLTime(stub.URL, stub.PublishedAt)
	g.earliest(stub.PublishedAt)
}

// merge folds another group into this one.
func (g *group) merge(other *group) {
	for _, u := range other.canonical.URLs {
		g.canonical.AddURL(u)
		g.noteURLTime(u, other.urlTimes[u])
	}
	for _, p := range other.canonical.Providers {
		g.canonical.AddProvider(p)
	}
	g.earliest(other.canonical.PublishedAt)
}

func (g *group) noteURLTime(u string, t time.Time) {
	if existing, ok := g.urlTimes[u]; !ok || t.After(existing) {
		g.urlTimes[u] = t
	}
}

// orderURLsByRecency sorts contributing URLs most recently published
// first, the order the extractor tries them in.
func (g *group) orderURLsByRecency() {
	sort.SliceStable(g.canonical.URLs, func(i, j int) bool {
		a, b := g.urlTimes[g.canonical.URLs[i]], g.urlTimes[g.canonical.URLs[j]]
		if !a.Equal(b) {
			return a.After(b)
		}
		return g.canonical.URLs[i] < g.canonical.URLs[j]
	})
}

func (g *group) earliest(t time.Time) {
	if t.IsZero() {
		return
	}
	if g.canonical.PublishedAt.IsZero() || t.Before(g.canonical.PublishedAt) {
		g.canonical.PublishedAt = t
	}
}

// titleTokens lower-cases, splits on non-alphanumerics and strips stop
// words.
func titleTokens(title string) map[string]bool {
	tokens := make(map[string]bool)
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !((r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'))
	})
	for _, f := range fields {
		if len(f) < 2 || stopWords[f] {
			continue
		}
		tokens[f] = true
	}
	return tokens
}

// jaccard computes |a∩b| / |a∪b| over token sets.
func jaccard(a, b map[string]bool) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	inter := 0
	for tok := range a {
		if b[tok] {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

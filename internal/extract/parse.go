package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// containerSelectors are tried in order when locating the article body.
// The first match with usable text wins; the whole document body is the
// last resort.
var containerSelectors = []string{
	"article",
	"[role=main]",
	"main",
	"#article-body",
	".article-body",
	".story-body",
	".post-content",
	"body",
}

// chromeSelectors is page furniture removed before text is collected.
const chromeSelectors = "script, style, noscript, nav, header, footer, aside, form, figure, iframe"

// ParseBody extracts readable article text from raw HTML. It returns the
// document title and the joined paragraph text of the most article-like
// container.
func ParseBody(html []byte) (title, body string, err error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return "", "", fmt.Errorf("parse html: %w", err)
	}

	title = strings.TrimSpace(doc.Find("title").First().Text())
	if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok && og != "" {
		title = strings.TrimSpace(og)
	}

	doc.Find(chromeSelectors).Remove()

	for _, sel := range containerSelectors {
		container := doc.Find(sel).First()
		if container.Length() == 0 {
			continue
		}
		text := collectParagraphs(container)
		if text != "" {
			return title, text, nil
		}
	}
	return title, "", nil
}

// collectParagraphs joins the text of <p> elements inside the container.
// When a container has no paragraphs at all, its flattened text is used
// instead, which covers sparse article markup.
func collectParagraphs(container *goquery.Selection) string {
	var parts []string
	container.Find("p").Each(func(_ int, p *goquery.Selection) {
		t := strings.TrimSpace(p.Text())
		if len(t) > 0 {
			parts = append(parts, t)
		}
	})
	if len(parts) == 0 {
		return normalizeWhitespace(container.Text())
	}
	return strings.Join(parts, "\n\n")
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

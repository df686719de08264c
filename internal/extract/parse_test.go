package extract

import (
	"strings"
	"testing"
)

func TestParseBody_ArticleTag(t *testing.T) {
	html := `<html><head><title>Page Title</title></head><body>
		<nav><p>Menu item</p></nav>
		<article>
			<p>First paragraph of the story.</p>
			<p>Second paragraph with details.</p>
		</article>
		<footer><p>Copyright</p></footer>
	</body></html>`

	title, body, err := ParseBody([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Page Title" {
		t.Errorf("unexpected title %q", title)
	}
	if !strings.Contains(body, "First paragraph") || !strings.Contains(body, "Second paragraph") {
		t.Errorf("missing paragraphs in body: %q", body)
	}
	if strings.Contains(body, "Menu item") || strings.Contains(body, "Copyright") {
		t.Errorf("page chrome leaked into body: %q", body)
	}
}

func TestParseBody_OGTitlePreferred(t *testing.T) {
	html := `<html><head>
		<title>SEO Title | Site Name</title>
		<meta property="og:title" content="Clean Headline"/>
	</head><body><article><p>Text.</p></article></body></html>`

	title, _, err := ParseBody([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Clean Headline" {
		t.Errorf("expected og:title, got %q", title)
	}
}

func TestParseBody_ScriptsStripped(t *testing.T) {
	html := `<html><body><article>
		<script>var tracking = true;</script>
		<p>Real content here.</p>
		<style>p { color: red }</style>
	</article></body></html>`

	_, body, err := ParseBody([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Contains(body, "tracking") || strings.Contains(body, "color") {
		t.Errorf("script/style leaked: %q", body)
	}
	if !strings.Contains(body, "Real content here.") {
		t.Errorf("content missing: %q", body)
	}
}

func TestParseBody_FallsBackToBodyText(t *testing.T) {
	html := `<html><body><div>Bare text without any paragraph markup at all.</div></body></html>`

	_, body, err := ParseBody([]byte(html))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(body, "Bare text") {
		t.Errorf("expected fallback text, got %q", body)
	}
}

func TestParseBody_EmptyDocument(t *testing.T) {
	_, body, err := ParseBody([]byte("<html><body></body></html>"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body != "" {
		t.Errorf("expected empty body, got %q", body)
	}
}

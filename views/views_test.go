package views

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/a-h/templ"
)

func renderComponent(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	return buf.String()
}

func testPage() Page {
	return Page{
		Site: Site{
			Name:        "My Portfolio",
			URL:         "https://example.com",
			Description: "A portfolio.",
			Intro:       "Hello, I build things.",
			GitHubURL:   "https://github.com/someone",
			SourceURL:   "https://github.com/someone/site",
		},
		CSRFToken: "tok123",
		Path:      "/",
		Year:      2025,
	}
}

func assertContains(t *testing.T, got string, wants ...string) {
	t.Helper()
	for _, want := range wants {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestPageTitle(t *testing.T) {
	p := testPage()
	if got := p.Title(); got != "My Portfolio" {
		t.Errorf("Title() = %q, want %q", got, "My Portfolio")
	}
	p.Meta.Title = "Blog"
	if got := p.Title(); got != "Blog | My Portfolio" {
		t.Errorf("Title() = %q, want %q", got, "Blog | My Portfolio")
	}
}

func TestPageThemeHelpers(t *testing.T) {
	tests := []struct {
		theme, setting, current, next string
	}{
		{"", "system", "light", "dark"},
		{"light", "light", "light", "dark"},
		{"dark", "dark", "dark", "light"},
	}
	for _, tt := range tests {
		p := Page{Theme: tt.theme}
		if p.ThemeSetting() != tt.setting || p.CurrentTheme() != tt.current || p.NextTheme() != tt.next {
			t.Errorf("theme %q = (%q, %q, %q), want (%q, %q, %q)", tt.theme,
				p.ThemeSetting(), p.CurrentTheme(), p.NextTheme(), tt.setting, tt.current, tt.next)
		}
	}
}

func TestHome(t *testing.T) {
	posts := []PostItem{
		{Slug: "b", Title: "Second", Date: "Jan 25, 2025", Link: "/blog/b"},
		{Slug: "a", Title: "First", Date: "Jan 01, 2024", Link: "/blog/a"},
	}
	got := renderComponent(t, Home(testPage(), posts))

	assertContains(t, got,
		"<!DOCTYPE html>",
		"<title>My Portfolio</title>",
		"<h1>My Portfolio</h1>",
		"Hello, I build things.",
		`href="/blog/b"`,
		"Jan 25, 2025 :",
		`<a href="/" class="nav-item">home</a>`,
		`<a href="/blog" class="nav-item">blog</a>`,
		`value="tok123"`,
		"2025 MIT Licensed",
		"view source",
		`href="https://github.com/someone"`,
	)
	if strings.Index(got, "Second") > strings.Index(got, "First") {
		t.Error("posts rendered out of the given order")
	}
	if strings.Contains(got, "application/ld+json") {
		t.Error("JSON-LD script rendered without data")
	}
	if strings.Contains(got, "/static/telemetry.js") {
		t.Error("telemetry script included while disabled")
	}
}

func TestBlogEmpty(t *testing.T) {
	p := testPage()
	p.Meta.Title = "Blog"
	got := renderComponent(t, Blog(p, nil))
	assertContains(t, got, "<h1>My Blog</h1>", "No posts yet.", "<title>Blog | My Portfolio</title>")
}

func TestPostRendersBodyAndMeta(t *testing.T) {
	p := testPage()
	p.Meta = PageMeta{
		Title:         "Hello <World>",
		Description:   "Summary",
		URL:           "https://example.com/blog/hello",
		OGType:        "article",
		Image:         "https://example.com/og?title=Hello",
		PublishedTime: "2025-01-25",
	}
	p.JSONLD = `{"@type":"BlogPosting","headline":"Hello \u003cWorld\u003e"}`
	p.TelemetryEnabled = true

	body := templ.Raw("<p>Rendered <strong>body</strong></p>")
	got := renderComponent(t, Post(p, PostView{Title: "Hello <World>", Date: "Jan 25, 2025", Body: body}))

	assertContains(t, got,
		`<h1 class="blog-title">Hello &lt;World&gt;</h1>`,
		"<p>Rendered <strong>body</strong></p>",
		`<p class="paragraph-meta">Jan 25, 2025</p>`,
		`<meta property="og:type" content="article">`,
		`<meta property="og:image" content="https://example.com/og?title=Hello">`,
		`<meta name="twitter:card" content="summary_large_image">`,
		`<meta property="article:published_time" content="2025-01-25">`,
		`<link rel="canonical" href="https://example.com/blog/hello">`,
		`<script type="application/ld+json">{"@type":"BlogPosting"`,
		"/static/telemetry.js",
	)
}

func TestDarkThemeClass(t *testing.T) {
	p := testPage()
	p.Theme = "dark"
	got := renderComponent(t, NotFound(p))
	assertContains(t, got, `<html lang="en" class="dark" data-theme="dark">`, "404 - Page Not Found", "Switch to light theme")
}

func TestServerError(t *testing.T) {
	got := renderComponent(t, ServerError(testPage()))
	assertContains(t, got, "500 - Something went wrong")
}

func TestPostBodyErrorWritesNothing(t *testing.T) {
	failing := templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		io.WriteString(w, "<p>partial")
		return errors.New("boom")
	})
	var buf bytes.Buffer
	err := Post(testPage(), PostView{Title: "Broken", Body: failing}).Render(context.Background(), &buf)
	if err == nil {
		t.Fatal("expected error from failing body")
	}
	if buf.Len() != 0 {
		t.Errorf("wrote %d bytes on error, want 0", buf.Len())
	}
}

func TestEscapesSiteFields(t *testing.T) {
	p := testPage()
	p.Site.Name = `Tom & "Jerry"`
	p.Site.GitHubURL = "javascript:alert(1)"
	got := renderComponent(t, Home(p, []PostItem{{Title: "<b>x</b>", Date: "Jan 01, 2024", Link: "/blog/my%20post"}}))
	assertContains(t, got,
		"<h1>Tom &amp; &#34;Jerry&#34;</h1>",
		`<p class="post-title text-xl">&lt;b&gt;x&lt;/b&gt;</p>`,
		`href="/blog/my%20post"`,
	)
	if strings.Contains(got, "javascript:alert") {
		t.Error("unsafe footer link rendered")
	}
}

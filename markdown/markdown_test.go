package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, src string) string {
	t.Helper()
	got, err := RenderString(src)
	if err != nil {
		t.Fatalf("RenderString(%q) failed: %v", src, err)
	}
	return got
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Hello World", "hello-world"},
		{"  Trim Me  ", "trim-me"},
		{"Rock & Roll", "rock-and-roll"},
		{"What's new?", "whats-new"},
		{"C++ Tips", "c-tips"},
		{"a -- b", "a-b"},
		{"snake_case stays", "snake_case-stays"},
		{"Tabs\tand\nnewlines", "tabs-and-newlines"},
		{"", ""},
	}
	for _, tt := range tests {
		got := Slugify(tt.input)
		if got != tt.expected {
			t.Errorf("Slugify(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderHeadingAnchors(t *testing.T) {
	got := render(t, "## Hello World")
	want := `<h2 id="hello-world"><a href="#hello-world" class="anchor"></a>Hello World</h2>`
	if !strings.Contains(got, want) {
		t.Errorf("heading = %q, want it to contain %q", got, want)
	}
}

func TestRenderAllHeadingLevels(t *testing.T) {
	for level := 1; level <= 6; level++ {
		src := strings.Repeat("#", level) + " Title"
		got := render(t, src)
		open := "<h" + string(rune('0'+level)) + ` id="title">`
		if !strings.Contains(got, open) {
			t.Errorf("Render(%q) = %q, want it to contain %q", src, got, open)
		}
		if !strings.Contains(got, `class="anchor"`) {
			t.Errorf("Render(%q) = %q, missing anchor", src, got)
		}
	}
}

func TestRenderDuplicateHeadings(t *testing.T) {
	got := render(t, "## Intro\n\ntext\n\n## Intro")
	if !strings.Contains(got, `id="intro"`) || !strings.Contains(got, `id="intro-1"`) {
		t.Errorf("duplicate headings = %q, want ids intro and intro-1", got)
	}
}

func TestRenderHeadingIDsResetPerDocument(t *testing.T) {
	_ = render(t, "## Intro")
	got := render(t, "## Intro")
	if strings.Contains(got, "intro-1") {
		t.Errorf("second document = %q, ids leaked across renders", got)
	}
}

func TestRenderLinks(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		external bool
	}{
		{"absolute", "[site](https://example.com)", true},
		{"internal path", "[post](/blog/hello)", false},
		{"fragment", "[jump](#section)", false},
		{"autolink", "<https://example.com/x>", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, tt.input)
			hasTarget := strings.Contains(got, `target="_blank"`)
			hasRel := strings.Contains(got, `rel="noopener noreferrer"`)
			if hasTarget != tt.external || hasRel != tt.external {
				t.Errorf("Render(%q) = %q, external = %v", tt.input, got, tt.external)
			}
		})
	}
}

func TestRenderLinkWithUnderscoresInURL(t *testing.T) {
	got := render(t, "[docs](https://example.com/some_long_path_name)")
	if !strings.Contains(got, `href="https://example.com/some_long_path_name"`) {
		t.Errorf("underscored URL mangled: %q", got)
	}
	if strings.Contains(got, "<em>") {
		t.Errorf("underscores in URL parsed as emphasis: %q", got)
	}
}

func TestRenderImages(t *testing.T) {
	got := render(t, "![A cat](/images/cat.png)")
	if !strings.Contains(got, `src="/images/cat.png"`) {
		t.Errorf("image src missing: %q", got)
	}
	if !strings.Contains(got, `alt="A cat"`) {
		t.Errorf("image alt missing: %q", got)
	}
	if !strings.Contains(got, `class="rounded-lg"`) {
		t.Errorf("image class missing: %q", got)
	}
}

func TestRenderOmitsRawHTML(t *testing.T) {
	got := render(t, "<script>alert(1)</script>\n\nafter")
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML leaked: %q", got)
	}
	if !strings.Contains(got, "<p>after</p>") {
		t.Errorf("content after raw HTML lost: %q", got)
	}
}

func TestRenderDropsDangerousURLs(t *testing.T) {
	got := render(t, "[click](javascript:alert(1))")
	if strings.Contains(got, "javascript:") {
		t.Errorf("javascript URL rendered: %q", got)
	}
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"use `go test`", "<code>go test</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("Render(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderCodeBlock(t *testing.T) {
	got := render(t, "```go\nfmt.Println(\"hi\")\n```")
	if !strings.Contains(got, `<pre><code class="language-go">`) {
		t.Errorf("code block = %q, missing language class", got)
	}
	if !strings.Contains(got, "fmt.Println(&quot;hi&quot;)") {
		t.Errorf("code block content not escaped: %q", got)
	}
}

func TestRenderLists(t *testing.T) {
	got := render(t, "- one\n- two\n\n1. first\n2. second")
	for _, want := range []string{"<ul>", "<li>one</li>", "<ol>", "<li>second</li>"} {
		if !strings.Contains(got, want) {
			t.Errorf("lists = %q, want it to contain %q", got, want)
		}
	}
}

func TestRenderTable(t *testing.T) {
	got := render(t, "| a | b |\n| --- | --- |\n| 1 | 2 |")
	if !strings.Contains(got, "<table>") || !strings.Contains(got, "<td>2</td>") {
		t.Errorf("table = %q", got)
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("Hello **there**").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if got := buf.String(); !strings.Contains(got, "<p>Hello <strong>there</strong></p>") {
		t.Errorf("component output = %q", got)
	}
}

func TestIsExternal(t *testing.T) {
	tests := []struct {
		href     string
		expected bool
	}{
		{"/blog/x", false},
		{"#top", false},
		{"https://example.com", true},
		{"mailto:me@example.com", true},
	}
	for _, tt := range tests {
		if got := IsExternal(tt.href); got != tt.expected {
			t.Errorf("IsExternal(%q) = %v, want %v", tt.href, got, tt.expected)
		}
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com/a.png", "https://example.com/a.png"},
		{"http://example.com", "http://example.com"},
		{"/images/a.png", "/images/a.png"},
		{"#frag", "#frag"},
		{"javascript:alert(1)", ""},
		{"JaVaScRiPt:alert(1)", ""},
		{"data:text/html,hi", ""},
		{"relative.png", ""},
		{"  ", ""},
	}
	for _, tt := range tests {
		if got := SafeURL(tt.input); got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

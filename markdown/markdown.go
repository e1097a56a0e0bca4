// Package markdown renders post bodies to HTML as templ components.
//
// Rendering is goldmark with GFM. Headings get slug ids and an anchor link,
// links leaving the site open in a new tab, and raw HTML is dropped.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

var md = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(
		parser.WithAutoHeadingID(),
		parser.WithASTTransformers(util.Prioritized(contentTransformer{}, 100)),
	),
)

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		return Render(w, content)
	})
}

// Render writes the HTML representation of src to w.
func Render(w io.Writer, src string) error {
	pc := parser.NewContext(parser.WithIDs(newHeadingIDs()))
	return md.Convert([]byte(src), w, parser.WithContext(pc))
}

// RenderString returns the HTML representation of src.
func RenderString(src string) (string, error) {
	var buf bytes.Buffer
	if err := Render(&buf, src); err != nil {
		return "", err
	}
	return buf.String(), nil
}

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reNonWord  = regexp.MustCompile(`[^\w\-]+`)
	reDashRuns = regexp.MustCompile(`\-\-+`)
)

// Slugify converts heading text to an anchor id: lowercase, trimmed, spaces
// to dashes, "&" spelled out, non-word characters dropped, dashes collapsed.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = reSpaces.ReplaceAllString(s, "-")
	s = strings.ReplaceAll(s, "&", "-and-")
	s = reNonWord.ReplaceAllString(s, "")
	return reDashRuns.ReplaceAllString(s, "-")
}

// headingIDs generates heading ids with Slugify, suffixing repeats.
type headingIDs struct {
	seen map[string]int
}

func newHeadingIDs() *headingIDs {
	return &headingIDs{seen: make(map[string]int)}
}

func (h *headingIDs) Generate(value []byte, kind ast.NodeKind) []byte {
	id := Slugify(string(value))
	if id == "" {
		id = "heading"
	}
	n := h.seen[id]
	h.seen[id] = n + 1
	if n > 0 {
		id += "-" + strconv.Itoa(n)
	}
	return []byte(id)
}

func (h *headingIDs) Put(value []byte) {
	h.seen[string(value)]++
}

// contentTransformer decorates headings, links and images after parsing.
type contentTransformer struct{}

func (contentTransformer) Transform(doc *ast.Document, reader text.Reader, pc parser.Context) {
	var headings []*ast.Heading
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			headings = append(headings, node)
		case *ast.Link:
			if IsExternal(string(node.Destination)) {
				node.SetAttributeString("target", []byte("_blank"))
				node.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.AutoLink:
			if IsExternal(string(node.URL(reader.Source()))) {
				node.SetAttributeString("target", []byte("_blank"))
				node.SetAttributeString("rel", []byte("noopener noreferrer"))
			}
		case *ast.Image:
			node.SetAttributeString("class", []byte("rounded-lg"))
		}
		return ast.WalkContinue, nil
	})

	for _, h := range headings {
		raw, ok := h.AttributeString("id")
		if !ok {
			continue
		}
		id, ok := raw.([]byte)
		if !ok {
			continue
		}
		anchor := ast.NewLink()
		anchor.Destination = append([]byte("#"), id...)
		anchor.SetAttributeString("class", []byte("anchor"))
		if first := h.FirstChild(); first != nil {
			h.InsertBefore(h, first, anchor)
		} else {
			h.AppendChild(h, anchor)
		}
	}
}

// IsExternal reports whether href leaves the site. Paths and fragments are internal.
func IsExternal(href string) bool {
	return !strings.HasPrefix(href, "/") && !strings.HasPrefix(href, "#")
}

// SafeURL validates a URL for use in HTML attributes outside href/src
// contexts, such as meta tags. Unsafe or relative-without-slash values yield "".
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return val
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
		return val
	default:
		return ""
	}
}

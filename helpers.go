package folio

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/markdown"
)

// BuildURL joins a base URL with path segments. The result has no trailing
// slash, matching the registered routes.
func BuildURL(base string, pathSegments ...string) string {
	if len(pathSegments) == 0 {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join("/", u.Path, path.Join(pathSegments...))
	return u.String()
}

// OGImageURL is the absolute URL of the generated OpenGraph image for title.
// Spaces encode as %20.
func OGImageURL(base, title string) string {
	return base + "/og?title=" + strings.ReplaceAll(url.QueryEscape(title), "+", "%20")
}

// PostImageURL returns the absolute preview image for a post: its own image
// when set, otherwise the generated OG image.
func PostImageURL(base string, post content.Post) string {
	img := strings.TrimSpace(post.Metadata.Image)
	switch {
	case img == "":
		return OGImageURL(base, post.Metadata.Title)
	case strings.HasPrefix(img, "http://"), strings.HasPrefix(img, "https://"):
		if safe := markdown.SafeURL(img); safe != "" {
			return safe
		}
		return OGImageURL(base, post.Metadata.Title)
	default:
		return BuildURL(base, img)
	}
}

// WebsiteJSONLD returns a JSON-LD WebSite document for the home page.
func WebsiteJSONLD(cfg SiteConfig) string {
	data := map[string]any{
		"@context":    "https://schema.org",
		"@type":       "WebSite",
		"name":        cfg.Name,
		"url":         cfg.URL,
		"description": cfg.Description,
		"author": map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		},
	}
	return marshalJSONLD(data)
}

// BlogPostingJSONLD returns a JSON-LD BlogPosting document for post.
func BlogPostingJSONLD(post content.Post, cfg SiteConfig) string {
	m := post.Metadata
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      m.Title,
		"datePublished": m.PublishedAt,
		"dateModified":  m.PublishedAt,
		"description":   m.Summary,
		"image":         PostImageURL(cfg.URL, post),
		"url":           BuildURL(cfg.URL, "blog", post.Slug),
		"author": map[string]string{
			"@type": "Person",
			"name":  cfg.Author,
		},
	}
	return marshalJSONLD(data)
}

// marshalJSONLD encodes data for a <script type="application/ld+json">
// block. json.Marshal escapes <, > and & so the payload cannot close the tag.
func marshalJSONLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// safeRedirect keeps redirects on this site. Anything that is not a plain
// absolute path becomes "/".
func safeRedirect(target string) string {
	if !strings.HasPrefix(target, "/") || strings.HasPrefix(target, "//") || strings.HasPrefix(target, "/\\") {
		return "/"
	}
	if u, err := url.Parse(target); err != nil || u.Host != "" || u.Scheme != "" {
		return "/"
	}
	return target
}

// Package views holds the default page components. Each page is a
// templ.ComponentFunc that writes its markup by hand, so callers can mix
// them with their own templ code through folio.ViewFuncs.
package views

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Site is the site-wide identity shown in every page.
type Site struct {
	Name        string
	URL         string
	Description string
	Author      string
	Intro       string
	GitHubURL   string
	SourceURL   string
}

// PageMeta carries per-page SEO and OpenGraph data into <head>.
type PageMeta struct {
	Title         string
	Description   string
	URL           string // canonical + og:url
	OGType        string // "website" or "article"
	Image         string // absolute og:image
	PublishedTime string
}

// Page is the data every page template receives.
type Page struct {
	Site             Site
	Meta             PageMeta
	Theme            string // "light", "dark" or "" to follow the system
	CSRFToken        string
	JSONLD           string // trusted JSON, written into the ld+json script as is
	Path             string
	TelemetryEnabled bool
	Year             int
}

// Title is the document title: "<page> | <site>", or the site name alone.
func (p Page) Title() string {
	if p.Meta.Title == "" {
		return p.Site.Name
	}
	return p.Meta.Title + " | " + p.Site.Name
}

// HeadingTitle is the title without the site suffix.
func (p Page) HeadingTitle() string {
	if p.Meta.Title == "" {
		return p.Site.Name
	}
	return p.Meta.Title
}

func (p Page) Description() string {
	if p.Meta.Description != "" {
		return p.Meta.Description
	}
	return p.Site.Description
}

func (p Page) OGType() string {
	if p.Meta.OGType == "" {
		return "website"
	}
	return p.Meta.OGType
}

// ThemeSetting is the stored preference, "system" when none is set.
func (p Page) ThemeSetting() string {
	if p.Theme == "" {
		return "system"
	}
	return p.Theme
}

// CurrentTheme is the theme the server renders; system falls back to light
// until the client script resolves it.
func (p Page) CurrentTheme() string {
	if p.Theme == "dark" {
		return "dark"
	}
	return "light"
}

func (p Page) NextTheme() string {
	if p.CurrentTheme() == "dark" {
		return "light"
	}
	return "dark"
}

// PostItem is one row of a post listing.
type PostItem struct {
	Slug  string
	Title string
	Date  string
	Link  string
}

// PostView is a single post ready for rendering.
type PostView struct {
	Slug        string
	Title       string
	PublishedAt string
	Date        string
	Summary     string
	Body        templ.Component
}

const (
	sunIcon   = `<svg class="icon-base" aria-hidden="true" viewBox="0 0 24 24" width="16" height="16" fill="none" stroke="currentColor" stroke-width="2"><circle cx="12" cy="12" r="5"/><path d="M12 1v2M12 21v2M4.22 4.22l1.42 1.42M18.36 18.36l1.42 1.42M1 12h2M21 12h2M4.22 19.78l1.42-1.42M18.36 5.64l1.42-1.42"/></svg>`
	moonIcon  = `<svg class="icon-base" aria-hidden="true" viewBox="0 0 24 24" width="16" height="16" fill="none" stroke="currentColor" stroke-width="2"><path d="M21 12.79A9 9 0 1 1 11.21 3 7 7 0 0 0 21 12.79z"/></svg>`
	arrowIcon = `<svg width="12" height="12" viewBox="0 0 12 12" fill="none" xmlns="http://www.w3.org/2000/svg"><path d="M2.07102 11.3494L0.963068 10.2415L9.2017 1.98864H2.83807L2.85227 0.454545H11.8438V9.46023H10.2955L10.3097 3.09659L2.07102 11.3494Z" fill="currentColor"/></svg>`
)

// esc escapes text and attribute values.
func esc(s string) string {
	return templ.EscapeString(s)
}

// escURL sanitizes a link target before escaping it for an attribute.
func escURL(s string) string {
	return templ.EscapeString(string(templ.URL(s)))
}

// page wraps content in the shared layout. The whole document is built in a
// buffer so a failing body never leaves a half-written response.
func page(p Page, content func(ctx context.Context, buf *bytes.Buffer) error) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var buf bytes.Buffer
		writeHead(&buf, p)
		buf.WriteString("<body class=\"antialiased\">\n")
		buf.WriteString("<div id=\"scroll-progress\" class=\"scroll-progress\" aria-hidden=\"true\"></div>\n")
		buf.WriteString("<div class=\"max-w-6xl mx-4 mt-8 lg:mx-auto\">\n")
		buf.WriteString("<main class=\"flex-auto min-w-0 mt-6 flex flex-col px-2 md:px-0\">\n")
		writeNav(&buf, p)
		buf.WriteString("<section>\n")
		if err := content(ctx, &buf); err != nil {
			return err
		}
		buf.WriteString("</section>\n")
		writeFooter(&buf, p)
		buf.WriteString("</main>\n</div>\n</body>\n</html>\n")
		_, err := buf.WriteTo(w)
		return err
	})
}

func writeHead(buf *bytes.Buffer, p Page) {
	buf.WriteString("<!DOCTYPE html>\n<html lang=\"en\"")
	if p.Theme != "" {
		buf.WriteString(" class=\"" + esc(p.Theme) + "\"")
	}
	buf.WriteString(" data-theme=\"" + esc(p.ThemeSetting()) + "\">\n")
	buf.WriteString("<head>\n")
	buf.WriteString("<meta charset=\"utf-8\">\n")
	buf.WriteString("<meta name=\"viewport\" content=\"width=device-width, initial-scale=1\">\n")
	buf.WriteString("<title>" + esc(p.Title()) + "</title>\n")

	desc := esc(p.Description())
	heading := esc(p.HeadingTitle())
	buf.WriteString("<meta name=\"description\" content=\"" + desc + "\">\n")
	if p.Meta.URL != "" {
		buf.WriteString("<link rel=\"canonical\" href=\"" + escURL(p.Meta.URL) + "\">\n")
		buf.WriteString("<meta property=\"og:url\" content=\"" + esc(p.Meta.URL) + "\">\n")
	}
	buf.WriteString("<meta property=\"og:title\" content=\"" + heading + "\">\n")
	buf.WriteString("<meta property=\"og:description\" content=\"" + desc + "\">\n")
	buf.WriteString("<meta property=\"og:site_name\" content=\"" + esc(p.Site.Name) + "\">\n")
	buf.WriteString("<meta property=\"og:locale\" content=\"en_US\">\n")
	buf.WriteString("<meta property=\"og:type\" content=\"" + esc(p.OGType()) + "\">\n")
	if p.Meta.PublishedTime != "" {
		buf.WriteString("<meta property=\"article:published_time\" content=\"" + esc(p.Meta.PublishedTime) + "\">\n")
	}
	if p.Meta.Image != "" {
		buf.WriteString("<meta property=\"og:image\" content=\"" + esc(p.Meta.Image) + "\">\n")
	}
	buf.WriteString("<meta name=\"twitter:card\" content=\"summary_large_image\">\n")
	buf.WriteString("<meta name=\"twitter:title\" content=\"" + heading + "\">\n")
	buf.WriteString("<meta name=\"twitter:description\" content=\"" + desc + "\">\n")
	if p.Meta.Image != "" {
		buf.WriteString("<meta name=\"twitter:image\" content=\"" + esc(p.Meta.Image) + "\">\n")
	}
	buf.WriteString("<meta name=\"robots\" content=\"index, follow, max-image-preview:large\">\n")
	buf.WriteString("<link rel=\"alternate\" type=\"application/rss+xml\" title=\"" + esc(p.Site.Name) + "\" href=\"/rss\">\n")
	buf.WriteString("<link rel=\"icon\" href=\"/public/favicon.ico\">\n")
	buf.WriteString("<link rel=\"stylesheet\" href=\"/public/styles.css\">\n")
	buf.WriteString("<script src=\"/static/theme.js\" defer></script>\n")
	if p.TelemetryEnabled {
		buf.WriteString("<script src=\"/static/telemetry.js\" defer></script>\n")
	}
	if p.JSONLD != "" {
		buf.WriteString("<script type=\"application/ld+json\">" + p.JSONLD + "</script>\n")
	}
	buf.WriteString("</head>\n")
}

func writeNav(buf *bytes.Buffer, p Page) {
	buf.WriteString("<aside class=\"nav-container\">\n<div class=\"layout-sidebar\">\n<nav class=\"nav-menu\">\n")
	buf.WriteString("<div class=\"nav-group\">\n")
	buf.WriteString("<a href=\"/\" class=\"nav-item\">home</a>\n")
	buf.WriteString("<a href=\"/blog\" class=\"nav-item\">blog</a>\n")
	buf.WriteString("</div>\n")
	buf.WriteString("<form method=\"post\" action=\"/theme\" class=\"theme-toggle\">\n")
	buf.WriteString("<input type=\"hidden\" name=\"_csrf\" value=\"" + esc(p.CSRFToken) + "\">\n")
	buf.WriteString("<input type=\"hidden\" name=\"current\" value=\"" + esc(p.ThemeSetting()) + "\">\n")
	buf.WriteString("<input type=\"hidden\" name=\"resolved\" value=\"" + esc(p.Theme) + "\" data-theme-resolved>\n")
	buf.WriteString("<input type=\"hidden\" name=\"redirect\" value=\"" + esc(p.Path) + "\">\n")
	next, current := p.NextTheme(), p.CurrentTheme()
	buf.WriteString("<button type=\"submit\" class=\"nav-item\" aria-label=\"Switch to " + next + " theme (currently " + current + ")\" title=\"Switch to " + next + " theme\">\n")
	if current == "dark" {
		buf.WriteString(sunIcon)
	} else {
		buf.WriteString(moonIcon)
	}
	buf.WriteString("\n</button>\n</form>\n</nav>\n</div>\n</aside>\n")
}

func writeFooter(buf *bytes.Buffer, p Page) {
	buf.WriteString("<footer class=\"footer-container\">\n<ul class=\"footer-list\">\n")
	writeFooterLink(buf, "/rss", "rss")
	if p.Site.GitHubURL != "" {
		writeFooterLink(buf, p.Site.GitHubURL, "github")
	}
	if p.Site.SourceURL != "" {
		writeFooterLink(buf, p.Site.SourceURL, "view source")
	}
	buf.WriteString("</ul>\n")
	buf.WriteString("<p class=\"mt-8 paragraph-footer\">" + strconv.Itoa(p.Year) + " MIT Licensed</p>\n")
	buf.WriteString("</footer>\n")
}

func writeFooterLink(buf *bytes.Buffer, href, label string) {
	buf.WriteString("<li><a href=\"" + escURL(href) + "\" class=\"footer-item\" target=\"_blank\" rel=\"noopener noreferrer\">")
	buf.WriteString(arrowIcon)
	buf.WriteString("<p class=\"paragraph-icon-label\">" + esc(label) + "</p></a></li>\n")
}

func writePosts(buf *bytes.Buffer, posts []PostItem) {
	buf.WriteString("<div class=\"layout-container\">\n")
	if len(posts) == 0 {
		buf.WriteString("<p class=\"paragraph-main\">No posts yet.</p>\n")
	}
	for _, post := range posts {
		buf.WriteString("<a href=\"" + escURL(post.Link) + "\" class=\"block mb-4 md:mb-0 blog-list-item\">\n")
		buf.WriteString("<div class=\"layout-row\">\n")
		buf.WriteString("<div class=\"w-full flex flex-col md:flex-row space-x-0 md:space-x-2\">\n")
		buf.WriteString("<p class=\"post-date w-[160px] text-xl tabular-nums\">" + esc(post.Date) + " :</p>\n")
		buf.WriteString("<p class=\"post-title text-xl\">" + esc(post.Title) + "</p>\n")
		buf.WriteString("</div>\n</div>\n</a>\n")
	}
	buf.WriteString("</div>\n")
}

func Home(p Page, posts []PostItem) templ.Component {
	return page(p, func(_ context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<h1>" + esc(p.Site.Name) + "</h1>\n")
		if p.Site.Intro != "" {
			buf.WriteString("<p class=\"mb-4 paragraph-main\">" + esc(p.Site.Intro) + "</p>\n")
		}
		buf.WriteString("<div class=\"my-8\">\n")
		writePosts(buf, posts)
		buf.WriteString("</div>\n")
		return nil
	})
}

func Blog(p Page, posts []PostItem) templ.Component {
	return page(p, func(_ context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<h1>My Blog</h1>\n")
		writePosts(buf, posts)
		return nil
	})
}

// Post renders a single post. The body component writes its own markup
// inside the article element.
func Post(p Page, post PostView) templ.Component {
	return page(p, func(ctx context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<h1 class=\"blog-title\">" + esc(post.Title) + "</h1>\n")
		buf.WriteString("<div class=\"blog-meta-container\">\n")
		buf.WriteString("<p class=\"paragraph-meta\">" + esc(post.Date) + "</p>\n")
		buf.WriteString("</div>\n")
		buf.WriteString("<article class=\"blog-content\">\n")
		if post.Body != nil {
			if err := post.Body.Render(ctx, buf); err != nil {
				return fmt.Errorf("views: render post body: %w", err)
			}
		}
		buf.WriteString("\n</article>\n")
		return nil
	})
}

func NotFound(p Page) templ.Component {
	return page(p, func(_ context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<h1 class=\"mb-8 text-2xl font-semibold tracking-tighter\">404 - Page Not Found</h1>\n")
		buf.WriteString("<p class=\"mb-4 paragraph-main\">The page you are looking for does not exist.</p>\n")
		buf.WriteString("<p><a href=\"/blog\" class=\"nav-item\">Back to the blog</a></p>\n")
		return nil
	})
}

func ServerError(p Page) templ.Component {
	return page(p, func(_ context.Context, buf *bytes.Buffer) error {
		buf.WriteString("<h1 class=\"mb-8 text-2xl font-semibold tracking-tighter\">500 - Something went wrong</h1>\n")
		buf.WriteString("<p class=\"mb-4 paragraph-main\">The server hit an error rendering this page. Please try again later.</p>\n")
		return nil
	})
}

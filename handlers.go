package folio

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/dates"
	"github.com/eringen/folio/markdown"
	"github.com/eringen/folio/ogimage"
	"github.com/eringen/folio/ratelimit"
	"github.com/eringen/folio/views"
)

func (a *App) setupRoutes() {
	e := a.Echo

	e.GET("/", a.handleHome)
	e.GET("/blog", a.handleBlog)
	e.GET("/blog/:slug", a.handlePost)
	e.GET("/rss", a.handleFeed)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/robots.txt", a.handleRobots)

	var ogLimit []echo.MiddlewareFunc
	if a.ogLimiter != nil {
		ogLimit = append(ogLimit, ratelimit.Middleware(a.ogLimiter))
	}
	e.GET("/og", a.handleOG, ogLimit...)

	e.POST("/theme", a.handleTheme)

	e.Static("/public", a.staticDir)
	assets, _ := fs.Sub(EmbeddedAssets, "embedded")
	e.StaticFS("/static", assets)
}

// page builds the shared page data for the current request.
func (a *App) page(c echo.Context, meta views.PageMeta) views.Page {
	cfg := a.Config
	return views.Page{
		Site: views.Site{
			Name:        cfg.Name,
			URL:         cfg.URL,
			Description: cfg.Description,
			Author:      cfg.Author,
			Intro:       cfg.Intro,
			GitHubURL:   cfg.GitHubURL,
			SourceURL:   cfg.SourceURL,
		},
		Meta:             meta,
		Theme:            ThemeFromSession(c),
		CSRFToken:        CsrfToken(c),
		Path:             c.Request().URL.EscapedPath(),
		TelemetryEnabled: a.Telemetry.Enabled(),
		Year:             a.now().Year(),
	}
}

func postItems(posts []content.Post) []views.PostItem {
	items := make([]views.PostItem, 0, len(posts))
	for _, p := range posts {
		items = append(items, views.PostItem{
			Slug:  p.Slug,
			Title: p.Metadata.Title,
			Date:  dates.Format(p.Metadata.PublishedAt, false),
			Link:  p.Link(),
		})
	}
	return items
}

func (a *App) handleHome(c echo.Context) error {
	posts, err := a.Posts.SortedPosts()
	if err != nil {
		return err
	}
	page := a.page(c, views.PageMeta{
		URL:   a.Config.URL,
		Image: OGImageURL(a.Config.URL, a.Config.OGDefaultTitle),
	})
	page.JSONLD = WebsiteJSONLD(a.Config)
	return Render(c, a.Views.Home(page, postItems(posts)))
}

func (a *App) handleBlog(c echo.Context) error {
	posts, err := a.Posts.SortedPosts()
	if err != nil {
		return err
	}
	page := a.page(c, views.PageMeta{
		Title:       "Blog",
		Description: "Read my blog.",
		URL:         BuildURL(a.Config.URL, "blog"),
		Image:       OGImageURL(a.Config.URL, "Blog"),
	})
	return Render(c, a.Views.Blog(page, postItems(posts)))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Posts.GetPost(c.Param("slug"))
	if err != nil {
		return err
	}
	m := post.Metadata
	page := a.page(c, views.PageMeta{
		Title:         m.Title,
		Description:   m.Summary,
		URL:           BuildURL(a.Config.URL, "blog", post.Slug),
		OGType:        "article",
		Image:         PostImageURL(a.Config.URL, post),
		PublishedTime: m.PublishedAt,
	})
	page.JSONLD = BlogPostingJSONLD(post, a.Config)
	return Render(c, a.Views.Post(page, views.PostView{
		Slug:        post.Slug,
		Title:       m.Title,
		PublishedAt: m.PublishedAt,
		Date:        dates.Format(m.PublishedAt, false),
		Summary:     m.Summary,
		Body:        markdown.Markdown(post.Content),
	}))
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Posts.SortedPosts()
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Posts.SortedPosts()
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	fmt.Fprintf(&b, "\nSitemap: %s\n", BuildURL(a.Config.URL, "sitemap.xml"))
	return c.String(http.StatusOK, b.String())
}

func (a *App) handleOG(c echo.Context) error {
	title := strings.TrimSpace(c.QueryParam("title"))
	if title == "" {
		title = a.Config.OGDefaultTitle
	}
	data, err := a.og.PNG(title)
	if err != nil {
		return err
	}
	return c.Blob(http.StatusOK, ogimage.ContentType, data)
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
	}
	if errors.Is(err, content.ErrPostNotFound) {
		code = http.StatusNotFound
	}

	switch {
	case code == http.StatusNotFound:
		page := a.page(c, views.PageMeta{Title: "Not Found"})
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(page))
	case code >= 500:
		a.Logger.Error("server error",
			zap.Error(err),
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI))
		page := a.page(c, views.PageMeta{Title: "Error"})
		_ = RenderStatus(c, code, a.Views.ServerError(page))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}

// Package folio is a file-backed portfolio and blog engine built with Go,
// Echo and templ.
//
// Posts are frontmatter files in a content directory, re-read on every
// request. The App serves the home page, blog index, post pages, an RSS
// feed, a sitemap and generated OpenGraph images, and can export the whole
// site as static files.
//
// Page markup is supplied through ViewFuncs; the views package provides
// defaults that callers can replace one page at a time.
package folio

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/ogimage"
	"github.com/eringen/folio/ratelimit"
	"github.com/eringen/folio/telemetry"
	"github.com/eringen/folio/views"
)

// ViewFuncs holds the page components the App renders. Replace any of them
// with WithViews to customise markup.
type ViewFuncs struct {
	Home        func(page views.Page, posts []views.PostItem) templ.Component
	Blog        func(page views.Page, posts []views.PostItem) templ.Component
	Post        func(page views.Page, post views.PostView) templ.Component
	NotFound    func(page views.Page) templ.Component
	ServerError func(page views.Page) templ.Component
}

// DefaultViews returns the built-in page components.
func DefaultViews() ViewFuncs {
	return ViewFuncs{
		Home:        views.Home,
		Blog:        views.Blog,
		Post:        views.Post,
		NotFound:    views.NotFound,
		ServerError: views.ServerError,
	}
}

func (v ViewFuncs) merge(o ViewFuncs) ViewFuncs {
	if o.Home != nil {
		v.Home = o.Home
	}
	if o.Blog != nil {
		v.Blog = o.Blog
	}
	if o.Post != nil {
		v.Post = o.Post
	}
	if o.NotFound != nil {
		v.NotFound = o.NotFound
	}
	if o.ServerError != nil {
		v.ServerError = o.ServerError
	}
	return v
}

// App is the central folio application. It wires together the content
// store, handlers, middleware, telemetry and page components.
type App struct {
	Config    SiteConfig
	Echo      *echo.Echo
	Posts     *content.Store
	Views     ViewFuncs
	Logger    *zap.Logger
	Telemetry *telemetry.Telemetry

	og           *ogimage.Renderer
	ogLimiter    *ratelimit.Limiter
	customRoutes []func(*App)
	staticDir    string
	now          func() time.Time

	setupOnce sync.Once
	setupErr  error
}

// New creates an App. Defaults are applied to cfg; the content store reads
// cfg.ContentDir unless WithStore supplies one.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	a := &App{
		Config:    cfg,
		Echo:      e,
		Views:     DefaultViews(),
		Logger:    zap.NewNop(),
		staticDir: cfg.StaticDir,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.Posts == nil {
		p := content.Dir(cfg.ContentDir)
		p.Ext = cfg.ContentExt
		a.Posts = content.NewStore(p)
	}
	return a
}

// Setup installs middleware and routes. It runs once; Start, Run and Export
// call it implicitly.
func (a *App) Setup() error {
	a.setupOnce.Do(func() {
		a.setupErr = a.setup()
	})
	return a.setupErr
}

func (a *App) setup() error {
	if err := a.Config.Validate(); err != nil {
		return err
	}
	if a.Config.SessionSecret == "" {
		secret, err := randomSecret()
		if err != nil {
			return fmt.Errorf("folio: generate session secret: %w", err)
		}
		a.Config.SessionSecret = secret
		a.Logger.Warn("sessionSecret not set; using a random secret, theme preferences reset on restart")
	}

	og, err := ogimage.New(ogimage.Options{})
	if err != nil {
		return err
	}
	a.og = og
	if a.Config.OGRateLimit > 0 {
		a.ogLimiter = ratelimit.New(a.Config.OGRateLimit, time.Minute)
	}

	a.setupMiddleware()
	a.setupRoutes()
	if err := a.Telemetry.Register(a.Echo); err != nil {
		return err
	}
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

func randomSecret() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Start sets the App up and serves until the server stops.
func (a *App) Start() error {
	if err := a.Setup(); err != nil {
		return err
	}
	a.Logger.Info("listening",
		zap.String("addr", a.Config.Addr),
		zap.String("url", a.Config.URL),
		zap.String("content", a.Config.ContentDir))
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() { errc <- a.Start() }()

	select {
	case err := <-errc:
		a.Close()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return a.Shutdown(shutdownCtx)
}

// Shutdown stops the server and releases resources.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	return errors.Join(err, a.Close())
}

// Close releases background workers and the telemetry store.
func (a *App) Close() error {
	if a.ogLimiter != nil {
		a.ogLimiter.Stop()
	}
	return a.Telemetry.Close()
}

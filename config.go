package folio

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/eringen/folio/content"
	"github.com/eringen/folio/telemetry"
)

// SiteConfig holds all configuration for a folio site. Field tags match the
// keys of folio.yaml and the FOLIO_* environment variables.
type SiteConfig struct {
	Name           string `mapstructure:"name" yaml:"name"`
	URL            string `mapstructure:"url" yaml:"url"` // canonical base URL, no trailing slash
	Description    string `mapstructure:"description" yaml:"description"`
	Author         string `mapstructure:"author" yaml:"author"` // JSON-LD author; defaults to Name
	Intro          string `mapstructure:"intro" yaml:"intro"`   // home page paragraph
	GitHubURL      string `mapstructure:"githubURL" yaml:"githubURL"`
	SourceURL      string `mapstructure:"sourceURL" yaml:"sourceURL"`
	OGDefaultTitle string `mapstructure:"ogDefaultTitle" yaml:"ogDefaultTitle"`

	ContentDir string `mapstructure:"contentDir" yaml:"contentDir"`
	ContentExt string `mapstructure:"contentExt" yaml:"contentExt"`
	StaticDir  string `mapstructure:"staticDir" yaml:"staticDir"`

	Addr          string `mapstructure:"addr" yaml:"addr"`
	SessionSecret string `mapstructure:"sessionSecret" yaml:"sessionSecret"`
	CookieSecure  bool   `mapstructure:"cookieSecure" yaml:"cookieSecure"`
	OGRateLimit   int    `mapstructure:"ogRateLimit" yaml:"ogRateLimit"` // /og requests per IP per minute

	Log       LogConfig        `mapstructure:"log" yaml:"log"`
	Telemetry telemetry.Config `mapstructure:"telemetry" yaml:"telemetry"`
}

// LogConfig selects the zap logger built by the CLI.
type LogConfig struct {
	Level       string `mapstructure:"level" yaml:"level"` // debug, info, warn, error
	Development bool   `mapstructure:"development" yaml:"development"`
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "My Portfolio"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	c.URL = strings.TrimRight(c.URL, "/")
	if c.Description == "" {
		c.Description = "My portfolio and blog."
	}
	if c.Author == "" {
		c.Author = c.Name
	}
	if c.OGDefaultTitle == "" {
		c.OGDefaultTitle = c.Name
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/posts"
	}
	if c.ContentExt == "" {
		c.ContentExt = content.DefaultExt
	}
	if c.StaticDir == "" {
		c.StaticDir = "public"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.OGRateLimit == 0 {
		c.OGRateLimit = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate reports configuration errors before the server starts.
func (c SiteConfig) Validate() error {
	var errs []error
	if u, err := url.Parse(c.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("url %q must be an absolute http(s) URL", c.URL))
	}
	if c.ContentExt != "" && !strings.HasPrefix(c.ContentExt, ".") {
		errs = append(errs, fmt.Errorf("contentExt %q must start with a dot", c.ContentExt))
	}
	if c.OGRateLimit < 0 {
		errs = append(errs, errors.New("ogRateLimit must not be negative"))
	}
	if err := c.Telemetry.Validate(); err != nil {
		errs = append(errs, err)
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("folio: invalid config: %w", err)
	}
	return nil
}

// DefaultConfig returns a SiteConfig with every default applied, including
// the telemetry defaults.
func DefaultConfig() SiteConfig {
	c := SiteConfig{Telemetry: telemetry.DefaultConfig()}
	c.setDefaults()
	return c
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback runs after the built-in routes are registered.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir overrides the directory served under /public.
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithStore replaces the content store built from ContentDir.
func WithStore(s *content.Store) Option {
	return func(a *App) {
		a.Posts = s
	}
}

// WithViews overrides page components. Nil fields keep the defaults.
func WithViews(v ViewFuncs) Option {
	return func(a *App) {
		a.Views = a.Views.merge(v)
	}
}

// WithLogger sets the application logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *App) {
		if l != nil {
			a.Logger = l
		}
	}
}

// WithTelemetry attaches an initialised telemetry handle. The App closes it
// on shutdown.
func WithTelemetry(t *telemetry.Telemetry) Option {
	return func(a *App) {
		a.Telemetry = t
	}
}

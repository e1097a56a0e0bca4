// Package telemetry provides privacy-first page-view analytics.
//
// Visits are stored in SQLite with salted IP hashes; no cookies are set and
// Do-Not-Track is honoured. A Telemetry handle is created explicitly with
// Init and passed to the server; nothing is initialised at import time.
package telemetry

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/eringen/folio/ratelimit"
)

// Config controls collection, storage and the analytics proxy.
type Config struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	DatabasePath    string        `mapstructure:"databasePath" yaml:"databasePath"`
	RetentionDays   int           `mapstructure:"retentionDays" yaml:"retentionDays"`
	CleanupInterval time.Duration `mapstructure:"cleanupInterval" yaml:"cleanupInterval"`
	// StatsToken guards the stats endpoint. Empty disables the endpoint.
	StatsToken string `mapstructure:"statsToken" yaml:"statsToken"`
	// ProxyHost is an external analytics host served under /ingest/*.
	ProxyHost string `mapstructure:"proxyHost" yaml:"proxyHost"`
	// CollectLimit is the number of collect requests allowed per IP per minute.
	CollectLimit int `mapstructure:"collectLimit" yaml:"collectLimit"`
}

// DefaultConfig returns a disabled Config with every default applied.
func DefaultConfig() Config {
	var c Config
	c.setDefaults()
	return c
}

func (c *Config) setDefaults() {
	if c.DatabasePath == "" {
		c.DatabasePath = "data/telemetry.db"
	}
	if c.RetentionDays == 0 {
		c.RetentionDays = 365
	}
	if c.CleanupInterval == 0 {
		c.CleanupInterval = 24 * time.Hour
	}
	if c.CollectLimit == 0 {
		c.CollectLimit = 60
	}
}

// Validate reports configuration errors that would only surface at runtime.
func (c Config) Validate() error {
	if c.RetentionDays < 0 {
		return errors.New("telemetry: retentionDays must not be negative")
	}
	if c.ProxyHost != "" {
		u, err := url.Parse(c.ProxyHost)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("telemetry: proxyHost %q must be an absolute http(s) URL", c.ProxyHost)
		}
	}
	return nil
}

// Telemetry is the handle returned by Init. A nil or disabled handle is safe
// to use and records nothing.
type Telemetry struct {
	cfg         Config
	log         *zap.Logger
	store       *Store
	salt        string
	limiter     *ratelimit.Limiter
	stopCleanup func()
	now         func() time.Time
}

// Init opens the store, loads or creates the hashing salt and starts the
// retention scheduler. With cfg.Enabled false it returns a disabled handle
// that still serves the proxy when ProxyHost is set.
func Init(cfg Config, log *zap.Logger) (*Telemetry, error) {
	if log == nil {
		log = zap.NewNop()
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &Telemetry{cfg: cfg, log: log.Named("telemetry"), now: time.Now}
	if !cfg.Enabled {
		return t, nil
	}

	store, err := NewStore(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}
	salt, err := loadSalt(context.Background(), store)
	if err != nil {
		store.Close()
		return nil, err
	}
	t.store = store
	t.salt = salt
	t.limiter = ratelimit.New(cfg.CollectLimit, time.Minute)
	if cfg.RetentionDays > 0 {
		t.stopCleanup = store.StartCleanupScheduler(cfg.RetentionDays, cfg.CleanupInterval, t.log)
	}
	t.log.Info("telemetry enabled",
		zap.String("database", cfg.DatabasePath),
		zap.Int("retention_days", cfg.RetentionDays))
	return t, nil
}

// Enabled reports whether visits are being recorded.
func (t *Telemetry) Enabled() bool {
	return t != nil && t.store != nil
}

// Config returns the effective configuration.
func (t *Telemetry) Config() Config {
	if t == nil {
		return Config{}
	}
	return t.cfg
}

// Store returns the underlying store, or nil when disabled.
func (t *Telemetry) Store() *Store {
	if t == nil {
		return nil
	}
	return t.store
}

// Close stops background work and closes the database.
func (t *Telemetry) Close() error {
	if t == nil {
		return nil
	}
	if t.stopCleanup != nil {
		t.stopCleanup()
		t.stopCleanup = nil
	}
	if t.limiter != nil {
		t.limiter.Stop()
	}
	if t.store != nil {
		err := t.store.Close()
		t.store = nil
		return err
	}
	return nil
}

const saltKey = "hash_salt"

func loadSalt(ctx context.Context, store *Store) (string, error) {
	s, err := store.GetSetting(ctx, saltKey)
	if err != nil {
		return "", fmt.Errorf("telemetry: read hash salt: %w", err)
	}
	if s != "" {
		return s, nil
	}
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("telemetry: generate salt: %w", err)
	}
	s = hex.EncodeToString(b)
	if err := store.SetSetting(ctx, saltKey, s); err != nil {
		return "", fmt.Errorf("telemetry: store hash salt: %w", err)
	}
	return s, nil
}

func shortHash(parts ...string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// HashIP returns a salted, truncated SHA-256 of ip.
func (t *Telemetry) HashIP(ip string) string {
	return shortHash(t.salt, ip)
}

// VisitorID derives an anonymous visitor id from ip and user agent.
func (t *Telemetry) VisitorID(ip, userAgent string) string {
	return shortHash(t.salt, ip, userAgent)
}

// sessionID groups a visitor's views within one UTC day.
func sessionID(visitorID string, now time.Time) string {
	return shortHash(visitorID, now.UTC().Format("2006-01-02"))
}

// ParseUserAgent extracts browser, OS and device class from a User-Agent.
func ParseUserAgent(ua string) (browser, os, device string) {
	ua = strings.ToLower(ua)

	// more specific tokens first: Edge and Opera UAs also contain "chrome"
	switch {
	case strings.Contains(ua, "firefox"):
		browser = "Firefox"
	case strings.Contains(ua, "opera") || strings.Contains(ua, "opr/"):
		browser = "Opera"
	case strings.Contains(ua, "edg"):
		browser = "Edge"
	case strings.Contains(ua, "chrome"):
		browser = "Chrome"
	case strings.Contains(ua, "safari"):
		browser = "Safari"
	default:
		browser = "Other"
	}

	// Android UAs contain "linux"
	switch {
	case strings.Contains(ua, "windows"):
		os = "Windows"
	case strings.Contains(ua, "android"):
		os = "Android"
	case strings.Contains(ua, "iphone") || strings.Contains(ua, "ipad"):
		os = "iOS"
	case strings.Contains(ua, "macintosh") || strings.Contains(ua, "mac os"):
		os = "macOS"
	case strings.Contains(ua, "linux"):
		os = "Linux"
	default:
		os = "Other"
	}

	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		device = "Tablet"
	case strings.Contains(ua, "mobile"):
		device = "Mobile"
	default:
		device = "Desktop"
	}
	return
}

// knownBots maps lowercase UA tokens to display names. Order matters: the
// generic tokens come last.
var knownBots = []struct{ token, name string }{
	{"googlebot", "Googlebot"},
	{"bingbot", "Bingbot"},
	{"yandex", "Yandex"},
	{"baidu", "Baidu"},
	{"duckduckbot", "DuckDuckBot"},
	{"facebookexternalhit", "Facebook"},
	{"twitterbot", "Twitterbot"},
	{"linkedinbot", "LinkedIn"},
	{"ahrefsbot", "Ahrefs"},
	{"semrushbot", "SEMrush"},
	{"mj12bot", "Majestic"},
	{"dotbot", "Moz"},
	{"slurp", "Yahoo Slurp"},
	{"crawler", "Generic Crawler"},
	{"spider", "Generic Spider"},
}

var botTokens = []string{"bot", "crawl", "spider", "slurp", "scrape", "yandex", "baidu", "facebookexternalhit"}

// IsBot reports whether the User-Agent looks like a crawler.
func IsBot(ua string) bool {
	ua = strings.ToLower(ua)
	for _, tok := range botTokens {
		if strings.Contains(ua, tok) {
			return true
		}
	}
	return false
}

// BotName returns a display name for a crawler User-Agent.
func BotName(ua string) string {
	ua = strings.ToLower(ua)
	for _, b := range knownBots {
		if strings.Contains(ua, b.token) {
			return b.name
		}
	}
	if strings.Contains(ua, "bot") {
		return "Other Bot"
	}
	return "Unknown"
}

var referrerDomain = regexp.MustCompile(`^https?://(?:www\.)?([^/]+)`)

var searchEngines = []struct{ token, name string }{
	{"google.", "Google"},
	{"bing.", "Bing"},
	{"duckduckgo.", "DuckDuckGo"},
	{"yahoo.", "Yahoo"},
	{"github.", "GitHub"},
}

// CleanReferrer reduces a referrer URL to a source name or bare domain.
func CleanReferrer(ref string) string {
	if ref == "" {
		return "Direct"
	}
	lower := strings.ToLower(ref)
	for _, s := range searchEngines {
		if strings.Contains(lower, s.token) {
			return s.name
		}
	}
	if m := referrerDomain.FindStringSubmatch(ref); len(m) > 1 {
		return m[1]
	}
	return "Other"
}

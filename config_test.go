package folio

import (
	"strings"
	"testing"

	"github.com/eringen/folio/content"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	checks := []struct {
		name, got, want string
	}{
		{"Name", c.Name, "My Portfolio"},
		{"URL", c.URL, "http://localhost:3000"},
		{"Author", c.Author, "My Portfolio"},
		{"OGDefaultTitle", c.OGDefaultTitle, "My Portfolio"},
		{"ContentDir", c.ContentDir, "content/posts"},
		{"ContentExt", c.ContentExt, content.DefaultExt},
		{"StaticDir", c.StaticDir, "public"},
		{"Addr", c.Addr, ":3000"},
		{"Log.Level", c.Log.Level, "info"},
	}
	for _, tt := range checks {
		if tt.got != tt.want {
			t.Errorf("%s = %q, want %q", tt.name, tt.got, tt.want)
		}
	}
	if c.OGRateLimit != 30 {
		t.Errorf("OGRateLimit = %d, want 30", c.OGRateLimit)
	}
	if err := c.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestSetDefaultsTrimsURL(t *testing.T) {
	c := SiteConfig{URL: "https://example.com/", Name: "Site"}
	c.setDefaults()
	if c.URL != "https://example.com" {
		t.Errorf("URL = %q, want %q", c.URL, "https://example.com")
	}
	if c.Author != "Site" {
		t.Errorf("Author = %q, want %q", c.Author, "Site")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*SiteConfig)
		errSub string
	}{
		{"relative url", func(c *SiteConfig) { c.URL = "example.com" }, "absolute http(s) URL"},
		{"ftp url", func(c *SiteConfig) { c.URL = "ftp://example.com" }, "absolute http(s) URL"},
		{"ext without dot", func(c *SiteConfig) { c.ContentExt = "md" }, "must start with a dot"},
		{"negative og limit", func(c *SiteConfig) { c.OGRateLimit = -1 }, "ogRateLimit"},
		{"negative retention", func(c *SiteConfig) { c.Telemetry.RetentionDays = -1 }, "retention"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("error = %q, want it to contain %q", err, tt.errSub)
			}
		})
	}
}

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "not a url"
	a := New(cfg)
	if err := a.Setup(); err == nil {
		t.Error("Setup accepted an invalid config")
	}
}

func TestSetupGeneratesSessionSecret(t *testing.T) {
	cfg := testConfig()
	cfg.SessionSecret = ""
	a := New(cfg)
	if err := a.Setup(); err != nil {
		t.Fatalf("Setup failed: %v", err)
	}
	defer a.Close()
	if len(a.Config.SessionSecret) != 64 {
		t.Errorf("SessionSecret length = %d, want 64", len(a.Config.SessionSecret))
	}
}

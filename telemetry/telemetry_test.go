package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestTelemetry(t *testing.T, cfg Config) *Telemetry {
	t.Helper()
	cfg.Enabled = true
	if cfg.DatabasePath == "" {
		cfg.DatabasePath = filepath.Join(t.TempDir(), "telemetry.db")
	}
	tel, err := Init(cfg, zap.NewNop())
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	t.Cleanup(func() { tel.Close() })
	return tel
}

func TestParseUserAgent(t *testing.T) {
	tests := []struct {
		name                string
		ua                  string
		browser, os, device string
	}{
		{
			name:    "chrome windows",
			ua:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
			browser: "Chrome", os: "Windows", device: "Desktop",
		},
		{
			name:    "edge",
			ua:      "Mozilla/5.0 (Windows NT 10.0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 Edg/120.0",
			browser: "Edge", os: "Windows", device: "Desktop",
		},
		{
			name:    "firefox linux",
			ua:      "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser: "Firefox", os: "Linux", device: "Desktop",
		},
		{
			name:    "safari iphone",
			ua:      "Mozilla/5.0 (iPhone; CPU iPhone OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
			browser: "Safari", os: "iOS", device: "Mobile",
		},
		{
			name:    "ipad",
			ua:      "Mozilla/5.0 (iPad; CPU OS 17_0 like Mac OS X) AppleWebKit/605.1.15 Version/17.0 Mobile/15E148 Safari/604.1",
			browser: "Safari", os: "iOS", device: "Tablet",
		},
		{
			name:    "android chrome",
			ua:      "Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 Chrome/120.0 Mobile Safari/537.36",
			browser: "Chrome", os: "Android", device: "Mobile",
		},
		{
			name:    "opera mac",
			ua:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 14_0) AppleWebKit/537.36 Chrome/120.0 Safari/537.36 OPR/105.0",
			browser: "Opera", os: "macOS", device: "Desktop",
		},
		{
			name:    "empty",
			ua:      "",
			browser: "Other", os: "Other", device: "Desktop",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, o, d := ParseUserAgent(tt.ua)
			if b != tt.browser || o != tt.os || d != tt.device {
				t.Errorf("ParseUserAgent = (%q, %q, %q), want (%q, %q, %q)", b, o, d, tt.browser, tt.os, tt.device)
			}
		})
	}
}

func TestIsBotAndBotName(t *testing.T) {
	tests := []struct {
		ua    string
		isBot bool
		name  string
	}{
		{"Mozilla/5.0 (compatible; Googlebot/2.1; +http://www.google.com/bot.html)", true, "Googlebot"},
		{"Mozilla/5.0 (compatible; bingbot/2.0)", true, "Bingbot"},
		{"facebookexternalhit/1.1", true, "Facebook"},
		{"Mozilla/5.0 (compatible; AhrefsBot/7.0)", true, "Ahrefs"},
		{"SomeCrawler/1.0", true, "Generic Crawler"},
		{"FancyBot/3", true, "Other Bot"},
		{"Mozilla/5.0 (Windows NT 10.0) Firefox/121.0", false, "Unknown"},
	}
	for _, tt := range tests {
		if got := IsBot(tt.ua); got != tt.isBot {
			t.Errorf("IsBot(%q) = %v, want %v", tt.ua, got, tt.isBot)
		}
		if got := BotName(tt.ua); got != tt.name {
			t.Errorf("BotName(%q) = %q, want %q", tt.ua, got, tt.name)
		}
	}
}

func TestCleanReferrer(t *testing.T) {
	tests := []struct {
		ref, want string
	}{
		{"", "Direct"},
		{"https://www.google.com/search?q=go", "Google"},
		{"https://duckduckgo.com/", "DuckDuckGo"},
		{"https://github.com/eringen", "GitHub"},
		{"https://www.example.org/path", "example.org"},
		{"http://blog.example.net", "blog.example.net"},
		{"android-app://com.slack", "Other"},
	}
	for _, tt := range tests {
		if got := CleanReferrer(tt.ref); got != tt.want {
			t.Errorf("CleanReferrer(%q) = %q, want %q", tt.ref, got, tt.want)
		}
	}
}

func TestHashingIsSaltedAndStable(t *testing.T) {
	a := &Telemetry{salt: "salt-a"}
	b := &Telemetry{salt: "salt-b"}

	if a.HashIP("192.0.2.1") != a.HashIP("192.0.2.1") {
		t.Error("HashIP is not deterministic")
	}
	if a.HashIP("192.0.2.1") == b.HashIP("192.0.2.1") {
		t.Error("HashIP ignores the salt")
	}
	if got := len(a.HashIP("192.0.2.1")); got != 16 {
		t.Errorf("HashIP length = %d, want 16", got)
	}
	if a.VisitorID("192.0.2.1", "ua-1") == a.VisitorID("192.0.2.1", "ua-2") {
		t.Error("VisitorID ignores the user agent")
	}
}

func TestSessionIDChangesDaily(t *testing.T) {
	day1 := time.Date(2025, 1, 27, 10, 0, 0, 0, time.UTC)
	if sessionID("v", day1) != sessionID("v", day1.Add(time.Hour)) {
		t.Error("sessionID changed within a day")
	}
	if sessionID("v", day1) == sessionID("v", day1.Add(24*time.Hour)) {
		t.Error("sessionID did not change across days")
	}
}

func TestInitDisabled(t *testing.T) {
	tel, err := Init(Config{}, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if tel.Enabled() {
		t.Error("disabled config produced an enabled handle")
	}
	if err := tel.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	var nilTel *Telemetry
	if nilTel.Enabled() {
		t.Error("nil handle reports enabled")
	}
	if err := nilTel.Close(); err != nil {
		t.Errorf("nil Close failed: %v", err)
	}
}

func TestInitPersistsSalt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.db")

	first, err := Init(Config{Enabled: true, DatabasePath: path}, nil)
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	salt := first.salt
	first.Close()

	second, err := Init(Config{Enabled: true, DatabasePath: path}, nil)
	if err != nil {
		t.Fatalf("second Init failed: %v", err)
	}
	defer second.Close()
	if salt == "" || second.salt != salt {
		t.Errorf("salt = %q after reopen, want %q", second.salt, salt)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"zero", Config{}, false},
		{"proxy https", Config{ProxyHost: "https://eu.i.posthog.com"}, false},
		{"proxy without scheme", Config{ProxyHost: "eu.i.posthog.com"}, true},
		{"negative retention", Config{RetentionDays: -1}, true},
	}
	for _, tt := range tests {
		err := tt.cfg.Validate()
		if (err != nil) != tt.wantErr {
			t.Errorf("%s: Validate() error = %v, wantErr %v", tt.name, err, tt.wantErr)
		}
	}
}

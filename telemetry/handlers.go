package telemetry

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	CollectPath  = "/api/telemetry/collect"
	StatsPath    = "/api/telemetry/stats"
	IngestPrefix = "/ingest"
)

// CollectRequest is the beacon body sent by the client script.
type CollectRequest struct {
	Path        string `json:"path"`
	Referrer    string `json:"referrer"`
	ScreenSize  string `json:"screen_size"`
	UserAgent   string `json:"user_agent"`
	DurationSec int    `json:"duration_sec"`
}

const (
	maxPathLen       = 2048
	maxReferrerLen   = 2048
	maxScreenSizeLen = 32
	maxUserAgentLen  = 512
	maxDurationSec   = 86400
)

func (r *CollectRequest) validate() error {
	switch {
	case r.Path == "":
		return errors.New("path is required")
	case len(r.Path) > maxPathLen:
		return fmt.Errorf("path exceeds maximum length of %d", maxPathLen)
	case len(r.Referrer) > maxReferrerLen:
		return fmt.Errorf("referrer exceeds maximum length of %d", maxReferrerLen)
	case len(r.ScreenSize) > maxScreenSizeLen:
		return fmt.Errorf("screen_size exceeds maximum length of %d", maxScreenSizeLen)
	case len(r.UserAgent) > maxUserAgentLen:
		return fmt.Errorf("user_agent exceeds maximum length of %d", maxUserAgentLen)
	case r.DurationSec < 0:
		return errors.New("duration_sec must not be negative")
	case r.DurationSec > maxDurationSec:
		return fmt.Errorf("duration_sec exceeds maximum of %d", maxDurationSec)
	}
	return nil
}

// Register mounts the telemetry routes on e: the analytics proxy when a
// proxy host is configured, and collect/stats when recording is enabled.
func (t *Telemetry) Register(e *echo.Echo) error {
	if t == nil {
		return nil
	}
	if t.cfg.ProxyHost != "" {
		if err := t.registerProxy(e); err != nil {
			return err
		}
	}
	if !t.Enabled() {
		return nil
	}
	e.POST(CollectPath, t.Collect)
	if t.cfg.StatsToken != "" {
		e.GET(StatsPath, t.Stats, middleware.KeyAuthWithConfig(middleware.KeyAuthConfig{
			Validator: func(key string, c echo.Context) (bool, error) {
				return subtle.ConstantTimeCompare([]byte(key), []byte(t.cfg.StatsToken)) == 1, nil
			},
		}))
	}
	return nil
}

// registerProxy forwards /ingest/* to the configured analytics host.
func (t *Telemetry) registerProxy(e *echo.Echo) error {
	target, err := url.Parse(t.cfg.ProxyHost)
	if err != nil {
		return fmt.Errorf("telemetry: proxy host: %w", err)
	}
	balancer := middleware.NewRoundRobinBalancer([]*middleware.ProxyTarget{{URL: target}})
	e.Group(IngestPrefix, func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Request().Host = target.Host
			return next(c)
		}
	}, middleware.ProxyWithConfig(middleware.ProxyConfig{
		Balancer: balancer,
		Rewrite:  map[string]string{IngestPrefix + "/*": "/$1"},
	}))
	t.log.Info("analytics proxy enabled", zap.String("target", target.String()))
	return nil
}

// Collect records a page view or duration update. It always answers 204 for
// accepted beacons so the client never retries.
func (t *Telemetry) Collect(c echo.Context) error {
	if !t.Enabled() {
		return c.NoContent(http.StatusNoContent)
	}
	ip := c.RealIP()
	if !t.limiter.Allow(ip) {
		return c.NoContent(http.StatusTooManyRequests)
	}
	if c.Request().Header.Get("DNT") == "1" {
		return c.NoContent(http.StatusNoContent)
	}

	var req CollectRequest
	if err := c.Bind(&req); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}
	if err := req.validate(); err != nil {
		return c.String(http.StatusBadRequest, "Invalid request")
	}

	ctx := c.Request().Context()
	now := t.now().UTC()
	userAgent := req.UserAgent
	if userAgent == "" {
		userAgent = c.Request().UserAgent()
	}

	if IsBot(userAgent) {
		bv := &BotVisit{
			BotName:   BotName(userAgent),
			IPHash:    t.HashIP(ip),
			UserAgent: userAgent,
			Path:      req.Path,
			Timestamp: now,
		}
		if err := t.store.SaveBotVisit(ctx, bv); err != nil {
			t.log.Error("save bot visit", zap.Error(err))
		}
		return c.NoContent(http.StatusNoContent)
	}

	visitorID := t.VisitorID(ip, userAgent)

	// a positive duration comes from the unload beacon of an existing view
	if req.DurationSec > 0 {
		if err := t.store.UpdateVisitDuration(ctx, visitorID, req.Path, req.DurationSec); err != nil {
			t.log.Error("update visit duration", zap.Error(err))
		}
		return c.NoContent(http.StatusNoContent)
	}

	browser, os, device := ParseUserAgent(userAgent)
	visit := &Visit{
		VisitorID:  visitorID,
		SessionID:  sessionID(visitorID, now),
		IPHash:     t.HashIP(ip),
		Browser:    browser,
		OS:         os,
		Device:     device,
		Path:       req.Path,
		Referrer:   CleanReferrer(req.Referrer),
		ScreenSize: req.ScreenSize,
		Timestamp:  now,
	}
	if err := t.store.SaveVisit(ctx, visit); err != nil {
		t.log.Error("save visit", zap.Error(err))
	}
	return c.NoContent(http.StatusNoContent)
}

// StatsResponse is the JSON body of the stats endpoint.
type StatsResponse struct {
	Stats      *Stats    `json:"stats"`
	Bots       *BotStats `json:"bots"`
	Realtime   int       `json:"realtime_visitors"`
	Period     string    `json:"period"`
	PeriodDays int       `json:"period_days"`
}

// Stats returns aggregated visits for ?period=today|week|month|year.
func (t *Telemetry) Stats(c echo.Context) error {
	p := ParsePeriod(c.QueryParam("period"))
	from, to := p.Range(t.now().UTC())
	ctx := c.Request().Context()

	stats, err := t.store.GetStats(ctx, from, to, p.Granularity)
	if err != nil {
		t.log.Error("get stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	bots, err := t.store.GetBotStats(ctx, from, to, p.Granularity)
	if err != nil {
		t.log.Error("get bot stats", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if p.Granularity == Hourly {
		stats.Views = fillHourly(stats.Views, from)
		bots.Visits = fillHourly(bots.Visits, from)
	}
	realtime, err := t.store.RealtimeVisitors(ctx)
	if err != nil {
		t.log.Warn("realtime visitors", zap.Error(err))
	}

	return c.JSON(http.StatusOK, StatsResponse{
		Stats:      stats,
		Bots:       bots,
		Realtime:   realtime,
		Period:     p.Name,
		PeriodDays: p.Days,
	})
}

// Period is a named reporting window.
type Period struct {
	Name        string
	Days        int
	Granularity Granularity
}

// ParsePeriod maps a query value to a Period, defaulting to "week".
func ParsePeriod(name string) Period {
	switch name {
	case "today":
		return Period{Name: name, Days: 1, Granularity: Hourly}
	case "month":
		return Period{Name: name, Days: 30, Granularity: Daily}
	case "year":
		return Period{Name: name, Days: 365, Granularity: Monthly}
	default:
		return Period{Name: "week", Days: 7, Granularity: Daily}
	}
}

// Range returns the window ending at now. Hourly windows cover the last 24
// hours; others run from midnight Days ago to the end of today.
func (p Period) Range(now time.Time) (time.Time, time.Time) {
	if p.Granularity == Hourly {
		return now.Truncate(time.Hour).Add(-23 * time.Hour), now
	}
	from := now.AddDate(0, 0, -p.Days).Truncate(24 * time.Hour)
	to := now.Add(24 * time.Hour).Truncate(24 * time.Hour)
	return from, to
}

// fillHourly returns 24 hourly points starting at from, zero-filling gaps.
func fillHourly(sparse []SeriesPoint, from time.Time) []SeriesPoint {
	byHour := make(map[string]int, len(sparse))
	for _, v := range sparse {
		byHour[v.Bucket] = v.Views
	}
	out := make([]SeriesPoint, 24)
	for i := range out {
		label := fmt.Sprintf("%02d:00", from.Add(time.Duration(i)*time.Hour).UTC().Hour())
		out[i] = SeriesPoint{Bucket: label, Views: byHour[label]}
	}
	return out
}

package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	_ "modernc.org/sqlite"
)

// timestamps are stored as UTC text so range filters compare lexically and
// strftime can bucket them.
const tsLayout = "2006-01-02 15:04:05"

// Visit is a single human page view.
type Visit struct {
	ID          int64     `json:"-"`
	VisitorID   string    `json:"visitor_id"`
	SessionID   string    `json:"session_id"`
	IPHash      string    `json:"-"`
	Browser     string    `json:"browser"`
	OS          string    `json:"os"`
	Device      string    `json:"device"`
	Path        string    `json:"path"`
	Referrer    string    `json:"referrer"`
	ScreenSize  string    `json:"screen_size"`
	Timestamp   time.Time `json:"timestamp"`
	DurationSec int       `json:"duration_sec"`
}

// BotVisit is a single crawler page view.
type BotVisit struct {
	ID        int64     `json:"-"`
	BotName   string    `json:"bot_name"`
	IPHash    string    `json:"-"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

// Stats holds aggregated visit data for a period.
type Stats struct {
	Period         string            `json:"period"`
	UniqueVisitors int               `json:"unique_visitors"`
	TotalViews     int               `json:"total_views"`
	AvgDuration    int               `json:"avg_duration_sec"`
	TopPages       []PageStat        `json:"top_pages"`
	LatestPages    []LatestPageVisit `json:"latest_pages"`
	BrowserStats   []DimensionStat   `json:"browsers"`
	OSStats        []DimensionStat   `json:"os"`
	DeviceStats    []DimensionStat   `json:"devices"`
	ReferrerStats  []DimensionStat   `json:"referrers"`
	Views          []SeriesPoint     `json:"views"`
}

// BotStats holds aggregated crawler data for a period.
type BotStats struct {
	Period      string          `json:"period"`
	TotalVisits int             `json:"total_visits"`
	TopBots     []DimensionStat `json:"top_bots"`
	TopPages    []PageStat      `json:"top_pages"`
	Visits      []SeriesPoint   `json:"visits"`
}

type PageStat struct {
	Path  string `json:"path"`
	Views int    `json:"views"`
}

type LatestPageVisit struct {
	Path      string `json:"path"`
	Timestamp string `json:"timestamp"`
	Browser   string `json:"browser"`
}

type DimensionStat struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// SeriesPoint is one bucket of a time series (hour, day or month).
type SeriesPoint struct {
	Bucket string `json:"bucket"`
	Views  int    `json:"views"`
}

// Granularity selects the time-series bucket size.
type Granularity int

const (
	Daily Granularity = iota
	Hourly
	Monthly
)

func (g Granularity) strftime() string {
	switch g {
	case Hourly:
		return "%H:00"
	case Monthly:
		return "%Y-%m"
	default:
		return "%Y-%m-%d"
	}
}

// Store persists visits in SQLite.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// NewStore opens (creating if needed) the database at dbPath.
func NewStore(dbPath string) (*Store, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("telemetry: create db dir: %w", err)
		}
	}
	// pragmas in the DSN apply to every pooled connection
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("telemetry: open db: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, now: time.Now}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: ensure schema: %w", err)
	}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("telemetry: migrate: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) ensureSchema() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			visitor_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			browser TEXT NOT NULL,
			os TEXT NOT NULL,
			device TEXT NOT NULL,
			path TEXT NOT NULL,
			referrer TEXT NOT NULL DEFAULT '',
			screen_size TEXT NOT NULL DEFAULT '',
			timestamp TEXT NOT NULL,
			duration_sec INTEGER NOT NULL DEFAULT 0
		);

		CREATE TABLE IF NOT EXISTS bot_visits (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bot_name TEXT NOT NULL,
			ip_hash TEXT NOT NULL,
			user_agent TEXT NOT NULL,
			path TEXT NOT NULL,
			timestamp TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_visits_timestamp ON visits(timestamp);
		CREATE INDEX IF NOT EXISTS idx_visits_visitor_path ON visits(visitor_id, path);
		CREATE INDEX IF NOT EXISTS idx_bot_visits_timestamp ON bot_visits(timestamp);

		CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);
	`)
	return err
}

// currentSchemaVersion is bumped with every migration.
const currentSchemaVersion = 1

func (s *Store) migrate(ctx context.Context) error {
	verStr, err := s.GetSetting(ctx, "schema_version")
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	version := 0
	if verStr != "" {
		if version, err = strconv.Atoi(verStr); err != nil {
			return fmt.Errorf("parse schema version %q: %w", verStr, err)
		}
	}
	if version > currentSchemaVersion {
		return fmt.Errorf("schema version %d is newer than supported %d", version, currentSchemaVersion)
	}
	return s.SetSetting(ctx, "schema_version", strconv.Itoa(currentSchemaVersion))
}

// GetSetting returns the value for key, or "" when unset.
func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var val string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&val)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	return val, err
}

// SetSetting upserts key.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}

func ts(t time.Time) string {
	return t.UTC().Format(tsLayout)
}

// SaveVisit inserts v.
func (s *Store) SaveVisit(ctx context.Context, v *Visit) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO visits (visitor_id, session_id, ip_hash, browser, os, device, path,
			referrer, screen_size, timestamp, duration_sec)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.VisitorID, v.SessionID, v.IPHash, v.Browser, v.OS, v.Device, v.Path,
		v.Referrer, v.ScreenSize, ts(v.Timestamp), v.DurationSec)
	if err != nil {
		return fmt.Errorf("telemetry: save visit: %w", err)
	}
	v.ID, _ = res.LastInsertId()
	return nil
}

// UpdateVisitDuration sets the duration of the latest visit for visitor and path.
func (s *Store) UpdateVisitDuration(ctx context.Context, visitorID, path string, durationSec int) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE visits SET duration_sec = ?
		WHERE id = (
			SELECT id FROM visits WHERE visitor_id = ? AND path = ?
			ORDER BY timestamp DESC, id DESC LIMIT 1
		)`, durationSec, visitorID, path)
	if err != nil {
		return fmt.Errorf("telemetry: update duration: %w", err)
	}
	return nil
}

// SaveBotVisit inserts bv.
func (s *Store) SaveBotVisit(ctx context.Context, bv *BotVisit) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO bot_visits (bot_name, ip_hash, user_agent, path, timestamp)
		VALUES (?, ?, ?, ?, ?)`,
		bv.BotName, bv.IPHash, bv.UserAgent, bv.Path, ts(bv.Timestamp))
	if err != nil {
		return fmt.Errorf("telemetry: save bot visit: %w", err)
	}
	bv.ID, _ = res.LastInsertId()
	return nil
}

func period(from, to time.Time) string {
	return from.UTC().Format("2006-01-02") + " to " + to.UTC().Format("2006-01-02")
}

func (s *Store) count(ctx context.Context, query string, args ...any) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&n)
	return n, err
}

func (s *Store) dimension(ctx context.Context, query string, args ...any) ([]DimensionStat, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []DimensionStat{}
	for rows.Next() {
		var d DimensionStat
		if err := rows.Scan(&d.Name, &d.Count); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) pages(ctx context.Context, query string, args ...any) ([]PageStat, error) {
	dims, err := s.dimension(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	out := make([]PageStat, len(dims))
	for i, d := range dims {
		out[i] = PageStat{Path: d.Name, Views: d.Count}
	}
	return out, nil
}

func (s *Store) series(ctx context.Context, table string, g Granularity, from, to string) ([]SeriesPoint, error) {
	dims, err := s.dimension(ctx, `
		SELECT strftime('`+g.strftime()+`', timestamp) AS bucket, COUNT(*)
		FROM `+table+` WHERE timestamp BETWEEN ? AND ?
		GROUP BY bucket ORDER BY bucket`, from, to)
	if err != nil {
		return nil, err
	}
	out := make([]SeriesPoint, len(dims))
	for i, d := range dims {
		out[i] = SeriesPoint{Bucket: d.Name, Views: d.Count}
	}
	return out, nil
}

// GetStats aggregates human visits between from and to. Queries run concurrently.
func (s *Store) GetStats(ctx context.Context, from, to time.Time, g Granularity) (*Stats, error) {
	f, t := ts(from), ts(to)
	stats := &Stats{Period: period(from, to)}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		stats.TotalViews, err = s.count(ctx,
			`SELECT COUNT(*) FROM visits WHERE timestamp BETWEEN ? AND ?`, f, t)
		if err != nil {
			return fmt.Errorf("count views: %w", err)
		}
		return nil
	})
	eg.Go(func() (err error) {
		stats.UniqueVisitors, err = s.count(ctx,
			`SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp BETWEEN ? AND ?`, f, t)
		if err != nil {
			return fmt.Errorf("count unique visitors: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		var avg sql.NullFloat64
		err := s.db.QueryRowContext(ctx,
			`SELECT AVG(duration_sec) FROM visits WHERE timestamp BETWEEN ? AND ? AND duration_sec > 0`,
			f, t).Scan(&avg)
		if err != nil {
			return fmt.Errorf("avg duration: %w", err)
		}
		if avg.Valid {
			stats.AvgDuration = int(avg.Float64)
		}
		return nil
	})
	eg.Go(func() (err error) {
		stats.TopPages, err = s.pages(ctx, `
			SELECT path, COUNT(*) AS views FROM visits WHERE timestamp BETWEEN ? AND ?
			GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t)
		if err != nil {
			return fmt.Errorf("top pages: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT path, timestamp, browser FROM visits WHERE timestamp BETWEEN ? AND ?
			ORDER BY timestamp DESC, id DESC LIMIT 10`, f, t)
		if err != nil {
			return fmt.Errorf("latest pages: %w", err)
		}
		defer rows.Close()
		latest := []LatestPageVisit{}
		for rows.Next() {
			var lp LatestPageVisit
			if err := rows.Scan(&lp.Path, &lp.Timestamp, &lp.Browser); err != nil {
				return fmt.Errorf("latest pages: %w", err)
			}
			latest = append(latest, lp)
		}
		stats.LatestPages = latest
		return rows.Err()
	})

	dims := []struct {
		column string
		dst    *[]DimensionStat
	}{
		{"browser", &stats.BrowserStats},
		{"os", &stats.OSStats},
		{"device", &stats.DeviceStats},
		{"referrer", &stats.ReferrerStats},
	}
	for _, d := range dims {
		eg.Go(func() (err error) {
			*d.dst, err = s.dimension(ctx, `
				SELECT `+d.column+` AS name, COUNT(*) AS n FROM visits WHERE timestamp BETWEEN ? AND ?
				GROUP BY name ORDER BY n DESC, name LIMIT 10`, f, t)
			if err != nil {
				return fmt.Errorf("%s stats: %w", d.column, err)
			}
			return nil
		})
	}

	eg.Go(func() (err error) {
		stats.Views, err = s.series(ctx, "visits", g, f, t)
		if err != nil {
			return fmt.Errorf("views series: %w", err)
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}
	return stats, nil
}

// GetBotStats aggregates crawler visits between from and to.
func (s *Store) GetBotStats(ctx context.Context, from, to time.Time, g Granularity) (*BotStats, error) {
	f, t := ts(from), ts(to)
	stats := &BotStats{Period: period(from, to)}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() (err error) {
		stats.TotalVisits, err = s.count(ctx,
			`SELECT COUNT(*) FROM bot_visits WHERE timestamp BETWEEN ? AND ?`, f, t)
		return err
	})
	eg.Go(func() (err error) {
		stats.TopBots, err = s.dimension(ctx, `
			SELECT bot_name AS name, COUNT(*) AS n FROM bot_visits WHERE timestamp BETWEEN ? AND ?
			GROUP BY name ORDER BY n DESC, name LIMIT 10`, f, t)
		return err
	})
	eg.Go(func() (err error) {
		stats.TopPages, err = s.pages(ctx, `
			SELECT path, COUNT(*) AS views FROM bot_visits WHERE timestamp BETWEEN ? AND ?
			GROUP BY path ORDER BY views DESC, path LIMIT 10`, f, t)
		return err
	})
	eg.Go(func() (err error) {
		stats.Visits, err = s.series(ctx, "bot_visits", g, f, t)
		return err
	})
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("telemetry: bot stats: %w", err)
	}
	return stats, nil
}

// RealtimeVisitors counts distinct visitors in the last five minutes.
func (s *Store) RealtimeVisitors(ctx context.Context) (int, error) {
	cutoff := ts(s.now().Add(-5 * time.Minute))
	return s.count(ctx, `SELECT COUNT(DISTINCT visitor_id) FROM visits WHERE timestamp >= ?`, cutoff)
}

// CleanupOldVisits deletes rows older than retentionDays and reports how many went.
func (s *Store) CleanupOldVisits(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := ts(s.now().AddDate(0, 0, -retentionDays))
	var total int64
	for _, table := range []string{"visits", "bot_visits"} {
		res, err := s.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE timestamp < ?`, cutoff)
		if err != nil {
			return total, fmt.Errorf("telemetry: cleanup %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		total += n
	}
	return total, nil
}

// StartCleanupScheduler runs CleanupOldVisits every interval until the
// returned stop function is called.
func (s *Store) StartCleanupScheduler(retentionDays int, interval time.Duration, log *zap.Logger) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				n, err := s.CleanupOldVisits(context.Background(), retentionDays)
				if err != nil {
					log.Error("cleanup failed", zap.Error(err))
					continue
				}
				if n > 0 {
					log.Info("cleanup removed old visits", zap.Int64("rows", n))
				}
			case <-done:
				return
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// Package perfdb stores per-content engagement counters and learns which
// hooks, topics, products, and posting times perform best.
package perfdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrContentNotFound is returned when a content id has no row.
var ErrContentNotFound = errors.New("content not found")

// Score weights. Clicks weigh heaviest since they lead to conversions.
const (
	weightViews    = 1.0
	weightLikes    = 5.0
	weightComments = 10.0
	weightShares   = 15.0
	weightClicks   = 50.0
)

type ContentRecord struct {
	ID          int64
	ContentID   string
	Platform    string
	ContentType string
	HookStyle   string
	Topic       string
	Product     string
	PostedAt    time.Time
	HourPosted  int
	DayOfWeek   int // 0 = Monday, matching the strategy tables
	Views       int64
	Likes       int64
	Comments    int64
	Shares      int64
	Clicks      int64
	Conversions int64
	Revenue     float64
	Score       float64
}

// MetricsUpdate carries a partial counter update; nil fields keep the
// stored value.
type MetricsUpdate struct {
	Views       *int64
	Likes       *int64
	Comments    *int64
	Shares      *int64
	Clicks      *int64
	Conversions *int64
	Revenue     *float64
}

func Open(dbPath string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(ON)", dbPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	return db, nil
}

// InitSchema ensures the performance DB tables exist and seeds the
// default strategy.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS content_performance (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            content_id TEXT UNIQUE NOT NULL,
            platform TEXT NOT NULL,
            content_type TEXT,
            hook_style TEXT,
            topic TEXT,
            product TEXT,
            posted_at TIMESTAMP NOT NULL,
            hour_posted INTEGER,
            day_of_week INTEGER,
            views INTEGER NOT NULL DEFAULT 0,
            likes INTEGER NOT NULL DEFAULT 0,
            comments INTEGER NOT NULL DEFAULT 0,
            shares INTEGER NOT NULL DEFAULT 0,
            clicks INTEGER NOT NULL DEFAULT 0,
            conversions INTEGER NOT NULL DEFAULT 0,
            revenue REAL NOT NULL DEFAULT 0,
            performance_score REAL NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS winning_patterns (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            pattern_type TEXT NOT NULL,
            pattern_value TEXT NOT NULL,
            sample_size INTEGER NOT NULL DEFAULT 0,
            avg_score REAL NOT NULL DEFAULT 0,
            confidence REAL NOT NULL DEFAULT 0,
            last_updated TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            UNIQUE (pattern_type, pattern_value)
        )`,
		`CREATE TABLE IF NOT EXISTS ab_tests (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            test_name TEXT NOT NULL,
            variant_a TEXT NOT NULL,
            variant_b TEXT NOT NULL,
            a_impressions INTEGER NOT NULL DEFAULT 0,
            b_impressions INTEGER NOT NULL DEFAULT 0,
            a_score REAL NOT NULL DEFAULT 0,
            b_score REAL NOT NULL DEFAULT 0,
            winner TEXT,
            status TEXT NOT NULL DEFAULT 'running',
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS strategy_config (
            key TEXT PRIMARY KEY,
            value TEXT NOT NULL,
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_perf_platform ON content_performance(platform)`,
		`CREATE INDEX IF NOT EXISTS idx_perf_hook ON content_performance(hook_style)`,
		`CREATE INDEX IF NOT EXISTS idx_perf_topic ON content_performance(topic)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return seedStrategy(db)
}

func seedStrategy(db *sql.DB) error {
	defaults := map[string]any{
		"preferred_hooks":  []string{"hook", "tutorial", "storytime", "results"},
		"preferred_topics": []string{"ai tools", "productivity", "passive income"},
		"preferred_times":  []int{7, 12, 19},
		"min_daily_posts":  3,
		"max_daily_posts":  5,
	}
	for key, value := range defaults {
		b, err := json.Marshal(value)
		if err != nil {
			return err
		}
		if _, err := db.Exec(`INSERT OR IGNORE INTO strategy_config (key, value) VALUES (?, ?)`, key, string(b)); err != nil {
			return err
		}
	}
	return nil
}

// RecordContent upserts a content row for tracking. Posting hour and
// weekday are derived from postedAt.
func RecordContent(ctx context.Context, db *sql.DB, c ContentRecord) error {
	if strings.TrimSpace(c.ContentID) == "" {
		return errors.New("missing content id")
	}
	postedAt := c.PostedAt
	if postedAt.IsZero() {
		postedAt = time.Now().UTC()
	}
	_, err := db.ExecContext(ctx, `INSERT INTO content_performance
        (content_id, platform, content_type, hook_style, topic, product, posted_at, hour_posted, day_of_week)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(content_id) DO UPDATE SET
            platform=excluded.platform,
            content_type=excluded.content_type,
            hook_style=excluded.hook_style,
            topic=excluded.topic,
            product=excluded.product,
            posted_at=excluded.posted_at,
            hour_posted=excluded.hour_posted,
            day_of_week=excluded.day_of_week`,
		c.ContentID, c.Platform, c.ContentType, c.HookStyle, c.Topic, c.Product,
		sqlTime(postedAt), postedAt.Hour(), mondayWeekday(postedAt))
	return err
}

// UpdateMetrics applies a partial counter update and recomputes the
// weighted performance score from the merged counters.
func UpdateMetrics(ctx context.Context, db *sql.DB, contentID string, u MetricsUpdate) error {
	cur, err := GetContent(ctx, db, contentID)
	if err != nil {
		return err
	}
	views := merge(cur.Views, u.Views)
	likes := merge(cur.Likes, u.Likes)
	comments := merge(cur.Comments, u.Comments)
	shares := merge(cur.Shares, u.Shares)
	clicks := merge(cur.Clicks, u.Clicks)
	conversions := merge(cur.Conversions, u.Conversions)
	revenue := cur.Revenue
	if u.Revenue != nil {
		revenue = *u.Revenue
	}
	score := Score(views, likes, comments, shares, clicks)

	_, err = db.ExecContext(ctx, `UPDATE content_performance
        SET views=?, likes=?, comments=?, shares=?, clicks=?, conversions=?, revenue=?, performance_score=?
        WHERE content_id=?`,
		views, likes, comments, shares, clicks, conversions, revenue, score, contentID)
	return err
}

// Score is the hand-weighted linear combination used for sorting.
func Score(views, likes, comments, shares, clicks int64) float64 {
	return float64(views)*weightViews +
		float64(likes)*weightLikes +
		float64(comments)*weightComments +
		float64(shares)*weightShares +
		float64(clicks)*weightClicks
}

func GetContent(ctx context.Context, db *sql.DB, contentID string) (*ContentRecord, error) {
	row := db.QueryRowContext(ctx, `SELECT id, content_id, platform, COALESCE(content_type,''), COALESCE(hook_style,''), COALESCE(topic,''), COALESCE(product,''),
            posted_at, COALESCE(hour_posted,0), COALESCE(day_of_week,0),
            views, likes, comments, shares, clicks, conversions, revenue, performance_score
        FROM content_performance WHERE content_id = ?`, contentID)
	var c ContentRecord
	err := row.Scan(&c.ID, &c.ContentID, &c.Platform, &c.ContentType, &c.HookStyle, &c.Topic, &c.Product,
		&c.PostedAt, &c.HourPosted, &c.DayOfWeek,
		&c.Views, &c.Likes, &c.Comments, &c.Shares, &c.Clicks, &c.Conversions, &c.Revenue, &c.Score)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func merge(cur int64, upd *int64) int64 {
	if upd != nil {
		return *upd
	}
	return cur
}

// mondayWeekday maps time.Weekday (Sunday=0) onto Monday=0 indexing.
func mondayWeekday(t time.Time) int {
	return (int(t.Weekday()) + 6) % 7
}

// sqlTime renders a timestamp the way CURRENT_TIMESTAMP does, so stored
// values stay comparable and SQLite's datetime()/DATE() can parse them.
func sqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

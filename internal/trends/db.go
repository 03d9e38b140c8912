// Package trends ingests niche-research feeds (marketing blogs,
// product launch feeds) into a local article cache the research
// commands query.
package trends

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Item is one cached trend article.
type Item struct {
	ID          string
	FeedTitle   string
	Title       string
	Content     string
	URL         sql.NullString
	PublishedAt time.Time
	FetchedAt   sql.NullTime
	Metadata    sql.NullString // JSON
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

// InitSchema ensures the trend cache tables exist.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trend_items (
            id TEXT PRIMARY KEY,
            feed_title TEXT NOT NULL,
            title TEXT NOT NULL,
            content TEXT NOT NULL,
            url TEXT,
            published_at TIMESTAMP NOT NULL,
            fetched_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
            metadata TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_trend_items_published_at ON trend_items(published_at)`,
		`CREATE TABLE IF NOT EXISTS ingest_skip (
            url TEXT PRIMARY KEY,
            reason TEXT,
            expires_at TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_ingest_skip_expires_at ON ingest_skip(expires_at)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// ItemInsert captures data for upserting into trend_items.
type ItemInsert struct {
	ID           string
	FeedTitle    string
	Title        string
	Content      string
	URL          string
	PublishedAt  time.Time
	MetadataJSON string
}

func UpsertItem(ctx context.Context, db *sql.DB, it ItemInsert) error {
	if strings.TrimSpace(it.ID) == "" {
		return errors.New("missing item id")
	}
	_, err := db.ExecContext(ctx, `INSERT INTO trend_items
        (id, feed_title, title, content, url, published_at, metadata)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET
           feed_title=excluded.feed_title,
           title=excluded.title,
           content=excluded.content,
           url=excluded.url,
           published_at=excluded.published_at,
           metadata=excluded.metadata`,
		it.ID, it.FeedTitle, it.Title, it.Content, nullIfEmpty(it.URL), sqlTime(it.PublishedAt), nullIfEmpty(it.MetadataJSON))
	return err
}

func GetByID(ctx context.Context, db *sql.DB, id string) (*Item, error) {
	row := db.QueryRowContext(ctx, selectItems+` WHERE id = ?`, id)
	return scanItem(row)
}

func GetByURL(ctx context.Context, db *sql.DB, url string) (*Item, error) {
	row := db.QueryRowContext(ctx, selectItems+` WHERE url = ? ORDER BY datetime(published_at) DESC LIMIT 1`, url)
	return scanItem(row)
}

// GetSince returns items published after the cutoff, newest first.
func GetSince(ctx context.Context, db *sql.DB, since time.Time, limit int) ([]Item, error) {
	q := selectItems + ` WHERE datetime(published_at) >= datetime(?) ORDER BY datetime(published_at) DESC`
	args := []any{sqlTime(since)}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		if it != nil {
			out = append(out, *it)
		}
	}
	return out, rows.Err()
}

// KnownURLs returns the set of URLs already cached, used as a cheap
// pre-filter before scraping.
func KnownURLs(ctx context.Context, db *sql.DB) (map[string]struct{}, error) {
	urls := make(map[string]struct{})
	rows, err := db.QueryContext(ctx, `SELECT url FROM trend_items WHERE url IS NOT NULL`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var u sql.NullString
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		if u.Valid && strings.TrimSpace(u.String) != "" {
			urls[u.String] = struct{}{}
		}
	}
	return urls, rows.Err()
}

// IsURLSkipped reports whether the URL has an unexpired skip entry.
func IsURLSkipped(ctx context.Context, db *sql.DB, url string) (bool, error) {
	if strings.TrimSpace(url) == "" {
		return false, nil
	}
	var exists int
	err := db.QueryRowContext(ctx, `SELECT 1 FROM ingest_skip WHERE url = ? AND (expires_at IS NULL OR datetime(expires_at) > CURRENT_TIMESTAMP)`, url).Scan(&exists)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return exists == 1, nil
}

// SkipURL records a skip entry with a TTL so repeatedly failing pages
// are not refetched every run.
func SkipURL(ctx context.Context, db *sql.DB, url, reason string, ttl time.Duration) error {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	expires := sqlTime(time.Now().Add(ttl))
	_, err := db.ExecContext(ctx, `INSERT INTO ingest_skip (url, reason, expires_at) VALUES (?, ?, ?)
        ON CONFLICT(url) DO UPDATE SET reason=excluded.reason, expires_at=excluded.expires_at`, url, reason, expires)
	return err
}

const selectItems = `SELECT id, feed_title, title, content, url, published_at, fetched_at, metadata FROM trend_items`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (*Item, error) {
	var it Item
	err := row.Scan(&it.ID, &it.FeedTitle, &it.Title, &it.Content, &it.URL, &it.PublishedAt, &it.FetchedAt, &it.Metadata)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &it, nil
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// sqlTime renders a timestamp the way CURRENT_TIMESTAMP does, so stored
// values stay comparable and SQLite's datetime() can parse them.
func sqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

package trackdb

import (
	"context"
	"crypto/md5"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// ErrLinkNotFound is returned when a short code does not resolve to a link.
var ErrLinkNotFound = errors.New("link not found")

type Link struct {
	ID          int64
	ShortCode   string
	OriginalURL string
	ProductName string
	Program     sql.NullString
	Commission  sql.NullString
	Notes       sql.NullString
	CreatedAt   time.Time
}

// LinkSummary is a Link with its aggregate counters, computed by a join
// at read time.
type LinkSummary struct {
	Link
	TotalClicks      int64
	TotalConversions int64
	TotalRevenue     float64
}

type Click struct {
	ID        int64
	LinkID    int64
	ClickedAt time.Time
	Source    sql.NullString
	Platform  sql.NullString
	Campaign  sql.NullString

	// Filled by joined queries only.
	ProductName string
	ShortCode   string
}

type Conversion struct {
	ID          int64
	LinkID      int64
	ConvertedAt time.Time
	Amount      float64
	IsRecurring bool
	Notes       sql.NullString

	ProductName string
	ShortCode   string
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

// ShortCode derives a tracking code from the URL and the given timestamp.
// First 8 hex chars of md5(url + timestamp) keep codes short and
// collision-free enough for a single-user tracker.
func ShortCode(url string, now time.Time) string {
	sum := md5.Sum([]byte(url + now.Format(time.RFC3339Nano)))
	return fmt.Sprintf("%x", sum)[:8]
}

// AddLink inserts a new tracked link and returns it with its generated
// short code.
func AddLink(ctx context.Context, db *sql.DB, originalURL, productName, program, commission, notes string) (*Link, error) {
	if strings.TrimSpace(originalURL) == "" {
		return nil, errors.New("missing url")
	}
	now := time.Now().UTC()
	code := ShortCode(originalURL, now)
	res, err := db.ExecContext(ctx, `INSERT INTO links (short_code, original_url, product_name, program, commission, notes, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)`,
		code, originalURL, productName, nullIfEmpty(program), nullIfEmpty(commission), nullIfEmpty(notes), sqlTime(now))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &Link{
		ID:          id,
		ShortCode:   code,
		OriginalURL: originalURL,
		ProductName: productName,
		CreatedAt:   now,
	}, nil
}

func GetLinkByCode(ctx context.Context, db *sql.DB, shortCode string) (*Link, error) {
	row := db.QueryRowContext(ctx, `SELECT id, short_code, original_url, product_name, program, commission, notes, created_at
        FROM links WHERE short_code = ?`, shortCode)
	var l Link
	if err := row.Scan(&l.ID, &l.ShortCode, &l.OriginalURL, &l.ProductName, &l.Program, &l.Commission, &l.Notes, &l.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, err
	}
	return &l, nil
}

// ListLinks returns tracked links newest first, each with click/conversion
// counts and summed revenue.
func ListLinks(ctx context.Context, db *sql.DB, limit int) ([]LinkSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.QueryContext(ctx, `SELECT l.id, l.short_code, l.original_url, l.product_name, l.program, l.commission, l.notes, l.created_at,
            (SELECT COUNT(*) FROM clicks c WHERE c.link_id = l.id) AS total_clicks,
            (SELECT COUNT(*) FROM conversions cv WHERE cv.link_id = l.id) AS total_conversions,
            (SELECT COALESCE(SUM(cv.amount), 0) FROM conversions cv WHERE cv.link_id = l.id) AS total_revenue
        FROM links l
        ORDER BY l.created_at DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []LinkSummary
	for rows.Next() {
		var s LinkSummary
		if err := rows.Scan(&s.ID, &s.ShortCode, &s.OriginalURL, &s.ProductName, &s.Program, &s.Commission, &s.Notes, &s.CreatedAt,
			&s.TotalClicks, &s.TotalConversions, &s.TotalRevenue); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// RecordClick attributes a click to the link with the given short code.
func RecordClick(ctx context.Context, db *sql.DB, shortCode, source, platform, campaign string) (*Link, error) {
	link, err := GetLinkByCode(ctx, db, shortCode)
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO clicks (link_id, clicked_at, source, platform, campaign)
        VALUES (?, ?, ?, ?, ?)`,
		link.ID, sqlTime(time.Now()), nullIfEmpty(source), nullIfEmpty(platform), nullIfEmpty(campaign))
	if err != nil {
		return nil, err
	}
	return link, nil
}

// RecordConversion records a sale attributed to the link with the given
// short code.
func RecordConversion(ctx context.Context, db *sql.DB, shortCode string, amount float64, isRecurring bool, notes string) (*Link, error) {
	link, err := GetLinkByCode(ctx, db, shortCode)
	if err != nil {
		return nil, err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO conversions (link_id, converted_at, amount, is_recurring, notes)
        VALUES (?, ?, ?, ?, ?)`,
		link.ID, sqlTime(time.Now()), amount, isRecurring, nullIfEmpty(notes))
	if err != nil {
		return nil, err
	}
	return link, nil
}

// ListClicks returns click events within the day window, newest first.
// linkID 0 means all links; rows then carry product name and short code.
func ListClicks(ctx context.Context, db *sql.DB, linkID int64, days int) ([]Click, error) {
	cutoff := dayCutoff(days)
	var rows *sql.Rows
	var err error
	if linkID > 0 {
		rows, err = db.QueryContext(ctx, `SELECT id, link_id, clicked_at, source, platform, campaign
            FROM clicks WHERE link_id = ? AND clicked_at >= ?
            ORDER BY clicked_at DESC`, linkID, cutoff)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT c.id, c.link_id, c.clicked_at, c.source, c.platform, c.campaign, l.product_name, l.short_code
            FROM clicks c JOIN links l ON c.link_id = l.id
            WHERE c.clicked_at >= ?
            ORDER BY c.clicked_at DESC`, cutoff)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Click
	for rows.Next() {
		var c Click
		if linkID > 0 {
			err = rows.Scan(&c.ID, &c.LinkID, &c.ClickedAt, &c.Source, &c.Platform, &c.Campaign)
		} else {
			err = rows.Scan(&c.ID, &c.LinkID, &c.ClickedAt, &c.Source, &c.Platform, &c.Campaign, &c.ProductName, &c.ShortCode)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func ListConversions(ctx context.Context, db *sql.DB, linkID int64, days int) ([]Conversion, error) {
	cutoff := dayCutoff(days)
	var rows *sql.Rows
	var err error
	if linkID > 0 {
		rows, err = db.QueryContext(ctx, `SELECT id, link_id, converted_at, amount, is_recurring, notes
            FROM conversions WHERE link_id = ? AND converted_at >= ?
            ORDER BY converted_at DESC`, linkID, cutoff)
	} else {
		rows, err = db.QueryContext(ctx, `SELECT cv.id, cv.link_id, cv.converted_at, cv.amount, cv.is_recurring, cv.notes, l.product_name, l.short_code
            FROM conversions cv JOIN links l ON cv.link_id = l.id
            WHERE cv.converted_at >= ?
            ORDER BY cv.converted_at DESC`, cutoff)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Conversion
	for rows.Next() {
		var cv Conversion
		if linkID > 0 {
			err = rows.Scan(&cv.ID, &cv.LinkID, &cv.ConvertedAt, &cv.Amount, &cv.IsRecurring, &cv.Notes)
		} else {
			err = rows.Scan(&cv.ID, &cv.LinkID, &cv.ConvertedAt, &cv.Amount, &cv.IsRecurring, &cv.Notes, &cv.ProductName, &cv.ShortCode)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, rows.Err()
}

func dayCutoff(days int) string {
	if days <= 0 {
		days = 30
	}
	return sqlTime(time.Now().AddDate(0, 0, -days))
}

// sqlTime renders a timestamp the way CURRENT_TIMESTAMP does, so stored
// values stay comparable and SQLite's datetime()/DATE() can parse them.
func sqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func nullIfEmpty(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}

// Package queue manages the scheduled-post queue: content waiting for
// its posting slot, plus the posted/failed history.
package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrPostNotFound = errors.New("scheduled post not found")

// Post statuses. Transitions are pending -> posted or pending -> failed.
const (
	StatusPending = "pending"
	StatusPosted  = "posted"
	StatusFailed  = "failed"
)

type Post struct {
	ID           string         `json:"id"`
	Platform     string         `json:"platform"`
	Caption      string         `json:"caption"`
	MediaPath    sql.NullString `json:"media_path"`
	LinkCode     sql.NullString `json:"link_code"`
	ScheduledFor time.Time      `json:"scheduled_for"`
	Status       string         `json:"status"`
	Error        sql.NullString `json:"error"`
	PostedAt     sql.NullTime   `json:"posted_at"`
	CreatedAt    time.Time      `json:"created_at"`
}

// InitSchema ensures the queue table exists. The queue shares the
// tracker database file.
func InitSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS scheduled_posts (
            id TEXT PRIMARY KEY,
            platform TEXT NOT NULL,
            caption TEXT NOT NULL,
            media_path TEXT,
            link_code TEXT,
            scheduled_for TIMESTAMP NOT NULL,
            status TEXT NOT NULL DEFAULT 'pending',
            error TEXT,
            posted_at TIMESTAMP,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_queue_due ON scheduled_posts(status, scheduled_for)`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

// Enqueue schedules a post. linkCode and mediaPath may be empty.
func Enqueue(ctx context.Context, db *sql.DB, platform, caption, mediaPath, linkCode string, scheduledFor time.Time) (*Post, error) {
	platform = strings.TrimSpace(platform)
	if platform == "" {
		return nil, errors.New("missing platform")
	}
	if strings.TrimSpace(caption) == "" {
		return nil, errors.New("missing caption")
	}
	if scheduledFor.IsZero() {
		scheduledFor = time.Now().UTC()
	}
	p := &Post{
		ID:           uuid.NewString(),
		Platform:     platform,
		Caption:      caption,
		MediaPath:    nullStr(mediaPath),
		LinkCode:     nullStr(linkCode),
		ScheduledFor: scheduledFor.UTC(),
		Status:       StatusPending,
		CreatedAt:    time.Now().UTC(),
	}
	_, err := db.ExecContext(ctx, `INSERT INTO scheduled_posts
        (id, platform, caption, media_path, link_code, scheduled_for, status, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Platform, p.Caption, p.MediaPath, p.LinkCode, sqlTime(p.ScheduledFor), p.Status, sqlTime(p.CreatedAt))
	if err != nil {
		return nil, err
	}
	return p, nil
}

// List returns posts newest-schedule-first, optionally filtered by status.
func List(ctx context.Context, db *sql.DB, status string, limit int) ([]Post, error) {
	if limit <= 0 {
		limit = 50
	}
	q := selectPosts
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY scheduled_for DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// NextDue returns the oldest pending post whose slot has passed, or
// ErrPostNotFound when nothing is due.
func NextDue(ctx context.Context, db *sql.DB, now time.Time) (*Post, error) {
	row := db.QueryRowContext(ctx, selectPosts+`
        WHERE status = ? AND scheduled_for <= ?
        ORDER BY scheduled_for ASC LIMIT 1`, StatusPending, sqlTime(now))
	p, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPostNotFound
	}
	return p, err
}

// MarkPosted transitions a pending post to posted.
func MarkPosted(ctx context.Context, db *sql.DB, id string) error {
	return transition(ctx, db, id, StatusPosted, "")
}

// MarkFailed transitions a pending post to failed with the failure
// message.
func MarkFailed(ctx context.Context, db *sql.DB, id, errMsg string) error {
	return transition(ctx, db, id, StatusFailed, errMsg)
}

func transition(ctx context.Context, db *sql.DB, id, status, errMsg string) error {
	res, err := db.ExecContext(ctx, `UPDATE scheduled_posts
        SET status = ?, error = ?, posted_at = ?
        WHERE id = ? AND status = ?`,
		status, nullStr(errMsg), sqlTime(time.Now()), id, StatusPending)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		var current string
		err := db.QueryRowContext(ctx, `SELECT status FROM scheduled_posts WHERE id = ?`, id).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrPostNotFound
		}
		if err != nil {
			return err
		}
		return fmt.Errorf("post %s is %s, only pending posts can transition", id, current)
	}
	return nil
}

// PostedToday counts posts marked posted since local midnight, used to
// enforce the daily posting cap.
func PostedToday(ctx context.Context, db *sql.DB, now time.Time) (int, error) {
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var n int
	err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM scheduled_posts
        WHERE status = ? AND posted_at >= ?`, StatusPosted, sqlTime(midnight)).Scan(&n)
	return n, err
}

const selectPosts = `SELECT id, platform, caption, media_path, link_code, scheduled_for, status, error, posted_at, created_at
        FROM scheduled_posts`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*Post, error) {
	var p Post
	err := row.Scan(&p.ID, &p.Platform, &p.Caption, &p.MediaPath, &p.LinkCode,
		&p.ScheduledFor, &p.Status, &p.Error, &p.PostedAt, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// sqlTime renders a timestamp the way CURRENT_TIMESTAMP does, so stored
// values stay comparable and SQLite's datetime() can parse them.
func sqlTime(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

func nullStr(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

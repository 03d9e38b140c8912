package perfdb

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// Completion thresholds for A/B tests. A test closes once the combined
// impressions reach minImpressions; the winner must beat the loser's
// average score by winnerMargin or the test is a tie.
const (
	minImpressions = 100
	winnerMargin   = 1.1
)

var ErrTestNotFound = errors.New("ab test not found")

type ABTest struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	VariantA     string    `json:"variant_a"`
	VariantB     string    `json:"variant_b"`
	AImpressions int64     `json:"a_impressions"`
	BImpressions int64     `json:"b_impressions"`
	AScore       float64   `json:"a_score"`
	BScore       float64   `json:"b_score"`
	Winner       string    `json:"winner,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// StartABTest opens a new running test between two variant labels.
func StartABTest(ctx context.Context, db *sql.DB, name, variantA, variantB string) (*ABTest, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.TrimSpace(variantA) == "" || strings.TrimSpace(variantB) == "" {
		return nil, errors.New("test name and both variants are required")
	}
	now := time.Now().UTC()
	res, err := db.ExecContext(ctx, `INSERT INTO ab_tests (test_name, variant_a, variant_b, created_at)
        VALUES (?, ?, ?, ?)`, name, variantA, variantB, sqlTime(now))
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &ABTest{ID: id, Name: name, VariantA: variantA, VariantB: variantB, Status: "running", CreatedAt: now}, nil
}

// RecordABResult adds one impression with its observed score to a
// variant ("a" or "b") and closes the test once the impression
// threshold is crossed.
func RecordABResult(ctx context.Context, db *sql.DB, testID int64, variant string, score float64) (*ABTest, error) {
	t, err := GetABTest(ctx, db, testID)
	if err != nil {
		return nil, err
	}
	if t.Status != "running" {
		return nil, errors.New("test is already completed")
	}
	switch strings.ToLower(strings.TrimSpace(variant)) {
	case "a":
		t.AImpressions++
		t.AScore += score
	case "b":
		t.BImpressions++
		t.BScore += score
	default:
		return nil, errors.New("variant must be a or b")
	}

	if t.AImpressions+t.BImpressions >= minImpressions {
		t.Status = "completed"
		t.Winner = decideWinner(t)
	}

	_, err = db.ExecContext(ctx, `UPDATE ab_tests
        SET a_impressions=?, b_impressions=?, a_score=?, b_score=?, winner=?, status=?
        WHERE id=?`,
		t.AImpressions, t.BImpressions, t.AScore, t.BScore, nullIfEmptyStr(t.Winner), t.Status, t.ID)
	if err != nil {
		return nil, err
	}
	return t, nil
}

func decideWinner(t *ABTest) string {
	avgA, avgB := 0.0, 0.0
	if t.AImpressions > 0 {
		avgA = t.AScore / float64(t.AImpressions)
	}
	if t.BImpressions > 0 {
		avgB = t.BScore / float64(t.BImpressions)
	}
	switch {
	case avgA >= avgB*winnerMargin:
		return t.VariantA
	case avgB >= avgA*winnerMargin:
		return t.VariantB
	default:
		return "tie"
	}
}

func GetABTest(ctx context.Context, db *sql.DB, id int64) (*ABTest, error) {
	row := db.QueryRowContext(ctx, `SELECT id, test_name, variant_a, variant_b,
            a_impressions, b_impressions, a_score, b_score, COALESCE(winner,''), status, created_at
        FROM ab_tests WHERE id = ?`, id)
	t, err := scanABTest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTestNotFound
	}
	return t, err
}

// ListABTests returns tests newest first, optionally filtered by status.
func ListABTests(ctx context.Context, db *sql.DB, status string) ([]ABTest, error) {
	q := `SELECT id, test_name, variant_a, variant_b,
            a_impressions, b_impressions, a_score, b_score, COALESCE(winner,''), status, created_at
        FROM ab_tests`
	var args []any
	if status != "" {
		q += ` WHERE status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY created_at DESC`

	rows, err := db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ABTest
	for rows.Next() {
		t, err := scanABTest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanABTest(row rowScanner) (*ABTest, error) {
	var t ABTest
	err := row.Scan(&t.ID, &t.Name, &t.VariantA, &t.VariantB,
		&t.AImpressions, &t.BImpressions, &t.AScore, &t.BScore, &t.Winner, &t.Status, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func nullIfEmptyStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

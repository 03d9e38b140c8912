package trackdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

type Campaign struct {
	ID        int64
	Name      string
	Platform  sql.NullString
	StartDate sql.NullTime
	EndDate   sql.NullTime
	Budget    sql.NullFloat64
	Status    string
	Notes     sql.NullString

	// Clicks counts the click rows tagged with the campaign name.
	Clicks int64
}

// AddCampaign registers a campaign. Clicks reference it by name via
// their campaign tag.
func AddCampaign(ctx context.Context, db *sql.DB, name, platform string, budget float64, start, end *time.Time) (*Campaign, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("campaign name is required")
	}
	res, err := db.ExecContext(ctx,
		`INSERT INTO campaigns (name, platform, start_date, end_date, budget) VALUES (?, ?, ?, ?, ?)`,
		name, nullIfEmpty(platform), nullTime(start), nullTime(end), nullIfZero(budget))
	if err != nil {
		return nil, fmt.Errorf("failed to add campaign: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	c := &Campaign{ID: id, Name: name, Status: "active"}
	if platform != "" {
		c.Platform = sql.NullString{String: platform, Valid: true}
	}
	return c, nil
}

// ListCampaigns returns campaigns with click/conversion counts joined
// in from the click tags.
func ListCampaigns(ctx context.Context, db *sql.DB) ([]Campaign, error) {
	rows, err := db.QueryContext(ctx, `
        SELECT c.id, c.name, c.platform, c.start_date, c.end_date,
               c.budget, c.status, c.notes,
               COUNT(DISTINCT cl.id) AS clicks
        FROM campaigns c
        LEFT JOIN clicks cl ON cl.campaign = c.name
        GROUP BY c.id
        ORDER BY c.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list campaigns: %w", err)
	}
	defer rows.Close()

	var out []Campaign
	for rows.Next() {
		var c Campaign
		if err := rows.Scan(&c.ID, &c.Name, &c.Platform, &c.StartDate, &c.EndDate, &c.Budget, &c.Status, &c.Notes, &c.Clicks); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetCampaignStatus moves a campaign between active and ended.
func SetCampaignStatus(ctx context.Context, db *sql.DB, id int64, status string) error {
	if status != "active" && status != "ended" {
		return fmt.Errorf("status must be active or ended")
	}
	res, err := db.ExecContext(ctx, `UPDATE campaigns SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("campaign %d not found", id)
	}
	return nil
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return sqlTime(*t)
}

func nullIfZero(f float64) any {
	if f == 0 {
		return nil
	}
	return f
}

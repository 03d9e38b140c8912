package trackdb

import (
	"context"
	"database/sql"
	"math"
)

type TopLink struct {
	ProductName string  `json:"product"`
	ShortCode   string  `json:"code"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

type PlatformClicks struct {
	Platform string `json:"platform"`
	Count    int64  `json:"count"`
}

// DashboardStats aggregates tracker activity over a trailing day window.
type DashboardStats struct {
	PeriodDays              int              `json:"period_days"`
	TotalClicks             int64            `json:"total_clicks"`
	TotalConversions        int64            `json:"total_conversions"`
	ConversionRate          float64          `json:"conversion_rate"`
	TotalRevenue            float64          `json:"total_revenue"`
	RecurringRevenue        float64          `json:"recurring_revenue"`
	AvgRevenuePerConversion float64          `json:"avg_revenue_per_conversion"`
	TopLinks                []TopLink        `json:"top_links"`
	ClicksByPlatform        []PlatformClicks `json:"clicks_by_platform"`
}

type DailyRevenue struct {
	Date        string  `json:"date"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
}

// Projection extrapolates revenue pace against configured targets.
type Projection struct {
	Last7Days             float64 `json:"last_7_days"`
	Last30Days            float64 `json:"last_30_days"`
	DailyAverage7d        float64 `json:"daily_average_7d"`
	DailyAverage30d       float64 `json:"daily_average_30d"`
	ProjectedMonthly7d    float64 `json:"projected_monthly_7d_trend"`
	ProjectedMonthly30d   float64 `json:"projected_monthly_30d_trend"`
	WeeklyTarget          float64 `json:"weekly_target"`
	MonthlyTarget         float64 `json:"monthly_target"`
	WeeklyProgressPercent float64 `json:"weekly_progress_pct"`
}

// GetDashboardStats computes the tracker dashboard for the trailing window.
func GetDashboardStats(ctx context.Context, db *sql.DB, days int) (*DashboardStats, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := dayCutoff(days)
	s := &DashboardStats{PeriodDays: days}

	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clicks WHERE clicked_at >= ?`, cutoff).Scan(&s.TotalClicks); err != nil {
		return nil, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM conversions WHERE converted_at >= ?`, cutoff).Scan(&s.TotalConversions); err != nil {
		return nil, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM conversions WHERE converted_at >= ?`, cutoff).Scan(&s.TotalRevenue); err != nil {
		return nil, err
	}
	if err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM conversions WHERE converted_at >= ? AND is_recurring = 1`, cutoff).Scan(&s.RecurringRevenue); err != nil {
		return nil, err
	}
	if s.TotalClicks > 0 {
		s.ConversionRate = round2(float64(s.TotalConversions) / float64(s.TotalClicks) * 100)
	}
	if s.TotalConversions > 0 {
		s.AvgRevenuePerConversion = round2(s.TotalRevenue / float64(s.TotalConversions))
	}
	s.TotalRevenue = round2(s.TotalRevenue)
	s.RecurringRevenue = round2(s.RecurringRevenue)

	rows, err := db.QueryContext(ctx, `SELECT product_name, short_code, clicks, conversions, revenue FROM (
            SELECT l.product_name, l.short_code,
                (SELECT COUNT(*) FROM clicks c WHERE c.link_id = l.id AND c.clicked_at >= ?) AS clicks,
                (SELECT COUNT(*) FROM conversions cv WHERE cv.link_id = l.id AND cv.converted_at >= ?) AS conversions,
                (SELECT COALESCE(SUM(cv.amount), 0) FROM conversions cv WHERE cv.link_id = l.id AND cv.converted_at >= ?) AS revenue
            FROM links l)
        WHERE clicks > 0 OR conversions > 0
        ORDER BY revenue DESC, conversions DESC, clicks DESC
        LIMIT 10`, cutoff, cutoff, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var t TopLink
		if err := rows.Scan(&t.ProductName, &t.ShortCode, &t.Clicks, &t.Conversions, &t.Revenue); err != nil {
			return nil, err
		}
		t.Revenue = round2(t.Revenue)
		s.TopLinks = append(s.TopLinks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	prows, err := db.QueryContext(ctx, `SELECT platform, COUNT(*) AS count
        FROM clicks
        WHERE clicked_at >= ? AND platform IS NOT NULL AND platform != ''
        GROUP BY platform
        ORDER BY count DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer prows.Close()
	for prows.Next() {
		var p PlatformClicks
		if err := prows.Scan(&p.Platform, &p.Count); err != nil {
			return nil, err
		}
		s.ClicksByPlatform = append(s.ClicksByPlatform, p)
	}
	return s, prows.Err()
}

// GetRevenueByDay returns the daily conversion/revenue breakdown, newest
// day first.
func GetRevenueByDay(ctx context.Context, db *sql.DB, days int) ([]DailyRevenue, error) {
	cutoff := dayCutoff(days)
	rows, err := db.QueryContext(ctx, `SELECT DATE(converted_at) AS date,
            COUNT(*) AS conversions,
            COALESCE(SUM(amount), 0) AS revenue
        FROM conversions
        WHERE converted_at >= ?
        GROUP BY DATE(converted_at)
        ORDER BY date DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []DailyRevenue
	for rows.Next() {
		var d DailyRevenue
		if err := rows.Scan(&d.Date, &d.Conversions, &d.Revenue); err != nil {
			return nil, err
		}
		d.Revenue = round2(d.Revenue)
		out = append(out, d)
	}
	return out, rows.Err()
}

// ProjectRevenue extrapolates monthly revenue from the 7- and 30-day
// trailing averages.
func ProjectRevenue(ctx context.Context, db *sql.DB, weeklyTarget, monthlyTarget float64) (*Projection, error) {
	rev7, err := totalRevenueSince(ctx, db, 7)
	if err != nil {
		return nil, err
	}
	rev30, err := totalRevenueSince(ctx, db, 30)
	if err != nil {
		return nil, err
	}
	if weeklyTarget <= 0 {
		weeklyTarget = 10000
	}
	if monthlyTarget <= 0 {
		monthlyTarget = 40000
	}
	p := &Projection{
		Last7Days:           round2(rev7),
		Last30Days:          round2(rev30),
		DailyAverage7d:      round2(rev7 / 7),
		DailyAverage30d:     round2(rev30 / 30),
		ProjectedMonthly7d:  round2(rev7 / 7 * 30),
		ProjectedMonthly30d: round2(rev30 / 30 * 30),
		WeeklyTarget:        weeklyTarget,
		MonthlyTarget:       monthlyTarget,
	}
	p.WeeklyProgressPercent = round1(p.DailyAverage7d * 7 / weeklyTarget * 100)
	return p, nil
}

func totalRevenueSince(ctx context.Context, db *sql.DB, days int) (float64, error) {
	cutoff := dayCutoff(days)
	var total float64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM conversions WHERE converted_at >= ?`, cutoff).Scan(&total)
	return total, err
}

func round2(f float64) float64 { return math.Round(f*100) / 100 }
func round1(f float64) float64 { return math.Round(f*10) / 10 }

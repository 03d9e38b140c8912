package perfdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"math/rand"
	"time"
)

// minSampleSize is the cutoff below which a grouping is too thin to rank.
const minSampleSize = 3

// allHookStyles is the explorable label space for hook styles.
var allHookStyles = []string{"hook", "tutorial", "storytime", "comparison", "results", "controversy"}

var dayNames = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// PatternRow is one GROUP BY bucket ranked by average score.
type PatternRow struct {
	Value       string  `json:"value"`
	Count       int64   `json:"count"`
	AvgScore    float64 `json:"avg_score"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions,omitempty"`
	Revenue     float64 `json:"revenue,omitempty"`
}

type Patterns struct {
	Hooks     []PatternRow `json:"hooks"`
	Topics    []PatternRow `json:"topics"`
	Products  []PatternRow `json:"products"`
	BestTimes []PatternRow `json:"best_times"`
	BestDays  []PatternRow `json:"best_days"`
}

// Recommendation is the engine's advice for the next piece of content.
type Recommendation struct {
	Timestamp time.Time `json:"timestamp"`
	HookStyle string    `json:"hook_style,omitempty"`
	Topic     string    `json:"topic,omitempty"`
	Product   string    `json:"product,omitempty"`
	PostHour  int       `json:"post_time"`
	Reasoning []string  `json:"reasoning"`
}

// AnalyzePatterns ranks hooks, topics, products, posting hours, and
// weekdays over the trailing window. Buckets with fewer than three
// samples are dropped.
func AnalyzePatterns(ctx context.Context, db *sql.DB, days int) (*Patterns, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := sqlTime(time.Now().AddDate(0, 0, -days))
	p := &Patterns{}

	var err error
	if p.Hooks, err = groupBy(ctx, db, "hook_style", cutoff, false); err != nil {
		return nil, err
	}
	if p.Topics, err = groupBy(ctx, db, "topic", cutoff, false); err != nil {
		return nil, err
	}
	if p.Products, err = groupBy(ctx, db, "product", cutoff, true); err != nil {
		return nil, err
	}
	if p.BestTimes, err = groupByInt(ctx, db, "hour_posted", cutoff); err != nil {
		return nil, err
	}
	dayRows, err := groupByInt(ctx, db, "day_of_week", cutoff)
	if err != nil {
		return nil, err
	}
	for i := range dayRows {
		var idx int
		fmt.Sscanf(dayRows[i].Value, "%d", &idx)
		if idx >= 0 && idx < len(dayNames) {
			dayRows[i].Value = dayNames[idx]
		}
	}
	p.BestDays = dayRows
	return p, nil
}

func groupBy(ctx context.Context, db *sql.DB, column, cutoff string, byRevenue bool) ([]PatternRow, error) {
	order := "avg_score DESC"
	if byRevenue {
		order = "total_revenue DESC, avg_score DESC"
	}
	// column is one of our own identifiers, never user input
	q := fmt.Sprintf(`SELECT %s,
            COUNT(*) AS count,
            AVG(performance_score) AS avg_score,
            SUM(clicks) AS total_clicks,
            SUM(conversions) AS total_conversions,
            SUM(revenue) AS total_revenue
        FROM content_performance
        WHERE posted_at >= ? AND %s IS NOT NULL AND %s != ''
        GROUP BY %s
        HAVING count >= %d
        ORDER BY %s`, column, column, column, column, minSampleSize, order)
	rows, err := db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PatternRow
	for rows.Next() {
		var r PatternRow
		if err := rows.Scan(&r.Value, &r.Count, &r.AvgScore, &r.Clicks, &r.Conversions, &r.Revenue); err != nil {
			return nil, err
		}
		r.AvgScore = math.Round(r.AvgScore*100) / 100
		out = append(out, r)
	}
	return out, rows.Err()
}

func groupByInt(ctx context.Context, db *sql.DB, column, cutoff string) ([]PatternRow, error) {
	q := fmt.Sprintf(`SELECT %s,
            COUNT(*) AS count,
            AVG(performance_score) AS avg_score,
            SUM(clicks) AS total_clicks
        FROM content_performance
        WHERE posted_at >= ?
        GROUP BY %s
        HAVING count >= %d
        ORDER BY avg_score DESC`, column, column, minSampleSize)
	rows, err := db.QueryContext(ctx, q, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PatternRow
	for rows.Next() {
		var r PatternRow
		var v int
		if err := rows.Scan(&v, &r.Count, &r.AvgScore, &r.Clicks); err != nil {
			return nil, err
		}
		r.Value = fmt.Sprintf("%d", v)
		r.AvgScore = math.Round(r.AvgScore*100) / 100
		out = append(out, r)
	}
	return out, rows.Err()
}

// Recommend picks the next hook/topic/product/posting hour. 80% of the
// time it exploits the best-ranked hook; otherwise it explores a style
// with no ranked samples yet. rng may be nil for the default source.
func Recommend(ctx context.Context, db *sql.DB, rng *rand.Rand) (*Recommendation, error) {
	patterns, err := AnalyzePatterns(ctx, db, 30)
	if err != nil {
		return nil, err
	}
	return recommendFrom(patterns, rng), nil
}

func recommendFrom(patterns *Patterns, rng *rand.Rand) *Recommendation {
	roll := rand.Float64
	intn := rand.Intn
	if rng != nil {
		roll = rng.Float64
		intn = rng.Intn
	}

	rec := &Recommendation{Timestamp: time.Now().UTC(), PostHour: -1}

	if len(patterns.Hooks) > 0 {
		if roll() < 0.8 {
			best := patterns.Hooks[0]
			rec.HookStyle = best.Value
			rec.Reasoning = append(rec.Reasoning,
				fmt.Sprintf("using %q hook, avg score %.2f over %d posts", best.Value, best.AvgScore, best.Count))
		} else {
			used := map[string]bool{}
			for _, h := range patterns.Hooks {
				used[h.Value] = true
			}
			var unused []string
			for _, h := range allHookStyles {
				if !used[h] {
					unused = append(unused, h)
				}
			}
			if len(unused) > 0 {
				rec.HookStyle = unused[intn(len(unused))]
				rec.Reasoning = append(rec.Reasoning,
					fmt.Sprintf("exploring %q hook, no ranked samples yet", rec.HookStyle))
			} else {
				rec.HookStyle = patterns.Hooks[0].Value
			}
		}
	}
	if len(patterns.Topics) > 0 {
		best := patterns.Topics[0]
		rec.Topic = best.Value
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("topic %q has %d clicks", best.Value, best.Clicks))
	}
	if len(patterns.Products) > 0 {
		best := patterns.Products[0]
		rec.Product = best.Value
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("%q earned $%.2f in the window", best.Value, best.Revenue))
	}
	if len(patterns.BestTimes) > 0 {
		best := patterns.BestTimes[0]
		fmt.Sscanf(best.Value, "%d", &rec.PostHour)
		rec.Reasoning = append(rec.Reasoning,
			fmt.Sprintf("best posting hour %s:00, avg score %.2f", best.Value, best.AvgScore))
	}
	return rec
}

// UpdateStrategy persists the current top hooks and posting hours into
// strategy_config and refreshes the winning_patterns table.
func UpdateStrategy(ctx context.Context, db *sql.DB) error {
	patterns, err := AnalyzePatterns(ctx, db, 30)
	if err != nil {
		return err
	}
	now := sqlTime(time.Now())

	if len(patterns.Hooks) > 0 {
		top := make([]string, 0, 4)
		for _, h := range patterns.Hooks {
			top = append(top, h.Value)
			if len(top) == 4 {
				break
			}
		}
		if err := SetStrategyValue(ctx, db, "preferred_hooks", top); err != nil {
			return err
		}
	}
	if len(patterns.BestTimes) > 0 {
		var top []int
		for _, t := range patterns.BestTimes {
			var h int
			fmt.Sscanf(t.Value, "%d", &h)
			top = append(top, h)
			if len(top) == 3 {
				break
			}
		}
		if err := SetStrategyValue(ctx, db, "preferred_times", top); err != nil {
			return err
		}
	}
	for i, hook := range patterns.Hooks {
		if i == 5 {
			break
		}
		confidence := math.Min(float64(hook.Count)/10, 1.0)
		_, err := db.ExecContext(ctx, `INSERT INTO winning_patterns (pattern_type, pattern_value, sample_size, avg_score, confidence, last_updated)
            VALUES ('hook', ?, ?, ?, ?, ?)
            ON CONFLICT(pattern_type, pattern_value) DO UPDATE SET
                sample_size=excluded.sample_size,
                avg_score=excluded.avg_score,
                confidence=excluded.confidence,
                last_updated=excluded.last_updated`,
			hook.Value, hook.Count, hook.AvgScore, confidence, now)
		if err != nil {
			return err
		}
	}
	return nil
}

// SetStrategyValue stores a JSON-encoded strategy setting.
func SetStrategyValue(ctx context.Context, db *sql.DB, key string, value any) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO strategy_config (key, value, updated_at) VALUES (?, ?, ?)
        ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, string(b), sqlTime(time.Now()))
	return err
}

// GetStrategyValue decodes a strategy setting into out.
func GetStrategyValue(ctx context.Context, db *sql.DB, key string, out any) error {
	var raw string
	if err := db.QueryRowContext(ctx, `SELECT value FROM strategy_config WHERE key = ?`, key).Scan(&raw); err != nil {
		return err
	}
	return json.Unmarshal([]byte(raw), out)
}

// Report bundles totals, the daily breakdown, patterns, and a
// recommendation for the trailing window.
type Report struct {
	PeriodDays  int             `json:"period_days"`
	Totals      ReportTotals    `json:"totals"`
	Daily       []ReportDay     `json:"daily"`
	Patterns    *Patterns       `json:"patterns"`
	Recommended *Recommendation `json:"recommendations"`
}

type ReportTotals struct {
	Posts       int64   `json:"posts"`
	Views       int64   `json:"views"`
	Likes       int64   `json:"likes"`
	Comments    int64   `json:"comments"`
	Shares      int64   `json:"shares"`
	Clicks      int64   `json:"clicks"`
	Conversions int64   `json:"conversions"`
	Revenue     float64 `json:"revenue"`
	AvgScore    float64 `json:"avg_score"`
}

type ReportDay struct {
	Date    string  `json:"date"`
	Posts   int64   `json:"posts"`
	Views   int64   `json:"views"`
	Clicks  int64   `json:"clicks"`
	Revenue float64 `json:"revenue"`
}

// BuildReport generates the full performance report.
func BuildReport(ctx context.Context, db *sql.DB, days int) (*Report, error) {
	if days <= 0 {
		days = 30
	}
	cutoff := sqlTime(time.Now().AddDate(0, 0, -days))
	r := &Report{PeriodDays: days}

	row := db.QueryRowContext(ctx, `SELECT COUNT(*),
            COALESCE(SUM(views),0), COALESCE(SUM(likes),0), COALESCE(SUM(comments),0),
            COALESCE(SUM(shares),0), COALESCE(SUM(clicks),0), COALESCE(SUM(conversions),0),
            COALESCE(SUM(revenue),0), COALESCE(AVG(performance_score),0)
        FROM content_performance WHERE posted_at >= ?`, cutoff)
	if err := row.Scan(&r.Totals.Posts, &r.Totals.Views, &r.Totals.Likes, &r.Totals.Comments,
		&r.Totals.Shares, &r.Totals.Clicks, &r.Totals.Conversions, &r.Totals.Revenue, &r.Totals.AvgScore); err != nil {
		return nil, err
	}
	r.Totals.Revenue = math.Round(r.Totals.Revenue*100) / 100
	r.Totals.AvgScore = math.Round(r.Totals.AvgScore*100) / 100

	rows, err := db.QueryContext(ctx, `SELECT DATE(posted_at), COUNT(*),
            COALESCE(SUM(views),0), COALESCE(SUM(clicks),0), COALESCE(SUM(revenue),0)
        FROM content_performance
        WHERE posted_at >= ?
        GROUP BY DATE(posted_at)
        ORDER BY DATE(posted_at) DESC`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var d ReportDay
		if err := rows.Scan(&d.Date, &d.Posts, &d.Views, &d.Clicks, &d.Revenue); err != nil {
			return nil, err
		}
		d.Revenue = math.Round(d.Revenue*100) / 100
		r.Daily = append(r.Daily, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if r.Patterns, err = AnalyzePatterns(ctx, db, days); err != nil {
		return nil, err
	}
	if r.Recommended, err = Recommend(ctx, db, nil); err != nil {
		return nil, err
	}
	return r, nil
}

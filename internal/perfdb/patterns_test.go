package perfdb

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// seedContent inserts n posts with the given hook/topic/product and
// fixed engagement so average scores are deterministic.
func seedContent(t *testing.T, db *sql.DB, prefix, hook, topic, product string, n int, views, clicks int64, revenue float64) {
	t.Helper()
	ctx := context.Background()
	postedAt := time.Now().UTC().Add(-24 * time.Hour)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-%d", prefix, i)
		require.NoError(t, RecordContent(ctx, db, ContentRecord{
			ContentID: id,
			Platform:  "tiktok",
			HookStyle: hook,
			Topic:     topic,
			Product:   product,
			PostedAt:  postedAt,
		}))
		require.NoError(t, UpdateMetrics(ctx, db, id, MetricsUpdate{
			Views:   ptr(views),
			Clicks:  ptr(clicks),
			Revenue: ptr(revenue),
		}))
	}
}

func TestAnalyzePatternsThreshold(t *testing.T) {
	db := openTestDB(t)

	seedContent(t, db, "strong", "tutorial", "ai tools", "Jasper AI", 3, 1000, 10, 50)
	seedContent(t, db, "weak", "storytime", "fitness", "Gym App", 3, 100, 1, 5)
	// Only two samples, must be excluded by the threshold.
	seedContent(t, db, "thin", "controversy", "crypto", "Exchange", 2, 5000, 50, 500)

	p, err := AnalyzePatterns(context.Background(), db, 30)
	require.NoError(t, err)

	require.Len(t, p.Hooks, 2)
	require.Equal(t, "tutorial", p.Hooks[0].Value)
	require.EqualValues(t, 3, p.Hooks[0].Count)
	require.InDelta(t, 1500.0, p.Hooks[0].AvgScore, 0.001) // 1000 + 10*50
	require.Equal(t, "storytime", p.Hooks[1].Value)

	require.Len(t, p.Topics, 2)
	require.Equal(t, "ai tools", p.Topics[0].Value)
	require.EqualValues(t, 30, p.Topics[0].Clicks)

	// Products rank by revenue first.
	require.Len(t, p.Products, 2)
	require.Equal(t, "Jasper AI", p.Products[0].Value)
	require.InDelta(t, 150.0, p.Products[0].Revenue, 0.001)
}

func TestRecommendExploitAndExplore(t *testing.T) {
	db := openTestDB(t)
	seedContent(t, db, "best", "tutorial", "ai tools", "Jasper AI", 4, 1000, 10, 50)
	seedContent(t, db, "ok", "storytime", "fitness", "Gym App", 3, 100, 1, 5)

	patterns, err := AnalyzePatterns(context.Background(), db, 30)
	require.NoError(t, err)

	// Seed 1: first Float64 is ~0.604, below the 0.8 exploit cutoff.
	rec := recommendFrom(patterns, rand.New(rand.NewSource(1)))
	require.Equal(t, "tutorial", rec.HookStyle)
	require.Equal(t, "ai tools", rec.Topic)
	require.Equal(t, "Jasper AI", rec.Product)
	require.NotEmpty(t, rec.Reasoning)

	// Force exploration and check it never picks a ranked hook.
	var sawExplore bool
	for seed := int64(0); seed < 64; seed++ {
		r := recommendFrom(patterns, rand.New(rand.NewSource(seed)))
		if r.HookStyle != "tutorial" {
			sawExplore = true
			require.NotEqual(t, "storytime", r.HookStyle)
			require.Contains(t, allHookStyles, r.HookStyle)
		}
	}
	require.True(t, sawExplore)
}

func TestUpdateStrategyWritesPatterns(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	seedContent(t, db, "a", "tutorial", "ai tools", "Jasper AI", 5, 1000, 10, 50)
	seedContent(t, db, "b", "results", "saas", "ConvertKit", 12, 800, 8, 40)

	require.NoError(t, UpdateStrategy(ctx, db))

	var hooks []string
	require.NoError(t, GetStrategyValue(ctx, db, "preferred_hooks", &hooks))
	require.Equal(t, "tutorial", hooks[0])

	var sample int64
	var confidence float64
	row := db.QueryRowContext(ctx, `SELECT sample_size, confidence FROM winning_patterns WHERE pattern_type='hook' AND pattern_value='results'`)
	require.NoError(t, row.Scan(&sample, &confidence))
	require.EqualValues(t, 12, sample)
	// Confidence caps at 1.0 even past ten samples.
	require.InDelta(t, 1.0, confidence, 0.001)

	row = db.QueryRowContext(ctx, `SELECT confidence FROM winning_patterns WHERE pattern_type='hook' AND pattern_value='tutorial'`)
	require.NoError(t, row.Scan(&confidence))
	require.InDelta(t, 0.5, confidence, 0.001)
}

func TestBuildReportTotals(t *testing.T) {
	db := openTestDB(t)
	seedContent(t, db, "r", "tutorial", "ai tools", "Jasper AI", 3, 500, 5, 20)

	r, err := BuildReport(context.Background(), db, 30)
	require.NoError(t, err)
	require.EqualValues(t, 3, r.Totals.Posts)
	require.EqualValues(t, 1500, r.Totals.Views)
	require.EqualValues(t, 15, r.Totals.Clicks)
	require.InDelta(t, 60.0, r.Totals.Revenue, 0.001)
	require.Len(t, r.Daily, 1)
	require.NotNil(t, r.Patterns)
	require.NotNil(t, r.Recommended)
}

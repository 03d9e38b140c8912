package trackdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDashboardStatsArithmetic(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	winner, err := AddLink(ctx, db, "https://winner.example", "Winner", "", "", "")
	require.NoError(t, err)
	loser, err := AddLink(ctx, db, "https://loser.example", "Loser", "", "", "")
	require.NoError(t, err)
	_, err = AddLink(ctx, db, "https://idle.example", "Idle", "", "", "")
	require.NoError(t, err)

	for i := 0; i < 8; i++ {
		_, err := RecordClick(ctx, db, winner.ShortCode, "", "tiktok", "")
		require.NoError(t, err)
	}
	for i := 0; i < 2; i++ {
		_, err := RecordClick(ctx, db, loser.ShortCode, "", "youtube", "")
		require.NoError(t, err)
	}
	_, err = RecordConversion(ctx, db, winner.ShortCode, 100, false, "")
	require.NoError(t, err)
	_, err = RecordConversion(ctx, db, winner.ShortCode, 50, true, "")
	require.NoError(t, err)

	s, err := GetDashboardStats(ctx, db, 30)
	require.NoError(t, err)

	require.EqualValues(t, 10, s.TotalClicks)
	require.EqualValues(t, 2, s.TotalConversions)
	require.InDelta(t, 20.0, s.ConversionRate, 0.001) // 2/10
	require.InDelta(t, 150.0, s.TotalRevenue, 0.001)
	require.InDelta(t, 50.0, s.RecurringRevenue, 0.001)
	require.InDelta(t, 75.0, s.AvgRevenuePerConversion, 0.001)

	// Idle link must not appear; winner ranks first by revenue. The
	// per-link revenue must stay $150 no matter how many clicks the
	// link also has.
	require.Len(t, s.TopLinks, 2)
	require.Equal(t, "Winner", s.TopLinks[0].ProductName)
	require.EqualValues(t, 8, s.TopLinks[0].Clicks)
	require.EqualValues(t, 2, s.TopLinks[0].Conversions)
	require.InDelta(t, 150.0, s.TopLinks[0].Revenue, 0.001)
	require.Equal(t, "Loser", s.TopLinks[1].ProductName)
	require.Zero(t, s.TopLinks[1].Revenue)

	require.Len(t, s.ClicksByPlatform, 2)
	require.Equal(t, "tiktok", s.ClicksByPlatform[0].Platform)
	require.EqualValues(t, 8, s.ClicksByPlatform[0].Count)
}

func TestDashboardStatsEmptyDB(t *testing.T) {
	db := openTestDB(t)
	s, err := GetDashboardStats(context.Background(), db, 7)
	require.NoError(t, err)
	require.Zero(t, s.TotalClicks)
	require.Zero(t, s.ConversionRate)
	require.Zero(t, s.AvgRevenuePerConversion)
	require.Empty(t, s.TopLinks)
}

func TestProjectRevenue(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	link, err := AddLink(ctx, db, "https://pace.example", "Pace", "", "", "")
	require.NoError(t, err)
	_, err = RecordConversion(ctx, db, link.ShortCode, 700, false, "")
	require.NoError(t, err)

	p, err := ProjectRevenue(ctx, db, 10000, 40000)
	require.NoError(t, err)
	require.InDelta(t, 700, p.Last7Days, 0.001)
	require.InDelta(t, 100, p.DailyAverage7d, 0.001)
	require.InDelta(t, 3000, p.ProjectedMonthly7d, 0.001)
	// 100/day pace is 700/week against a 10k target.
	require.InDelta(t, 7.0, p.WeeklyProgressPercent, 0.001)
}

func TestRevenueByDay(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	link, err := AddLink(ctx, db, "https://daily.example", "Daily", "", "", "")
	require.NoError(t, err)
	_, err = RecordConversion(ctx, db, link.ShortCode, 10, false, "")
	require.NoError(t, err)
	_, err = RecordConversion(ctx, db, link.ShortCode, 15, false, "")
	require.NoError(t, err)

	days, err := GetRevenueByDay(ctx, db, 30)
	require.NoError(t, err)
	require.Len(t, days, 1)
	require.EqualValues(t, 2, days[0].Conversions)
	require.InDelta(t, 25, days[0].Revenue, 0.001)
}

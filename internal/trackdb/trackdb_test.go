package trackdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	require.NoError(t, InitSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestShortCodeStable(t *testing.T) {
	now := time.Now()
	a := ShortCode("https://example.com/product", now)
	b := ShortCode("https://example.com/product", now)
	require.Equal(t, a, b)
	require.Len(t, a, 8)

	c := ShortCode("https://example.com/product", now.Add(time.Nanosecond))
	require.NotEqual(t, a, c)
}

func TestAddAndGetLink(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	link, err := AddLink(ctx, db, "https://convertkit.com?ref=demo", "ConvertKit", "ConvertKit Affiliates", "30% recurring", "")
	require.NoError(t, err)
	require.NotZero(t, link.ID)
	require.Len(t, link.ShortCode, 8)

	got, err := GetLinkByCode(ctx, db, link.ShortCode)
	require.NoError(t, err)
	require.Equal(t, "ConvertKit", got.ProductName)
	require.Equal(t, "https://convertkit.com?ref=demo", got.OriginalURL)
	require.Equal(t, "ConvertKit Affiliates", got.Program.String)

	_, err = GetLinkByCode(ctx, db, "nope1234")
	require.ErrorIs(t, err, ErrLinkNotFound)
}

func TestAddLinkRejectsEmptyURL(t *testing.T) {
	db := openTestDB(t)
	_, err := AddLink(context.Background(), db, "  ", "X", "", "", "")
	require.Error(t, err)
}

func TestRecordClickAndConversion(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	link, err := AddLink(ctx, db, "https://jasper.ai?ref=demo", "Jasper AI", "", "", "")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := RecordClick(ctx, db, link.ShortCode, "bio", "tiktok", "launch")
		require.NoError(t, err)
	}
	_, err = RecordConversion(ctx, db, link.ShortCode, 29.99, true, "first sale")
	require.NoError(t, err)

	// Unknown codes must not create orphan events.
	_, err = RecordClick(ctx, db, "missing1", "", "", "")
	require.ErrorIs(t, err, ErrLinkNotFound)
	_, err = RecordConversion(ctx, db, "missing1", 10, false, "")
	require.ErrorIs(t, err, ErrLinkNotFound)

	clicks, err := ListClicks(ctx, db, link.ID, 30)
	require.NoError(t, err)
	require.Len(t, clicks, 5)
	require.Equal(t, "tiktok", clicks[0].Platform.String)

	all, err := ListClicks(ctx, db, 0, 30)
	require.NoError(t, err)
	require.Len(t, all, 5)
	require.Equal(t, "Jasper AI", all[0].ProductName)
	require.Equal(t, link.ShortCode, all[0].ShortCode)

	convs, err := ListConversions(ctx, db, 0, 30)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	require.InDelta(t, 29.99, convs[0].Amount, 0.001)
	require.True(t, convs[0].IsRecurring)
}

func TestListLinksAggregates(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	first, err := AddLink(ctx, db, "https://one.example", "One", "", "", "")
	require.NoError(t, err)
	second, err := AddLink(ctx, db, "https://two.example", "Two", "", "", "")
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := RecordClick(ctx, db, first.ShortCode, "", "youtube", "")
		require.NoError(t, err)
	}
	_, err = RecordConversion(ctx, db, first.ShortCode, 50, false, "")
	require.NoError(t, err)
	_, err = RecordConversion(ctx, db, first.ShortCode, 25, false, "")
	require.NoError(t, err)
	_, err = RecordClick(ctx, db, second.ShortCode, "", "", "")
	require.NoError(t, err)

	links, err := ListLinks(ctx, db, 0)
	require.NoError(t, err)
	require.Len(t, links, 2)

	byName := map[string]LinkSummary{}
	for _, l := range links {
		byName[l.ProductName] = l
	}
	require.EqualValues(t, 3, byName["One"].TotalClicks)
	require.EqualValues(t, 2, byName["One"].TotalConversions)
	require.InDelta(t, 75, byName["One"].TotalRevenue, 0.001)
	require.EqualValues(t, 1, byName["Two"].TotalClicks)
	require.EqualValues(t, 0, byName["Two"].TotalConversions)
}

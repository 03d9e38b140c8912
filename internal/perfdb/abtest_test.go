package perfdb

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestABTestLifecycle(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	test, err := StartABTest(ctx, db, "hook-style", "question hook", "bold claim")
	require.NoError(t, err)
	require.Equal(t, "running", test.Status)

	// Variant B clearly outperforms A.
	for i := 0; i < 50; i++ {
		_, err := RecordABResult(ctx, db, test.ID, "a", 100)
		require.NoError(t, err)
	}
	var last *ABTest
	for i := 0; i < 50; i++ {
		last, err = RecordABResult(ctx, db, test.ID, "b", 200)
		require.NoError(t, err)
	}

	require.Equal(t, "completed", last.Status)
	require.Equal(t, "bold claim", last.Winner)
	require.EqualValues(t, 50, last.AImpressions)
	require.EqualValues(t, 50, last.BImpressions)

	// Completed tests reject further results.
	_, err = RecordABResult(ctx, db, test.ID, "a", 100)
	require.Error(t, err)
}

func TestABTestTieWithinMargin(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	test, err := StartABTest(ctx, db, "close-call", "A", "B")
	require.NoError(t, err)

	// 105 vs 100 average is inside the 10% winner margin.
	for i := 0; i < 50; i++ {
		_, err := RecordABResult(ctx, db, test.ID, "a", 100)
		require.NoError(t, err)
	}
	var last *ABTest
	for i := 0; i < 50; i++ {
		last, err = RecordABResult(ctx, db, test.ID, "b", 105)
		require.NoError(t, err)
	}
	require.Equal(t, "completed", last.Status)
	require.Equal(t, "tie", last.Winner)
}

func TestABTestValidation(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := StartABTest(ctx, db, "", "A", "B")
	require.Error(t, err)

	test, err := StartABTest(ctx, db, "ok", "A", "B")
	require.NoError(t, err)
	_, err = RecordABResult(ctx, db, test.ID, "c", 1)
	require.Error(t, err)
	_, err = RecordABResult(ctx, db, 9999, "a", 1)
	require.ErrorIs(t, err, ErrTestNotFound)
}

func TestListABTestsFilter(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	_, err := StartABTest(ctx, db, "one", "A", "B")
	require.NoError(t, err)
	_, err = StartABTest(ctx, db, "two", "A", "B")
	require.NoError(t, err)

	running, err := ListABTests(ctx, db, "running")
	require.NoError(t, err)
	require.Len(t, running, 2)

	done, err := ListABTests(ctx, db, "completed")
	require.NoError(t, err)
	require.Empty(t, done)
}

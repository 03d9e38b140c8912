package main

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"affkit/internal/config"
	"affkit/internal/queue"
	"affkit/internal/trackdb"
)

func openWorkerDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := trackdb.Open(filepath.Join(t.TempDir(), "tracker.db"))
	require.NoError(t, err)
	require.NoError(t, trackdb.InitSchema(db))
	require.NoError(t, queue.InitSchema(db))
	t.Cleanup(func() { db.Close() })
	return db
}

func TestWorkQueueStopsWhenDrained(t *testing.T) {
	db := openWorkerDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := queue.Enqueue(ctx, db, "tiktok", "due post", "", "", now.Add(-time.Hour))
	require.NoError(t, err)
	_, err = queue.Enqueue(ctx, db, "youtube", "future post", "", "", now.Add(24*time.Hour))
	require.NoError(t, err)

	var cfg config.Config
	cfg.Queue.PostCommand = "true"
	cfg.Queue.MaxDailyPosts = 5

	require.NoError(t, workQueue(ctx, cfg, db))

	posted, err := queue.List(ctx, db, queue.StatusPosted, 0)
	require.NoError(t, err)
	require.Len(t, posted, 1)
	require.Equal(t, "due post", posted[0].Caption)

	// The future post stays pending for the next run.
	pending, err := queue.List(ctx, db, queue.StatusPending, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, "future post", pending[0].Caption)
}

func TestWorkQueueMarksCommandFailures(t *testing.T) {
	db := openWorkerDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for i := 0; i < 2; i++ {
		_, err := queue.Enqueue(ctx, db, "tiktok", "doomed post", "", "", now.Add(-time.Minute))
		require.NoError(t, err)
	}

	var cfg config.Config
	cfg.Queue.PostCommand = "false"
	cfg.Queue.MaxDailyPosts = 5

	require.NoError(t, workQueue(ctx, cfg, db))

	failed, err := queue.List(ctx, db, queue.StatusFailed, 0)
	require.NoError(t, err)
	require.Len(t, failed, 2)

	pending, err := queue.List(ctx, db, queue.StatusPending, 0)
	require.NoError(t, err)
	require.Empty(t, pending)
}

func TestWorkQueueRequiresPostCommand(t *testing.T) {
	db := openWorkerDB(t)
	var cfg config.Config
	require.Error(t, workQueue(context.Background(), cfg, db))
}

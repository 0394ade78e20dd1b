package history

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	store, err := Open(context.Background(), filepath.Join(t.TempDir(), "history.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store
}

func TestStore_RecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	entries := []Entry{
		{Operation: "upload", Account: "alice@cloud.example.com", Path: "docs/a.txt", Bytes: 42, Duration: 120 * time.Millisecond, Outcome: "ok"},
		{Operation: "download", Account: "alice@cloud.example.com", Path: "docs/b.txt", Bytes: 1024, Outcome: "ok"},
		{Operation: "delete", Account: "alice@cloud.example.com", Path: "docs/c.txt", Outcome: "dav: not found"},
	}

	for _, e := range entries {
		require.NoError(t, store.Record(ctx, e))
	}

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 3)

	// Most recent first.
	assert.Equal(t, "delete", got[0].Operation)
	assert.Equal(t, "dav: not found", got[0].Outcome)
	assert.Equal(t, "upload", got[2].Operation)
	assert.Equal(t, int64(42), got[2].Bytes)
	assert.Equal(t, 120*time.Millisecond, got[2].Duration)
	assert.False(t, got[2].Timestamp.IsZero())
}

func TestStore_RecentHonorsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, Entry{Operation: "list", Account: "a@b", Path: "/", Outcome: "ok"}))
	}

	got, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestStore_EmptyLedger(t *testing.T) {
	store := openTestStore(t)

	got, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// Reopening the same database must not re-run migrations destructively.
func TestStore_ReopenKeepsData(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "history.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	store, err := Open(ctx, path, logger)
	require.NoError(t, err)
	require.NoError(t, store.Record(ctx, Entry{Operation: "mkdir", Account: "a@b", Path: "d", Outcome: "ok"}))
	require.NoError(t, store.Close())

	store, err = Open(ctx, path, logger)
	require.NoError(t, err)

	defer store.Close()

	got, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "mkdir", got[0].Operation)
}

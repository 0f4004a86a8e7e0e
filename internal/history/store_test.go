package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"strata/internal/core/ports"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, op := range []string{"shape.extract", "diff.structural", "usage.find"} {
		require.NoError(t, store.Record(ctx, ports.AuditEntry{
			ID:        uuid.NewString(),
			Operation: op,
			Path:      "src/main.rs",
			Duration:  25 * time.Millisecond,
			RowCount:  i + 1,
			Truncated: i == 2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	entries, err := store.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// newest first
	assert.Equal(t, "usage.find", entries[0].Operation)
	assert.True(t, entries[0].Truncated)
	assert.Equal(t, 3, entries[0].RowCount)
	assert.Equal(t, 25*time.Millisecond, entries[0].Duration)
	assert.Equal(t, "shape.extract", entries[2].Operation)
}

func TestRecentRespectsLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.Record(ctx, ports.AuditEntry{
			ID:        uuid.NewString(),
			Operation: "shape.extract",
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}))
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestOpenRejectsDirectory(t *testing.T) {
	_, err := Open(t.TempDir())
	assert.Error(t, err)
}

func TestOpenCreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "deep", "audit.db")
	store, err := Open(path)
	require.NoError(t, err)
	defer store.Close()
	assert.Equal(t, path, store.Path())
}

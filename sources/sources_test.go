package sources

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/agentx56431/cei6/records"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Test helper: create a test source store
func createTestSourceStore(t *testing.T) *SourceStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "state.db")
	store, err := NewSourceStore(dbPath)
	require.NoError(t, err, "should create source store")
	t.Cleanup(func() { store.Close() })
	return store
}

// TestNewSourceStore_InitializesSchema verifies an empty store is queryable
func TestNewSourceStore_InitializesSchema(t *testing.T) {
	store := createTestSourceStore(t)

	sources, err := store.ListSources()
	require.NoError(t, err, "sources table should exist")
	assert.Empty(t, sources)
}

// TestNewSourceStore_Reopen verifies state survives reopening the database
func TestNewSourceStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "state.db")

	store, err := NewSourceStore(dbPath)
	require.NoError(t, err)
	_, err = store.EnsureSource(records.Blog, "https://cei.org/blog/")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewSourceStore(dbPath)
	require.NoError(t, err)
	defer store.Close()

	source, err := store.GetSource(records.Blog)
	require.NoError(t, err)
	assert.Equal(t, "https://cei.org/blog/", source.ListingURL)
}

// TestEnsureSource_Idempotent verifies re-registration keeps state and
// refreshes the listing URL
func TestEnsureSource_Idempotent(t *testing.T) {
	store := createTestSourceStore(t)

	first, err := store.EnsureSource(records.Study, "https://cei.org/studies/")
	require.NoError(t, err)
	assert.Equal(t, records.Study, first.ContentType)
	assert.Zero(t, first.FetchErrorCount)
	assert.Nil(t, first.LastFetchedAt)
	assert.Nil(t, first.LastRunID)

	require.NoError(t, store.AddWritten(records.Study, 4, 0))

	second, err := store.EnsureSource(records.Study, "https://example.test/studies/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.test/studies/", second.ListingURL)
	assert.Equal(t, 4, second.ListingLines)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)
}

// TestEnsureSource_UnknownType verifies category validation
func TestEnsureSource_UnknownType(t *testing.T) {
	store := createTestSourceStore(t)

	_, err := store.EnsureSource(records.ContentType("podcast"), "x")
	assert.ErrorIs(t, err, records.ErrUnknownContentType)
}

// TestGetSource_NotFound verifies the sentinel error
func TestGetSource_NotFound(t *testing.T) {
	store := createTestSourceStore(t)

	_, err := store.GetSource(records.OpEd)
	assert.ErrorIs(t, err, ErrSourceNotFound)
}

// TestRecordFailureThenSuccess verifies error bookkeeping
func TestRecordFailureThenSuccess(t *testing.T) {
	store := createTestSourceStore(t)
	_, err := store.EnsureSource(records.Blog, "https://cei.org/blog/")
	require.NoError(t, err)

	run1 := uuid.New()
	require.NoError(t, store.RecordFailure(records.Blog, run1, errors.New("HTTP error: 503")))
	require.NoError(t, store.RecordFailure(records.Blog, run1, errors.New("timeout")))

	source, err := store.GetSource(records.Blog)
	require.NoError(t, err)
	assert.Equal(t, 2, source.FetchErrorCount)
	require.NotNil(t, source.LastError)
	assert.Equal(t, "timeout", *source.LastError)
	assert.False(t, source.Healthy())
	require.NotNil(t, source.LastRunID)
	assert.Equal(t, run1, *source.LastRunID)

	run2 := uuid.New()
	fetchedAt := time.Date(2025, 8, 18, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.RecordSuccess(records.Blog, run2, fetchedAt, 30))

	source, err = store.GetSource(records.Blog)
	require.NoError(t, err)
	assert.Zero(t, source.FetchErrorCount)
	assert.Nil(t, source.LastError)
	assert.True(t, source.Healthy())
	assert.Equal(t, 30, source.LastItemCount)
	require.NotNil(t, source.LastFetchedAt)
	assert.True(t, fetchedAt.Equal(*source.LastFetchedAt))
	assert.Equal(t, run2, *source.LastRunID)
}

// TestAddWritten_Accumulates verifies line counters add up across runs
func TestAddWritten_Accumulates(t *testing.T) {
	store := createTestSourceStore(t)
	_, err := store.EnsureSource(records.NewsRelease, "https://cei.org/news_releases/")
	require.NoError(t, err)

	require.NoError(t, store.AddWritten(records.NewsRelease, 10, 3))
	require.NoError(t, store.AddWritten(records.NewsRelease, 2, 0))

	source, err := store.GetSource(records.NewsRelease)
	require.NoError(t, err)
	assert.Equal(t, 12, source.ListingLines)
	assert.Equal(t, 3, source.DetailLines)
}

// TestUpdates_UnknownSource verifies updates of untracked categories fail
func TestUpdates_UnknownSource(t *testing.T) {
	store := createTestSourceStore(t)

	assert.ErrorIs(t, store.AddWritten(records.Blog, 1, 1), ErrSourceNotFound)
	assert.ErrorIs(t, store.RecordFailure(records.Blog, uuid.New(), errors.New("x")), ErrSourceNotFound)
	assert.ErrorIs(t, store.RecordSuccess(records.Blog, uuid.New(), time.Now(), 1), ErrSourceNotFound)
}

// TestListSources_Ordered verifies categories are listed by name
func TestListSources_Ordered(t *testing.T) {
	store := createTestSourceStore(t)
	for _, ct := range []records.ContentType{records.Study, records.Blog, records.OpEd} {
		_, err := store.EnsureSource(ct, "u")
		require.NoError(t, err)
	}

	sources, err := store.ListSources()
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, records.Blog, sources[0].ContentType)
	assert.Equal(t, records.OpEd, sources[1].ContentType)
	assert.Equal(t, records.Study, sources[2].ContentType)
}

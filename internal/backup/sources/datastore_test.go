package sources

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
)

func newTestStore(t *testing.T) datastore.Interface {
	t.Helper()

	settings := &conf.Settings{}
	settings.Output.SQLite.Enabled = true
	settings.Output.SQLite.Path = filepath.Join(t.TempDir(), "test.db")

	store, err := datastore.New(settings)
	require.NoError(t, err)
	require.NoError(t, store.Open())
	t.Cleanup(func() { _ = store.Close() })

	return store
}

func seedData(t *testing.T, store datastore.Interface) {
	t.Helper()

	require.NoError(t, store.InsertMovie(&datastore.Movie{
		ID:          "tt0097874",
		Title:       "Driving Miss Daisy",
		ReleaseDate: "December 13, 1989",
		ReviewCount: 2,
		LastScrape:  time.Now(),
	}))
	title := "Lovely"
	body := "A gentle film."
	rating := 8
	require.NoError(t, store.UpsertReviews([]datastore.Review{
		{
			ID:         "rw0000001",
			MovieID:    "tt0097874",
			Author:     "someone",
			Title:      &title,
			Body:       &body,
			Rating:     &rating,
			Date:       "Jan 1, 2026",
			Upvotes:    3,
			LastUpdate: time.Now(),
		},
		{
			ID:         "rw0000002",
			MovieID:    "tt0097874",
			Author:     "someone else",
			Date:       "Jan 2, 2026",
			LastUpdate: time.Now(),
		},
	}))
	overall := 2
	require.NoError(t, store.SaveSentimentAndClearFlag(&datastore.Sentiment{
		ReviewID: "rw0000001",
		Overall:  &overall,
	}))
}

func TestDatastoreSource_SnapshotReviews(t *testing.T) {
	store := newTestStore(t)
	seedData(t, store)
	dir := t.TempDir()

	source := NewDatastoreSource(store)
	source.clock = func() time.Time { return time.Date(2026, 3, 1, 10, 30, 0, 0, time.Local) }

	meta, path, err := source.Snapshot(context.Background(), "reviews", dir)
	require.NoError(t, err)
	assert.Equal(t, "reviews_20260301_103000.parquet", filepath.Base(path))
	assert.Equal(t, 2, meta.Rows)
	assert.Positive(t, meta.Size)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	info, err := f.Stat()
	require.NoError(t, err)

	reader := parquet.NewGenericReader[reviewRow](f)
	defer reader.Close()
	rows := make([]reviewRow, 2)
	n, _ := reader.Read(rows)
	require.Equal(t, 2, n)
	assert.Equal(t, info.Size(), meta.Size)

	byID := map[string]reviewRow{rows[0].ID: rows[0], rows[1].ID: rows[1]}
	first := byID["rw0000001"]
	require.NotNil(t, first.Rating)
	assert.Equal(t, int32(8), *first.Rating)
	second := byID["rw0000002"]
	assert.Nil(t, second.Title)
	assert.Nil(t, second.Rating)
	assert.Equal(t, int32(1), second.ToProcess)
}

func TestDatastoreSource_SnapshotAllTables(t *testing.T) {
	store := newTestStore(t)
	seedData(t, store)
	dir := t.TempDir()

	source := NewDatastoreSource(store)
	assert.Equal(t, []string{"movies", "reviews", "sentiments"}, source.Tables())

	for _, table := range source.Tables() {
		meta, path, err := source.Snapshot(context.Background(), table, dir)
		require.NoError(t, err, table)
		assert.FileExists(t, path)
		parsed, _, ok := backup.ParseSnapshotName(filepath.Base(path))
		require.True(t, ok)
		assert.Equal(t, table, parsed)
		assert.Positive(t, meta.Size)
	}
}

func TestDatastoreSource_EmptyTable(t *testing.T) {
	store := newTestStore(t)
	dir := t.TempDir()

	source := NewDatastoreSource(store)
	meta, path, err := source.Snapshot(context.Background(), "movies", dir)
	require.NoError(t, err)
	assert.Equal(t, 0, meta.Rows)
	assert.FileExists(t, path)
}

func TestDatastoreSource_UnknownTable(t *testing.T) {
	source := NewDatastoreSource(newTestStore(t))
	_, _, err := source.Snapshot(context.Background(), "users", t.TempDir())
	assert.Error(t, err)
}

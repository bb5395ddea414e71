package ingest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
	"github.com/ay5710/cinesense/internal/scraper"
)

// fakeSource serves the secondary-fetch paths from canned data.
type fakeSource struct {
	spoilerBodies map[string]string
	exactVotes    map[string][2]int
	spoilerCalls  int
	votesCalls    int
}

func (f *fakeSource) Metadata(ctx context.Context, movieID string) (string, string, error) {
	return "", "", errors.NewStd("not implemented")
}

func (f *fakeSource) ReviewCount(ctx context.Context, movieID string) (int, error) {
	return 0, errors.NewStd("not implemented")
}

func (f *fakeSource) Reviews(ctx context.Context, movieID string, total int) ([]scraper.ScrapedReview, error) {
	return nil, errors.NewStd("not implemented")
}

func (f *fakeSource) SpoilerBody(ctx context.Context, reviewID string) (string, error) {
	f.spoilerCalls++
	body, ok := f.spoilerBodies[reviewID]
	if !ok {
		return "", errors.NewStd("spoiler body not found")
	}
	return body, nil
}

func (f *fakeSource) ExactVotes(ctx context.Context, reviewID string) (int, int, error) {
	f.votesCalls++
	votes, ok := f.exactVotes[reviewID]
	if !ok {
		return 0, 0, errors.NewStd("exact votes not found")
	}
	return votes[0], votes[1], nil
}

func scrapedReview(id, title, body, up, down string) scraper.ScrapedReview {
	return scraper.ScrapedReview{
		ID:        id,
		Author:    "author-" + id,
		Title:     title,
		Body:      body,
		Date:      "Dec 20, 1989",
		Upvotes:   up,
		Downvotes: down,
	}
}

func TestMerge_InsertsBatch(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	m := NewMerger(store, &fakeSource{})
	batch := []scraper.ScrapedReview{
		scrapedReview("rw1", "Great", "Loved it.", "12", "3"),
		scrapedReview("rw2", "Meh", "It was fine.", "0", "0"),
	}
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	count, err := store.CountReviews("tt0097874")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	flagged, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Len(t, flagged, 2)
}

func TestMerge_SpoilerFetchFillsBlankBody(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	source := &fakeSource{spoilerBodies: map[string]string{"rw1": "The hidden text."}}
	m := NewMerger(store, source)

	batch := []scraper.ScrapedReview{scrapedReview("rw1", "Spoilery", "", "5", "1")}
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	assert.Equal(t, 1, source.spoilerCalls)

	stored, err := store.GetReview("rw1")
	require.NoError(t, err)
	require.NotNil(t, stored.Body)
	assert.Equal(t, "The hidden text.", *stored.Body)
}

func TestMerge_PersistsNullBodyWhenSpoilerFetchFails(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	m := NewMerger(store, &fakeSource{})
	batch := []scraper.ScrapedReview{scrapedReview("rw1", "Spoilery", "", "5", "1")}
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	stored, err := store.GetReview("rw1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Nil(t, stored.Body)
	assert.Equal(t, 1, stored.ToProcess)
}

func TestMerge_AbbreviatedVotesResolvedExactly(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	source := &fakeSource{exactVotes: map[string][2]int{"rw1": {1216, 34}}}
	m := NewMerger(store, source)

	batch := []scraper.ScrapedReview{scrapedReview("rw1", "Popular", "Everyone agrees.", "1.2K", "34")}
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	assert.Equal(t, 1, source.votesCalls)

	stored, err := store.GetReview("rw1")
	require.NoError(t, err)
	assert.Equal(t, 1216, stored.Upvotes)
	assert.Equal(t, 34, stored.Downvotes)
}

func TestMerge_DropsRowWithUnresolvableVotes(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	// No exact votes available, so the K-suffixed row cannot be resolved
	m := NewMerger(store, &fakeSource{})
	batch := []scraper.ScrapedReview{
		scrapedReview("rw1", "Popular", "Everyone agrees.", "1.2K", "34"),
		scrapedReview("rw2", "Fine", "Okay movie.", "7", "2"),
	}
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	// Only the clean row landed
	count, err := store.CountReviews("tt0097874")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	stored, err := store.GetReview("rw2")
	require.NoError(t, err)
	require.NotNil(t, stored)
}

func TestMerge_RetryWholesaleIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.InsertMovie(&datastore.Movie{ID: "tt0097874"}))

	m := NewMerger(store, &fakeSource{})
	batch := []scraper.ScrapedReview{scrapedReview("rw1", "Great", "Loved it.", "12", "3")}

	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))
	require.NoError(t, store.SaveSentimentAndClearFlag(&datastore.Sentiment{ReviewID: "rw1"}))

	// Retrying the same batch must not re-flag the processed row
	require.NoError(t, m.Merge(context.Background(), "tt0097874", batch, time.Now()))

	stored, err := store.GetReview("rw1")
	require.NoError(t, err)
	assert.Equal(t, 0, stored.ToProcess)
}

func TestParseVoteCount(t *testing.T) {
	tests := []struct {
		name        string
		input       string
		count       int
		abbreviated bool
		wantErr     bool
	}{
		{"plain", "42", 42, false, false},
		{"zero", "0", 0, false, false},
		{"with_comma", "1,234", 1234, false, false},
		{"abbreviated", "1.2K", 0, true, false},
		{"abbreviated_lower", "3k", 0, true, false},
		{"empty", "", 0, false, true},
		{"garbage", "lots", 0, false, true},
		{"negative", "-4", 0, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			count, abbreviated, err := parseVoteCount(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.count, count)
			assert.Equal(t, tt.abbreviated, abbreviated)
		})
	}
}

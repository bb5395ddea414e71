package sentiment

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
)

const allMentionedAnswer = `[('Storytelling', 'mentioned', 'positive'), ('Acting performance', 'mentioned', 'very positive'), ('Cinematography and visual style', 'not mentioned', 'NA'), ('Music and sound design', 'mentioned', 'neutral'), ('Theme and values', 'not mentioned', 'NA'), ('Overall', 'excellent')]`

type fakeClassifier struct {
	answer string
	err    error
	delay  time.Duration
	calls  int
}

func (f *fakeClassifier) Classify(ctx context.Context, title, body string) (string, error) {
	f.calls++
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

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

func seedFlaggedReviews(t *testing.T, store datastore.Interface, movieID string, n int) []string {
	t.Helper()

	require.NoError(t, store.InsertMovie(&datastore.Movie{
		ID:          movieID,
		Title:       "Driving Miss Daisy",
		ReleaseDate: "December 13, 1989",
		ReviewCount: n,
		LastScrape:  time.Now(),
	}))

	reviews := make([]datastore.Review, 0, n)
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("rw%07d", i+1)
		title := fmt.Sprintf("Review %d", i+1)
		body := "A gentle film that rewards patience."
		reviews = append(reviews, datastore.Review{
			ID:         id,
			MovieID:    movieID,
			Author:     "someone",
			Title:      &title,
			Body:       &body,
			Date:       "Jan 1, 2026",
			LastUpdate: time.Now(),
		})
		ids = append(ids, id)
	}
	require.NoError(t, store.UpsertReviews(reviews))
	return ids
}

func TestDispatcher_ClassifiesAllFlaggedReviews(t *testing.T) {
	store := newTestStore(t)
	ids := seedFlaggedReviews(t, store, "tt0097874", 3)

	classifier := &fakeClassifier{answer: allMentionedAnswer}
	d := NewDispatcher(store, classifier, 0)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Selected)
	assert.Equal(t, 3, stats.Classified)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 3, classifier.calls)

	for _, id := range ids {
		s, err := store.GetSentiment(id)
		require.NoError(t, err)
		require.NotNil(t, s, id)
		require.NotNil(t, s.Overall)
		assert.Equal(t, 2, *s.Overall)
		assert.Nil(t, s.Visuals)
	}

	remaining, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestDispatcher_EmptyMovieIDSelectsAllMovies(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 2)

	classifier := &fakeClassifier{answer: allMentionedAnswer}
	d := NewDispatcher(store, classifier, 0)

	stats, err := d.Run(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Classified)
}

func TestDispatcher_ClassifierFailureKeepsFlag(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 1)

	classifier := &fakeClassifier{err: fmt.Errorf("upstream unavailable")}
	d := NewDispatcher(store, classifier, 0)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Classified)
	assert.Equal(t, 1, stats.Failed)

	remaining, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Len(t, remaining, 1, "failed review stays flagged for the next pass")
	assert.Equal(t, 1, classifier.calls, "no retry within the pass")
}

func TestDispatcher_UnparseableAnswerKeepsFlag(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 1)

	classifier := &fakeClassifier{answer: "I would rather not say."}
	d := NewDispatcher(store, classifier, 0)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	remaining, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

type failingSaveStore struct {
	datastore.Interface
}

func (f *failingSaveStore) SaveSentimentAndClearFlag(*datastore.Sentiment) error {
	return fmt.Errorf("disk full")
}

func TestDispatcher_StorageFailureKeepsFlag(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 1)

	classifier := &fakeClassifier{answer: allMentionedAnswer}
	d := NewDispatcher(&failingSaveStore{Interface: store}, classifier, 0)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Failed)

	remaining, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestDispatcher_BudgetCheckedBetweenRows(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 3)

	classifier := &fakeClassifier{answer: allMentionedAnswer, delay: 30 * time.Millisecond}
	d := NewDispatcher(store, classifier, 10*time.Millisecond)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.True(t, stats.BudgetExhausted)
	assert.Equal(t, 1, stats.Classified, "in-flight row completes, rest is deferred")

	remaining, err := store.GetReviewsToProcess("tt0097874")
	require.NoError(t, err)
	assert.Len(t, remaining, 2)
}

func TestDispatcher_NoFlaggedReviews(t *testing.T) {
	store := newTestStore(t)

	classifier := &fakeClassifier{answer: allMentionedAnswer}
	d := NewDispatcher(store, classifier, 0)

	stats, err := d.Run(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Selected)
	assert.Equal(t, 0, classifier.calls)
}

func TestDispatcher_ContextCancellationStopsPass(t *testing.T) {
	store := newTestStore(t)
	seedFlaggedReviews(t, store, "tt0097874", 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(store, &fakeClassifier{answer: allMentionedAnswer}, 0)
	_, err := d.Run(ctx, "tt0097874")
	assert.ErrorIs(t, err, context.Canceled)
}

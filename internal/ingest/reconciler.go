// Package ingest implements review ingestion: the record reconciler and the
// review merge engine.
package ingest

import (
	"context"
	"time"

	"github.com/ay5710/cinesense/internal/datastore"
)

// Reason explains why the reconciler did or did not request a re-scrape.
type Reason int

const (
	ReasonUpToDate Reason = iota
	ReasonNewMovie
	ReasonStale
	ReasonDelta
)

func (r Reason) String() string {
	switch r {
	case ReasonUpToDate:
		return "up-to-date"
	case ReasonNewMovie:
		return "new-movie"
	case ReasonStale:
		return "stale"
	case ReasonDelta:
		return "delta"
	default:
		return "unknown"
	}
}

// Decision is the reconciler's verdict for one movie.
type Decision struct {
	Reason        Reason
	ScrapeReviews bool
	// NewReviews is the computed review-count delta. The two counters it is
	// derived from can race between scrape calls, so it is a logging aid
	// only and must never bound the merge.
	NewReviews int
}

// Observed is the scraper's view of a movie's metadata.
type Observed struct {
	Title       string
	ReleaseDate string
	ReviewCount int
}

// Reconciler decides whether a movie's reviews need scraping.
type Reconciler struct {
	store     datastore.Interface
	staleness time.Duration
}

// NewReconciler creates a reconciler with the given staleness threshold.
func NewReconciler(store datastore.Interface, staleness time.Duration) *Reconciler {
	return &Reconciler{store: store, staleness: staleness}
}

// Reconcile compares observed metadata against the stored row and returns a
// scrape decision. Metadata is always upserted. A storage lookup failure is
// returned as a hard error: it must abort this movie's processing, never be
// treated as "new movie" (which would orphan duplicate rows).
func (r *Reconciler) Reconcile(ctx context.Context, movieID string, observed Observed, now time.Time) (Decision, error) {
	previous, err := r.store.GetMovie(movieID)
	if err != nil {
		return Decision{}, err
	}

	if previous == nil {
		// Defensive: clear any stale partial rows left under the same key
		// by an interrupted earlier run, then insert fresh metadata.
		if err := r.store.DeleteMovie(movieID); err != nil {
			return Decision{}, err
		}
		if err := r.store.InsertMovie(&datastore.Movie{
			ID:          movieID,
			Title:       observed.Title,
			ReleaseDate: observed.ReleaseDate,
			ReviewCount: observed.ReviewCount,
			LastScrape:  now,
		}); err != nil {
			return Decision{}, err
		}

		getLogger().Info("New movie",
			"movie_id", movieID,
			"title", observed.Title,
			"declared_reviews", observed.ReviewCount)
		return Decision{Reason: ReasonNewMovie, ScrapeReviews: true}, nil
	}

	// Refresh the scrape timestamp even when nothing else changes
	if err := r.store.UpsertMovieMetadata(movieID, observed.ReviewCount, now); err != nil {
		return Decision{}, err
	}

	persisted, err := r.store.CountReviews(movieID)
	if err != nil {
		return Decision{}, err
	}

	newReviews := observed.ReviewCount - previous.ReviewCount
	sinceLastScrape := now.Sub(previous.LastScrape)

	getLogger().Info("Reconciled movie",
		"movie_id", movieID,
		"declared_reviews", observed.ReviewCount,
		"previously_declared", previous.ReviewCount,
		"persisted_reviews", persisted,
		"hours_since_scrape", sinceLastScrape.Hours())

	switch {
	case observed.ReviewCount != previous.ReviewCount, persisted < int64(observed.ReviewCount):
		return Decision{Reason: ReasonDelta, ScrapeReviews: true, NewReviews: newReviews}, nil
	case sinceLastScrape > r.staleness:
		return Decision{Reason: ReasonStale, ScrapeReviews: true}, nil
	default:
		return Decision{Reason: ReasonUpToDate}, nil
	}
}

package sentiment

import (
	"context"
	"time"

	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
)

// Stats summarizes one dispatch pass.
type Stats struct {
	Selected        int
	Classified      int
	Failed          int
	BudgetExhausted bool
}

// Dispatcher runs flagged reviews through the classifier and stores the
// verdicts. Each review is classified at most once per pass; failed rows keep
// their flag and are retried on a later pass.
type Dispatcher struct {
	store      datastore.Interface
	classifier Classifier
	budget     time.Duration
}

// NewDispatcher builds a dispatcher. A zero budget disables the wall-clock
// limit.
func NewDispatcher(store datastore.Interface, classifier Classifier, budget time.Duration) *Dispatcher {
	return &Dispatcher{store: store, classifier: classifier, budget: budget}
}

// Run classifies every flagged review of movieID, or of all movies when
// movieID is empty. The budget is checked between rows only, so an in-flight
// classification always completes.
func (d *Dispatcher) Run(ctx context.Context, movieID string) (Stats, error) {
	var stats Stats

	reviews, err := d.store.GetReviewsToProcess(movieID)
	if err != nil {
		return stats, errors.New(err).
			Component("sentiment").
			Category(errors.CategoryDatabase).
			Context("movie_id", movieID).
			Build()
	}
	stats.Selected = len(reviews)
	if len(reviews) == 0 {
		return stats, nil
	}

	getLogger().Info("dispatching reviews to classifier",
		"movie_id", movieID,
		"count", len(reviews))

	start := time.Now()
	for _, review := range reviews {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		if d.budget > 0 && time.Since(start) > d.budget {
			stats.BudgetExhausted = true
			getLogger().Warn("classification budget exhausted, deferring remaining reviews",
				"movie_id", movieID,
				"classified", stats.Classified,
				"remaining", stats.Selected-stats.Classified-stats.Failed)
			break
		}
		if d.classifyOne(ctx, &review) {
			stats.Classified++
		} else {
			stats.Failed++
		}
	}
	return stats, nil
}

// classifyOne handles a single review end to end. Any failure is logged and
// leaves the review flagged for a later pass.
func (d *Dispatcher) classifyOne(ctx context.Context, review *datastore.Review) bool {
	title := ""
	if review.Title != nil {
		title = *review.Title
	}
	body := ""
	if review.Body != nil {
		body = *review.Body
	}

	raw, err := d.classifier.Classify(ctx, title, body)
	if err != nil {
		getLogger().Error("classifier request failed",
			"review_id", review.ID,
			"error", err)
		return false
	}

	tuples, err := ParseAnswer(raw)
	if err != nil {
		getLogger().Error("classifier answer rejected",
			"review_id", review.ID,
			"answer", raw,
			"error", err)
		return false
	}

	sentiment, err := MapAnswer(review.ID, tuples)
	if err != nil {
		getLogger().Error("classifier answer has unexpected shape",
			"review_id", review.ID,
			"answer", raw,
			"error", err)
		return false
	}

	if err := d.store.SaveSentimentAndClearFlag(sentiment); err != nil {
		getLogger().Error("failed to store sentiment",
			"review_id", review.ID,
			"error", err)
		return false
	}
	return true
}

package ingest

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
	"github.com/ay5710/cinesense/internal/scraper"
)

// Merger preprocesses freshly scraped reviews and upserts them into storage.
type Merger struct {
	store  datastore.Interface
	source scraper.Source
}

// NewMerger creates a merge engine backed by the given store and scraper session.
func NewMerger(store datastore.Interface, source scraper.Source) *Merger {
	return &Merger{store: store, source: source}
}

// Merge fills in missing bodies and abbreviated vote counts via secondary
// fetches, then upserts the batch keyed by review ID. A row that still has no
// text after the secondary fetch is persisted with nulls and logged as a
// data-quality warning. A row whose vote counts cannot be resolved to exact
// integers is dropped with an error log; zero is a legitimate observed value,
// so silent coercion is never applied. Row-local failures never abort the
// batch; a storage failure does.
func (m *Merger) Merge(ctx context.Context, movieID string, scraped []scraper.ScrapedReview, now time.Time) error {
	m.fillMissingBodies(ctx, movieID, scraped)

	stillBlank := 0
	for i := range scraped {
		if isBlank(scraped[i].Body) || isBlank(scraped[i].Title) {
			stillBlank++
		}
	}
	if stillBlank > 0 {
		getLogger().Warn("Reviews still missing text or title after secondary fetch",
			"movie_id", movieID, "count", stillBlank)
	}

	batch := make([]datastore.Review, 0, len(scraped))
	for i := range scraped {
		row, err := m.buildRow(ctx, movieID, &scraped[i], now)
		if err != nil {
			getLogger().Error("Dropping review with unresolvable vote counts",
				"movie_id", movieID, "review_id", scraped[i].ID, "error", err)
			continue
		}
		batch = append(batch, row)
	}

	if len(batch) == 0 {
		return nil
	}
	return m.store.UpsertReviews(batch)
}

// fillMissingBodies performs the spoiler-reveal secondary fetch for rows with
// blank bodies, once per row.
func (m *Merger) fillMissingBodies(ctx context.Context, movieID string, scraped []scraper.ScrapedReview) {
	missing := 0
	for i := range scraped {
		if !isBlank(scraped[i].Body) {
			continue
		}
		missing++

		body, err := m.source.SpoilerBody(ctx, scraped[i].ID)
		if err != nil {
			getLogger().Warn("Spoiler fetch failed",
				"movie_id", movieID, "review_id", scraped[i].ID, "error", err)
			continue
		}
		scraped[i].Body = body
	}

	if missing > 0 {
		getLogger().Info("Fetched text behind spoiler markup",
			"movie_id", movieID, "count", missing)
	}
}

// buildRow converts one scraped review into a storage row, resolving
// abbreviated vote counts through the exact-votes secondary fetch.
func (m *Merger) buildRow(ctx context.Context, movieID string, scraped *scraper.ScrapedReview, now time.Time) (datastore.Review, error) {
	upvotes, upAbbrev, err := parseVoteCount(scraped.Upvotes)
	if err != nil {
		return datastore.Review{}, err
	}
	downvotes, downAbbrev, err := parseVoteCount(scraped.Downvotes)
	if err != nil {
		return datastore.Review{}, err
	}

	if upAbbrev || downAbbrev {
		exactUp, exactDown, err := m.source.ExactVotes(ctx, scraped.ID)
		if err != nil {
			return datastore.Review{}, errors.New(err).
				Component("ingest").
				Category(errors.CategoryScraping).
				Context("review_id", scraped.ID).
				Context("operation", "exact-votes").
				Build()
		}
		upvotes, downvotes = exactUp, exactDown
	}

	return datastore.Review{
		ID:         scraped.ID,
		MovieID:    movieID,
		Author:     scraped.Author,
		Title:      nullableText(scraped.Title),
		Body:       nullableText(scraped.Body),
		Rating:     scraped.Rating,
		Date:       scraped.Date,
		Upvotes:    upvotes,
		Downvotes:  downvotes,
		LastUpdate: now,
	}, nil
}

// parseVoteCount parses a display vote count. The second return is true for
// abbreviated values ("1.2K"), which need the exact-votes secondary fetch.
func parseVoteCount(text string) (count int, abbreviated bool, err error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return 0, false, errors.Newf("missing vote count").
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}

	if strings.HasSuffix(trimmed, "K") || strings.HasSuffix(trimmed, "k") {
		return 0, true, nil
	}

	trimmed = strings.ReplaceAll(trimmed, ",", "")
	n, err := strconv.Atoi(trimmed)
	if err != nil || n < 0 {
		return 0, false, errors.Newf("unparseable vote count %q", text).
			Component("ingest").
			Category(errors.CategoryValidation).
			Build()
	}
	return n, false, nil
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}

func nullableText(s string) *string {
	if isBlank(s) {
		return nil
	}
	return &s
}

// Package scraper extracts movie metadata and user reviews from the review site.
package scraper

import "context"

// ScrapedReview is one review row as observed on the site. Vote counts are
// kept as raw display strings because the site abbreviates large values
// (e.g. "1.2K"); the merge preprocessing decides whether an exact refetch
// is needed.
type ScrapedReview struct {
	ID        string // external review identifier, e.g. rw1234567
	Author    string
	Title     string // empty when the markup had none
	Body      string // empty when hidden behind a spoiler warning
	Rating    *int   // nil when the reviewer gave no star rating
	Date      string
	Upvotes   string
	Downvotes string
}

// Source is the review site collaborator.
type Source interface {
	// Metadata returns the movie title and release date.
	Metadata(ctx context.Context, movieID string) (title, releaseDate string, err error)
	// ReviewCount returns the total review count the site declares.
	ReviewCount(ctx context.Context, movieID string) (int, error)
	// Reviews returns all currently visible reviews for the movie.
	Reviews(ctx context.Context, movieID string, total int) ([]ScrapedReview, error)
	// SpoilerBody fetches the review body hidden behind a spoiler warning.
	SpoilerBody(ctx context.Context, reviewID string) (string, error)
	// ExactVotes fetches exact vote counts for a review whose counts were abbreviated.
	ExactVotes(ctx context.Context, reviewID string) (upvotes, downvotes int, err error)
}

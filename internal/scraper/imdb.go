package scraper

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/errors"
)

var (
	reviewIDPattern = regexp.MustCompile(`/review/(rw\d+)`)
	votesPattern    = regexp.MustCompile(`([\d,]+) out of ([\d,]+)`)
)

// IMDb scrapes www.imdb.com over plain HTTP.
type IMDb struct {
	client  *resty.Client
	baseURL string
}

// NewIMDb creates a scraper session. Each pipeline worker owns its own
// session; sessions are not shared.
func NewIMDb(settings *conf.Settings) *IMDb {
	client := resty.New().
		SetTimeout(settings.Scraper.Timeout).
		SetHeader("User-Agent", settings.Scraper.UserAgent).
		SetHeader("Accept-Language", "en-US,en;q=0.9")

	return &IMDb{
		client:  client,
		baseURL: strings.TrimRight(settings.Scraper.BaseURL, "/"),
	}
}

// fetchDocument GETs a page and parses it.
func (s *IMDb) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	resp, err := s.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, errors.New(err).
			Component("scraper").
			Category(errors.CategoryNetwork).
			Context("url", url).
			Build()
	}
	if resp.StatusCode() != 200 {
		return nil, errors.Newf("unexpected status %d fetching %s", resp.StatusCode(), url).
			Component("scraper").
			Category(errors.CategoryHTTP).
			Context("url", url).
			Context("status", resp.StatusCode()).
			Build()
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(resp.String()))
	if err != nil {
		return nil, errors.New(err).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("url", url).
			Build()
	}
	return doc, nil
}

// Metadata returns the movie title and release date from the title page.
func (s *IMDb) Metadata(ctx context.Context, movieID string) (string, string, error) {
	doc, err := s.fetchDocument(ctx, fmt.Sprintf("%s/title/%s/", s.baseURL, movieID))
	if err != nil {
		return "", "", err
	}

	title := strings.TrimSpace(doc.Find(`span[data-testid="hero__primary-text"]`).First().Text())
	if title == "" {
		return "", "", errors.Newf("movie title not found for %s", movieID).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("movie_id", movieID).
			Build()
	}

	releaseDate := strings.TrimSpace(doc.Find(`li[data-testid="title-details-releasedate"] a`).Eq(1).Text())
	// Strip the trailing country qualifier, e.g. "December 13, 1989 (United States)"
	if idx := strings.Index(releaseDate, " ("); idx >= 0 {
		releaseDate = releaseDate[:idx]
	}

	getLogger().Debug("Scraped movie metadata", "movie_id", movieID, "title", title, "release_date", releaseDate)
	return title, releaseDate, nil
}

// ReviewCount returns the total review count declared on the reviews page.
func (s *IMDb) ReviewCount(ctx context.Context, movieID string) (int, error) {
	doc, err := s.fetchDocument(ctx, fmt.Sprintf("%s/title/%s/reviews", s.baseURL, movieID))
	if err != nil {
		return 0, err
	}

	text := strings.TrimSpace(doc.Find(`div[data-testid="tturv-total-reviews"]`).First().Text())
	if text == "" {
		return 0, errors.Newf("review count element not found for %s", movieID).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("movie_id", movieID).
			Build()
	}

	// "1,234 reviews" -> 1234
	text = strings.TrimSuffix(text, " reviews")
	text = strings.TrimSuffix(text, " review")
	text = strings.ReplaceAll(text, ",", "")
	count, err := strconv.Atoi(text)
	if err != nil {
		return 0, errors.Newf("could not parse review count %q for %s", text, movieID).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("movie_id", movieID).
			Build()
	}
	return count, nil
}

// Reviews extracts every review row, following the paginated listing until
// the declared total is collected or no further page is offered. Rows seen
// on an earlier page are dropped, so a listing that shifts between fetches
// cannot produce duplicates.
func (s *IMDb) Reviews(ctx context.Context, movieID string, total int) ([]ScrapedReview, error) {
	pageURL := fmt.Sprintf("%s/title/%s/reviews", s.baseURL, movieID)

	var reviews []ScrapedReview
	seen := make(map[string]bool)
	lastKey := ""
	for {
		doc, err := s.fetchDocument(ctx, pageURL)
		if err != nil {
			return nil, err
		}
		reviews = append(reviews, s.extractReviews(doc, movieID, seen)...)

		if total > 0 && len(reviews) >= total {
			break
		}
		key, ok := doc.Find("div.load-more-data").First().Attr("data-key")
		if !ok || key == "" || key == lastKey {
			break
		}
		lastKey = key
		pageURL = fmt.Sprintf("%s/title/%s/reviews/_ajax?paginationKey=%s",
			s.baseURL, movieID, url.QueryEscape(key))
	}

	if total > 0 && len(reviews) < total {
		getLogger().Warn("Fewer reviews extracted than declared",
			"movie_id", movieID, "extracted", len(reviews), "declared", total)
	}

	getLogger().Info("Extracted reviews", "movie_id", movieID, "count", len(reviews))
	return reviews, nil
}

// extractReviews parses the review rows of one listing page, recording each
// review ID in seen and skipping IDs already there.
func (s *IMDb) extractReviews(doc *goquery.Document, movieID string, seen map[string]bool) []ScrapedReview {
	var reviews []ScrapedReview
	doc.Find("article.user-review-item").Each(func(_ int, item *goquery.Selection) {
		review := ScrapedReview{}

		if href, ok := item.Find(`a[data-testid="permalink-link"]`).Attr("href"); ok {
			if m := reviewIDPattern.FindStringSubmatch(href); m != nil {
				review.ID = m[1]
			}
		}
		if review.ID == "" {
			// A row without a permalink cannot be keyed, skip it
			getLogger().Warn("Skipping review without permalink", "movie_id", movieID)
			return
		}
		if seen[review.ID] {
			return
		}
		seen[review.ID] = true

		review.Author = strings.TrimSpace(item.Find(`a[data-testid="author-link"]`).First().Text())
		review.Date = strings.TrimSpace(item.Find("li.review-date").First().Text())
		review.Title = strings.TrimSpace(item.Find("div.ipc-title h3.ipc-title__text").First().Text())
		review.Body = strings.TrimSpace(item.Find("div.ipc-html-content-inner-div").First().Text())
		review.Upvotes = strings.TrimSpace(item.Find("span.ipc-voting__label__count--up").First().Text())
		review.Downvotes = strings.TrimSpace(item.Find("span.ipc-voting__label__count--down").First().Text())
		if review.Upvotes == "" {
			review.Upvotes = "0"
		}
		if review.Downvotes == "" {
			review.Downvotes = "0"
		}

		ratingText := strings.TrimSpace(item.Find("span.ipc-rating-star--rating").First().Text())
		if ratingText != "" {
			if rating, err := strconv.Atoi(ratingText); err == nil {
				review.Rating = &rating
			}
		}

		reviews = append(reviews, review)
	})
	return reviews
}

// SpoilerBody fetches the review permalink page where spoiler-hidden text is
// present in the markup.
func (s *IMDb) SpoilerBody(ctx context.Context, reviewID string) (string, error) {
	doc, err := s.fetchDocument(ctx, fmt.Sprintf("%s/review/%s/", s.baseURL, reviewID))
	if err != nil {
		return "", err
	}

	body := strings.TrimSpace(doc.Find("div.text.show-more__control").First().Text())
	if body == "" {
		return "", errors.Newf("spoiler body not found for review %s", reviewID).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("review_id", reviewID).
			Build()
	}
	return body, nil
}

// ExactVotes fetches the review permalink page, which renders exact counts as
// "N out of M found this helpful".
func (s *IMDb) ExactVotes(ctx context.Context, reviewID string) (int, int, error) {
	doc, err := s.fetchDocument(ctx, fmt.Sprintf("%s/review/%s/", s.baseURL, reviewID))
	if err != nil {
		return 0, 0, err
	}

	text := strings.TrimSpace(doc.Find("div.actions.text-muted").First().Text())
	m := votesPattern.FindStringSubmatch(text)
	if m == nil {
		return 0, 0, errors.Newf("exact votes not found for review %s", reviewID).
			Component("scraper").
			Category(errors.CategoryScraping).
			Context("review_id", reviewID).
			Build()
	}

	upvotes, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		return 0, 0, err
	}
	allVotes, err := strconv.Atoi(strings.ReplaceAll(m[2], ",", ""))
	if err != nil {
		return 0, 0, err
	}

	return upvotes, allVotes - upvotes, nil
}

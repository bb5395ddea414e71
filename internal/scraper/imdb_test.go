package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ay5710/cinesense/internal/conf"
)

const titlePageHTML = `<html><body>
<span data-testid="hero__primary-text">Driving Miss Daisy</span>
<li data-testid="title-details-releasedate">
  <a href="/title/tt0097874/releaseinfo">Release date</a>
  <a href="/title/tt0097874/releaseinfo">December 13, 1989 (United States)</a>
</li>
</body></html>`

const reviewsPageHTML = `<html><body>
<div data-testid="tturv-total-reviews">1,234 reviews</div>
<article class="user-review-item">
  <div class="ipc-title"><h3 class="ipc-title__text">A quiet triumph</h3></div>
  <span class="ipc-rating-star--rating">9</span>
  <div class="ipc-html-content-inner-div">Warm and understated.</div>
  <a data-testid="author-link" href="/user/ur0000001/">moviebuff42</a>
  <li class="ipc-inline-list__item review-date">Dec 20, 1989</li>
  <span class="ipc-voting__label__count--up">1.2K</span>
  <span class="ipc-voting__label__count--down">34</span>
  <a data-testid="permalink-link" class="ipc-link ipc-link--base" href="/review/rw1234567/?ref_=tt_urv">Permalink</a>
</article>
<article class="user-review-item">
  <div class="ipc-title"><h3 class="ipc-title__text">Overrated</h3></div>
  <div class="ipc-html-content-inner-div"></div>
  <a data-testid="author-link" href="/user/ur0000002/">contrarian</a>
  <li class="ipc-inline-list__item review-date">Jan 5, 1990</li>
  <a data-testid="permalink-link" class="ipc-link ipc-link--base" href="/review/rw1234568/?ref_=tt_urv">Permalink</a>
</article>
</body></html>`

const permalinkPageHTML = `<html><body>
<div class="text show-more__control">The hidden spoiler text.</div>
<div class="actions text-muted">1,216 out of 1,250 found this helpful.</div>
</body></html>`

func newTestScraper(t *testing.T) *IMDb {
	t.Helper()

	settings := &conf.Settings{}
	settings.Scraper.BaseURL = "https://www.imdb.com"
	settings.Scraper.UserAgent = "test-agent"
	settings.Scraper.Timeout = 5 * time.Second

	s := NewIMDb(settings)
	httpmock.ActivateNonDefault(s.client.GetClient())
	t.Cleanup(httpmock.DeactivateAndReset)

	return s
}

func TestMetadata(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/",
		httpmock.NewStringResponder(200, titlePageHTML))

	title, releaseDate, err := s.Metadata(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, "Driving Miss Daisy", title)
	assert.Equal(t, "December 13, 1989", releaseDate)
}

func TestMetadata_MissingTitle(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0000404/",
		httpmock.NewStringResponder(200, "<html><body></body></html>"))

	_, _, err := s.Metadata(context.Background(), "tt0000404")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "title not found")
}

func TestReviewCount(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewsPageHTML))

	count, err := s.ReviewCount(context.Background(), "tt0097874")
	require.NoError(t, err)
	assert.Equal(t, 1234, count)
}

func TestReviews(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewsPageHTML))

	reviews, err := s.Reviews(context.Background(), "tt0097874", 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)

	first := reviews[0]
	assert.Equal(t, "rw1234567", first.ID)
	assert.Equal(t, "moviebuff42", first.Author)
	assert.Equal(t, "A quiet triumph", first.Title)
	assert.Equal(t, "Warm and understated.", first.Body)
	assert.Equal(t, "Dec 20, 1989", first.Date)
	assert.Equal(t, "1.2K", first.Upvotes)
	assert.Equal(t, "34", first.Downvotes)
	require.NotNil(t, first.Rating)
	assert.Equal(t, 9, *first.Rating)

	second := reviews[1]
	assert.Equal(t, "rw1234568", second.ID)
	assert.Empty(t, second.Body)
	assert.Nil(t, second.Rating)
	assert.Equal(t, "0", second.Upvotes)
	assert.Equal(t, "0", second.Downvotes)
}

func reviewArticleHTML(id, author string) string {
	return `<article class="user-review-item">
  <div class="ipc-title"><h3 class="ipc-title__text">Review by ` + author + `</h3></div>
  <div class="ipc-html-content-inner-div">Some thoughts.</div>
  <a data-testid="author-link" href="/user/` + author + `/">` + author + `</a>
  <li class="ipc-inline-list__item review-date">Feb 2, 1990</li>
  <a data-testid="permalink-link" class="ipc-link ipc-link--base" href="/review/` + id + `/?ref_=tt_urv">Permalink</a>
</article>`
}

func reviewListingHTML(nextKey string, ids ...string) string {
	page := "<html><body>\n"
	for _, id := range ids {
		page += reviewArticleHTML(id, "reviewer"+id) + "\n"
	}
	if nextKey != "" {
		page += `<div class="load-more-data" data-key="` + nextKey + `"></div>` + "\n"
	}
	return page + "</body></html>"
}

func TestReviews_FollowsPagination(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000001", "rw1000002")))
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews/_ajax?paginationKey=g4wp7",
		httpmock.NewStringResponder(200, reviewListingHTML("", "rw1000003", "rw1000004")))

	reviews, err := s.Reviews(context.Background(), "tt0097874", 4)
	require.NoError(t, err)
	require.Len(t, reviews, 4)
	assert.Equal(t, "rw1000001", reviews[0].ID)
	assert.Equal(t, "rw1000004", reviews[3].ID)
}

func TestReviews_StopsAtDeclaredTotal(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000001", "rw1000002")))

	// No responder for the ajax page: reaching the total must end the walk
	// before the next fetch.
	reviews, err := s.Reviews(context.Background(), "tt0097874", 2)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
}

func TestReviews_DeduplicatesAcrossPages(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000001", "rw1000002")))
	// The listing shifted between fetches and the second page repeats a row.
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews/_ajax?paginationKey=g4wp7",
		httpmock.NewStringResponder(200, reviewListingHTML("", "rw1000002", "rw1000003")))

	reviews, err := s.Reviews(context.Background(), "tt0097874", 4)
	require.NoError(t, err)
	require.Len(t, reviews, 3)
	ids := []string{reviews[0].ID, reviews[1].ID, reviews[2].ID}
	assert.Equal(t, []string{"rw1000001", "rw1000002", "rw1000003"}, ids)
}

func TestReviews_StopsOnRepeatedKey(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000001")))
	// The next page hands back the same key forever.
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews/_ajax?paginationKey=g4wp7",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000002")))

	reviews, err := s.Reviews(context.Background(), "tt0097874", 10)
	require.NoError(t, err)
	require.Len(t, reviews, 2)
}

func TestReviews_PaginationFetchErrorSurfaces(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(200, reviewListingHTML("g4wp7", "rw1000001")))
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews/_ajax?paginationKey=g4wp7",
		httpmock.NewStringResponder(503, "unavailable"))

	_, err := s.Reviews(context.Background(), "tt0097874", 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

func TestSpoilerBody(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/review/rw1234568/",
		httpmock.NewStringResponder(200, permalinkPageHTML))

	body, err := s.SpoilerBody(context.Background(), "rw1234568")
	require.NoError(t, err)
	assert.Equal(t, "The hidden spoiler text.", body)
}

func TestExactVotes(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/review/rw1234567/",
		httpmock.NewStringResponder(200, permalinkPageHTML))

	up, down, err := s.ExactVotes(context.Background(), "rw1234567")
	require.NoError(t, err)
	assert.Equal(t, 1216, up)
	assert.Equal(t, 34, down)
}

func TestFetchErrorSurfaces(t *testing.T) {
	s := newTestScraper(t)
	httpmock.RegisterResponder("GET", "https://www.imdb.com/title/tt0097874/reviews",
		httpmock.NewStringResponder(503, "unavailable"))

	_, err := s.ReviewCount(context.Background(), "tt0097874")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
}

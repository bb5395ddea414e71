// interfaces.go: this code defines the interface for the database operations
package datastore

import (
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/errors"
)

// Interface abstracts the underlying database implementation and defines the
// operations the pipeline needs.
type Interface interface {
	Open() error
	Close() error
	NewSession() Interface

	CreateSchema() error
	DropSchema() error

	// Movies
	GetMovie(id string) (*Movie, error)
	InsertMovie(movie *Movie) error
	UpsertMovieMetadata(id string, reviewCount int, lastScrape time.Time) error
	DeleteMovie(id string) error
	GetAllMovies() ([]Movie, error)

	// Reviews
	GetReview(id string) (*Review, error)
	CountReviews(movieID string) (int64, error)
	UpsertReviews(reviews []Review) error
	GetReviewsToProcess(movieID string) ([]Review, error)

	// Sentiments
	GetSentiment(reviewID string) (*Sentiment, error)
	SaveSentimentAndClearFlag(sentiment *Sentiment) error

	// Snapshots
	ExportMovies() ([]Movie, error)
	ExportReviews() ([]Review, error)
	ExportSentiments() ([]Sentiment, error)
}

// DataStore implements Interface using a GORM database.
type DataStore struct {
	DB *gorm.DB // GORM database instance
}

// New creates a new datastore instance based on the enabled backend.
func New(settings *conf.Settings) (Interface, error) {
	switch {
	case settings.Output.SQLite.Enabled:
		return &SQLiteStore{Settings: settings}, nil
	case settings.Output.MySQL.Enabled:
		return &MySQLStore{Settings: settings}, nil
	case settings.Output.Postgres.Enabled:
		return &PostgresStore{Settings: settings}, nil
	default:
		return nil, errors.Newf("no database backend is enabled").
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// CreateSchema runs the schema migration for all managed tables.
func (ds *DataStore) CreateSchema() error {
	return performAutoMigration(ds.DB)
}

// DropSchema drops all managed tables.
func (ds *DataStore) DropSchema() error {
	// Children first so the drop succeeds with enforced foreign keys
	if err := ds.DB.Migrator().DropTable(&Sentiment{}, &Review{}, &Movie{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "drop-schema").
			Build()
	}
	return nil
}

// GetMovie retrieves a movie by its external identifier.
// A missing row is reported as (nil, nil); a lookup failure is an error the
// caller must treat as fatal for that movie, never as "new movie".
func (ds *DataStore) GetMovie(id string) (*Movie, error) {
	var movie Movie
	err := ds.DB.Where("id = ?", id).First(&movie).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "movies").
			Context("operation", "get").
			Context("movie_id", id).
			Build()
	}
	return &movie, nil
}

// InsertMovie inserts a fresh movie row.
func (ds *DataStore) InsertMovie(movie *Movie) error {
	if err := ds.DB.Create(movie).Error; err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "movies").
			Context("operation", "insert").
			Context("movie_id", movie.ID).
			Build()
	}
	return nil
}

// UpsertMovieMetadata refreshes the last-scrape timestamp and commits the
// declared review count only when it actually changed.
func (ds *DataStore) UpsertMovieMetadata(id string, reviewCount int, lastScrape time.Time) error {
	err := ds.DB.Model(&Movie{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"last_scrape":  lastScrape,
			"review_count": gorm.Expr("CASE WHEN review_count <> ? THEN ? ELSE review_count END", reviewCount, reviewCount),
		}).Error
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "movies").
			Context("operation", "upsert-metadata").
			Context("movie_id", id).
			Build()
	}
	return nil
}

// DeleteMovie removes a movie, its reviews and their sentiments.
// The cascade is explicit so it holds even where the driver does not
// enforce foreign keys.
func (ds *DataStore) DeleteMovie(id string) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		reviewIDs := tx.Model(&Review{}).Select("id").Where("movie_id = ?", id)
		if err := tx.Where("review_id IN (?)", reviewIDs).Delete(&Sentiment{}).Error; err != nil {
			return fmt.Errorf("deleting sentiments for movie %s: %w", id, err)
		}
		if err := tx.Where("movie_id = ?", id).Delete(&Review{}).Error; err != nil {
			return fmt.Errorf("deleting reviews for movie %s: %w", id, err)
		}
		if err := tx.Where("id = ?", id).Delete(&Movie{}).Error; err != nil {
			return fmt.Errorf("deleting movie %s: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "movies").
			Context("operation", "delete").
			Context("movie_id", id).
			Build()
	}
	return nil
}

// GetAllMovies retrieves all tracked movies.
func (ds *DataStore) GetAllMovies() ([]Movie, error) {
	var movies []Movie
	if err := ds.DB.Order("id").Find(&movies).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "movies").
			Context("operation", "get-all").
			Build()
	}
	return movies, nil
}

// GetReview retrieves a review by its external identifier, (nil, nil) when absent.
func (ds *DataStore) GetReview(id string) (*Review, error) {
	var review Review
	err := ds.DB.Where("id = ?", id).First(&review).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "reviews").
			Context("operation", "get").
			Context("review_id", id).
			Build()
	}
	return &review, nil
}

// CountReviews returns the number of persisted reviews for a movie.
func (ds *DataStore) CountReviews(movieID string) (int64, error) {
	var count int64
	if err := ds.DB.Model(&Review{}).Where("movie_id = ?", movieID).Count(&count).Error; err != nil {
		return 0, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "reviews").
			Context("operation", "count").
			Context("movie_id", movieID).
			Build()
	}
	return count, nil
}

// UpsertReviews merges a batch of scraped reviews keyed by review ID.
// Each row's to_process decision is computed against that row's stored state,
// so the whole batch is idempotent and safe to retry wholesale. A storage
// error aborts the batch, which belongs to a single movie's unit of work.
func (ds *DataStore) UpsertReviews(reviews []Review) error {
	for i := range reviews {
		if err := ds.upsertReview(&reviews[i]); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryDatabase).
				Context("table", "reviews").
				Context("operation", "upsert").
				Context("review_id", reviews[i].ID).
				Build()
		}
	}
	return nil
}

func (ds *DataStore) upsertReview(incoming *Review) error {
	return ds.DB.Transaction(func(tx *gorm.DB) error {
		var existing Review
		err := tx.Where("id = ?", incoming.ID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			incoming.ToProcess = 1
			return tx.Create(incoming).Error
		case err != nil:
			return err
		}

		// Text change is the sole reprocessing trigger; vote churn alone
		// must not re-flag a row.
		toProcess := existing.ToProcess
		if !textEqual(existing.Title, incoming.Title) || !textEqual(existing.Body, incoming.Body) {
			toProcess = 1
		}

		return tx.Model(&Review{}).Where("id = ?", incoming.ID).Updates(map[string]any{
			"title":       incoming.Title,
			"body":        incoming.Body,
			"upvotes":     incoming.Upvotes,
			"downvotes":   incoming.Downvotes,
			"last_update": incoming.LastUpdate,
			"to_process":  toProcess,
		}).Error
	})
}

// textEqual compares two nullable text fields byte for byte.
func textEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// GetReviewsToProcess returns all reviews flagged for sentiment classification.
// An empty movieID selects flagged reviews across all movies.
func (ds *DataStore) GetReviewsToProcess(movieID string) ([]Review, error) {
	query := ds.DB.Where("to_process = ?", 1)
	if movieID != "" {
		query = query.Where("movie_id = ?", movieID)
	}

	var reviews []Review
	if err := query.Order("id").Find(&reviews).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "reviews").
			Context("operation", "get-to-process").
			Context("movie_id", movieID).
			Build()
	}
	return reviews, nil
}

// GetSentiment retrieves the sentiment row for a review, (nil, nil) when absent.
func (ds *DataStore) GetSentiment(reviewID string) (*Sentiment, error) {
	var sentiment Sentiment
	err := ds.DB.Where("review_id = ?", reviewID).First(&sentiment).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return nil, nil
	case err != nil:
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "sentiments").
			Context("operation", "get").
			Context("review_id", reviewID).
			Build()
	}
	return &sentiment, nil
}

// SaveSentimentAndClearFlag upserts a sentiment row and clears the review's
// to_process flag in one transaction. The flag is never cleared without a
// persisted sentiment row.
func (ds *DataStore) SaveSentimentAndClearFlag(sentiment *Sentiment) error {
	err := ds.DB.Transaction(func(tx *gorm.DB) error {
		// Column set driven by the static descriptor so new aspect columns
		// flow through without touching this call site.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "review_id"}},
			DoUpdates: clause.AssignmentColumns(SentimentValueColumns),
		}).Create(sentiment).Error; err != nil {
			return fmt.Errorf("upserting sentiment for review %s: %w", sentiment.ReviewID, err)
		}

		if err := tx.Model(&Review{}).
			Where("id = ?", sentiment.ReviewID).
			Update("to_process", 0).Error; err != nil {
			return fmt.Errorf("clearing flag for review %s: %w", sentiment.ReviewID, err)
		}
		return nil
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("table", "sentiments").
			Context("operation", "save-and-clear-flag").
			Context("review_id", sentiment.ReviewID).
			Build()
	}
	return nil
}

// ExportMovies returns the full movies table for a snapshot.
func (ds *DataStore) ExportMovies() ([]Movie, error) {
	var movies []Movie
	if err := ds.DB.Order("id").Find(&movies).Error; err != nil {
		return nil, exportError(err, "movies")
	}
	return movies, nil
}

// ExportReviews returns the full reviews table for a snapshot.
func (ds *DataStore) ExportReviews() ([]Review, error) {
	var reviews []Review
	if err := ds.DB.Order("id").Find(&reviews).Error; err != nil {
		return nil, exportError(err, "reviews")
	}
	return reviews, nil
}

// ExportSentiments returns the full sentiments table for a snapshot.
func (ds *DataStore) ExportSentiments() ([]Sentiment, error) {
	var sentiments []Sentiment
	if err := ds.DB.Order("review_id").Find(&sentiments).Error; err != nil {
		return nil, exportError(err, "sentiments")
	}
	return sentiments, nil
}

func exportError(err error, table string) error {
	return errors.New(err).
		Component("datastore").
		Category(errors.CategoryDatabase).
		Context("table", table).
		Context("operation", "export").
		Build()
}

// performAutoMigration automates database migrations with error handling.
func performAutoMigration(db *gorm.DB) error {
	if err := db.AutoMigrate(&Movie{}, &Review{}, &Sentiment{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migration").
			Build()
	}
	return nil
}

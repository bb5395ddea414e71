// model.go this code defines the data model for the application
package datastore

import "time"

// Movie represents one tracked movie and its scrape bookkeeping
type Movie struct {
	ID          string `gorm:"primaryKey;size:16"` // stable external identifier, e.g. tt0097874
	Title       string
	ReleaseDate string
	ReviewCount int       // review total declared by the source at last scrape
	LastScrape  time.Time `gorm:"index"`
	Reviews     []Review  `gorm:"foreignKey:MovieID;constraint:OnDelete:CASCADE"`
}

// Review represents a single scraped user review.
// The primary key is the externally stable review identifier; the author-name
// keyed variant of older schemas is intentionally not supported.
type Review struct {
	ID         string `gorm:"primaryKey;size:16"` // external review identifier, e.g. rw1234567
	MovieID    string `gorm:"index;not null;size:16"`
	Author     string
	Title      *string `gorm:"type:text"` // may legitimately stay null after secondary fetch
	Body       *string `gorm:"type:text"`
	Rating     *int    // 1-10 star rating, null when the reviewer gave none
	Date       string
	Upvotes    int
	Downvotes  int
	LastUpdate time.Time
	ToProcess  int        `gorm:"index;not null;default:0"` // 1 while sentiment classification is pending
	Sentiment  *Sentiment `gorm:"foreignKey:ReviewID;constraint:OnDelete:CASCADE"`
}

// Sentiment holds the classifier verdict for one review, one-to-one by review ID.
// Each value is in {-2,-1,0,1,2} or null when the aspect was not mentioned.
type Sentiment struct {
	ReviewID string `gorm:"primaryKey;size:16"`
	Story    *int
	Acting   *int
	Visuals  *int
	Sounds   *int
	Values   *int
	Overall  *int
}

// SentimentValueColumns lists the sentiment value columns in schema order.
// It is the static schema descriptor shared by the dispatch loop's generic
// upsert; adding an aspect column means extending this list alongside the
// struct and the migration.
var SentimentValueColumns = []string{"story", "acting", "visuals", "sounds", "values", "overall"}

// TableName overrides for stable snapshot file naming
func (Movie) TableName() string     { return "movies" }
func (Review) TableName() string    { return "reviews" }
func (Sentiment) TableName() string { return "sentiments" }

// ManagedTables lists every table covered by schema migration and backup.
var ManagedTables = []string{"movies", "reviews", "sentiments"}

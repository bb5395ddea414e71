// Package sources provides backup source implementations
package sources

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/parquet-go/parquet-go"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
)

// movieRow is the parquet projection of one movies record.
type movieRow struct {
	ID          string    `parquet:"id"`
	Title       string    `parquet:"title"`
	ReleaseDate string    `parquet:"release_date"`
	ReviewCount int32     `parquet:"review_count"`
	LastScrape  time.Time `parquet:"last_scrape,timestamp"`
}

type reviewRow struct {
	ID         string    `parquet:"id"`
	MovieID    string    `parquet:"movie_id"`
	Author     string    `parquet:"author"`
	Title      *string   `parquet:"title,optional"`
	Body       *string   `parquet:"body,optional"`
	Rating     *int32    `parquet:"rating,optional"`
	Date       string    `parquet:"date"`
	Upvotes    int32     `parquet:"upvotes"`
	Downvotes  int32     `parquet:"downvotes"`
	LastUpdate time.Time `parquet:"last_update,timestamp"`
	ToProcess  int32     `parquet:"to_process"`
}

type sentimentRow struct {
	ReviewID string `parquet:"review_id"`
	Story    *int32 `parquet:"story,optional"`
	Acting   *int32 `parquet:"acting,optional"`
	Visuals  *int32 `parquet:"visuals,optional"`
	Sounds   *int32 `parquet:"sounds,optional"`
	Values   *int32 `parquet:"values,optional"`
	Overall  *int32 `parquet:"overall,optional"`
}

// DatastoreSource snapshots the managed database tables as parquet files.
type DatastoreSource struct {
	store datastore.Interface
	clock func() time.Time
}

// NewDatastoreSource builds a source reading from store.
func NewDatastoreSource(store datastore.Interface) *DatastoreSource {
	return &DatastoreSource{store: store, clock: time.Now}
}

// Name returns the source name.
func (s *DatastoreSource) Name() string {
	return "datastore"
}

// Tables returns the managed table names.
func (s *DatastoreSource) Tables() []string {
	tables := make([]string, len(datastore.ManagedTables))
	copy(tables, datastore.ManagedTables)
	return tables
}

// Validate checks the source configuration.
func (s *DatastoreSource) Validate() error {
	if s.store == nil {
		return errors.Newf("datastore source requires an open store").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

// Snapshot exports one table and writes it as a parquet file in destDir.
func (s *DatastoreSource) Snapshot(ctx context.Context, table, destDir string) (*backup.Metadata, string, error) {
	if ctx.Err() != nil {
		return nil, "", ctx.Err()
	}

	ts := s.clock()
	name := backup.SnapshotName(table, ts)
	path := filepath.Join(destDir, name)

	var rows int
	var err error
	switch table {
	case "movies":
		rows, err = s.snapshotMovies(path)
	case "reviews":
		rows, err = s.snapshotReviews(path)
	case "sentiments":
		rows, err = s.snapshotSentiments(path)
	default:
		return nil, "", errors.Newf("unknown table %q", table).
			Component("backup").
			Category(errors.CategoryValidation).
			Build()
	}
	if err != nil {
		return nil, "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, "", errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return &backup.Metadata{
		ID:        uuid.NewString(),
		Table:     table,
		Timestamp: ts,
		Size:      info.Size(),
		Rows:      rows,
	}, path, nil
}

func (s *DatastoreSource) snapshotMovies(path string) (int, error) {
	movies, err := s.store.ExportMovies()
	if err != nil {
		return 0, err
	}
	rows := make([]movieRow, 0, len(movies))
	for i := range movies {
		m := &movies[i]
		rows = append(rows, movieRow{
			ID:          m.ID,
			Title:       m.Title,
			ReleaseDate: m.ReleaseDate,
			ReviewCount: int32(m.ReviewCount),
			LastScrape:  m.LastScrape,
		})
	}
	return len(rows), writeParquet(path, rows)
}

func (s *DatastoreSource) snapshotReviews(path string) (int, error) {
	reviews, err := s.store.ExportReviews()
	if err != nil {
		return 0, err
	}
	rows := make([]reviewRow, 0, len(reviews))
	for i := range reviews {
		r := &reviews[i]
		rows = append(rows, reviewRow{
			ID:         r.ID,
			MovieID:    r.MovieID,
			Author:     r.Author,
			Title:      r.Title,
			Body:       r.Body,
			Rating:     intPtr32(r.Rating),
			Date:       r.Date,
			Upvotes:    int32(r.Upvotes),
			Downvotes:  int32(r.Downvotes),
			LastUpdate: r.LastUpdate,
			ToProcess:  int32(r.ToProcess),
		})
	}
	return len(rows), writeParquet(path, rows)
}

func (s *DatastoreSource) snapshotSentiments(path string) (int, error) {
	sentiments, err := s.store.ExportSentiments()
	if err != nil {
		return 0, err
	}
	rows := make([]sentimentRow, 0, len(sentiments))
	for i := range sentiments {
		v := &sentiments[i]
		rows = append(rows, sentimentRow{
			ReviewID: v.ReviewID,
			Story:    intPtr32(v.Story),
			Acting:   intPtr32(v.Acting),
			Visuals:  intPtr32(v.Visuals),
			Sounds:   intPtr32(v.Sounds),
			Values:   intPtr32(v.Values),
			Overall:  intPtr32(v.Overall),
		})
	}
	return len(rows), writeParquet(path, rows)
}

func writeParquet[T any](path string, rows []T) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}

	w := parquet.NewGenericWriter[T](f)
	if len(rows) > 0 {
		if _, err := w.Write(rows); err != nil {
			_ = f.Close()
			return errors.New(fmt.Errorf("parquet write: %w", err)).
				Component("backup").
				Category(errors.CategoryFileIO).
				Context("path", path).
				Build()
		}
	}
	if err := w.Close(); err != nil {
		_ = f.Close()
		return errors.New(fmt.Errorf("parquet close: %w", err)).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", path).
			Build()
	}
	return f.Close()
}

func intPtr32(v *int) *int32 {
	if v == nil {
		return nil
	}
	n := int32(*v)
	return &n
}

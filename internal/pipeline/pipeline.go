// Package pipeline coordinates the scrape, merge and classify cycle across
// tracked movies.
package pipeline

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/errors"
	"github.com/ay5710/cinesense/internal/ingest"
	"github.com/ay5710/cinesense/internal/scraper"
	"github.com/ay5710/cinesense/internal/sentiment"
)

// Result summarizes one movie's pass through the pipeline.
type Result struct {
	MovieID         string
	Reason          ingest.Reason
	Skipped         bool
	Scraped         int
	Classified      int
	Failed          int
	BudgetExhausted bool
}

// Pipeline ties the scraper, reconciler, merger and dispatcher together. A
// TTL lease per movie prevents overlapping runs from processing the same
// movie twice; the TTL bounds how long a crashed run can block its movie.
type Pipeline struct {
	settings      *conf.Settings
	store         datastore.Interface
	classifier    sentiment.Classifier
	sourceFactory func() scraper.Source
	backups       *backup.Manager
	leases        *gocache.Cache
	clock         func() time.Time
}

// worker holds the per-goroutine state of one scan worker: a derived
// datastore session and a scraper session of its own, never shared with
// other workers.
type worker struct {
	pipeline   *Pipeline
	source     scraper.Source
	reconciler *ingest.Reconciler
	merger     *ingest.Merger
	dispatcher *sentiment.Dispatcher
}

// New wires a pipeline from its parts. Every worker spawned by the pipeline
// gets its own datastore session derived from store; source is handed to
// each worker as-is unless SetSourceFactory installs a per-worker builder.
func New(settings *conf.Settings, store datastore.Interface, source scraper.Source, classifier sentiment.Classifier) *Pipeline {
	ttl := settings.Pipeline.LeaseTTL
	if ttl <= 0 {
		ttl = 45 * time.Minute
	}
	return &Pipeline{
		settings:      settings,
		store:         store,
		classifier:    classifier,
		sourceFactory: func() scraper.Source { return source },
		leases:        gocache.New(ttl, ttl/2),
		clock:         time.Now,
	}
}

// SetSourceFactory installs a builder called once per worker, so that each
// worker scrapes through a session of its own.
func (p *Pipeline) SetSourceFactory(factory func() scraper.Source) {
	p.sourceFactory = factory
}

// SetBackupManager attaches an optional backup manager. When set, Watch runs
// a backup after every scan cycle.
func (p *Pipeline) SetBackupManager(m *backup.Manager) {
	p.backups = m
}

func (p *Pipeline) newWorker() *worker {
	store := p.store.NewSession()
	source := p.sourceFactory()
	return &worker{
		pipeline:   p,
		source:     source,
		reconciler: ingest.NewReconciler(store, p.settings.Pipeline.Staleness),
		merger:     ingest.NewMerger(store, source),
		dispatcher: sentiment.NewDispatcher(store, p.classifier, p.settings.Classifier.TimeBudget),
	}
}

// ProcessMovie runs one movie through the full cycle on a dedicated worker.
// A movie whose lease is already held is skipped, not failed. Every step
// error aborts this movie only.
func (p *Pipeline) ProcessMovie(ctx context.Context, movieID string) (*Result, error) {
	return p.newWorker().processMovie(ctx, movieID)
}

func (w *worker) processMovie(ctx context.Context, movieID string) (*Result, error) {
	p := w.pipeline
	if err := p.leases.Add(movieID, p.clock(), gocache.DefaultExpiration); err != nil {
		getLogger().Warn("movie is already being processed, skipping",
			"movie_id", movieID)
		return &Result{MovieID: movieID, Skipped: true}, nil
	}
	defer p.leases.Delete(movieID)

	title, releaseDate, err := w.source.Metadata(ctx, movieID)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryScraping).
			Context("movie_id", movieID).
			Build()
	}
	declared, err := w.source.ReviewCount(ctx, movieID)
	if err != nil {
		return nil, errors.New(err).
			Component("pipeline").
			Category(errors.CategoryScraping).
			Context("movie_id", movieID).
			Build()
	}

	now := p.clock()
	decision, err := w.reconciler.Reconcile(ctx, movieID, ingest.Observed{
		Title:       title,
		ReleaseDate: releaseDate,
		ReviewCount: declared,
	}, now)
	if err != nil {
		return nil, err
	}

	result := &Result{MovieID: movieID, Reason: decision.Reason}
	if decision.ScrapeReviews {
		scraped, err := w.source.Reviews(ctx, movieID, declared)
		if err != nil {
			return nil, errors.New(err).
				Component("pipeline").
				Category(errors.CategoryScraping).
				Context("movie_id", movieID).
				Build()
		}
		if err := w.merger.Merge(ctx, movieID, scraped, now); err != nil {
			return nil, err
		}
		result.Scraped = len(scraped)
	}

	stats, err := w.dispatcher.Run(ctx, movieID)
	if err != nil {
		return nil, err
	}
	result.Classified = stats.Classified
	result.Failed = stats.Failed
	result.BudgetExhausted = stats.BudgetExhausted

	getLogger().Info("movie processed",
		"movie_id", movieID,
		"reason", result.Reason.String(),
		"scraped", result.Scraped,
		"classified", result.Classified,
		"failed", result.Failed)
	return result, nil
}

// Scan processes every tracked movie through a bounded worker pool. Each
// worker owns its datastore and scraper sessions for the whole scan.
// Failures are per movie; the scan itself only fails when the movie list
// cannot be read or the context is canceled.
func (p *Pipeline) Scan(ctx context.Context) error {
	movies, err := p.store.GetAllMovies()
	if err != nil {
		return errors.New(err).
			Component("pipeline").
			Category(errors.CategoryDatabase).
			Build()
	}
	if len(movies) == 0 {
		getLogger().Info("no tracked movies, nothing to scan")
		return nil
	}

	workers := p.settings.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}
	if workers > len(movies) {
		workers = len(movies)
	}
	getLogger().Info("scan started",
		"movies", len(movies),
		"workers", workers)

	ids := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		w := p.newWorker()
		g.Go(func() error {
			for movieID := range ids {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				if _, err := w.processMovie(gctx, movieID); err != nil {
					getLogger().Error("movie failed",
						"movie_id", movieID,
						"error", err)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		defer close(ids)
		for _, movie := range movies {
			select {
			case ids <- movie.ID:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}
	getLogger().Info("scan finished", "movies", len(movies))
	return nil
}

// Watch runs scans at the configured interval until the context is canceled.
// A scan fires immediately on start.
func (p *Pipeline) Watch(ctx context.Context) error {
	interval := p.settings.Pipeline.ScanInterval
	if interval <= 0 {
		interval = time.Hour
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if err := p.Scan(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			getLogger().Error("scan failed", "error", err)
		}
		p.runBackup(ctx)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (p *Pipeline) runBackup(ctx context.Context) {
	if p.backups == nil || ctx.Err() != nil {
		return
	}
	if err := p.backups.RunBackup(ctx); err != nil {
		getLogger().Error("backup failed", "error", err)
	}
}

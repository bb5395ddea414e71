package pipeline

import (
	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/backup/sources"
	"github.com/ay5710/cinesense/internal/backup/targets"
	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/scraper"
	"github.com/ay5710/cinesense/internal/sentiment"
)

// NewFromSettings opens the datastore and wires a pipeline with its real
// dependencies. The returned store must be closed by the caller.
func NewFromSettings(settings *conf.Settings) (*Pipeline, datastore.Interface, error) {
	store, err := datastore.New(settings)
	if err != nil {
		return nil, nil, err
	}
	if err := store.Open(); err != nil {
		return nil, nil, err
	}

	p := New(settings, store, scraper.NewIMDb(settings), sentiment.NewOpenAIClient(settings))
	p.SetSourceFactory(func() scraper.Source { return scraper.NewIMDb(settings) })
	if settings.Backup.Enabled {
		manager, err := NewBackupManager(settings, store)
		if err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		p.SetBackupManager(manager)
	}
	return p, store, nil
}

// NewBackupManager builds the backup manager snapshotting store's tables to
// the configured targets.
func NewBackupManager(settings *conf.Settings, store datastore.Interface) (*backup.Manager, error) {
	return backup.NewManagerFromConfig(settings, sources.NewDatastoreSource(store), targets.Build)
}

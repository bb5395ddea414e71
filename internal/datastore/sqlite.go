package datastore

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ay5710/cinesense/internal/conf"
)

// SQLiteStore implements DataStore for SQLite
type SQLiteStore struct {
	DataStore
	Settings *conf.Settings
}

func validateSQLiteConfig(settings *conf.Settings) error {
	if settings.Output.SQLite.Path == "" {
		return fmt.Errorf("sqlite database path is empty")
	}
	return nil
}

// Open sets up the SQLite database connection
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Settings); err != nil {
		return err
	}

	dbPath := store.Settings.Output.SQLite.Path

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: createGormLogger(store.Settings.Debug),
	})
	if err != nil {
		return fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// The explicit cascade in DeleteMovie does not depend on this, but
	// keep referential integrity on for ad hoc access too.
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store.DB = db

	getLogger().Info("Opened SQLite database", "path", dbPath)
	return performAutoMigration(db)
}

// NewSession returns a derived store over the same connection pool with its
// own session state, for use by a single worker.
func (store *SQLiteStore) NewSession() Interface {
	return &SQLiteStore{
		DataStore: DataStore{DB: store.DB.Session(&gorm.Session{NewDB: true})},
		Settings:  store.Settings,
	}
}

// Close closes the underlying SQLite connection
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return sqlDB.Close()
}

package datastore

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ay5710/cinesense/internal/conf"
)

// PostgresStore implements DataStore for PostgreSQL
type PostgresStore struct {
	DataStore
	Settings *conf.Settings
}

func validatePostgresConfig(settings *conf.Settings) error {
	if settings.Output.Postgres.Host == "" || settings.Output.Postgres.Database == "" {
		return fmt.Errorf("postgres host and database are required")
	}
	return nil
}

// Open sets up the PostgreSQL database connection
func (store *PostgresStore) Open() error {
	if err := validatePostgresConfig(store.Settings); err != nil {
		return err
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		store.Settings.Output.Postgres.Host, store.Settings.Output.Postgres.Port,
		store.Settings.Output.Postgres.Username, store.Settings.Output.Postgres.Password,
		store.Settings.Output.Postgres.Database, store.Settings.Output.Postgres.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: createGormLogger(store.Settings.Debug),
	})
	if err != nil {
		getLogger().Error("Failed to open PostgreSQL database",
			"host", store.Settings.Output.Postgres.Host,
			"port", store.Settings.Output.Postgres.Port,
			"database", store.Settings.Output.Postgres.Database,
			"error", err)
		return fmt.Errorf("failed to open PostgreSQL database: %w", err)
	}

	store.DB = db

	getLogger().Info("Opened PostgreSQL database",
		"host", store.Settings.Output.Postgres.Host,
		"database", store.Settings.Output.Postgres.Database)
	return performAutoMigration(db)
}

// NewSession returns a derived store over the same connection pool with its
// own session state, for use by a single worker.
func (store *PostgresStore) NewSession() Interface {
	return &PostgresStore{
		DataStore: DataStore{DB: store.DB.Session(&gorm.Session{NewDB: true})},
		Settings:  store.Settings,
	}
}

// Close closes the underlying PostgreSQL connection
func (store *PostgresStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to access underlying connection: %w", err)
	}
	return sqlDB.Close()
}

// Package backup implements the manual backup command.
package backup

import (
	"github.com/spf13/cobra"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
	"github.com/ay5710/cinesense/internal/pipeline"
)

// Command creates the backup command, snapshotting every table immediately
// regardless of the backup.enabled setting.
func Command(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Snapshot all tables now",
		Long:  "Writes a parquet snapshot of every table, ships it to the configured targets and applies the retention policy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			manager, err := pipeline.NewBackupManager(settings, store)
			if err != nil {
				return err
			}
			return manager.RunBackup(cmd.Context())
		},
	}
}

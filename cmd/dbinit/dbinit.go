// Package dbinit implements the schema initialization command.
package dbinit

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/datastore"
)

// Command creates the dbinit command.
func Command(settings *conf.Settings) *cobra.Command {
	var drop bool

	cmd := &cobra.Command{
		Use:   "dbinit",
		Short: "Create the database schema",
		Long:  "Creates the movies, reviews and sentiments tables. With --drop, existing tables are dropped first and all data is lost.",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := datastore.New(settings)
			if err != nil {
				return err
			}
			if err := store.Open(); err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if drop {
				if err := store.DropSchema(); err != nil {
					return err
				}
			}
			if err := store.CreateSchema(); err != nil {
				return err
			}
			fmt.Fprintln(os.Stdout, "schema ready")
			return nil
		},
	}

	cmd.Flags().BoolVar(&drop, "drop", false, "Drop existing tables first (destroys all data)")
	return cmd
}

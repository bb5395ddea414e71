// Package scan implements the one-shot scan command.
package scan

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/pipeline"
)

// Command creates the scan command, running one full cycle over all tracked
// movies or a single movie when an id is given.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [movie-id]",
		Short: "Run one scrape and classify cycle",
		Long:  "Scrapes reviews for every tracked movie (or just the given movie), classifies new and changed reviews and runs a backup if one is configured.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, store, err := pipeline.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			if len(args) == 1 {
				result, err := p.ProcessMovie(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Printf("%s: %s, %d scraped, %d classified, %d failed\n",
					result.MovieID, result.Reason, result.Scraped, result.Classified, result.Failed)
			} else if err := p.Scan(ctx); err != nil {
				return err
			}

			if settings.Backup.Enabled {
				manager, err := pipeline.NewBackupManager(settings, store)
				if err != nil {
					return err
				}
				return manager.RunBackup(ctx)
			}
			return nil
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().IntVar(&settings.Pipeline.Workers, "workers", viper.GetInt("pipeline.workers"), "Number of movies processed concurrently")
	cmd.Flags().DurationVar(&settings.Classifier.TimeBudget, "budget", viper.GetDuration("classifier.timebudget"), "Wall-clock budget for classification per movie (0 disables)")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

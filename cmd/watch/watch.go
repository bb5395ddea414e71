// Package watch implements the continuous scan command.
package watch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/pipeline"
)

// Command creates the watch command, scanning all tracked movies at a fixed
// interval until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Scan tracked movies continuously",
		Long:  "Runs scan cycles at the configured interval, with a backup after each cycle when one is configured. Stops cleanly on SIGINT or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, store, err := pipeline.NewFromSettings(settings)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return p.Watch(ctx)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().DurationVar(&settings.Pipeline.ScanInterval, "interval", viper.GetDuration("pipeline.scaninterval"), "Interval between scan cycles")
	cmd.Flags().IntVar(&settings.Pipeline.Workers, "workers", viper.GetInt("pipeline.workers"), "Number of movies processed concurrently")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}

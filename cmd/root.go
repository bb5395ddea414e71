// Package cmd assembles the command line interface.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	backupcmd "github.com/ay5710/cinesense/cmd/backup"
	"github.com/ay5710/cinesense/cmd/dbinit"
	"github.com/ay5710/cinesense/cmd/movies"
	"github.com/ay5710/cinesense/cmd/scan"
	"github.com/ay5710/cinesense/cmd/watch"
	"github.com/ay5710/cinesense/internal/conf"
)

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "cinesense",
		Short: "IMDb review sentiment pipeline",
		Long:  "Scrapes IMDb user reviews for tracked movies, classifies their sentiment through an LLM and keeps columnar backups of the results.",
	}

	setupFlags(rootCmd, settings)

	rootCmd.AddCommand(
		scan.Command(settings),
		watch.Command(settings),
		backupcmd.Command(settings),
		dbinit.Command(settings),
		movies.Command(settings),
	)

	return rootCmd
}

// setupFlags configures the global flags for the root command.
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", viper.GetBool("debug"), "Enable debug output")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Printf("error binding flags: %v\n", err)
	}
}

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ay5710/cinesense/cmd"
	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/logging"
)

func main() {
	settings, err := conf.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error loading configuration: %v\n", err)
		os.Exit(1)
	}

	level := slog.LevelInfo
	if settings.Debug {
		level = slog.LevelDebug
	}
	logging.Init(level)

	if settings.Main.Log.Enabled {
		logger, closeLogger, err := logging.NewFileLogger(settings.Main.Log.Path, settings.Main.Name, level)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error opening log file: %v\n", err)
			os.Exit(1)
		}
		slog.SetDefault(logger)
		defer func() { _ = closeLogger() }()
	}

	if err := cmd.RootCommand(settings).Execute(); err != nil {
		logging.Error("command failed", "error", err)
		os.Exit(1)
	}
}

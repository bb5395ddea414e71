package backup

import (
	"log/slog"
	"sync"

	"github.com/ay5710/cinesense/internal/logging"
)

var (
	logger     *slog.Logger
	loggerOnce sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		logger = logging.ForService("backup")
		if logger == nil {
			logger = slog.Default().With("service", "backup")
		}
	})
	return logger
}

package scraper

import (
	"log/slog"
	"sync"

	"github.com/ay5710/cinesense/internal/logging"
)

var (
	scraperLogger *slog.Logger
	loggerOnce    sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		scraperLogger = logging.ForService("scraper")
	})
	return scraperLogger
}

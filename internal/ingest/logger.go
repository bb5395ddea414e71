package ingest

import (
	"log/slog"
	"sync"

	"github.com/ay5710/cinesense/internal/logging"
)

var (
	ingestLogger *slog.Logger
	loggerOnce   sync.Once
)

func getLogger() *slog.Logger {
	loggerOnce.Do(func() {
		ingestLogger = logging.ForService("ingest")
	})
	return ingestLogger
}

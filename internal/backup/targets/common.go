// Package targets provides backup target implementations
package targets

import (
	"fmt"
	"strings"
	"time"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/errors"
)

// Build constructs a target from its configuration block.
func Build(cfg *conf.BackupTargetConfig) (backup.Target, error) {
	switch strings.ToLower(cfg.Type) {
	case "local":
		return NewLocalTarget(cfg.Settings)
	case "ftp":
		return NewFTPTarget(cfg.Settings)
	case "sftp":
		return NewSFTPTarget(cfg.Settings)
	default:
		return nil, errors.Newf("unknown backup target type %q", cfg.Type).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// validSnapshotName guards remote delete operations against path traversal.
func validSnapshotName(name string) error {
	if name == "" || strings.ContainsAny(name, "/\\") || strings.Contains(name, "..") {
		return errors.Newf("invalid snapshot name %q", name).
			Component("backup").
			Category(errors.CategoryValidation).
			Build()
	}
	return nil
}

func stringSetting(settings map[string]any, key, fallback string) string {
	if v, ok := settings[key]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return fallback
}

func intSetting(settings map[string]any, key string, fallback int) int {
	switch v := settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var n int
		if _, err := fmt.Sscanf(v, "%d", &n); err == nil {
			return n
		}
	}
	return fallback
}

func durationSetting(settings map[string]any, key string, fallback time.Duration) time.Duration {
	if v, ok := settings[key].(string); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

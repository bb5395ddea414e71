// Package backup writes columnar table snapshots and ships them to
// configured targets, keeping a bounded history on each.
package backup

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ay5710/cinesense/internal/conf"
	"github.com/ay5710/cinesense/internal/errors"
)

// snapshotTimeLayout is embedded in every snapshot file name. Retention
// orders snapshots by this timestamp, not by filesystem mtime.
const snapshotTimeLayout = "20060102_150405"

// Metadata describes one produced snapshot file.
type Metadata struct {
	ID        string
	Table     string
	Timestamp time.Time
	Size      int64
	Rows      int
}

// SnapshotInfo describes a snapshot stored on a target.
type SnapshotInfo struct {
	Name      string
	Table     string
	Timestamp time.Time
	Size      int64
}

// Source produces snapshot files for a set of tables.
type Source interface {
	// Name identifies the source in logs.
	Name() string
	// Tables lists the tables this source snapshots.
	Tables() []string
	// Snapshot writes one table snapshot into destDir and returns its metadata
	// and path.
	Snapshot(ctx context.Context, table, destDir string) (*Metadata, string, error)
	// Validate checks that the source is usable.
	Validate() error
}

// Target stores snapshot files somewhere durable.
type Target interface {
	// Name identifies the target in logs.
	Name() string
	// Store uploads the snapshot file at sourcePath.
	Store(ctx context.Context, sourcePath string, metadata *Metadata) error
	// List returns the snapshots stored for one table.
	List(ctx context.Context, table string) ([]SnapshotInfo, error)
	// Delete removes a stored snapshot by file name.
	Delete(ctx context.Context, name string) error
	// Validate checks that the target is usable.
	Validate() error
}

// Manager coordinates snapshot production, upload and retention.
type Manager struct {
	source      Source
	targets     []Target
	snapshotDir string
	keep        int
}

// NewManager builds a manager staging snapshots in snapshotDir and keeping
// the keep newest snapshots per table on every target.
func NewManager(source Source, snapshotDir string, keep int) (*Manager, error) {
	if source == nil {
		return nil, errors.Newf("backup source is required").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if err := source.Validate(); err != nil {
		return nil, err
	}
	if keep < 1 {
		return nil, errors.Newf("retention must keep at least 1 snapshot, got %d", keep).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &Manager{source: source, snapshotDir: snapshotDir, keep: keep}, nil
}

// NewManagerFromConfig builds a manager from the backup settings block.
// Enabled targets are constructed with buildTarget, which keeps the target
// implementations out of this package's dependency graph.
func NewManagerFromConfig(settings *conf.Settings, source Source, buildTarget func(*conf.BackupTargetConfig) (Target, error)) (*Manager, error) {
	dir := settings.Backup.SnapshotDir
	if dir == "" {
		dir = "snapshots"
	}
	m, err := NewManager(source, dir, settings.Backup.KeepCount)
	if err != nil {
		return nil, err
	}
	for i := range settings.Backup.Targets {
		cfg := &settings.Backup.Targets[i]
		if !cfg.Enabled {
			continue
		}
		target, err := buildTarget(cfg)
		if err != nil {
			return nil, err
		}
		if err := m.AddTarget(target); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// AddTarget registers a target after validating it.
func (m *Manager) AddTarget(t Target) error {
	if err := t.Validate(); err != nil {
		return err
	}
	m.targets = append(m.targets, t)
	return nil
}

// Targets returns the registered targets.
func (m *Manager) Targets() []Target {
	return m.targets
}

// RunBackup snapshots every table and ships each snapshot to all targets.
// Snapshot production failures abort the run; upload and retention failures
// are logged and the run continues, keeping the staged file so nothing is
// lost while a target is down.
func (m *Manager) RunBackup(ctx context.Context) error {
	if err := os.MkdirAll(m.snapshotDir, 0o755); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("snapshot_dir", m.snapshotDir).
			Build()
	}

	for _, table := range m.source.Tables() {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		meta, path, err := m.source.Snapshot(ctx, table, m.snapshotDir)
		if err != nil {
			return err
		}
		getLogger().Info("snapshot written",
			"table", table,
			"path", path,
			"rows", meta.Rows,
			"size", meta.Size)

		uploadedAll := len(m.targets) > 0
		for _, target := range m.targets {
			if err := target.Store(ctx, path, meta); err != nil {
				uploadedAll = false
				getLogger().Error("snapshot upload failed",
					"table", table,
					"target", target.Name(),
					"error", err)
				continue
			}
			m.applyRetention(ctx, target, table)
		}

		// The staged copy is only disposable once every target holds it.
		if uploadedAll {
			if err := os.Remove(path); err != nil {
				getLogger().Warn("failed to remove staged snapshot",
					"path", path,
					"error", err)
			}
		} else {
			m.pruneLocal(table)
		}
	}
	return nil
}

// applyRetention deletes all but the keep newest snapshots of table on the
// target. Deletion failures are logged; a stale extra snapshot is not worth
// failing the backup over.
func (m *Manager) applyRetention(ctx context.Context, target Target, table string) {
	snapshots, err := target.List(ctx, table)
	if err != nil {
		getLogger().Error("failed to list snapshots for retention",
			"target", target.Name(),
			"table", table,
			"error", err)
		return
	}
	for _, sn := range expired(snapshots, m.keep) {
		if err := target.Delete(ctx, sn.Name); err != nil {
			getLogger().Error("failed to delete expired snapshot",
				"target", target.Name(),
				"name", sn.Name,
				"error", err)
			continue
		}
		getLogger().Info("expired snapshot deleted",
			"target", target.Name(),
			"name", sn.Name)
	}
}

// pruneLocal applies retention to the staging directory itself, used when
// snapshots stay local because a target refused them.
func (m *Manager) pruneLocal(table string) {
	entries, err := os.ReadDir(m.snapshotDir)
	if err != nil {
		getLogger().Error("failed to read snapshot dir", "error", err)
		return
	}
	var snapshots []SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tbl, ts, ok := ParseSnapshotName(entry.Name())
		if !ok || tbl != table {
			continue
		}
		snapshots = append(snapshots, SnapshotInfo{Name: entry.Name(), Table: tbl, Timestamp: ts})
	}
	for _, sn := range expired(snapshots, m.keep) {
		if err := os.Remove(filepath.Join(m.snapshotDir, sn.Name)); err != nil {
			getLogger().Error("failed to delete expired snapshot",
				"name", sn.Name,
				"error", err)
		}
	}
}

// expired returns the snapshots beyond the keep newest.
func expired(snapshots []SnapshotInfo, keep int) []SnapshotInfo {
	if len(snapshots) <= keep {
		return nil
	}
	sorted := make([]SnapshotInfo, len(snapshots))
	copy(sorted, snapshots)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})
	return sorted[keep:]
}

// SnapshotName builds the canonical snapshot file name for a table.
func SnapshotName(table string, ts time.Time) string {
	return fmt.Sprintf("%s_%s.parquet", table, ts.Format(snapshotTimeLayout))
}

// ParseSnapshotName extracts the table and timestamp from a snapshot file
// name. It reports false for files outside the naming scheme.
func ParseSnapshotName(name string) (table string, ts time.Time, ok bool) {
	base := strings.TrimSuffix(name, ".parquet")
	if base == name {
		return "", time.Time{}, false
	}
	// The suffix is fixed-width: _YYYYMMDD_HHMMSS.
	const suffixLen = 1 + len(snapshotTimeLayout)
	if len(base) <= suffixLen {
		return "", time.Time{}, false
	}
	table = base[:len(base)-suffixLen]
	if base[len(table)] != '_' {
		return "", time.Time{}, false
	}
	stamp := base[len(base)-len(snapshotTimeLayout):]
	parsed, err := time.ParseInLocation(snapshotTimeLayout, stamp, time.Local)
	if err != nil {
		return "", time.Time{}, false
	}
	return table, parsed, true
}

package targets

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/errors"
)

// LocalTarget stores snapshots in a directory on the local filesystem.
type LocalTarget struct {
	path string
}

// NewLocalTarget builds a local target from its settings block. The only
// setting is "path", the destination directory.
func NewLocalTarget(settings map[string]any) (*LocalTarget, error) {
	path := stringSetting(settings, "path", "")
	if path == "" {
		return nil, errors.Newf("local target requires a path").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return &LocalTarget{path: path}, nil
}

// Name returns the target name.
func (t *LocalTarget) Name() string {
	return "local"
}

// Validate ensures the destination directory exists and is writable.
func (t *LocalTarget) Validate() error {
	if err := os.MkdirAll(t.path, 0o755); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Context("path", t.path).
			Build()
	}
	probe := filepath.Join(t.path, ".write-check")
	if err := os.WriteFile(probe, nil, 0o600); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Context("path", t.path).
			Build()
	}
	return os.Remove(probe)
}

// Store copies the snapshot file into the destination directory.
func (t *LocalTarget) Store(ctx context.Context, sourcePath string, metadata *backup.Metadata) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	src, err := os.Open(sourcePath)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", sourcePath).
			Build()
	}
	defer src.Close()

	destPath := filepath.Join(t.path, filepath.Base(sourcePath))
	dest, err := os.Create(destPath)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", destPath).
			Build()
	}
	if _, err := io.Copy(dest, src); err != nil {
		_ = dest.Close()
		_ = os.Remove(destPath)
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", destPath).
			Build()
	}
	return dest.Close()
}

// List returns the stored snapshots for one table.
func (t *LocalTarget) List(ctx context.Context, table string) ([]backup.SnapshotInfo, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	entries, err := os.ReadDir(t.path)
	if err != nil {
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", t.path).
			Build()
	}
	var snapshots []backup.SnapshotInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		tbl, ts, ok := backup.ParseSnapshotName(entry.Name())
		if !ok || tbl != table {
			continue
		}
		info := backup.SnapshotInfo{Name: entry.Name(), Table: tbl, Timestamp: ts}
		if fi, err := entry.Info(); err == nil {
			info.Size = fi.Size()
		}
		snapshots = append(snapshots, info)
	}
	return snapshots, nil
}

// Delete removes a stored snapshot by file name.
func (t *LocalTarget) Delete(ctx context.Context, name string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := validSnapshotName(name); err != nil {
		return err
	}
	if err := os.Remove(filepath.Join(t.path, name)); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("name", name).
			Build()
	}
	return nil
}

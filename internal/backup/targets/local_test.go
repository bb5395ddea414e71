package targets

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/conf"
)

func stageSnapshot(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("snapshot"), 0o600))
	return path
}

func TestLocalTarget_StoreListDelete(t *testing.T) {
	staging := t.TempDir()
	dest := t.TempDir()
	ctx := context.Background()

	target, err := NewLocalTarget(map[string]any{"path": dest})
	require.NoError(t, err)
	require.NoError(t, target.Validate())

	ts := time.Date(2026, 3, 1, 9, 0, 0, 0, time.Local)
	name := backup.SnapshotName("movies", ts)
	src := stageSnapshot(t, staging, name)

	meta := &backup.Metadata{ID: "x", Table: "movies", Timestamp: ts, Size: 8, Rows: 1}
	require.NoError(t, target.Store(ctx, src, meta))

	snapshots, err := target.List(ctx, "movies")
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, name, snapshots[0].Name)
	assert.Equal(t, ts, snapshots[0].Timestamp)

	other, err := target.List(ctx, "reviews")
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, target.Delete(ctx, name))
	snapshots, err = target.List(ctx, "movies")
	require.NoError(t, err)
	assert.Empty(t, snapshots)
}

func TestLocalTarget_DeleteRejectsTraversal(t *testing.T) {
	target, err := NewLocalTarget(map[string]any{"path": t.TempDir()})
	require.NoError(t, err)

	for _, name := range []string{"../escape.parquet", "a/b.parquet", ""} {
		assert.Error(t, target.Delete(context.Background(), name), "name %q", name)
	}
}

func TestNewLocalTarget_RequiresPath(t *testing.T) {
	_, err := NewLocalTarget(map[string]any{})
	assert.Error(t, err)
}

func TestBuild(t *testing.T) {
	target, err := Build(&conf.BackupTargetConfig{
		Type:     "local",
		Settings: map[string]any{"path": t.TempDir()},
	})
	require.NoError(t, err)
	assert.Equal(t, "local", target.Name())

	_, err = Build(&conf.BackupTargetConfig{Type: "s3"})
	assert.Error(t, err)

	_, err = Build(&conf.BackupTargetConfig{
		Type:     "ftp",
		Settings: map[string]any{"host": "ftp.example.com", "password": "secret"},
	})
	require.NoError(t, err)

	_, err = Build(&conf.BackupTargetConfig{
		Type: "sftp",
		Settings: map[string]any{
			"host":     "sftp.example.com",
			"username": "backup",
			"password": "secret",
		},
	})
	require.NoError(t, err)
}

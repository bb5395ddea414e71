package targets

import (
	"context"
	"fmt"
	"os"
	"path"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/errors"
)

// FTPTarget stores snapshots on an FTP server. A fresh connection is opened
// per operation; backup runs are infrequent enough that pooling is not worth
// the reconnect handling.
type FTPTarget struct {
	host     string
	port     int
	username string
	password string
	path     string
	timeout  time.Duration
}

// NewFTPTarget builds an FTP target from its settings block. Recognized
// settings: host, port, username, password, path, timeout.
func NewFTPTarget(settings map[string]any) (*FTPTarget, error) {
	t := &FTPTarget{
		host:     stringSetting(settings, "host", ""),
		port:     intSetting(settings, "port", 21),
		username: stringSetting(settings, "username", "anonymous"),
		password: stringSetting(settings, "password", ""),
		path:     stringSetting(settings, "path", "."),
		timeout:  durationSetting(settings, "timeout", 30*time.Second),
	}
	if t.host == "" {
		return nil, errors.Newf("ftp target requires a host").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return t, nil
}

// Name returns the target name.
func (t *FTPTarget) Name() string {
	return "ftp"
}

// Validate checks the target configuration without connecting.
func (t *FTPTarget) Validate() error {
	if t.port < 1 || t.port > 65535 {
		return errors.Newf("ftp target port %d out of range", t.port).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return nil
}

func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(t.timeout))
	if err != nil {
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("host", t.host).
			Build()
	}
	if err := conn.Login(t.username, t.password); err != nil {
		_ = conn.Quit()
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("host", t.host).
			Build()
	}
	return conn, nil
}

// Store uploads the snapshot file to the configured directory.
func (t *FTPTarget) Store(ctx context.Context, sourcePath string, metadata *backup.Metadata) error {
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	// Best effort, the directory usually exists already.
	_ = conn.MakeDir(t.path)

	f, err := os.Open(sourcePath)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryFileIO).
			Context("path", sourcePath).
			Build()
	}
	defer f.Close()

	remote := path.Join(t.path, path.Base(sourcePath))
	if err := conn.Stor(remote, f); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("remote", remote).
			Build()
	}
	return nil
}

// List returns the stored snapshots for one table.
func (t *FTPTarget) List(ctx context.Context, table string) ([]backup.SnapshotInfo, error) {
	conn, err := t.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = conn.Quit() }()

	entries, err := conn.List(t.path)
	if err != nil {
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("path", t.path).
			Build()
	}
	var snapshots []backup.SnapshotInfo
	for _, entry := range entries {
		if entry.Type != ftp.EntryTypeFile {
			continue
		}
		tbl, ts, ok := backup.ParseSnapshotName(entry.Name)
		if !ok || tbl != table {
			continue
		}
		snapshots = append(snapshots, backup.SnapshotInfo{
			Name:      entry.Name,
			Table:     tbl,
			Timestamp: ts,
			Size:      int64(entry.Size),
		})
	}
	return snapshots, nil
}

// Delete removes a stored snapshot by file name.
func (t *FTPTarget) Delete(ctx context.Context, name string) error {
	if err := validSnapshotName(name); err != nil {
		return err
	}
	conn, err := t.connect(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = conn.Quit() }()

	if err := conn.Delete(path.Join(t.path, name)); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("name", name).
			Build()
	}
	return nil
}

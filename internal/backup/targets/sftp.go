package targets

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/ay5710/cinesense/internal/backup"
	"github.com/ay5710/cinesense/internal/errors"
)

// SFTPTarget stores snapshots over SFTP. Authentication uses a private key
// file when configured, falling back to password auth.
type SFTPTarget struct {
	host           string
	port           int
	username       string
	password       string
	keyFile        string
	knownHostsFile string
	path           string
	timeout        time.Duration
}

// NewSFTPTarget builds an SFTP target from its settings block. Recognized
// settings: host, port, username, password, keyfile, knownhosts, path,
// timeout. Without a knownhosts file, host keys are not verified.
func NewSFTPTarget(settings map[string]any) (*SFTPTarget, error) {
	t := &SFTPTarget{
		host:           stringSetting(settings, "host", ""),
		port:           intSetting(settings, "port", 22),
		username:       stringSetting(settings, "username", ""),
		password:       stringSetting(settings, "password", ""),
		keyFile:        stringSetting(settings, "keyfile", ""),
		knownHostsFile: stringSetting(settings, "knownhosts", ""),
		path:           stringSetting(settings, "path", "."),
		timeout:        durationSetting(settings, "timeout", 30*time.Second),
	}
	if t.host == "" {
		return nil, errors.Newf("sftp target requires a host").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if t.username == "" {
		return nil, errors.Newf("sftp target requires a username").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	return t, nil
}

// Name returns the target name.
func (t *SFTPTarget) Name() string {
	return "sftp"
}

// Validate checks the target configuration without connecting.
func (t *SFTPTarget) Validate() error {
	if t.port < 1 || t.port > 65535 {
		return errors.Newf("sftp target port %d out of range", t.port).
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if t.password == "" && t.keyFile == "" {
		return errors.Newf("sftp target requires a password or key file").
			Component("backup").
			Category(errors.CategoryConfiguration).
			Build()
	}
	if t.keyFile != "" {
		if _, err := os.Stat(t.keyFile); err != nil {
			return errors.New(err).
				Component("backup").
				Category(errors.CategoryConfiguration).
				Context("keyfile", t.keyFile).
				Build()
		}
	}
	return nil
}

func (t *SFTPTarget) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.keyFile != "" {
		key, err := os.ReadFile(t.keyFile)
		if err != nil {
			return nil, errors.New(err).
				Component("backup").
				Category(errors.CategoryConfiguration).
				Context("keyfile", t.keyFile).
				Build()
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, errors.New(err).
				Component("backup").
				Category(errors.CategoryConfiguration).
				Context("keyfile", t.keyFile).
				Build()
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	if t.password != "" {
		methods = append(methods, ssh.Password(t.password))
	}
	return methods, nil
}

func (t *SFTPTarget) connect() (*ssh.Client, *sftp.Client, error) {
	methods, err := t.authMethods()
	if err != nil {
		return nil, nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey() //nolint:gosec // opt-in via knownhosts setting
	if t.knownHostsFile != "" {
		cb, err := knownhosts.New(t.knownHostsFile)
		if err != nil {
			return nil, nil, errors.New(err).
				Component("backup").
				Category(errors.CategoryConfiguration).
				Context("knownhosts", t.knownHostsFile).
				Build()
		}
		hostKeyCallback = cb
	}

	addr := fmt.Sprintf("%s:%d", t.host, t.port)
	sshClient, err := ssh.Dial("tcp", addr, &ssh.ClientConfig{
		User:            t.username,
		Auth:            methods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         t.timeout,
	})
	if err != nil {
		return nil, nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("host", t.host).
			Build()
	}
	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("host", t.host).
			Build()
	}
	return sshClient, client, nil
}

// Store uploads the snapshot file to the configured directory.
func (t *SFTPTarget) Store(ctx context.Context, sourcePath string, metadata *backup.Metadata) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	sshClient, client, err := t.connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = sshClient.Close()
	}()

	if err := client.MkdirAll(t.path); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("path", t.path).
			Build()
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

	remote := path.Join(t.path, path.Base(sourcePath))
	dest, err := client.Create(remote)
	if err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("remote", remote).
			Build()
	}
	if _, err := io.Copy(dest, src); err != nil {
		_ = dest.Close()
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("remote", remote).
			Build()
	}
	return dest.Close()
}

// List returns the stored snapshots for one table.
func (t *SFTPTarget) List(ctx context.Context, table string) ([]backup.SnapshotInfo, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	sshClient, client, err := t.connect()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = client.Close()
		_ = sshClient.Close()
	}()

	entries, err := client.ReadDir(t.path)
	if err != nil {
		return nil, errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
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
		snapshots = append(snapshots, backup.SnapshotInfo{
			Name:      entry.Name(),
			Table:     tbl,
			Timestamp: ts,
			Size:      entry.Size(),
		})
	}
	return snapshots, nil
}

// Delete removes a stored snapshot by file name.
func (t *SFTPTarget) Delete(ctx context.Context, name string) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err := validSnapshotName(name); err != nil {
		return err
	}
	sshClient, client, err := t.connect()
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
		_ = sshClient.Close()
	}()

	if err := client.Remove(path.Join(t.path, name)); err != nil {
		return errors.New(err).
			Component("backup").
			Category(errors.CategoryNetwork).
			Context("name", name).
			Build()
	}
	return nil
}

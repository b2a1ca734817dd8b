package transport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

// RemoteFS is the file access the mirror needs on the remote side.
type RemoteFS interface {
	MkdirAll(path string) error
	Create(path string) (io.WriteCloser, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Remove(path string) error
	Rename(oldpath, newpath string) error
	Close() error
}

// SFTPFS implements RemoteFS over an SFTP connection
type SFTPFS struct {
	client *sftp.Client
	conn   *ssh.Client
}

// DialSFTP connects over SSH and starts an SFTP session.
func DialSFTP(ctx context.Context, cfg SSHConfig) (*SFTPFS, error) {
	conn, err := DialSSH(ctx, cfg)
	if err != nil {
		return nil, err
	}
	client, err := sftp.NewClient(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("start sftp session: %w", err)
	}
	return &SFTPFS{client: client, conn: conn}, nil
}

func (fs *SFTPFS) MkdirAll(path string) error {
	return fs.client.MkdirAll(path)
}

func (fs *SFTPFS) Create(path string) (io.WriteCloser, error) {
	f, err := fs.client.Create(path)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (fs *SFTPFS) ReadDir(path string) ([]os.FileInfo, error) {
	return fs.client.ReadDir(path)
}

func (fs *SFTPFS) Remove(path string) error {
	return fs.client.Remove(path)
}

// Rename replaces newpath atomically when the server supports the
// posix-rename extension; plain SFTP rename refuses to overwrite.
func (fs *SFTPFS) Rename(oldpath, newpath string) error {
	err := fs.client.PosixRename(oldpath, newpath)
	if err == nil {
		return nil
	}
	var statusErr *sftp.StatusError
	if errors.As(err, &statusErr) && statusErr.FxCode() == sftp.ErrSSHFxOpUnsupported {
		return fs.client.Rename(oldpath, newpath)
	}
	return err
}

func (fs *SFTPFS) Close() error {
	return errors.Join(fs.client.Close(), fs.conn.Close())
}

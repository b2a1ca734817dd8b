package transport

import (
	"io"
	"os"
)

// LocalFS implements RemoteFS on a local path, for mirrors to mounted
// network storage.
type LocalFS struct{}

func (LocalFS) MkdirAll(path string) error { return os.MkdirAll(path, 0o750) }

func (LocalFS) Create(path string) (io.WriteCloser, error) {
	//nolint:gosec // G304: path is built from the configured mirror dir
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o640)
	if err != nil {
		return nil, err
	}
	return f, nil
}

func (LocalFS) ReadDir(path string) ([]os.FileInfo, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	infos := make([]os.FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

func (LocalFS) Remove(path string) error           { return os.Remove(path) }
func (LocalFS) Rename(oldpath, newpath string) error { return os.Rename(oldpath, newpath) }
func (LocalFS) Close() error                        { return nil }

// Package remote copies new snapshot archives to off-site storage and
// applies retention there.
package remote

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"

	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/melih-ucgun/botsnap/internal/transport"
)

// Dialer opens a session to the remote storage.
type Dialer func(ctx context.Context) (transport.RemoteFS, error)

// Mirror is a snapshot.Listener uploading every new snapshot archive.
type Mirror struct {
	dial   Dialer
	dir    string
	keep   int
	logger core.Logger
}

func NewMirror(dial Dialer, dir string, keep int, logger core.Logger) *Mirror {
	if logger == nil {
		logger = core.NopLogger{}
	}
	if keep < 1 {
		keep = consts.DefaultKeepCount
	}
	return &Mirror{dial: dial, dir: dir, keep: keep, logger: logger}
}

// FromConfig builds the mirror for the configured protocol.
func FromConfig(cfg config.RemoteConfig, logger core.Logger) (*Mirror, error) {
	var dial Dialer
	switch cfg.Protocol {
	case "sftp", "":
		sshCfg := transport.SSHConfig{
			Host:       cfg.Host,
			Port:       cfg.Port,
			User:       cfg.User,
			Password:   cfg.Password,
			KeyPath:    cfg.KeyPath,
			KnownHosts: cfg.KnownHosts,
			Timeout:    cfg.Timeout,
		}
		dial = func(ctx context.Context) (transport.RemoteFS, error) {
			fs, err := transport.DialSFTP(ctx, sshCfg)
			if err != nil {
				return nil, err
			}
			return fs, nil
		}
	case "dir":
		dial = func(ctx context.Context) (transport.RemoteFS, error) {
			return transport.LocalFS{}, nil
		}
	default:
		return nil, fmt.Errorf("unsupported remote protocol %q", cfg.Protocol)
	}
	return NewMirror(dial, cfg.Dir, cfg.Keep, logger), nil
}

func (m *Mirror) Name() string { return "mirror" }

func (m *Mirror) Notify(ctx context.Context, ev snapshot.Event) error {
	if ev.Op != snapshot.OpCreate || !ev.Success() || ev.Result == nil || ev.Result.Archive == nil {
		return nil
	}
	return m.Upload(ctx, ev.Result.Archive)
}

// Upload copies the archive to the remote directory and prunes old remote
// snapshots.
func (m *Mirror) Upload(ctx context.Context, a *snapshot.Archive) error {
	rfs, err := m.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer rfs.Close()

	if err := rfs.MkdirAll(m.dir); err != nil {
		return fmt.Errorf("create remote dir %s: %w", m.dir, err)
	}

	dst := path.Join(m.dir, a.Name)
	partial := path.Join(m.dir, "."+a.Name+".partial")
	if err := copyTo(rfs, a.Path, partial); err != nil {
		rfs.Remove(partial) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("upload %s: %w", a.Name, err)
	}
	if err := rfs.Rename(partial, dst); err != nil {
		rfs.Remove(partial) //nolint:errcheck // Best effort cleanup
		return fmt.Errorf("finalize %s: %w", a.Name, err)
	}
	m.logger.Info("Archive mirrored", "archive", a.Name, "dir", m.dir)

	removed, err := m.prune(rfs)
	for _, name := range removed {
		m.logger.Debug("Pruned remote archive", "archive", name)
	}
	return err
}

func copyTo(rfs transport.RemoteFS, src, dst string) error {
	//nolint:gosec // G304: src is an archive this process just wrote
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := rfs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// prune keeps the newest keep snapshot archives in the remote directory.
func (m *Mirror) prune(rfs transport.RemoteFS) ([]string, error) {
	infos, err := rfs.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("list remote dir: %w", err)
	}

	var archives []snapshot.Archive
	for _, info := range infos {
		if !info.Mode().IsRegular() {
			continue
		}
		a, err := snapshot.ParseName(info.Name())
		if err != nil || a.Tag != consts.TagSnapshot {
			continue
		}
		archives = append(archives, a)
	}
	snapshot.SortNewestFirst(archives)
	if len(archives) <= m.keep {
		return nil, nil
	}

	var removed []string
	var errs []error
	for _, a := range archives[m.keep:] {
		if err := rfs.Remove(path.Join(m.dir, a.Name)); err != nil {
			errs = append(errs, fmt.Errorf("remove remote %s: %w", a.Name, err))
			continue
		}
		removed = append(removed, a.Name)
	}
	return removed, errors.Join(errs...)
}

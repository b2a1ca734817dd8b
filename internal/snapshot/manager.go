// Package snapshot implements the backup lifecycle of a bot DataSet:
// quiesce the writer, archive, resume, prune, and the reverse for restore.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/melih-ucgun/botsnap/internal/lock"
	"github.com/melih-ucgun/botsnap/internal/writer"
)

// DataFile is one file of the DataSet, relative to the DataSet root.
type DataFile struct {
	Path    string
	Mode    os.FileMode
	HasMode bool
}

// Settings configure a Manager.
type Settings struct {
	Root           string
	Files          []DataFile
	Dir            string
	Compression    string
	Level          int
	Keep           int
	KeepPreRestore int
	LockPath       string
	LockTimeout    time.Duration
}

// SettingsFromConfig converts the loaded configuration.
func SettingsFromConfig(cfg *config.Config) (Settings, error) {
	s := Settings{
		Root:           cfg.DataSet.Root,
		Dir:            cfg.Archive.Dir,
		Compression:    cfg.Archive.Compression,
		Level:          cfg.Archive.Level,
		Keep:           cfg.Retention.Keep,
		KeepPreRestore: cfg.Retention.KeepPreRestore,
		LockPath:       cfg.LockPath(),
		LockTimeout:    cfg.Lock.Timeout,
	}
	for _, f := range cfg.DataSet.Files {
		mode, ok, err := f.FileMode()
		if err != nil {
			return Settings{}, err
		}
		s.Files = append(s.Files, DataFile{Path: filepath.Clean(f.Path), Mode: mode, HasMode: ok})
	}
	return s, nil
}

// Manager runs snapshot operations against one DataSet.
type Manager struct {
	settings  Settings
	writer    writer.Writer
	logger    core.Logger
	ui        core.UI
	listeners []Listener
	now       func() time.Time
	hostname  string
}

func NewManager(settings Settings, w writer.Writer, logger core.Logger, ui core.UI) *Manager {
	if settings.Keep < 1 {
		settings.Keep = consts.DefaultKeepCount
	}
	if settings.KeepPreRestore < 1 {
		settings.KeepPreRestore = consts.DefaultKeepCount
	}
	if settings.LockPath == "" {
		settings.LockPath = filepath.Join(settings.Dir, consts.LockFileName)
	}
	if settings.LockTimeout <= 0 {
		settings.LockTimeout = 30 * time.Second
	}
	if logger == nil {
		logger = core.NopLogger{}
	}
	if ui == nil {
		ui = &core.NoOpUI{}
	}
	if w == nil {
		w = writer.NopWriter{}
	}
	host, _ := os.Hostname()

	return &Manager{
		settings: settings,
		writer:   w,
		logger:   logger,
		ui:       ui,
		now:      time.Now,
		hostname: host,
	}
}

// AddListener registers l to be told about every finished operation.
func (m *Manager) AddListener(l Listener) {
	m.listeners = append(m.listeners, l)
}

// Settings returns the effective settings.
func (m *Manager) Settings() Settings {
	return m.settings
}

func (m *Manager) keepFor(tag string) int {
	if tag == consts.TagPreRestore {
		return m.settings.KeepPreRestore
	}
	return m.settings.Keep
}

func (m *Manager) filePaths() []string {
	paths := make([]string, len(m.settings.Files))
	for i, f := range m.settings.Files {
		paths[i] = f.Path
	}
	return paths
}

// List returns all archives in the archive directory, newest first.
// Files not matching the archive naming pattern are ignored.
func (m *Manager) List() ([]Archive, error) {
	entries, err := os.ReadDir(m.settings.Dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read archive dir: %w", err)
	}

	var archives []Archive
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		a, err := ParseName(e.Name())
		if err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		a.Path = filepath.Join(m.settings.Dir, e.Name())
		a.Size = info.Size()
		archives = append(archives, a)
	}
	SortNewestFirst(archives)
	return archives, nil
}

// Resolve turns a CLI argument into an archive path: an existing path is
// used as-is, otherwise a bare name is looked up in the archive directory.
func (m *Manager) Resolve(arg string) string {
	if arg == "" {
		return arg
	}
	if _, err := os.Stat(arg); err == nil {
		return arg
	}
	if filepath.Base(arg) == arg {
		candidate := filepath.Join(m.settings.Dir, arg)
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return arg
}

// Prune applies the retention policy to tag under the DataSet lock. keep
// overrides the configured count when positive.
func (m *Manager) Prune(ctx context.Context, tag string, keep int) (res *Result, err error) {
	res = &Result{Op: OpPrune, Started: m.now()}
	defer func() { m.finish(ctx, res, err) }()

	if keep <= 0 {
		keep = m.keepFor(tag)
	}

	l, err := lock.Acquire(ctx, m.settings.LockPath, m.settings.LockTimeout)
	if err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpPrune, Err: err}
	}
	defer m.unlock(l)

	removed, err := m.prune(tag, keep)
	res.Pruned = removed
	if err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpPrune, Err: err}
	}
	return res, nil
}

// prune keeps the keep newest archives of tag and deletes the rest.
// Deletion continues past failures, which are returned joined.
func (m *Manager) prune(tag string, keep int) ([]Archive, error) {
	all, err := m.List()
	if err != nil {
		return nil, err
	}

	var tagged []Archive
	for _, a := range all {
		if a.Tag == tag {
			tagged = append(tagged, a)
		}
	}
	if len(tagged) <= keep {
		return nil, nil
	}

	var removed []Archive
	var errs []error
	for _, a := range tagged[keep:] {
		if err := os.Remove(a.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", a.Name, err))
			continue
		}
		m.logger.Debug("Pruned archive", "archive", a.Name)
		removed = append(removed, a)
	}
	return removed, errors.Join(errs...)
}

// nextPath picks a free archive path for tag at t, adding a sequence
// suffix when an archive from the same second already exists.
func (m *Manager) nextPath(tag string, t time.Time) (string, int) {
	for seq := 0; ; seq++ {
		taken := false
		for _, c := range []string{consts.CompressionGzip, consts.CompressionZstd} {
			if _, err := os.Lstat(filepath.Join(m.settings.Dir, FormatName(tag, t, seq, c))); err == nil {
				taken = true
				break
			}
		}
		if !taken {
			return filepath.Join(m.settings.Dir, FormatName(tag, t, seq, m.settings.Compression)), seq
		}
	}
}

// stopWriter opens the snapshot window. The returned resume func must be
// deferred even when err is non-nil: a failed stop may have half-stopped the
// writer.
func (m *Manager) stopWriter(ctx context.Context, op string, res *Result) (resume func(), err error) {
	resume = func() {
		// Resume must run even if the operation was interrupted.
		rctx := context.WithoutCancel(ctx)
		if err := m.writer.Start(rctx); err != nil {
			m.logger.Error("Failed to resume writer", "writer", m.writer.Name(), "error", err)
			m.ui.Warning(res.warn("writer %s was not resumed: %v", m.writer.Name(), err))
			return
		}
		m.logger.Info("Writer resumed", "writer", m.writer.Name())
	}

	if err := m.writer.Stop(ctx); err != nil {
		return resume, newError(KindEnvironment, op, "stop writer %s: %w", m.writer.Name(), err)
	}
	m.logger.Info("Writer stopped", "writer", m.writer.Name())
	return resume, nil
}

func (m *Manager) unlock(l *lock.FileLock) {
	if err := l.Unlock(); err != nil {
		m.logger.Warn("Failed to release lock", "path", l.Path(), "error", err)
	}
}

func (m *Manager) ensureDir() error {
	if err := os.MkdirAll(m.settings.Dir, 0o750); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	return nil
}

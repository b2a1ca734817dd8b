package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/lock"
)

// RestoreOptions tune Restore.
type RestoreOptions struct {
	// SkipSafetyArchive disables the pre_restore archive of the current state.
	SkipSafetyArchive bool
	// DryRun validates the archive and reports what would be restored
	// without stopping the writer or touching the DataSet.
	DryRun bool
}

// rename is swapped in tests to simulate failures during the file swap.
var rename = os.Rename

// Restore replaces the DataSet with the contents of the archive at path.
// The archive is unpacked and verified in a staging directory before the
// writer is stopped; files are then swapped in, and any failure during the
// swap puts the previous files back.
func (m *Manager) Restore(ctx context.Context, path string, opts RestoreOptions) (res *Result, err error) {
	res = &Result{Op: OpRestore, Started: m.now(), DryRun: opts.DryRun}
	defer func() { m.finish(ctx, res, err) }()

	if err := checkReadable(path); err != nil {
		return res, &Error{Kind: KindPrecondition, Op: OpRestore, Err: err}
	}
	res.Archive = m.describe(path)

	const steps = 6

	if opts.DryRun {
		entries, err := archive.Entries(path)
		if err != nil {
			return res, &Error{Kind: KindVerification, Op: OpRestore, Err: err}
		}
		if _, err := archive.Verify(path); err != nil {
			return res, &Error{Kind: KindVerification, Op: OpRestore, Err: err}
		}
		res.Restored = entries
		return res, nil
	}

	if err := os.MkdirAll(m.settings.Root, 0o750); err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpRestore, Err: err}
	}
	if err := m.ensureDir(); err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpRestore, Err: err}
	}

	m.ui.Step(1, steps, "Acquiring lock")
	l, err := lock.Acquire(ctx, m.settings.LockPath, m.settings.LockTimeout)
	if err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpRestore, Err: err}
	}
	defer m.unlock(l)

	m.ui.Step(2, steps, "Unpacking archive to staging")
	staging, err := os.MkdirTemp(m.settings.Root, consts.StagingDirPrefix)
	if err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpRestore, Err: err}
	}
	defer os.RemoveAll(staging) //nolint:errcheck // Best effort cleanup

	if _, err := archive.Extract(path, staging); err != nil {
		kind := KindRestore
		if errors.Is(err, archive.ErrChecksumMismatch) || errors.Is(err, archive.ErrUnsafePath) {
			kind = KindVerification
		}
		return res, newError(kind, OpRestore, "unpack %s: %w", path, err)
	}
	files, err := stagedFiles(staging)
	if err != nil {
		return res, &Error{Kind: KindRestore, Op: OpRestore, Err: err}
	}
	if len(files) == 0 {
		return res, newError(KindVerification, OpRestore, "archive %s contains no files", path)
	}

	m.ui.Step(3, steps, "Stopping writer "+m.writer.Name())
	resume, err := m.stopWriter(ctx, OpRestore, res)
	defer resume()
	if err != nil {
		return res, err
	}

	if opts.SkipSafetyArchive {
		m.logger.Info("Safety archive skipped")
	} else {
		m.ui.Step(4, steps, "Creating safety archive")
		safety, err := m.bundle(ctx, OpRestore, consts.TagPreRestore, res)
		if err != nil {
			m.logger.Warn("Safety archive failed", "error", err)
			m.ui.Warning(res.warn("safety archive not created: %v", err))
		} else {
			res.SafetyArchive = safety
			m.logger.Info("Safety archive created", "archive", safety.Name)
		}
	}

	if err := ctx.Err(); err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpRestore, Err: err}
	}

	m.ui.Step(5, steps, "Swapping DataSet files")
	if err := m.swapIn(staging, files); err != nil {
		return res, &Error{Kind: KindRestore, Op: OpRestore, Err: err}
	}
	res.Restored = files

	m.ui.Step(6, steps, "Reapplying permissions")
	m.reapplyModes(res)

	if res.SafetyArchive != nil {
		removed, err := m.prune(consts.TagPreRestore, m.settings.KeepPreRestore)
		res.Pruned = removed
		if err != nil {
			m.ui.Warning(res.warn("pre-restore retention incomplete: %v", err))
		}
	}

	m.logger.Info("Archive restored", "archive", filepath.Base(path), "files", len(files))
	return res, nil
}

func checkReadable(path string) error {
	if path == "" {
		return errors.New("archive path is empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("archive %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("archive %s is not a regular file", path)
	}
	//nolint:gosec // G304: path is the operator's archive argument
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("archive %s is not readable: %w", path, err)
	}
	f.Close()
	if _, err := archive.CompressionFor(path); err != nil {
		return err
	}
	return nil
}

// describe returns archive metadata for path, parsed from its name when it
// follows the naming pattern.
func (m *Manager) describe(path string) *Archive {
	a, err := ParseName(filepath.Base(path))
	if err != nil {
		a = Archive{Name: filepath.Base(path)}
	}
	a.Path = path
	if info, err := os.Stat(path); err == nil {
		a.Size = info.Size()
	}
	return &a
}

// stagedFiles lists the regular files under dir as slash-separated
// relative paths.
func stagedFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			rel, err := filepath.Rel(dir, p)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	sort.Strings(files)
	return files, err
}

// swapIn moves staged files over the live DataSet. Live files are moved to
// a rollback directory first; on any failure the files already placed are
// removed and the originals moved back.
func (m *Manager) swapIn(staging string, files []string) error {
	rollback, err := os.MkdirTemp(m.settings.Root, consts.RollbackDirPrefix)
	if err != nil {
		return err
	}

	var moved, placed []string
	undo := func(cause error) error {
		var errs []error
		for _, rel := range placed {
			if err := os.Remove(filepath.Join(m.settings.Root, rel)); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, err)
			}
		}
		for _, rel := range moved {
			if err := rename(filepath.Join(rollback, rel), filepath.Join(m.settings.Root, rel)); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) > 0 {
			m.logger.Error("Rollback incomplete, previous files kept", "dir", rollback, "error", errors.Join(errs...))
			return fmt.Errorf("%w; rollback incomplete, previous files are in %s", cause, rollback)
		}
		os.RemoveAll(rollback) //nolint:errcheck // Best effort cleanup
		m.logger.Warn("Restore rolled back", "error", cause)
		return fmt.Errorf("%w; previous files restored", cause)
	}

	for _, rel := range files {
		live := filepath.Join(m.settings.Root, filepath.FromSlash(rel))
		staged := filepath.Join(staging, filepath.FromSlash(rel))
		back := filepath.Join(rollback, filepath.FromSlash(rel))

		if _, err := os.Lstat(live); err == nil {
			if err := os.MkdirAll(filepath.Dir(back), 0o750); err != nil {
				return undo(err)
			}
			if err := rename(live, back); err != nil {
				return undo(fmt.Errorf("move aside %s: %w", rel, err))
			}
			moved = append(moved, rel)
		}

		if err := os.MkdirAll(filepath.Dir(live), 0o750); err != nil {
			return undo(err)
		}
		if err := rename(staged, live); err != nil {
			return undo(fmt.Errorf("place %s: %w", rel, err))
		}
		placed = append(placed, rel)
	}

	if err := os.RemoveAll(rollback); err != nil {
		m.logger.Warn("Failed to remove rollback dir", "dir", rollback, "error", err)
	}
	return nil
}

// reapplyModes sets the configured permission mode on every DataSet file
// that has one. Failures are warnings.
func (m *Manager) reapplyModes(res *Result) {
	for _, f := range m.settings.Files {
		if !f.HasMode {
			continue
		}
		p := filepath.Join(m.settings.Root, f.Path)
		if err := os.Chmod(p, f.Mode); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			m.logger.Warn("Failed to set mode", "file", f.Path, "mode", fmt.Sprintf("%04o", f.Mode), "error", err)
			m.ui.Warning(res.warn("chmod %04o %s: %v", f.Mode, f.Path, err))
		}
	}
}

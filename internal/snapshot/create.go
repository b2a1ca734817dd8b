package snapshot

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/lock"
)

// Create takes a consistent snapshot of the DataSet:
// lock, stop the writer, archive, resume the writer, verify, prune.
func (m *Manager) Create(ctx context.Context) (res *Result, err error) {
	res = &Result{Op: OpCreate, Started: m.now()}
	defer func() { m.finish(ctx, res, err) }()

	const steps = 5

	if err := m.ensureDir(); err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpCreate, Err: err}
	}

	m.ui.Step(1, steps, "Acquiring lock")
	l, err := lock.Acquire(ctx, m.settings.LockPath, m.settings.LockTimeout)
	if err != nil {
		return res, &Error{Kind: KindEnvironment, Op: OpCreate, Err: err}
	}
	defer m.unlock(l)

	a, err := m.snapshotWindow(ctx, OpCreate, consts.TagSnapshot, res, steps)
	if err != nil {
		return res, err
	}
	res.Archive = a

	m.ui.Step(4, steps, "Verifying archive")
	if err := verifyArchive(a.Path); err != nil {
		return res, &Error{Kind: KindVerification, Op: OpCreate, Err: err}
	}

	m.ui.Step(5, steps, "Applying retention")
	removed, err := m.prune(consts.TagSnapshot, m.settings.Keep)
	res.Pruned = removed
	if err != nil {
		m.ui.Warning(res.warn("retention incomplete: %v", err))
	}

	m.logger.Info("Snapshot created", "archive", a.Name, "size", a.Size, "pruned", len(removed))
	return res, nil
}

// snapshotWindow stops the writer, bundles the DataSet under tag and
// resumes the writer before returning.
func (m *Manager) snapshotWindow(ctx context.Context, op, tag string, res *Result, steps int) (*Archive, error) {
	m.ui.Step(2, steps, "Stopping writer "+m.writer.Name())
	resume, err := m.stopWriter(ctx, op, res)
	defer resume()
	if err != nil {
		return nil, err
	}

	m.ui.Step(3, steps, "Archiving DataSet")
	return m.bundle(ctx, op, tag, res)
}

// bundle writes the DataSet into a new archive. The writer must already
// be stopped.
func (m *Manager) bundle(ctx context.Context, op, tag string, res *Result) (*Archive, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindEnvironment, Op: op, Err: err}
	}

	created := m.now()
	path, seq := m.nextPath(tag, created)

	manifest, err := archive.Write(path, archive.WriteOptions{
		Root:        m.settings.Root,
		Files:       m.filePaths(),
		Compression: m.settings.Compression,
		Level:       m.settings.Level,
		Manifest: archive.Manifest{
			ID:        uuid.NewString(),
			Tag:       tag,
			CreatedAt: created.UTC(),
			Host:      m.hostname,
		},
	})
	if err != nil {
		return nil, newError(KindEnvironment, op, "write archive: %w", err)
	}

	if tag == consts.TagSnapshot {
		res.Missing = manifest.Missing
	}
	for _, missing := range manifest.Missing {
		m.logger.Warn("DataSet file missing, skipped", "file", missing)
		m.ui.Warning(res.warn("%s: file %s not found, not archived", tag, missing))
	}
	if len(manifest.Files) == 0 {
		os.Remove(path) //nolint:errcheck // Best effort cleanup
		return nil, newError(KindVerification, op, "none of the DataSet files exist under %s", m.settings.Root)
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &Error{Kind: KindVerification, Op: op, Err: err}
	}

	return &Archive{
		Name:      filepath.Base(path),
		Path:      path,
		Tag:       tag,
		CreatedAt: created.UTC().Truncate(time.Second),
		Seq:       seq,
		Size:      info.Size(),
	}, nil
}

// verifyArchive checks that the archive exists, is non-empty and matches
// its manifest.
func verifyArchive(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("archive %s missing after write: %w", path, err)
	}
	if info.Size() == 0 {
		return fmt.Errorf("archive %s is empty", path)
	}
	if _, err := archive.Verify(path); err != nil {
		return err
	}
	return nil
}

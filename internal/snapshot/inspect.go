package snapshot

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"unicode/utf8"

	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/melih-ucgun/botsnap/internal/core"
)

// maxDiffSize bounds the files rendered as text diffs.
const maxDiffSize = 1 << 20

// Verify rereads the archive at path and checks every file against the
// manifest checksums.
func (m *Manager) Verify(path string) (*archive.Manifest, error) {
	if err := checkReadable(path); err != nil {
		return nil, &Error{Kind: KindPrecondition, Op: "verify", Err: err}
	}
	manifest, err := archive.Verify(path)
	if err != nil {
		return manifest, &Error{Kind: KindVerification, Op: "verify", Err: err}
	}
	return manifest, nil
}

// DiffStatus compares an archived file with the live DataSet.
type DiffStatus string

const (
	DiffUnchanged     DiffStatus = "unchanged"
	DiffChanged       DiffStatus = "changed"
	DiffOnlyInArchive DiffStatus = "only-in-archive"
	DiffOnlyLive      DiffStatus = "only-live"
)

// FileDiff is the comparison result for one file. Diff is set for
// changed text files only.
type FileDiff struct {
	Path   string
	Status DiffStatus
	Binary bool
	Diff   string
}

// Diff compares the archive with the live DataSet. With file set only that
// file is compared, otherwise every archived and configured file.
func (m *Manager) Diff(path, file string) ([]FileDiff, error) {
	if err := checkReadable(path); err != nil {
		return nil, &Error{Kind: KindPrecondition, Op: "diff", Err: err}
	}

	var names []string
	if file != "" {
		names = []string{filepath.ToSlash(filepath.Clean(file))}
	} else {
		entries, err := archive.Entries(path)
		if err != nil {
			return nil, &Error{Kind: KindVerification, Op: "diff", Err: err}
		}
		seen := make(map[string]bool)
		for _, n := range entries {
			seen[n] = true
		}
		for _, f := range m.settings.Files {
			if p := filepath.ToSlash(f.Path); !seen[p] {
				entries = append(entries, p)
				seen[p] = true
			}
		}
		sort.Strings(entries)
		names = entries
	}

	var diffs []FileDiff
	for _, name := range names {
		d, err := m.diffFile(path, name)
		if err != nil {
			return nil, err
		}
		if d != nil {
			diffs = append(diffs, *d)
		}
	}
	return diffs, nil
}

func (m *Manager) diffFile(path, name string) (*FileDiff, error) {
	archived, archErr := archive.ReadFile(path, name)
	if archErr != nil && !errors.Is(archErr, archive.ErrFileNotFound) {
		return nil, &Error{Kind: KindVerification, Op: "diff", Err: archErr}
	}
	//nolint:gosec // G304: name is a DataSet path or an archive entry
	live, liveErr := os.ReadFile(filepath.Join(m.settings.Root, filepath.FromSlash(name)))
	if liveErr != nil && !errors.Is(liveErr, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", name, liveErr)
	}

	inArchive := archErr == nil
	isLive := liveErr == nil
	d := &FileDiff{Path: name}

	switch {
	case !inArchive && !isLive:
		return nil, nil
	case !isLive:
		d.Status = DiffOnlyInArchive
		return d, nil
	case !inArchive:
		d.Status = DiffOnlyLive
		return d, nil
	}

	if sha256.Sum256(archived) == sha256.Sum256(live) {
		d.Status = DiffUnchanged
		return d, nil
	}
	d.Status = DiffChanged

	if !isText(archived) || !isText(live) {
		d.Binary = true
		return d, nil
	}
	d.Diff = core.GenerateDiff(string(live), string(archived))
	return d, nil
}

func isText(b []byte) bool {
	return len(b) <= maxDiffSize && !bytes.ContainsRune(b, 0) && utf8.Valid(b)
}

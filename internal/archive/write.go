package archive

import (
	"archive/tar"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/melih-ucgun/botsnap/internal/consts"
)

// WriteOptions describes what goes into a new archive.
type WriteOptions struct {
	Root        string
	Files       []string // relative to Root
	Compression string
	Level       int
	// Manifest carries ID, Tag, CreatedAt and Host. Files and Missing are
	// filled in by Write.
	Manifest Manifest
}

// Write bundles the DataSet files into dst. The archive is written to a
// temporary file in the same directory and renamed into place, so dst
// either does not exist or is complete. Files missing from Root are
// skipped and listed in Manifest.Missing.
func Write(dst string, opts WriteOptions) (*Manifest, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".botsnap-*.partial")
	if err != nil {
		return nil, fmt.Errorf("failed to create archive file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()        //nolint:errcheck // Best effort cleanup
			os.Remove(tmpPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	manifest := opts.Manifest
	manifest.Version = FormatVersion
	manifest.Files = nil
	manifest.Missing = nil

	comp, err := newCompressor(tmp, opts.Compression, opts.Level)
	if err != nil {
		return nil, err
	}
	tw := tar.NewWriter(comp)

	for _, rel := range opts.Files {
		entry, err := addFile(tw, opts.Root, filepath.ToSlash(filepath.Clean(rel)))
		if errors.Is(err, fs.ErrNotExist) {
			manifest.Missing = append(manifest.Missing, rel)
			continue
		}
		if err != nil {
			return nil, err
		}
		manifest.Files = append(manifest.Files, *entry)
	}

	if err := addManifest(tw, &manifest); err != nil {
		return nil, err
	}

	if err := tw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize tar stream: %w", err)
	}
	if err := comp.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize compression: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return nil, fmt.Errorf("failed to sync archive: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, fmt.Errorf("failed to close archive: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o640); err != nil {
		return nil, err
	}
	if err := os.Rename(tmpPath, dst); err != nil {
		return nil, fmt.Errorf("failed to move archive into place: %w", err)
	}
	committed = true

	return &manifest, nil
}

func addFile(tw *tar.Writer, root, rel string) (*FileEntry, error) {
	//nolint:gosec // G304: rel is validated by config
	f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%s is not a regular file", rel)
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return nil, err
	}
	hdr.Name = rel
	// Owner names depend on the host; numeric ids are enough.
	hdr.Uname, hdr.Gname = "", ""
	if err := tw.WriteHeader(hdr); err != nil {
		return nil, fmt.Errorf("failed to write header for %s: %w", rel, err)
	}

	h := sha256.New()
	if _, err := io.CopyN(tw, io.TeeReader(f, h), info.Size()); err != nil {
		return nil, fmt.Errorf("failed to archive %s: %w", rel, err)
	}

	return &FileEntry{
		Path:    rel,
		Size:    info.Size(),
		Mode:    info.Mode().Perm(),
		ModTime: info.ModTime().UTC(),
		SHA256:  hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func addManifest(tw *tar.Writer, m *Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	modTime := m.CreatedAt
	if modTime.IsZero() {
		modTime = time.Now()
	}
	hdr := &tar.Header{
		Name:    consts.ManifestEntryName,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: modTime,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write manifest header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}

package archive

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/melih-ucgun/botsnap/internal/consts"
)

// Limit extraction size to prevent decompression bombs.
const maxFileSize = 1 << 33

var (
	// ErrChecksumMismatch means an archive entry does not match its manifest.
	ErrChecksumMismatch = errors.New("checksum mismatch")
	// ErrUnsafePath means an entry would be written outside the target directory.
	ErrUnsafePath = errors.New("unsafe path in archive")
	// ErrFileNotFound means the requested file is not part of the archive.
	ErrFileNotFound = errors.New("file not found in archive")
)

// entryFunc receives each regular file entry. It must consume r.
type entryFunc func(hdr *tar.Header, r io.Reader) error

// walk visits every regular file of the archive, hashes it and returns the
// manifest (nil for archives written without one) and the hashes seen.
func walk(path string, fn entryFunc) (*Manifest, map[string]string, error) {
	tr, closers, err := openArchiveReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer closeAll(closers)

	var manifest *Manifest
	sums := make(map[string]string)

	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			return nil, nil, fmt.Errorf("%w: %s", ErrUnsafePath, hdr.Name)
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read tar entry: %w", err)
		}

		name, err := cleanEntryName(hdr.Name)
		if err != nil {
			return nil, nil, err
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			continue
		case tar.TypeReg:
		default:
			return nil, nil, fmt.Errorf("%w: %s has unsupported type %q", ErrUnsafePath, hdr.Name, hdr.Typeflag)
		}

		if hdr.Size > maxFileSize {
			return nil, nil, fmt.Errorf("file too large: %s is %d bytes (max %d)", name, hdr.Size, int64(maxFileSize))
		}

		if name == consts.ManifestEntryName {
			if manifest, err = decodeManifest(io.LimitReader(tr, hdr.Size)); err != nil {
				return nil, nil, err
			}
			continue
		}

		hdr.Name = name
		h := sha256.New()
		r := io.TeeReader(io.LimitReader(tr, hdr.Size), h)
		if fn != nil {
			if err := fn(hdr, r); err != nil {
				return nil, nil, err
			}
		}
		// Drain whatever fn left so the hash covers the whole entry.
		if _, err := io.Copy(io.Discard, r); err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
		sums[name] = hex.EncodeToString(h.Sum(nil))
	}

	return manifest, sums, nil
}

// cleanEntryName rejects absolute names and names escaping the archive root.
func cleanEntryName(name string) (string, error) {
	clean := filepath.ToSlash(filepath.Clean(filepath.FromSlash(name)))
	if name == "" || filepath.IsAbs(name) || strings.HasPrefix(name, "/") || !filepath.IsLocal(filepath.FromSlash(clean)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, name)
	}
	return clean, nil
}

// checkSums compares the hashes seen with the manifest.
func checkSums(manifest *Manifest, sums map[string]string) error {
	if manifest == nil {
		return nil
	}
	var problems []string
	for _, f := range manifest.Files {
		got, ok := sums[f.Path]
		switch {
		case !ok:
			problems = append(problems, f.Path+": missing")
		case got != f.SHA256:
			problems = append(problems, f.Path+": sha256 "+got+" != "+f.SHA256)
		}
	}
	for name := range sums {
		if manifest.File(name) == nil {
			problems = append(problems, name+": not in manifest")
		}
	}
	if len(problems) > 0 {
		sort.Strings(problems)
		return fmt.Errorf("%w: %s", ErrChecksumMismatch, strings.Join(problems, "; "))
	}
	return nil
}

// Verify reads the whole archive and checks every entry against the
// manifest. Archives without a manifest only get a structural check.
func Verify(path string) (*Manifest, error) {
	manifest, sums, err := walk(path, nil)
	if err != nil {
		return nil, err
	}
	if err := checkSums(manifest, sums); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// ReadManifest returns the archive manifest, or nil if it has none.
func ReadManifest(path string) (*Manifest, error) {
	manifest, _, err := walk(path, nil)
	return manifest, err
}

// Entries lists the relative paths of the files in the archive.
func Entries(path string) ([]string, error) {
	_, sums, err := walk(path, nil)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(sums))
	for name := range sums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// ReadFile returns the content of one file inside the archive.
func ReadFile(path, name string) ([]byte, error) {
	want := filepath.ToSlash(filepath.Clean(name))
	var buf bytes.Buffer
	found := false

	_, _, err := walk(path, func(hdr *tar.Header, r io.Reader) error {
		if hdr.Name != want {
			return nil
		}
		found = true
		_, err := io.Copy(&buf, r)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, name)
	}
	return buf.Bytes(), nil
}

// Extract unpacks the archive into destDir, which must exist and should be
// empty, then verifies the extracted files against the manifest. On
// any error destDir may hold a partial extraction; the caller owns cleanup.
func Extract(path, destDir string) (*Manifest, error) {
	manifest, sums, err := walk(path, func(hdr *tar.Header, r io.Reader) error {
		destPath, err := validateAndBuildDestPath(destDir, hdr.Name)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(destPath), 0o750); err != nil {
			return fmt.Errorf("failed to create directory for %s: %w", hdr.Name, err)
		}
		if err := extractFile(r, destPath, os.FileMode(hdr.Mode).Perm()); err != nil {
			return fmt.Errorf("failed to extract %s: %w", hdr.Name, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := checkSums(manifest, sums); err != nil {
		return manifest, err
	}
	return manifest, nil
}

// validateAndBuildDestPath validates and builds the destination path for extraction
func validateAndBuildDestPath(destDir, fileName string) (string, error) {
	destPath := filepath.Join(destDir, filepath.FromSlash(fileName))

	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return "", fmt.Errorf("%w: %s", ErrUnsafePath, fileName)
	}

	return destPath, nil
}

func extractFile(r io.Reader, destPath string, mode os.FileMode) error {
	//nolint:gosec // G304: destPath is validated by caller
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return err
	}

	_, err = io.Copy(out, r)
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if mode == 0 {
		mode = 0o600
	}
	if err == nil {
		err = os.Chmod(destPath, mode)
	}
	if err != nil {
		os.Remove(destPath) //nolint:errcheck // Best effort cleanup on error
		return err
	}
	return nil
}

package archive

import (
	"archive/tar"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rawEntry struct {
	name     string
	body     string
	typeflag byte
}

// writeRawArchive builds a tar.gz by hand so tests can produce archives
// Write would never create.
func writeRawArchive(t *testing.T, path string, entries []rawEntry) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for _, e := range entries {
		typ := e.typeflag
		if typ == 0 {
			typ = tar.TypeReg
		}
		hdr := &tar.Header{Name: e.name, Mode: 0o644, Size: int64(len(e.body)), Typeflag: typ}
		if typ == tar.TypeSymlink {
			hdr.Size = 0
			hdr.Linkname = "/etc/passwd"
		}
		require.NoError(t, tw.WriteHeader(hdr))
		if hdr.Size > 0 {
			_, err := tw.Write([]byte(e.body))
			require.NoError(t, err)
		}
	}
	require.NoError(t, tw.Close())
	require.NoError(t, gz.Close())
	require.NoError(t, f.Close())
}

func setupDataSet(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "bot.db"), []byte("sqlite-bytes"), 0o700))
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("TOKEN=abc\n"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "logs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "logs", "bot.log"), []byte("started\n"), 0o644))
	return root
}

func TestWriteExtract_RoundTrip(t *testing.T) {
	for _, compression := range []string{consts.CompressionGzip, consts.CompressionZstd} {
		t.Run(compression, func(t *testing.T) {
			root := setupDataSet(t)
			out := t.TempDir()
			dst := filepath.Join(out, "snapshot_20240101_000000"+Extension(compression))

			created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
			m, err := Write(dst, WriteOptions{
				Root:        root,
				Files:       []string{"bot.db", ".env", "logs/bot.log", "missing.txt"},
				Compression: compression,
				Manifest:    Manifest{ID: "id-1", Tag: "snapshot", CreatedAt: created},
			})
			require.NoError(t, err)
			assert.Len(t, m.Files, 3)
			assert.Equal(t, []string{"missing.txt"}, m.Missing)
			assert.Equal(t, os.FileMode(0o700), m.File("bot.db").Mode)

			// No temp files left behind.
			leftovers, _ := filepath.Glob(filepath.Join(out, ".botsnap-*"))
			assert.Empty(t, leftovers)

			verified, err := Verify(dst)
			require.NoError(t, err)
			assert.Equal(t, "id-1", verified.ID)
			assert.True(t, verified.CreatedAt.Equal(created))

			dest := t.TempDir()
			_, err = Extract(dst, dest)
			require.NoError(t, err)

			data, err := os.ReadFile(filepath.Join(dest, "logs", "bot.log"))
			require.NoError(t, err)
			assert.Equal(t, "started\n", string(data))

			info, err := os.Stat(filepath.Join(dest, ".env"))
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

			_, err = os.Stat(filepath.Join(dest, consts.ManifestEntryName))
			assert.True(t, os.IsNotExist(err), "manifest must not be extracted")
		})
	}
}

func TestReadFileAndEntries(t *testing.T) {
	root := setupDataSet(t)
	dst := filepath.Join(t.TempDir(), "a.tar.gz")
	_, err := Write(dst, WriteOptions{Root: root, Files: []string{".env", "bot.db"}})
	require.NoError(t, err)

	data, err := ReadFile(dst, ".env")
	require.NoError(t, err)
	assert.Equal(t, "TOKEN=abc\n", string(data))

	_, err = ReadFile(dst, "nope")
	assert.ErrorIs(t, err, ErrFileNotFound)

	names, err := Entries(dst)
	require.NoError(t, err)
	assert.Equal(t, []string{".env", "bot.db"}, names)
}

func TestExtract_RejectsTraversal(t *testing.T) {
	tests := []struct {
		name    string
		entries []rawEntry
	}{
		{"dotdot", []rawEntry{{name: "../evil.txt", body: "x"}}},
		{"absolute", []rawEntry{{name: "/tmp/evil.txt", body: "x"}}},
		{"nested dotdot", []rawEntry{{name: "a/../../evil.txt", body: "x"}}},
		{"symlink", []rawEntry{{name: "link", typeflag: tar.TypeSymlink}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			src := filepath.Join(dir, "bad.tar.gz")
			writeRawArchive(t, src, tt.entries)

			dest := filepath.Join(dir, "dest")
			require.NoError(t, os.Mkdir(dest, 0o750))
			_, err := Extract(src, dest)
			assert.ErrorIs(t, err, ErrUnsafePath)

			_, statErr := os.Stat(filepath.Join(dir, "evil.txt"))
			assert.True(t, os.IsNotExist(statErr))
		})
	}
}

func TestVerify_DetectsMismatch(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "tampered.tar.gz")
	manifest := `{"version":1,"id":"x","tag":"snapshot","created_at":"2024-01-01T00:00:00Z",
"files":[{"path":"bot.db","size":4,"mode":448,"sha256":"0000"}]}`
	writeRawArchive(t, src, []rawEntry{
		{name: "bot.db", body: "evil"},
		{name: consts.ManifestEntryName, body: manifest},
	})

	_, err := Verify(src)
	assert.ErrorIs(t, err, ErrChecksumMismatch)

	_, err = Extract(src, t.TempDir())
	assert.ErrorIs(t, err, ErrChecksumMismatch)
}

func TestVerify_LegacyArchiveWithoutManifest(t *testing.T) {
	src := filepath.Join(t.TempDir(), "legacy.tar.gz")
	writeRawArchive(t, src, []rawEntry{{name: "secure_bot.db", body: "db"}})

	m, err := Verify(src)
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestCompressionFor(t *testing.T) {
	c, err := CompressionFor("snapshot_20240101_000000.tar.zst")
	require.NoError(t, err)
	assert.Equal(t, consts.CompressionZstd, c)

	c, err = CompressionFor("x.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, consts.CompressionGzip, c)

	_, err = CompressionFor("x.zip")
	assert.Error(t, err)
}

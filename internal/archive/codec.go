// Package archive reads and writes DataSet archives: a tar stream of the
// DataSet files followed by a JSON manifest, compressed with gzip or zstd.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/melih-ucgun/botsnap/internal/consts"
)

// CompressionFor returns the compression implied by an archive file name.
func CompressionFor(name string) (string, error) {
	switch {
	case strings.HasSuffix(name, consts.ExtGzip), strings.HasSuffix(name, ".tgz"):
		return consts.CompressionGzip, nil
	case strings.HasSuffix(name, consts.ExtZstd):
		return consts.CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown archive extension: %s", name)
	}
}

// Extension returns the file extension used for compression.
func Extension(compression string) string {
	if compression == consts.CompressionZstd {
		return consts.ExtZstd
	}
	return consts.ExtGzip
}

// newCompressor wraps w. The returned closer flushes the compressed stream
// and must be closed before the underlying file.
func newCompressor(w io.Writer, compression string, level int) (io.WriteCloser, error) {
	switch compression {
	case consts.CompressionZstd:
		opts := []zstd.EOption{}
		if level > 0 {
			opts = append(opts, zstd.WithEncoderLevel(zstd.EncoderLevelFromZstd(level)))
		}
		return zstd.NewWriter(w, opts...)
	case consts.CompressionGzip, "":
		if level == 0 {
			level = gzip.DefaultCompression
		}
		return gzip.NewWriterLevel(w, level)
	default:
		return nil, fmt.Errorf("unsupported compression %q", compression)
	}
}

// openArchiveReader opens an archive file and returns a tar reader.
// The caller is responsible for closing the returned closers in reverse order.
func openArchiveReader(path string) (*tar.Reader, []io.Closer, error) {
	compression, err := CompressionFor(path)
	if err != nil {
		return nil, nil, err
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open archive: %w", err)
	}
	closers := []io.Closer{file}

	var reader io.Reader
	switch compression {
	case consts.CompressionZstd:
		dec, err := zstd.NewReader(file)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to create zstd reader: %w", err)
		}
		rc := dec.IOReadCloser()
		closers = append(closers, rc)
		reader = rc
	default:
		gzReader, err := gzip.NewReader(file)
		if err != nil {
			closeAll(closers)
			return nil, nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		closers = append(closers, gzReader)
		reader = gzReader
	}

	return tar.NewReader(reader), closers, nil
}

// closeAll closes all closers in reverse order
func closeAll(closers []io.Closer) {
	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close() //nolint:errcheck // Best effort cleanup
	}
}

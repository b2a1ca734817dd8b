package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"
)

// FormatVersion is bumped when the manifest layout changes incompatibly.
const FormatVersion = 1

// Manifest is stored as the last entry of every archive.
type Manifest struct {
	Version   int         `json:"version"`
	ID        string      `json:"id"`
	Tag       string      `json:"tag"`
	CreatedAt time.Time   `json:"created_at"`
	Host      string      `json:"host,omitempty"`
	Files     []FileEntry `json:"files"`
	Missing   []string    `json:"missing,omitempty"`
}

// FileEntry describes one DataSet file as it was bundled.
type FileEntry struct {
	Path    string      `json:"path"`
	Size    int64       `json:"size"`
	Mode    os.FileMode `json:"mode"`
	ModTime time.Time   `json:"mod_time"`
	SHA256  string      `json:"sha256"`
}

// File returns the entry for path, or nil.
func (m *Manifest) File(path string) *FileEntry {
	for i := range m.Files {
		if m.Files[i].Path == path {
			return &m.Files[i]
		}
	}
	return nil
}

func decodeManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}
	if m.Version > FormatVersion {
		return nil, fmt.Errorf("manifest version %d is newer than supported version %d", m.Version, FormatVersion)
	}
	return &m, nil
}

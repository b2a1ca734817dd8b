package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/melih-ucgun/botsnap/internal/consts"
)

// FileSystem defines minimum operations required for storage.
type FileSystem interface {
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte, perm os.FileMode) error
	MkdirAll(path string, perm os.FileMode) error
	Rename(oldpath, newpath string) error
}

// OSFS is the FileSystem backed by the os package.
type OSFS struct{}

func (OSFS) ReadFile(name string) ([]byte, error) { return os.ReadFile(name) }
func (OSFS) WriteFile(name string, data []byte, perm os.FileMode) error {
	return os.WriteFile(name, data, perm)
}
func (OSFS) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }
func (OSFS) Rename(oldpath, newpath string) error         { return os.Rename(oldpath, newpath) }

// Manager manages reading/writing the journal file.
// It uses a Mutex for thread-safety.
type Manager struct {
	FilePath string
	Current  *Journal
	FS       FileSystem
	Limit    int
	mu       sync.RWMutex
}

// NewManager creates a journal manager and loads the existing file. A
// missing file starts an empty journal; a corrupt one is an error so it is
// never silently overwritten.
func NewManager(path string, fsys FileSystem, limit int) (*Manager, error) {
	if fsys == nil {
		fsys = OSFS{}
	}
	if limit < 1 {
		limit = consts.DefaultJournalSize
	}
	mgr := &Manager{
		FilePath: path,
		Current:  NewJournal(),
		FS:       fsys,
		Limit:    limit,
	}

	if err := mgr.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load journal %s: %w", path, err)
	}
	return mgr, nil
}

// Load reads the journal file.
func (m *Manager) Load() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := m.FS.ReadFile(m.FilePath)
	if err != nil {
		return err
	}

	j := NewJournal()
	if err := json.Unmarshal(data, j); err != nil {
		return err
	}
	m.Current = j
	return nil
}

// Save writes the journal through a temp file and rename.
func (m *Manager) Save() error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m.Current, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(m.FilePath)
	if err := m.FS.MkdirAll(dir, 0o750); err != nil {
		return err
	}

	tmp := m.FilePath + ".tmp"
	if err := m.FS.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	return m.FS.Rename(tmp, m.FilePath)
}

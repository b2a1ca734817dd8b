package state

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/lock"
)

const journalLockTimeout = 10 * time.Second

// AddEntry appends an entry, trims the journal to Limit and saves it.
// Other processes may have written the file since it was loaded, so the
// file is locked and reread before appending.
func (m *Manager) AddEntry(e Entry) error {
	l, err := lock.Acquire(context.Background(), m.FilePath+consts.JournalLockSuffix, journalLockTimeout)
	if err != nil {
		return fmt.Errorf("lock journal: %w", err)
	}
	defer l.Unlock() //nolint:errcheck

	if err := m.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reload journal %s: %w", m.FilePath, err)
	}

	m.mu.Lock()
	m.Current.Entries = append(m.Current.Entries, e)
	if over := len(m.Current.Entries) - m.Limit; over > 0 {
		m.Current.Entries = append([]Entry(nil), m.Current.Entries[over:]...)
	}
	m.mu.Unlock()

	return m.Save()
}

// Entries returns a copy of the journal, newest first.
func (m *Manager) Entries() []Entry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Entry, len(m.Current.Entries))
	for i, e := range m.Current.Entries {
		out[len(out)-1-i] = e
	}
	return out
}

// GetEntry finds an entry by ID or unique ID prefix.
func (m *Manager) GetEntry(id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var found []Entry
	for _, e := range m.Current.Entries {
		if e.ID == id {
			return e, nil
		}
		if strings.HasPrefix(e.ID, id) {
			found = append(found, e)
		}
	}
	switch len(found) {
	case 0:
		return Entry{}, fmt.Errorf("journal entry not found: %s", id)
	case 1:
		return found[0], nil
	default:
		return Entry{}, fmt.Errorf("journal entry prefix %s is ambiguous", id)
	}
}

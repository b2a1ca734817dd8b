package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/stretchr/testify/require"
)

// fakeWriter records stop/start calls and tracks whether the writer is
// currently down.
type fakeWriter struct {
	mu       sync.Mutex
	stopped  bool
	stops    int
	starts   int
	stopErr  error
	startErr error
	onStop   func()
}

func (f *fakeWriter) Name() string { return "fake" }

func (f *fakeWriter) Stop(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if f.onStop != nil {
		f.onStop()
	}
	if f.stopErr != nil {
		return f.stopErr
	}
	f.stopped = true
	return nil
}

func (f *fakeWriter) Start(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	if f.startErr != nil {
		return f.startErr
	}
	f.stopped = false
	return nil
}

func (f *fakeWriter) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

type recordingListener struct {
	events []Event
	err    error
}

func (r *recordingListener) Name() string { return "recorder" }

func (r *recordingListener) Notify(ctx context.Context, ev Event) error {
	r.events = append(r.events, ev)
	return r.err
}

type fixture struct {
	root   string
	dir    string
	writer *fakeWriter
	mgr    *Manager
	clock  time.Time
}

func newFixture(t *testing.T, keep int) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:   filepath.Join(base, "bot"),
		dir:    filepath.Join(base, "backups"),
		writer: &fakeWriter{},
		clock:  time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, os.MkdirAll(f.root, 0o755))
	f.writeFile(t, consts.DefaultDatabaseFile, "db-v1", 0o644)
	f.writeFile(t, consts.DefaultConfigEnv, "TOKEN=one\n", 0o644)
	f.writeFile(t, consts.DefaultLogFile, "log line\n", 0o644)

	f.mgr = NewManager(Settings{
		Root: f.root,
		Files: []DataFile{
			{Path: consts.DefaultDatabaseFile, Mode: consts.DatabaseMode, HasMode: true},
			{Path: consts.DefaultConfigEnv, Mode: consts.ConfigMode, HasMode: true},
			{Path: consts.DefaultLogFile},
		},
		Dir:            f.dir,
		Compression:    consts.CompressionGzip,
		Keep:           keep,
		KeepPreRestore: keep,
		LockTimeout:    200 * time.Millisecond,
	}, f.writer, nil, nil)
	f.mgr.now = func() time.Time { return f.clock }
	return f
}

func (f *fixture) writeFile(t *testing.T, rel, content string, mode os.FileMode) {
	t.Helper()
	p := filepath.Join(f.root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), mode))
	require.NoError(t, os.Chmod(p, mode))
}

func (f *fixture) readFile(t *testing.T, rel string) string {
	t.Helper()
	b, err := os.ReadFile(filepath.Join(f.root, rel))
	require.NoError(t, err)
	return string(b)
}

// seedArchives creates n placeholder snapshot archives, one hour apart,
// all older than the fixture clock. Returned oldest first.
func (f *fixture) seedArchives(t *testing.T, n int) []string {
	t.Helper()
	require.NoError(t, os.MkdirAll(f.dir, 0o750))
	names := make([]string, n)
	for i := 0; i < n; i++ {
		ts := f.clock.Add(-time.Duration(n-i) * time.Hour)
		names[i] = FormatName(consts.TagSnapshot, ts, 0, consts.CompressionGzip)
		require.NoError(t, os.WriteFile(filepath.Join(f.dir, names[i]), []byte("old"), 0o640))
	}
	return names
}

func (f *fixture) tick(d time.Duration) {
	f.clock = f.clock.Add(d)
}

func archiveNames(archives []Archive) []string {
	names := make([]string, len(archives))
	for i, a := range archives {
		names[i] = a.Name
	}
	return names
}

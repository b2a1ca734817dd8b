package snapshot

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/lock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNaming_RoundTripAndOrder(t *testing.T) {
	t0 := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	name := FormatName(consts.TagPreRestore, t0, 0, consts.CompressionZstd)
	assert.Equal(t, "pre_restore_20240102_030405.tar.zst", name)

	a, err := ParseName(FormatName(consts.TagSnapshot, t0, 2, consts.CompressionGzip))
	require.NoError(t, err)
	assert.Equal(t, consts.TagSnapshot, a.Tag)
	assert.True(t, a.CreatedAt.Equal(t0))
	assert.Equal(t, 2, a.Seq)

	for _, bad := range []string{"snapshot.tar.gz", "backup_20240102_030405.tar.gz", "snapshot_20240102_030405.zip", "snapshot_2024_030405.tar.gz"} {
		_, err := ParseName(bad)
		assert.Error(t, err, bad)
	}

	archives := []Archive{
		{Name: "b", CreatedAt: t0},
		{Name: "c", CreatedAt: t0, Seq: 1},
		{Name: "a", CreatedAt: t0.Add(-time.Hour)},
		{Name: "d", CreatedAt: t0.Add(time.Hour)},
	}
	SortNewestFirst(archives)
	assert.Equal(t, []string{"d", "c", "b", "a"}, archiveNames(archives))
}

func TestCreate_ProducesArchiveAndResumesWriter(t *testing.T) {
	f := newFixture(t, 10)

	res, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.Archive)

	assert.Equal(t, "snapshot_20240501_120000.tar.gz", res.Archive.Name)
	assert.Positive(t, res.Archive.Size)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, 1, f.writer.stops)
	assert.Equal(t, 1, f.writer.starts)
	assert.False(t, f.writer.isStopped())

	manifest, err := archive.Verify(res.Archive.Path)
	require.NoError(t, err)
	assert.Len(t, manifest.Files, 3)
	assert.Equal(t, consts.TagSnapshot, manifest.Tag)
	assert.NotEmpty(t, manifest.ID)
}

func TestCreate_RetentionKeepsNewest(t *testing.T) {
	tests := []struct {
		existing  int
		keep      int
		wantCount int
	}{
		{0, 10, 1},
		{5, 10, 6},
		{9, 10, 10},
		{12, 10, 10},
		{3, 1, 1},
	}

	for _, tt := range tests {
		f := newFixture(t, tt.keep)
		seeded := f.seedArchives(t, tt.existing)

		res, err := f.mgr.Create(context.Background())
		require.NoError(t, err)

		list, err := f.mgr.List()
		require.NoError(t, err)
		require.Len(t, list, tt.wantCount, "existing=%d keep=%d", tt.existing, tt.keep)
		assert.Equal(t, res.Archive.Name, list[0].Name, "new archive must be kept")

		// Kept set is exactly the newest ones.
		all := append(append([]string{}, seeded...), res.Archive.Name)
		wantKept := all[len(all)-tt.wantCount:]
		gotKept := archiveNames(list)
		for i, j := 0, len(gotKept)-1; i < j; i, j = i+1, j-1 {
			gotKept[i], gotKept[j] = gotKept[j], gotKept[i]
		}
		assert.Equal(t, wantKept, gotKept)
		assert.Len(t, res.Pruned, tt.existing+1-tt.wantCount)
	}
}

func TestCreate_TwelveExistingRemovesThreeOldest(t *testing.T) {
	f := newFixture(t, 10)
	seeded := f.seedArchives(t, 12)

	res, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, seeded[:3], archiveNames(res.Pruned))
	for _, name := range seeded[:3] {
		_, err := os.Stat(filepath.Join(f.dir, name))
		assert.True(t, os.IsNotExist(err), name)
	}
	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Len(t, list, 10)
}

func TestCreate_MissingFileTolerated(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, os.Remove(filepath.Join(f.root, consts.DefaultLogFile)))

	res, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{consts.DefaultLogFile}, res.Missing)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], consts.DefaultLogFile)

	entries, err := archive.Entries(res.Archive.Path)
	require.NoError(t, err)
	assert.Equal(t, []string{consts.DefaultConfigEnv, consts.DefaultDatabaseFile}, entries)
}

func TestCreate_NoFilesAtAll(t *testing.T) {
	f := newFixture(t, 10)
	for _, df := range f.mgr.settings.Files {
		require.NoError(t, os.Remove(filepath.Join(f.root, df.Path)))
	}

	_, err := f.mgr.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindVerification, KindOf(err))
	assert.False(t, f.writer.isStopped())

	list, _ := f.mgr.List()
	assert.Empty(t, list)
}

func TestCreate_SameSecondGetsSequence(t *testing.T) {
	f := newFixture(t, 10)

	first, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	second, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "snapshot_20240501_120000.tar.gz", first.Archive.Name)
	assert.Equal(t, "snapshot_20240501_120000_1.tar.gz", second.Archive.Name)

	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{second.Archive.Name, first.Archive.Name}, archiveNames(list))
}

func TestCreate_StopFailure(t *testing.T) {
	f := newFixture(t, 10)
	f.writer.stopErr = errors.New("container runtime unreachable")

	_, err := f.mgr.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.Contains(t, err.Error(), "stop writer")
	assert.ErrorIs(t, err, f.writer.stopErr)

	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Empty(t, list, "no archive on stop failure")
	assert.Equal(t, "db-v1", f.readFile(t, consts.DefaultDatabaseFile))
}

func TestCreate_WriterResumedWhenBundlingFails(t *testing.T) {
	f := newFixture(t, 10)
	ctx, cancel := context.WithCancel(context.Background())
	f.writer.onStop = cancel

	_, err := f.mgr.Create(ctx)
	require.Error(t, err)
	assert.Equal(t, 1, f.writer.starts)
	assert.False(t, f.writer.isStopped())
}

func TestCreate_ResumeFailureIsWarning(t *testing.T) {
	f := newFixture(t, 10)
	f.writer.startErr = errors.New("start refused")

	res, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, res.Warnings)
	assert.Contains(t, strings.Join(res.Warnings, "\n"), "not resumed")
}

func TestCreate_LockHeld(t *testing.T) {
	f := newFixture(t, 10)
	held, err := lock.Acquire(context.Background(), f.mgr.settings.LockPath, time.Second)
	require.NoError(t, err)
	defer held.Unlock()

	_, err = f.mgr.Create(context.Background())
	require.Error(t, err)
	assert.Equal(t, KindEnvironment, KindOf(err))
	assert.ErrorIs(t, err, lock.ErrLockTimeout)
	assert.Equal(t, 0, f.writer.stops)
}

func TestRestore_NonexistentPath(t *testing.T) {
	f := newFixture(t, 10)

	for _, p := range []string{"", "/nonexistent.tar.gz", f.dir} {
		_, err := f.mgr.Restore(context.Background(), p, RestoreOptions{})
		require.Error(t, err, p)
		assert.Equal(t, KindPrecondition, KindOf(err), p)
	}

	assert.Equal(t, 0, f.writer.stops, "writer must never be stopped")
	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Empty(t, list, "no safety archive")
	assert.Equal(t, "db-v1", f.readFile(t, consts.DefaultDatabaseFile))
}

func TestRestore_ThenCreateIsEquivalent(t *testing.T) {
	f := newFixture(t, 10)

	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	f.tick(time.Minute)
	f.writeFile(t, consts.DefaultDatabaseFile, "db-v2", 0o644)
	f.writeFile(t, consts.DefaultConfigEnv, "TOKEN=two\n", 0o644)

	res, err := f.mgr.Restore(context.Background(), a.Archive.Path, RestoreOptions{})
	require.NoError(t, err)
	require.NotNil(t, res.SafetyArchive)
	assert.Equal(t, consts.TagPreRestore, res.SafetyArchive.Tag)
	assert.Equal(t, []string{consts.DefaultConfigEnv, consts.DefaultDatabaseFile, consts.DefaultLogFile}, res.Restored)
	assert.Equal(t, "db-v1", f.readFile(t, consts.DefaultDatabaseFile))
	assert.Equal(t, 2, f.writer.stops)
	assert.False(t, f.writer.isStopped())

	// The safety archive holds the state that was replaced.
	saved, err := archive.ReadFile(res.SafetyArchive.Path, consts.DefaultDatabaseFile)
	require.NoError(t, err)
	assert.Equal(t, "db-v2", string(saved))

	// Permissions are reapplied.
	info, err := os.Stat(filepath.Join(f.root, consts.DefaultDatabaseFile))
	require.NoError(t, err)
	assert.Equal(t, consts.DatabaseMode, info.Mode().Perm())
	info, err = os.Stat(filepath.Join(f.root, consts.DefaultConfigEnv))
	require.NoError(t, err)
	assert.Equal(t, consts.ConfigMode, info.Mode().Perm())

	f.tick(time.Minute)
	b, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	for _, name := range []string{consts.DefaultDatabaseFile, consts.DefaultConfigEnv, consts.DefaultLogFile} {
		want, err := archive.ReadFile(a.Archive.Path, name)
		require.NoError(t, err)
		got, err := archive.ReadFile(b.Archive.Path, name)
		require.NoError(t, err)
		assert.Equal(t, string(want), string(got), name)
	}

	// No staging or rollback leftovers.
	leftovers, _ := filepath.Glob(filepath.Join(f.root, ".botsnap-*"))
	assert.Empty(t, leftovers)
}

func TestRestore_SkipSafetyAndDryRun(t *testing.T) {
	f := newFixture(t, 10)
	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	f.writeFile(t, consts.DefaultDatabaseFile, "db-v2", 0o644)

	res, err := f.mgr.Restore(context.Background(), a.Archive.Path, RestoreOptions{DryRun: true})
	require.NoError(t, err)
	assert.True(t, res.DryRun)
	assert.Len(t, res.Restored, 3)
	assert.Equal(t, "db-v2", f.readFile(t, consts.DefaultDatabaseFile))
	assert.Equal(t, 1, f.writer.stops, "dry run does not stop the writer")

	res, err = f.mgr.Restore(context.Background(), a.Archive.Path, RestoreOptions{SkipSafetyArchive: true})
	require.NoError(t, err)
	assert.Nil(t, res.SafetyArchive)
	assert.Equal(t, "db-v1", f.readFile(t, consts.DefaultDatabaseFile))

	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestRestore_CorruptArchiveLeavesDataSetAlone(t *testing.T) {
	f := newFixture(t, 10)
	require.NoError(t, os.MkdirAll(f.dir, 0o750))
	bad := filepath.Join(f.dir, "snapshot_20240101_000000.tar.gz")
	require.NoError(t, os.WriteFile(bad, []byte("definitely not gzip"), 0o640))

	_, err := f.mgr.Restore(context.Background(), bad, RestoreOptions{})
	require.Error(t, err)
	assert.Equal(t, KindRestore, KindOf(err))
	assert.Equal(t, 0, f.writer.stops)
	assert.Equal(t, "db-v1", f.readFile(t, consts.DefaultDatabaseFile))
}

func TestRestore_SwapFailureRollsBack(t *testing.T) {
	f := newFixture(t, 10)
	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	f.tick(time.Minute)
	f.writeFile(t, consts.DefaultDatabaseFile, "db-v2", 0o644)
	f.writeFile(t, consts.DefaultConfigEnv, "TOKEN=two\n", 0o644)

	orig := rename
	t.Cleanup(func() { rename = orig })
	rename = func(oldpath, newpath string) error {
		if strings.Contains(oldpath, consts.StagingDirPrefix) && filepath.Base(newpath) == consts.DefaultDatabaseFile {
			return errors.New("no space left on device")
		}
		return os.Rename(oldpath, newpath)
	}

	_, err = f.mgr.Restore(context.Background(), a.Archive.Path, RestoreOptions{})
	require.Error(t, err)
	assert.Equal(t, KindRestore, KindOf(err))
	assert.Contains(t, err.Error(), "previous files restored")

	// .env was already swapped in before the failure and must be rolled back.
	assert.Equal(t, "TOKEN=two\n", f.readFile(t, consts.DefaultConfigEnv))
	assert.Equal(t, "db-v2", f.readFile(t, consts.DefaultDatabaseFile))
	assert.False(t, f.writer.isStopped())

	leftovers, _ := filepath.Glob(filepath.Join(f.root, ".botsnap-*"))
	assert.Empty(t, leftovers)
}

func TestRestore_PrunesPreRestoreSeparately(t *testing.T) {
	f := newFixture(t, 2)
	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		f.tick(time.Minute)
		_, err := f.mgr.Restore(context.Background(), a.Archive.Path, RestoreOptions{})
		require.NoError(t, err)
	}

	list, err := f.mgr.List()
	require.NoError(t, err)
	var snaps, safety int
	for _, x := range list {
		switch x.Tag {
		case consts.TagSnapshot:
			snaps++
		case consts.TagPreRestore:
			safety++
		}
	}
	assert.Equal(t, 1, snaps)
	assert.Equal(t, 2, safety)
}

func TestPrune_ExplicitKeep(t *testing.T) {
	f := newFixture(t, 10)
	seeded := f.seedArchives(t, 5)

	res, err := f.mgr.Prune(context.Background(), consts.TagSnapshot, 2)
	require.NoError(t, err)
	assert.ElementsMatch(t, seeded[:3], archiveNames(res.Pruned))

	list, err := f.mgr.List()
	require.NoError(t, err)
	assert.Equal(t, []string{seeded[4], seeded[3]}, archiveNames(list))
}

func TestListeners(t *testing.T) {
	f := newFixture(t, 10)
	rec := &recordingListener{err: errors.New("webhook down")}
	f.mgr.AddListener(rec)

	res, err := f.mgr.Create(context.Background())
	require.NoError(t, err)
	_, err = f.mgr.Restore(context.Background(), "/nonexistent.tar.gz", RestoreOptions{})
	require.Error(t, err)

	require.Len(t, rec.events, 2)
	assert.Equal(t, OpCreate, rec.events[0].Op)
	assert.True(t, rec.events[0].Success())
	assert.Contains(t, res.Warnings, "recorder: webhook down")

	assert.Equal(t, OpRestore, rec.events[1].Op)
	assert.False(t, rec.events[1].Success())
	assert.Equal(t, KindPrecondition, rec.events[1].Kind)
}

func TestVerifyAndDiff(t *testing.T) {
	f := newFixture(t, 10)
	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	m, err := f.mgr.Verify(a.Archive.Path)
	require.NoError(t, err)
	assert.Len(t, m.Files, 3)

	_, err = f.mgr.Verify(filepath.Join(f.dir, "missing.tar.gz"))
	assert.Equal(t, KindPrecondition, KindOf(err))

	f.writeFile(t, consts.DefaultConfigEnv, "TOKEN=two\n", 0o600)
	require.NoError(t, os.Remove(filepath.Join(f.root, consts.DefaultLogFile)))
	f.writeFile(t, "extra.txt", "x", 0o600)

	diffs, err := f.mgr.Diff(a.Archive.Path, "")
	require.NoError(t, err)
	byPath := map[string]FileDiff{}
	for _, d := range diffs {
		byPath[d.Path] = d
	}
	assert.Equal(t, DiffChanged, byPath[consts.DefaultConfigEnv].Status)
	assert.Contains(t, byPath[consts.DefaultConfigEnv].Diff, "+ TOKEN=one")
	assert.Contains(t, byPath[consts.DefaultConfigEnv].Diff, "- TOKEN=two")
	assert.Equal(t, DiffUnchanged, byPath[consts.DefaultDatabaseFile].Status)
	assert.Equal(t, DiffOnlyInArchive, byPath[consts.DefaultLogFile].Status)
	_, listed := byPath["extra.txt"]
	assert.False(t, listed, "files outside the DataSet are not compared")

	single, err := f.mgr.Diff(a.Archive.Path, "extra.txt")
	require.NoError(t, err)
	require.Len(t, single, 1)
	assert.Equal(t, DiffOnlyLive, single[0].Status)
}

func TestResolve(t *testing.T) {
	f := newFixture(t, 10)
	a, err := f.mgr.Create(context.Background())
	require.NoError(t, err)

	assert.Equal(t, a.Archive.Path, f.mgr.Resolve(a.Archive.Name))
	assert.Equal(t, a.Archive.Path, f.mgr.Resolve(a.Archive.Path))
	assert.Equal(t, "nope.tar.gz", f.mgr.Resolve("nope.tar.gz"))
}

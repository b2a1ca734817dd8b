package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "mirror", "bot")
	var fsys RemoteFS = LocalFS{}

	require.NoError(t, fsys.MkdirAll(dir))

	w, err := fsys.Create(filepath.Join(dir, ".a.partial"))
	require.NoError(t, err)
	_, err = io.WriteString(w, "payload")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.NoError(t, fsys.Rename(filepath.Join(dir, ".a.partial"), filepath.Join(dir, "a")))

	infos, err := fsys.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, infos, 1)
	assert.Equal(t, "a", infos[0].Name())
	assert.Equal(t, int64(len("payload")), infos[0].Size())

	require.NoError(t, fsys.Remove(filepath.Join(dir, "a")))
	_, err = os.Stat(filepath.Join(dir, "a"))
	assert.True(t, os.IsNotExist(err))
	assert.NoError(t, fsys.Close())
}

func TestDialSSH_MissingKey(t *testing.T) {
	_, err := DialSSH(context.Background(), SSHConfig{
		Host:    "127.0.0.1",
		KeyPath: filepath.Join(t.TempDir(), "id_ed25519"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "read ssh key")
}

func TestDialSSH_RequiresKnownHosts(t *testing.T) {
	_, err := DialSSH(context.Background(), SSHConfig{
		Host:       "127.0.0.1",
		Password:   "secret",
		KnownHosts: filepath.Join(t.TempDir(), "known_hosts"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load known_hosts")
}

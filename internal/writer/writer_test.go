package writer

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	runningJSON = `[{"State":{"Running":true,"Status":"running"},"Config":{"Image":"bot"}}]`
	exitedJSON  = `[{"State":{"Running":false,"Status":"exited"},"Config":{"Image":"bot"}}]`
)

func fastCfg(kind string) config.WriterConfig {
	return config.WriterConfig{
		Kind:           kind,
		Name:           "bot",
		StopTimeout:    5 * time.Second,
		QuiesceTimeout: 200 * time.Millisecond,
		PollInterval:   5 * time.Millisecond,
	}
}

func TestContainerWriter_StopWaitsForExit(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecuteSeq("docker inspect bot",
		core.MockResponse{Output: runningJSON},
		core.MockResponse{Output: runningJSON},
		core.MockResponse{Output: exitedJSON},
	)
	mockTransport.OnExecute("docker stop -t 5 bot", "bot", nil)

	w, err := New(fastCfg("docker"), mockTransport)
	require.NoError(t, err)
	assert.Equal(t, "docker:bot", w.Name())

	require.NoError(t, w.Stop(context.Background()))
	assert.Equal(t, 1, mockTransport.CallCount("docker stop"))
	assert.Equal(t, 3, mockTransport.CallCount("docker inspect bot"))
}

func TestContainerWriter_AlreadyStopped(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecute("podman inspect bot", exitedJSON, nil)

	w, err := New(fastCfg("podman"), mockTransport)
	require.NoError(t, err)
	require.NoError(t, w.Stop(context.Background()))
	assert.False(t, mockTransport.AssertCalled("podman stop"))
}

func TestContainerWriter_QuiesceTimeout(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecute("docker inspect bot", runningJSON, nil)
	mockTransport.OnExecute("docker stop -t 5 bot", "bot", nil)

	w, err := New(fastCfg("docker"), mockTransport)
	require.NoError(t, err)

	err = w.Stop(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrQuiesceTimeout)
}

func TestContainerWriter_StopFails(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecute("docker inspect bot", runningJSON, nil)
	mockTransport.OnExecute("docker stop -t 5 bot", "", errors.New("permission denied"))

	w, err := New(fastCfg("docker"), mockTransport)
	require.NoError(t, err)

	err = w.Stop(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrQuiesceTimeout)
}

func TestContainerWriter_Missing(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecute("docker inspect bot", "Error: No such object: bot", errors.New("exit status 1"))

	w, err := New(fastCfg("docker"), mockTransport)
	require.NoError(t, err)
	assert.Error(t, w.Stop(context.Background()))
}

func TestServiceWriter_StopStart(t *testing.T) {
	mockTransport := core.NewMockTransport()
	mockTransport.OnExecute("systemctl stop bot", "", nil)
	mockTransport.OnExecuteSeq("systemctl is-active bot",
		core.MockResponse{Output: "deactivating\n", Error: errors.New("exit status 3")},
		core.MockResponse{Output: "inactive\n", Error: errors.New("exit status 3")},
	)
	mockTransport.OnExecute("systemctl start bot", "", nil)

	w, err := New(fastCfg("systemd"), mockTransport)
	require.NoError(t, err)
	assert.Equal(t, "systemd:bot", w.Name())

	require.NoError(t, w.Stop(context.Background()))
	require.NoError(t, w.Start(context.Background()))
	assert.Equal(t, 2, mockTransport.CallCount("is-active"))
	assert.True(t, mockTransport.AssertCalled("systemctl start bot"))
}

func TestNew_Kinds(t *testing.T) {
	w, err := New(config.WriterConfig{Kind: "none"}, core.NewMockTransport())
	require.NoError(t, err)
	assert.Equal(t, "none", w.Name())
	assert.NoError(t, w.Stop(context.Background()))

	_, err = New(config.WriterConfig{Kind: "launchd", Name: "bot"}, core.NewMockTransport())
	assert.Error(t, err)
}

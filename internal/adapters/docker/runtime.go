package docker

import (
	"context"
	"time"

	"github.com/melih-ucgun/botsnap/internal/core"
)

// ContainerState represents the current state of a container
type ContainerState struct {
	Running   bool
	Status    string // running, exited, dead, etc.
	ImageName string
	ExitCode  int
	StartedAt string
}

// DockerInspect subset - Common for both Docker and Podman JSON output
type InspectResult struct {
	State struct {
		Running   bool
		Status    string
		ExitCode  int
		StartedAt string
	}
	Config struct {
		Image string
	}
}

// ContainerRuntime abstracts the container engine (docker, podman) operations
// needed to pause and resume the bot container around a snapshot.
type ContainerRuntime interface {
	Name() string

	// Inspect retrieves details about a container.
	// Returns nil, nil if container does not exist.
	Inspect(ctx context.Context, name string) (*ContainerState, error)

	// Stop stops a running container, waiting at most timeout for it to exit.
	Stop(ctx context.Context, name string, timeout time.Duration) error

	// Start starts a stopped container
	Start(ctx context.Context, name string) error
}

// Ensure interface compliance helper
var _ ContainerRuntime = (*DockerRuntime)(nil)
var _ ContainerRuntime = (*PodmanRuntime)(nil)

// New returns the runtime for kind ("docker" or "podman").
func New(kind string, transport core.Transport) ContainerRuntime {
	if kind == "podman" {
		return NewPodmanRuntime(transport)
	}
	return NewDockerRuntime(transport)
}

package docker

import "github.com/melih-ucgun/botsnap/internal/core"

// PodmanRuntime speaks the docker-compatible podman CLI.
type PodmanRuntime struct {
	DockerRuntime
}

func NewPodmanRuntime(transport core.Transport) *PodmanRuntime {
	return &PodmanRuntime{DockerRuntime{binary: "podman", transport: transport}}
}

package docker

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/melih-ucgun/botsnap/internal/core"
)

type DockerRuntime struct {
	binary    string
	transport core.Transport
}

func NewDockerRuntime(transport core.Transport) *DockerRuntime {
	return &DockerRuntime{binary: "docker", transport: transport}
}

func (r *DockerRuntime) Name() string {
	return r.binary
}

func (r *DockerRuntime) runCmd(ctx context.Context, args ...string) (string, error) {
	return r.transport.Execute(ctx, r.binary, args...)
}

func (r *DockerRuntime) Inspect(ctx context.Context, name string) (*ContainerState, error) {
	out, err := r.runCmd(ctx, "inspect", name)
	if err != nil {
		// Both engines print "no such object" / "no such container" and
		// exit non-zero for unknown names.
		if isNotFound(out) || isNotFound(err.Error()) {
			return nil, nil
		}
		return nil, err
	}

	var results []InspectResult
	if err := json.Unmarshal([]byte(out), &results); err != nil {
		return nil, fmt.Errorf("failed to parse %s inspect: %w", r.binary, err)
	}

	if len(results) == 0 {
		return nil, nil
	}

	container := results[0]
	return &ContainerState{
		Running:   container.State.Running,
		Status:    container.State.Status,
		ImageName: container.Config.Image,
		ExitCode:  container.State.ExitCode,
		StartedAt: container.State.StartedAt,
	}, nil
}

func (r *DockerRuntime) Stop(ctx context.Context, name string, timeout time.Duration) error {
	// Timeout handling in CLI: -t <seconds>
	seconds := int(timeout.Seconds())
	if seconds == 0 {
		seconds = 10
	}
	_, err := r.runCmd(ctx, "stop", "-t", fmt.Sprintf("%d", seconds), name)
	return err
}

func (r *DockerRuntime) Start(ctx context.Context, name string) error {
	_, err := r.runCmd(ctx, "start", name)
	return err
}

func isNotFound(s string) bool {
	s = strings.ToLower(s)
	return strings.Contains(s, "no such object") || strings.Contains(s, "no such container")
}

package writer

import (
	"context"
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/adapters/docker"
)

// ContainerWriter pauses a bot running in a docker or podman container.
type ContainerWriter struct {
	runtime   docker.ContainerRuntime
	container string
	opts      Options
}

func NewContainerWriter(runtime docker.ContainerRuntime, container string, opts Options) *ContainerWriter {
	return &ContainerWriter{runtime: runtime, container: container, opts: opts.withDefaults()}
}

func (w *ContainerWriter) Name() string {
	return w.runtime.Name() + ":" + w.container
}

func (w *ContainerWriter) Stop(ctx context.Context) error {
	state, err := w.runtime.Inspect(ctx, w.container)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", w.Name(), err)
	}
	if state == nil {
		return fmt.Errorf("container %s not found", w.container)
	}

	if state.Running {
		if err := w.runtime.Stop(ctx, w.container, w.opts.StopTimeout); err != nil {
			return fmt.Errorf("stop %s: %w", w.Name(), err)
		}
	}

	return waitUntil(ctx, w.opts, func(ctx context.Context) (bool, error) {
		state, err := w.runtime.Inspect(ctx, w.container)
		if err != nil {
			return false, err
		}
		return state != nil && state.Running, nil
	})
}

func (w *ContainerWriter) Start(ctx context.Context) error {
	if err := w.runtime.Start(ctx, w.container); err != nil {
		return fmt.Errorf("start %s: %w", w.Name(), err)
	}
	return nil
}

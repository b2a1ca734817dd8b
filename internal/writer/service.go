package writer

import (
	"context"
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/adapters/service"
)

// ServiceWriter pauses a bot managed by the host init system.
type ServiceWriter struct {
	manager service.ServiceManager
	unit    string
	opts    Options
}

func NewServiceWriter(manager service.ServiceManager, unit string, opts Options) *ServiceWriter {
	return &ServiceWriter{manager: manager, unit: unit, opts: opts.withDefaults()}
}

func (w *ServiceWriter) Name() string {
	return w.manager.Name() + ":" + w.unit
}

func (w *ServiceWriter) Stop(ctx context.Context) error {
	if err := w.manager.Stop(ctx, w.unit); err != nil {
		return fmt.Errorf("stop %s: %w", w.Name(), err)
	}
	return waitUntil(ctx, w.opts, func(ctx context.Context) (bool, error) {
		return w.manager.IsActive(ctx, w.unit)
	})
}

func (w *ServiceWriter) Start(ctx context.Context) error {
	if err := w.manager.Start(ctx, w.unit); err != nil {
		return fmt.Errorf("start %s: %w", w.Name(), err)
	}
	return nil
}

// Package writer stops and resumes the process that owns the DataSet so a
// snapshot sees a consistent set of files.
package writer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/melih-ucgun/botsnap/internal/adapters/docker"
	"github.com/melih-ucgun/botsnap/internal/adapters/service"
	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/core"
)

// ErrQuiesceTimeout is returned when the writer was asked to stop but was
// still running after the quiesce timeout.
var ErrQuiesceTimeout = errors.New("writer did not stop in time")

// Writer is the handle the snapshot manager uses to open and close the
// snapshot window.
type Writer interface {
	Name() string
	// Stop returns only once the writer is confirmed down.
	Stop(ctx context.Context) error
	Start(ctx context.Context) error
}

// Options tune the confirmation polling after a stop request.
type Options struct {
	StopTimeout    time.Duration
	QuiesceTimeout time.Duration
	PollInterval   time.Duration
}

func (o Options) withDefaults() Options {
	if o.QuiesceTimeout <= 0 {
		o.QuiesceTimeout = time.Minute
	}
	if o.PollInterval <= 0 {
		o.PollInterval = 500 * time.Millisecond
	}
	return o
}

// New builds the writer described by cfg, running commands through transport.
func New(cfg config.WriterConfig, transport core.Transport) (Writer, error) {
	opts := Options{
		StopTimeout:    cfg.StopTimeout,
		QuiesceTimeout: cfg.QuiesceTimeout,
		PollInterval:   cfg.PollInterval,
	}

	switch cfg.Kind {
	case "none", "":
		return NopWriter{}, nil
	case "docker", "podman":
		return NewContainerWriter(docker.New(cfg.Kind, transport), cfg.Name, opts), nil
	default:
		mgr, err := service.GetServiceManager(cfg.Kind, transport)
		if err != nil {
			return nil, err
		}
		return NewServiceWriter(mgr, cfg.Name, opts), nil
	}
}

// waitUntil polls running until it reports false, the timeout passes or ctx
// is cancelled. Transient probe errors are retried until the deadline.
func waitUntil(ctx context.Context, opts Options, running func(context.Context) (bool, error)) error {
	ctx, cancel := context.WithTimeout(ctx, opts.QuiesceTimeout)
	defer cancel()

	ticker := time.NewTicker(opts.PollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		up, err := running(ctx)
		if err == nil && !up {
			return nil
		}
		lastErr = err

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return fmt.Errorf("%w: %w", ErrQuiesceTimeout, lastErr)
			}
			return ErrQuiesceTimeout
		case <-ticker.C:
		}
	}
}

// NopWriter is used when no live process writes to the DataSet.
type NopWriter struct{}

func (NopWriter) Name() string                  { return "none" }
func (NopWriter) Stop(ctx context.Context) error  { return nil }
func (NopWriter) Start(ctx context.Context) error { return nil }

package service

import (
	"context"
	"errors"
	"fmt"
	"os/exec"

	"github.com/melih-ucgun/botsnap/internal/core"
)

// ServiceManager controls the bot when it runs as an init-system service.
type ServiceManager interface {
	Name() string
	// IsActive reports whether the service still has running processes,
	// including while it is stopping.
	IsActive(ctx context.Context, service string) (bool, error)
	Start(ctx context.Context, service string) error
	Stop(ctx context.Context, service string) error
}

// GetServiceManager returns the manager for the given init system.
func GetServiceManager(initSystem string, transport core.Transport) (ServiceManager, error) {
	switch initSystem {
	case "systemd":
		return NewSystemdManager(transport), nil
	case "openrc":
		return NewOpenRCManager(transport), nil
	case "sysvinit":
		return NewSysVinitManager(transport), nil
	default:
		return nil, fmt.Errorf("unsupported init system %q", initSystem)
	}
}

// exitCode extracts the process exit status from an error returned by a
// transport, or -1 when there is none.
func exitCode(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}

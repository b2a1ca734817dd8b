package service

import (
	"context"
	"strings"

	"github.com/melih-ucgun/botsnap/internal/core"
)

type SystemdManager struct {
	transport core.Transport
}

func NewSystemdManager(transport core.Transport) *SystemdManager {
	return &SystemdManager{transport: transport}
}

func (s *SystemdManager) Name() string {
	return "systemd"
}

func (s *SystemdManager) IsActive(ctx context.Context, service string) (bool, error) {
	// is-active exits non-zero for anything but "active", so the printed
	// state is authoritative.
	out, err := s.transport.Execute(ctx, "systemctl", "is-active", service)
	switch strings.TrimSpace(out) {
	case "active", "activating", "deactivating", "reloading", "refreshing":
		return true, nil
	case "inactive", "failed":
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (s *SystemdManager) Start(ctx context.Context, service string) error {
	_, err := s.transport.Execute(ctx, "systemctl", "start", service)
	return err
}

func (s *SystemdManager) Stop(ctx context.Context, service string) error {
	_, err := s.transport.Execute(ctx, "systemctl", "stop", service)
	return err
}

package service

import (
	"context"
	"strings"

	"github.com/melih-ucgun/botsnap/internal/core"
)

type SysVinitManager struct {
	transport core.Transport
}

func NewSysVinitManager(transport core.Transport) *SysVinitManager {
	return &SysVinitManager{transport: transport}
}

func (s *SysVinitManager) Name() string {
	return "sysvinit"
}

func (s *SysVinitManager) IsActive(ctx context.Context, service string) (bool, error) {
	out, err := s.transport.Execute(ctx, "service", service, "status")
	if err == nil {
		return true, nil
	}
	// LSB: 3 means "not running", 1 and 2 mean dead with a stale pid or lock.
	switch exitCode(err) {
	case 1, 2, 3:
		return false, nil
	}
	lower := strings.ToLower(out)
	if strings.Contains(lower, "not running") || strings.Contains(lower, "stopped") {
		return false, nil
	}
	return false, err
}

func (s *SysVinitManager) Start(ctx context.Context, service string) error {
	return s.runService(ctx, service, "start")
}

func (s *SysVinitManager) Stop(ctx context.Context, service string) error {
	return s.runService(ctx, service, "stop")
}

func (s *SysVinitManager) runService(ctx context.Context, service string, action string) error {
	_, err := s.transport.Execute(ctx, "service", service, action)
	return err
}

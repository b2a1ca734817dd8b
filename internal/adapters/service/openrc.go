package service

import (
	"context"
	"strings"

	"github.com/melih-ucgun/botsnap/internal/core"
)

type OpenRCManager struct {
	transport core.Transport
}

func NewOpenRCManager(transport core.Transport) *OpenRCManager {
	return &OpenRCManager{transport: transport}
}

func (o *OpenRCManager) Name() string {
	return "openrc"
}

func (o *OpenRCManager) IsActive(ctx context.Context, service string) (bool, error) {
	// rc-service prints " * status: started" and friends.
	out, err := o.transport.Execute(ctx, "rc-service", service, "status")
	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "status: started"),
		strings.Contains(lower, "status: starting"),
		strings.Contains(lower, "status: stopping"):
		return true, nil
	case strings.Contains(lower, "status: stopped"),
		strings.Contains(lower, "status: crashed"):
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return false, nil
}

func (o *OpenRCManager) Start(ctx context.Context, service string) error {
	_, err := o.transport.Execute(ctx, "rc-service", service, "start")
	return err
}

func (o *OpenRCManager) Stop(ctx context.Context, service string) error {
	_, err := o.transport.Execute(ctx, "rc-service", service, "stop")
	return err
}

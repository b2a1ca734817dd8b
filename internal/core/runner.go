package core

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Runner interface defines methods for running commands.
// It allows mocking command execution in tests across all adapters.
type Runner interface {
	Run(cmd *exec.Cmd) error
	CombinedOutput(cmd *exec.Cmd) ([]byte, error)
	Output(cmd *exec.Cmd) ([]byte, error)
}

// RealRunner implements Runner using real os/exec.
type RealRunner struct{}

func (r *RealRunner) Run(cmd *exec.Cmd) error {
	return cmd.Run()
}

func (r *RealRunner) CombinedOutput(cmd *exec.Cmd) ([]byte, error) {
	return cmd.CombinedOutput()
}

func (r *RealRunner) Output(cmd *exec.Cmd) ([]byte, error) {
	return cmd.Output()
}

// CommandRunner is the global runner instance.
// Tests can replace this with a mock.
var CommandRunner Runner = &RealRunner{}

// Transport executes external commands. Container runtimes, init systems
// and hooks all go through it so tests can substitute a MockTransport.
type Transport interface {
	Execute(ctx context.Context, name string, args ...string) (string, error)
}

// LocalTransport runs commands on the local host via CommandRunner.
type LocalTransport struct{}

func NewLocalTransport() *LocalTransport {
	return &LocalTransport{}
}

func (t *LocalTransport) Execute(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := CommandRunner.CombinedOutput(cmd)
	if err != nil {
		return string(out), fmt.Errorf("%s failed: %s: %w", CommandLine(name, args...), strings.TrimSpace(string(out)), err)
	}
	return string(out), nil
}

// CommandLine joins a command and its arguments for logs and mock lookups.
func CommandLine(name string, args ...string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + strings.Join(args, " ")
}

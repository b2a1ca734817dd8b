// Package hooks runs operator-defined shell commands after snapshot
// operations.
package hooks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
)

const eventFailure = "failure"

// Runner is a snapshot.Listener executing the configured hooks.
type Runner struct {
	hooks     []config.HookConfig
	transport core.Transport
	logger    core.Logger
	timeout   time.Duration
}

func NewRunner(hooks []config.HookConfig, transport core.Transport, logger core.Logger) *Runner {
	if logger == nil {
		logger = core.NopLogger{}
	}
	return &Runner{hooks: hooks, transport: transport, logger: logger, timeout: 5 * time.Minute}
}

func (r *Runner) Name() string { return "hooks" }

// Notify runs every hook subscribed to the event whose condition holds.
// All hooks run; their failures are returned joined.
func (r *Runner) Notify(ctx context.Context, ev snapshot.Event) error {
	env := Env(ev)
	var errs []error

	for _, h := range r.hooks {
		if !subscribed(h, ev) {
			continue
		}
		name := h.Name
		if name == "" {
			name = h.Run
		}

		ok, err := core.EvaluateCondition(h.When, env)
		if err != nil {
			errs = append(errs, fmt.Errorf("hook %s: when: %w", name, err))
			continue
		}
		if !ok {
			r.logger.Debug("Hook skipped by condition", "hook", name, "when", h.When)
			continue
		}

		cmd, err := core.ExecuteTemplate(h.Run, env)
		if err != nil {
			errs = append(errs, fmt.Errorf("hook %s: %w", name, err))
			continue
		}

		hctx, cancel := context.WithTimeout(ctx, r.timeout)
		out, err := r.transport.Execute(hctx, "sh", "-c", cmd)
		cancel()
		if err != nil {
			errs = append(errs, fmt.Errorf("hook %s: %w", name, err))
			continue
		}
		r.logger.Info("Hook executed", "hook", name)
		if out != "" {
			r.logger.Debug("Hook output", "hook", name, "output", out)
		}
	}
	return errors.Join(errs...)
}

func subscribed(h config.HookConfig, ev snapshot.Event) bool {
	if slices.Contains(h.On, ev.Op) {
		return true
	}
	return !ev.Success() && slices.Contains(h.On, eventFailure)
}

// Env is the data visible to hook conditions and templates.
func Env(ev snapshot.Event) map[string]any {
	host, _ := os.Hostname()
	env := map[string]any{
		"op":       ev.Op,
		"success":  ev.Success(),
		"error":    "",
		"kind":     "",
		"archive":  "",
		"path":     "",
		"size":     int64(0),
		"tag":      "",
		"warnings": []string{},
		"pruned":   0,
		"dry_run":  false,
		"duration": 0.0,
		"host":     host,
	}
	if ev.Err != nil {
		env["error"] = ev.Err.Error()
		env["kind"] = ev.Kind.String()
	}
	if res := ev.Result; res != nil {
		if res.Archive != nil {
			env["archive"] = res.Archive.Name
			env["path"] = res.Archive.Path
			env["size"] = res.Archive.Size
			env["tag"] = res.Archive.Tag
		}
		if res.Warnings != nil {
			env["warnings"] = slices.Clone(res.Warnings)
		}
		env["pruned"] = len(res.Pruned)
		env["dry_run"] = res.DryRun
		env["duration"] = res.Duration.Seconds()
	}
	return env
}

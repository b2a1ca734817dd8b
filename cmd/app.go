package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/melih-ucgun/botsnap/internal/adapters/ui"
	"github.com/melih-ucgun/botsnap/internal/config"
	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/melih-ucgun/botsnap/internal/hooks"
	"github.com/melih-ucgun/botsnap/internal/metrics"
	"github.com/melih-ucgun/botsnap/internal/remote"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/melih-ucgun/botsnap/internal/state"
	"github.com/melih-ucgun/botsnap/internal/writer"
	"github.com/pterm/pterm"
)

// app bundles everything a command needs, built from the loaded config.
type app struct {
	cfg     *config.Config
	logger  core.Logger
	ui      core.UI
	mgr     *snapshot.Manager
	journal *state.Manager
}

func loadConfig(opts ...config.Option) (*config.Config, error) {
	if envFile != "" {
		opts = append(opts, config.WithEnvFile(envFile))
	}
	cfg, err := config.LoadConfig(cfgFile, opts...)
	if err != nil {
		return nil, &configError{err: err}
	}
	return cfg, nil
}

func newLogger() core.Logger {
	level := core.LevelFromVerbosity(verboseCount)
	if level <= core.LevelDebug {
		pterm.EnableDebugMessages()
	}
	return core.NewDefaultLogger(os.Stderr, level)
}

// newApp wires the snapshot manager with its writer and listeners.
// Listener order matters: the mirror and hooks run first so that their
// warnings end up in the journal, and metrics read the journal last.
func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := newLogger()
	out := ui.NewPtermUI()

	settings, err := snapshot.SettingsFromConfig(cfg)
	if err != nil {
		return nil, &configError{err: err}
	}

	transport := core.NewLocalTransport()
	w, err := writer.New(cfg.Writer, transport)
	if err != nil {
		return nil, &configError{err: err}
	}

	mgr := snapshot.NewManager(settings, w, logger, out)

	if cfg.Remote.Enabled {
		mirror, err := remote.FromConfig(cfg.Remote, logger)
		if err != nil {
			return nil, &configError{err: err}
		}
		mgr.AddListener(mirror)
	}
	if len(cfg.Hooks) > 0 {
		mgr.AddListener(hooks.NewRunner(cfg.Hooks, transport, logger))
	}

	journal, err := state.NewManager(cfg.JournalPath(), state.OSFS{}, cfg.Journal.Size)
	if err != nil {
		return nil, err
	}
	mgr.AddListener(state.NewRecorder(journal))

	if cfg.Metrics.Textfile != "" {
		mgr.AddListener(metrics.NewExporter(cfg.Metrics.Textfile, journal, mgr))
	}

	return &app{cfg: cfg, logger: logger, ui: out, mgr: mgr, journal: journal}, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// reportWarnings prints the tolerated failures of an operation.
func (a *app) reportWarnings(res *snapshot.Result) {
	if res == nil || len(res.Warnings) == 0 {
		return
	}
	a.ui.Warning(pterm.Sprintf("%d warning(s):", len(res.Warnings)))
	for _, w := range res.Warnings {
		a.ui.Warning("  " + w)
	}
}

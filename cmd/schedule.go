package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/core"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var (
	scheduleSpec   string
	scheduleRunNow bool
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run create on a cron schedule until interrupted (daemon mode)",
	Long: `Runs a snapshot every time the cron expression matches. A run that is
still going when the next one is due causes that tick to be skipped.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		spec := scheduleSpec
		if spec == "" {
			spec = a.cfg.Schedule.Cron
		}
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return &configError{err: fmt.Errorf("schedule %q: %w", spec, err)}
		}

		ctx, cancel := signalContext()
		defer cancel()

		logger := cronLogger{a.logger.With("component", "schedule")}
		c := cron.New(
			cron.WithLogger(logger),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		)
		job := cron.FuncJob(func() { a.scheduledCreate(ctx) })
		c.Schedule(sched, job)

		if scheduleRunNow {
			a.scheduledCreate(ctx)
		}

		c.Start()
		a.logger.Info("Schedule started", "cron", spec)

		<-ctx.Done()
		a.logger.Info("Stopping schedule, waiting for a running snapshot")
		<-c.Stop().Done()
		return nil
	},
}

// scheduledCreate runs one snapshot. Failures are already journaled and
// passed to hooks, so they are only logged here.
func (a *app) scheduledCreate(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	res, err := a.mgr.Create(ctx)
	switch {
	case errors.Is(err, context.Canceled):
		a.logger.Warn("Snapshot interrupted")
	case err != nil:
		a.logger.Error("Snapshot failed", "error", err)
	default:
		a.logger.Info("Snapshot created", "archive", res.Archive.Name, "warnings", len(res.Warnings))
	}
}

// cronLogger adapts core.Logger to cron.Logger.
type cronLogger struct {
	l core.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Error(msg, append(keysAndValues, "error", err)...)
}

func init() {
	scheduleCmd.Flags().StringVar(&scheduleSpec, "cron", "", "cron expression (default: schedule.cron from the config)")
	scheduleCmd.Flags().BoolVar(&scheduleRunNow, "run-now", false, "take a snapshot immediately before waiting for the first tick")
	rootCmd.AddCommand(scheduleCmd)
}

package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   consts.AppName,
	Short: "Consistent snapshots and safe restores for a bot's persistent state.",
	Long: `botsnap stops the bot, archives its database, configuration and log,
starts it again and keeps the newest archives. Restores go through a
staging directory and always leave a pre_restore safety archive behind.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	verboseCount int
	cfgFile      string
	envFile      string
)

// Exit statuses.
const (
	exitOK           = 0
	exitFailure      = 1
	exitPrecondition = 2
	exitEnvironment  = 3
	exitVerification = 4
	exitInterrupted  = 130
)

// configError marks failures to load or validate the configuration.
type configError struct{ err error }

func (e *configError) Error() string { return "configuration: " + e.err.Error() }
func (e *configError) Unwrap() error { return e.err }

// Execute runs the CLI and returns the process exit status.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		pterm.Error.Println(err.Error())
	}
	return exitCode(err)
}

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}
	if errors.Is(err, context.Canceled) {
		return exitInterrupted
	}
	var ce *configError
	if errors.As(err, &ce) {
		return exitPrecondition
	}
	switch snapshot.KindOf(err) {
	case snapshot.KindPrecondition:
		return exitPrecondition
	case snapshot.KindEnvironment:
		return exitEnvironment
	case snapshot.KindVerification:
		return exitVerification
	default:
		return exitFailure
	}
}

func init() {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	// PTerm output to Stderr (to keep Stdout clean for piping)
	pterm.SetDefaultOutput(os.Stderr)
	pterm.Success.Writer = os.Stderr
	pterm.Info.Writer = os.Stderr
	pterm.Error.Writer = os.Stderr
	pterm.Warning.Writer = os.Stderr
	pterm.DefaultHeader.Writer = os.Stderr

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", consts.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "", "dotenv file with BOTSNAP_* overrides")
	rootCmd.PersistentFlags().CountVarP(&verboseCount, "verbose", "v", "Increase verbosity level (-v, -vv)")
}

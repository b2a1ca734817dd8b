package cmd

import (
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	restoreNoSafety bool
	restoreDryRun   bool
)

var restoreCmd = &cobra.Command{
	Use:   "restore <archive>",
	Short: "Replace the live state with the contents of an archive",
	Long: `Restore verifies the archive, stages its files, stops the bot, saves the
current state as a pre_restore archive and swaps the staged files in.
The archive may be given as a path or as a name inside the archive directory.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		return a.restore(args[0], snapshot.RestoreOptions{
			SkipSafetyArchive: restoreNoSafety,
			DryRun:            restoreDryRun,
		})
	},
}

func (a *app) restore(arg string, opts snapshot.RestoreOptions) error {
	ctx, cancel := signalContext()
	defer cancel()

	path := a.mgr.Resolve(arg)
	res, err := a.mgr.Restore(ctx, path, opts)
	a.reportWarnings(res)
	if err != nil {
		return err
	}

	if res.DryRun {
		a.ui.Info(pterm.Sprintf("%s is valid, a restore would replace:", path))
		for _, f := range res.Restored {
			a.ui.Println("  " + f)
		}
		return nil
	}

	if res.SafetyArchive != nil {
		a.ui.Info("Previous state saved as " + res.SafetyArchive.Name)
	}
	a.ui.Success(pterm.Sprintf("Restored %d file(s) from %s", len(res.Restored), path))
	return nil
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreNoSafety, "no-safety", false, "do not archive the current state before restoring")
	restoreCmd.Flags().BoolVar(&restoreDryRun, "dry-run", false, "verify the archive and list what would be replaced")
	rootCmd.AddCommand(restoreCmd)
}

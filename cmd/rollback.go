package cmd

import (
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/spf13/cobra"
)

var (
	rollbackDryRun   bool
	rollbackNoSafety bool
)

var rollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Undo the last restore using the newest pre_restore archive",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		archives, err := a.mgr.List()
		if err != nil {
			return err
		}
		var target *snapshot.Archive
		for i := range archives {
			if archives[i].Tag == consts.TagPreRestore {
				target = &archives[i]
				break
			}
		}
		if target == nil {
			return &snapshot.Error{
				Kind: snapshot.KindPrecondition,
				Op:   snapshot.OpRestore,
				Err:  fmt.Errorf("no %s archive in %s", consts.TagPreRestore, a.mgr.Settings().Dir),
			}
		}

		a.ui.Info("Rolling back to " + target.Name)
		return a.restore(target.Path, snapshot.RestoreOptions{
			SkipSafetyArchive: rollbackNoSafety,
			DryRun:            rollbackDryRun,
		})
	},
}

func init() {
	rollbackCmd.Flags().BoolVar(&rollbackNoSafety, "no-safety", false, "do not archive the current state first")
	rollbackCmd.Flags().BoolVar(&rollbackDryRun, "dry-run", false, "show what would be restored")
	rootCmd.AddCommand(rollbackCmd)
}

package cmd

import (
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var createCmd = &cobra.Command{
	Use:     "create",
	Aliases: []string{"snapshot", "backup"},
	Short:   "Stop the bot, archive its state and start it again",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		ctx, cancel := signalContext()
		defer cancel()

		res, err := a.mgr.Create(ctx)
		a.reportWarnings(res)
		if err != nil {
			return err
		}

		a.ui.Success(pterm.Sprintf("Archive %s created (%s, %d file(s)) in %s",
			res.Archive.Name, humanSize(res.Archive.Size), len(a.mgr.Settings().Files)-len(res.Missing), res.Duration.Round(time.Millisecond)))
		for _, p := range res.Pruned {
			a.ui.Info("Pruned " + p.Name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createCmd)
}

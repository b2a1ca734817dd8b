package cmd

import (
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var diffCmd = &cobra.Command{
	Use:   "diff <archive> [file]",
	Short: "Compare an archive with the live files",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		var file string
		if len(args) == 2 {
			file = args[1]
		}

		diffs, err := a.mgr.Diff(a.mgr.Resolve(args[0]), file)
		if err != nil {
			return err
		}
		if len(diffs) == 0 {
			a.ui.Info("Nothing to compare")
			return nil
		}

		changed := 0
		for _, d := range diffs {
			switch d.Status {
			case snapshot.DiffUnchanged:
				a.ui.Println(pterm.Gray("= " + d.Path))
				continue
			case snapshot.DiffOnlyInArchive:
				a.ui.Println(pterm.Green("+ " + d.Path + " (only in archive)"))
			case snapshot.DiffOnlyLive:
				a.ui.Println(pterm.Red("- " + d.Path + " (not in archive)"))
			case snapshot.DiffChanged:
				if d.Binary {
					a.ui.Println(pterm.Yellow("~ " + d.Path + " (binary files differ)"))
				} else {
					a.ui.Println(pterm.Yellow("~ " + d.Path))
					a.ui.Println(d.Diff)
				}
			}
			changed++
		}
		if changed == 0 {
			a.ui.Success("Live files match the archive")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

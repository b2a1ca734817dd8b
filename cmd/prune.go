package cmd

import (
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var (
	pruneKeep int
	pruneTag  string
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest archives of a tag",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}

		var tags []string
		switch pruneTag {
		case consts.TagSnapshot, consts.TagPreRestore:
			tags = []string{pruneTag}
		case "all":
			tags = []string{consts.TagSnapshot, consts.TagPreRestore}
		default:
			return &configError{err: fmt.Errorf("unknown tag %q (want %s, %s or all)", pruneTag, consts.TagSnapshot, consts.TagPreRestore)}
		}

		ctx, cancel := signalContext()
		defer cancel()

		// A keep of 0 means the configured count for the tag.
		total := 0
		for _, tag := range tags {
			res, err := a.mgr.Prune(ctx, tag, pruneKeep)
			a.reportWarnings(res)
			if err != nil {
				return err
			}
			for _, p := range res.Pruned {
				a.ui.Info("Deleted " + p.Name)
			}
			total += len(res.Pruned)
		}
		a.ui.Success(pterm.Sprintf("Pruned %d archive(s)", total))
		return nil
	},
}

func init() {
	pruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "number of archives to keep (default: configured retention)")
	pruneCmd.Flags().StringVar(&pruneTag, "tag", consts.TagSnapshot, "archive tag: snapshot, pre_restore or all")
	rootCmd.AddCommand(pruneCmd)
}

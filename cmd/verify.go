package cmd

import (
	"github.com/melih-ucgun/botsnap/internal/archive"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <archive>",
	Short: "Check an archive against its manifest checksums",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		path := a.mgr.Resolve(args[0])
		manifest, err := a.mgr.Verify(path)
		if err != nil {
			return err
		}

		if manifest == nil {
			// Archives made with plain tar carry no checksums.
			entries, err := archive.Entries(path)
			if err != nil {
				return err
			}
			rows := [][]string{{"File"}}
			for _, e := range entries {
				rows = append(rows, []string{e})
			}
			if err := a.ui.Table(rows); err != nil {
				return err
			}
			a.ui.Warning("archive has no manifest, only its structure was checked")
			a.ui.Success(pterm.Sprintf("%s is readable (%d file(s))", path, len(entries)))
			return nil
		}

		rows := [][]string{{"File", "Size", "Mode", "SHA-256"}}
		for _, f := range manifest.Files {
			rows = append(rows, []string{f.Path, humanSize(f.Size), f.Mode.String(), orDash(shortID(f.SHA256))})
		}
		if err := a.ui.Table(rows); err != nil {
			return err
		}
		for _, m := range manifest.Missing {
			a.ui.Warning(m + " was missing when the archive was created")
		}
		a.ui.Success(pterm.Sprintf("%s is intact (%d file(s), created %s)",
			path, len(manifest.Files), manifest.CreatedAt.UTC().Format(dateLayout)))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
}

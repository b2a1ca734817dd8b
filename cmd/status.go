package cmd

import (
	"fmt"

	"github.com/melih-ucgun/botsnap/internal/consts"
	"github.com/melih-ucgun/botsnap/internal/snapshot"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the newest archives and the last run of each operation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		s := a.mgr.Settings()

		a.ui.Section("Data set")
		a.ui.Printf("Root:     %s\n", s.Root)
		a.ui.Printf("Files:    %d\n", len(s.Files))
		a.ui.Printf("Writer:   %s %s\n", a.cfg.Writer.Kind, a.cfg.Writer.Name)
		a.ui.Printf("Archives: %s (%s)\n", s.Dir, s.Compression)

		archives, err := a.mgr.List()
		if err != nil {
			return err
		}
		rows := [][]string{{"Tag", "Count", "Keep", "Newest", "Age", "Size"}}
		for _, tag := range []string{consts.TagSnapshot, consts.TagPreRestore} {
			keep := s.Keep
			if tag == consts.TagPreRestore {
				keep = s.KeepPreRestore
			}
			var newest *snapshot.Archive
			count := 0
			for i := range archives {
				if archives[i].Tag != tag {
					continue
				}
				if newest == nil {
					newest = &archives[i]
				}
				count++
			}
			row := []string{tag, fmt.Sprint(count), fmt.Sprint(keep), "-", "-", "-"}
			if newest != nil {
				row[3] = newest.Name
				row[4] = humanAge(newest.CreatedAt)
				row[5] = humanSize(newest.Size)
			}
			rows = append(rows, row)
		}
		a.ui.Section("Archives")
		if err := a.ui.Table(rows); err != nil {
			return err
		}

		a.ui.Section("Last runs")
		last := map[string]bool{}
		runs := [][]string{{"Op", "Date (UTC)", "Age", "Status", "Error"}}
		for _, e := range a.journal.Entries() {
			if last[e.Op] || e.DryRun {
				continue
			}
			last[e.Op] = true
			runs = append(runs, []string{
				e.Op,
				e.Timestamp.UTC().Format(dateLayout),
				humanAge(e.Timestamp),
				statusStyle(e.Status).Sprint(e.Status),
				orDash(e.Error),
			})
		}
		if len(runs) == 1 {
			a.ui.Info("No operations recorded yet.")
			return nil
		}
		return a.ui.Table(runs)
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

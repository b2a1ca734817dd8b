package cmd

import (
	"strconv"
	"time"

	"github.com/melih-ucgun/botsnap/internal/state"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

var logLimit int

var logCmd = &cobra.Command{
	Use:   "log [id]",
	Short: "View the operation journal",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		if len(args) == 1 {
			e, err := a.journal.GetEntry(args[0])
			if err != nil {
				return err
			}
			printEntry(a, e)
			return nil
		}

		entries := a.journal.Entries()
		if len(entries) == 0 {
			a.ui.Info("The journal is empty.")
			return nil
		}
		if logLimit > 0 && len(entries) > logLimit {
			entries = entries[:logLimit]
		}

		rows := [][]string{{"ID", "Date (UTC)", "Op", "Status", "Archive", "Warnings", "Duration"}}
		for _, e := range entries {
			op := e.Op
			if e.DryRun {
				op += " (dry run)"
			}
			rows = append(rows, []string{
				shortID(e.ID),
				e.Timestamp.UTC().Format(dateLayout),
				op,
				statusStyle(e.Status).Sprint(e.Status),
				orDash(e.Archive),
				strconv.Itoa(len(e.Warnings)),
				e.Duration.Round(time.Millisecond).String(),
			})
		}
		return a.ui.Table(rows)
	},
}

func printEntry(a *app, e state.Entry) {
	a.ui.Section(e.Op + " " + e.ID)
	a.ui.Printf("Date:     %s\n", e.Timestamp.UTC().Format(dateLayout))
	a.ui.Printf("Status:   %s\n", statusStyle(e.Status).Sprint(e.Status))
	if e.Kind != "" {
		a.ui.Printf("Kind:     %s\n", e.Kind)
	}
	if e.Error != "" {
		a.ui.Printf("Error:    %s\n", e.Error)
	}
	a.ui.Printf("Archive:  %s\n", orDash(e.Archive))
	if e.Safety != "" {
		a.ui.Printf("Safety:   %s\n", e.Safety)
	}
	if e.Size > 0 {
		a.ui.Printf("Size:     %s\n", humanSize(e.Size))
	}
	a.ui.Printf("Duration: %s\n", e.Duration)
	for _, p := range e.Pruned {
		a.ui.Println(pterm.Gray("pruned   " + p))
	}
	for _, w := range e.Warnings {
		a.ui.Println(pterm.Yellow("warning  " + w))
	}
}

func init() {
	logCmd.Flags().IntVarP(&logLimit, "limit", "n", 20, "number of entries to show (0 for all)")
	rootCmd.AddCommand(logCmd)
}

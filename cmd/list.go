package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List archives, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		archives, err := a.mgr.List()
		if err != nil {
			return err
		}
		if len(archives) == 0 {
			a.ui.Info("No archives in " + a.mgr.Settings().Dir)
			return nil
		}

		rows := [][]string{{"#", "Name", "Tag", "Created (UTC)", "Age", "Size"}}
		for i, ar := range archives {
			rows = append(rows, []string{
				strconv.Itoa(i + 1),
				ar.Name,
				ar.Tag,
				ar.CreatedAt.Format(dateLayout),
				humanAge(ar.CreatedAt),
				humanSize(ar.Size),
			})
		}
		return a.ui.Table(rows)
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

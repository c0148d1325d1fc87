package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var lsCmd = &cobra.Command{
	Use:     "ls",
	Aliases: []string{"list"},
	Short:   "List saved workspaces",
	Args:    cobra.NoArgs,
	RunE:    runLs,
}

func init() {
	rootCmd.AddCommand(lsCmd)
}

func runLs(cmd *cobra.Command, args []string) error {
	entries, err := listWorkspaces(cmd.Context())
	if err != nil {
		return err
	}

	if len(entries) == 0 {
		logInfo("No workspaces found. Create one with: forage-play new -t <template>")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSAVED\tSIZE")
	fmt.Fprintln(w, "--\t-----\t----")

	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\n", e.ID, humanize.Time(e.UpdatedAt), humanize.Bytes(uint64(e.Size)))
	}

	return w.Flush()
}

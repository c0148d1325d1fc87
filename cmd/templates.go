package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	securejoin "github.com/cyphar/filepath-securejoin"
	"github.com/spf13/cobra"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List available workspace templates",
	Args:  cobra.NoArgs,
	RunE:  runTemplates,
}

func init() {
	rootCmd.AddCommand(templatesCmd)
}

func runTemplates(cmd *cobra.Command, args []string) error {
	c := cfg()
	keys := c.TemplateKeys()

	if len(keys) == 0 {
		logInfo("No templates configured. Add them under [templates.paths] in config.toml.")
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TEMPLATE\tDIRECTORY\tSTATUS")
	fmt.Fprintln(w, "--------\t---------\t------")

	for _, key := range keys {
		rel := c.Templates.Paths[key]
		fmt.Fprintf(w, "%s\t%s\t%s\n", key, rel, templateStatus(c.Templates.Dir, rel))
	}

	return w.Flush()
}

func templateStatus(dir, rel string) string {
	full, err := securejoin.SecureJoin(dir, rel)
	if err != nil {
		return "invalid"
	}
	info, err := os.Stat(full)
	switch {
	case err != nil:
		return "missing"
	case !info.IsDir():
		return "not a directory"
	default:
		return "ok"
	}
}

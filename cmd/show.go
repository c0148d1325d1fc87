package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

var showCmd = &cobra.Command{
	Use:   "show <id> [path]",
	Short: "Print a workspace tree or one of its files",
	Args:  cobra.RangeArgs(1, 2),
	RunE:  runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	root, err := loadWorkspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	if len(args) == 2 {
		file, ok := tree.Lookup(root, args[1])
		if !ok {
			return errors.PathNotFound(args[1])
		}
		_, err := io.WriteString(out, file.Content)
		return err
	}

	fmt.Fprintln(out, args[0])
	printFolder(out, root, "")
	files, folders := tree.Count(root)
	fmt.Fprintf(out, "\n%d files, %d folders\n", files, folders)
	return nil
}

// printFolder writes folder's items as an indented tree.
func printFolder(w io.Writer, folder *tree.Folder, indent string) {
	for i, item := range folder.Items {
		branch, next := "├── ", "│   "
		if i == len(folder.Items)-1 {
			branch, next = "└── ", "    "
		}
		switch n := item.(type) {
		case *tree.Folder:
			fmt.Fprintf(w, "%s%s%s/\n", indent, branch, n.Name)
			printFolder(w, n, indent+next)
		case *tree.File:
			fmt.Fprintf(w, "%s%s%s (%d lines)\n", indent, branch, n.Label(), lineCount(n.Content))
		}
	}
}

func lineCount(s string) int {
	if s == "" {
		return 0
	}
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

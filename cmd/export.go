package cmd

import (
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/bridge"
)

var exportCmd = &cobra.Command{
	Use:   "export <id> <dir>",
	Short: "Write a workspace tree to a directory",
	Args:  cobra.ExactArgs(2),
	RunE:  runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	id, dir := args[0], args[1]

	root, err := loadWorkspace(cmd.Context(), id)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}
	n, err := bridge.Export(osfs.New(dir), root)
	if err != nil {
		return fmt.Errorf("failed to export %s: %w", id, err)
	}

	logSuccess("Exported %d files from %s to %s", n, id, dir)
	return nil
}

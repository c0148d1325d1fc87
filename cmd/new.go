package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

var newCmd = &cobra.Command{
	Use:   "new [id]",
	Short: "Create a workspace from a template",
	Long: `Creates a workspace from a starter template and saves it to the store.

Without an id a random one is generated.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runNew,
}

var newTemplate string

func init() {
	newCmd.Flags().StringVarP(&newTemplate, "template", "t", "", "Template to use (required)")
	if err := newCmd.MarkFlagRequired("template"); err != nil {
		panic(err)
	}
	rootCmd.AddCommand(newCmd)
}

func runNew(cmd *cobra.Command, args []string) error {
	var id string
	if len(args) > 0 {
		id = args[0]
	}
	id, err := createWorkspace(cmd.Context(), id, newTemplate)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "  Start: forage-play up %s\n", id)
	return nil
}

// createWorkspace seeds a new workspace from templateKey and returns its id.
func createWorkspace(ctx context.Context, id, templateKey string) (string, error) {
	id, err := resolveID(id)
	if err != nil {
		return "", err
	}

	exists, err := workspaceExists(ctx, id)
	if err != nil {
		return "", err
	}
	if exists {
		return "", errors.NameCollision(id)
	}

	logging.Debug("creating workspace", "workspace", id, "template", templateKey)
	session, err := app.Default.OpenSession(ctx, id, templateKey, nil)
	if err != nil {
		return "", err
	}

	files, folders := tree.Count(session.Tree())
	logSuccess("Workspace %s created from %s (%d files, %d folders)", id, templateKey, files, folders)
	return id, nil
}

package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Pick a workspace interactively",
	Long: `Shows saved workspaces grouped by when they were last saved. Enter boots
the selected workspace; n walks through creating a new one.

Without a terminal the list is printed instead.`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

func init() {
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	entries, err := listWorkspaces(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		fmt.Fprint(out, tui.SimplePicker(entries, time.Now()))
		return nil
	}

	result, err := tui.RunPicker(entries, tui.PickerOptions{
		AllowCreate: true,
		Templates:   templateChoices(),
	})
	if err != nil {
		return fmt.Errorf("picker: %w", err)
	}

	switch result.Action {
	case tui.ActionOpen:
		return upWorkspace(cmd.Context(), out, result.Workspace.ID, "", true)

	case tui.ActionNew:
		if result.CreateOptions == nil {
			fmt.Fprintln(out, "Create a workspace with: forage-play new -t <template> [id]")
			return nil
		}
		id, err := createWorkspace(cmd.Context(), result.CreateOptions.ID, result.CreateOptions.Template)
		if err != nil {
			return err
		}
		return upWorkspace(cmd.Context(), out, id, "", true)
	}

	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/completion"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/tree"
)

var completeCmd = &cobra.Command{
	Use:   "complete <id> <path>",
	Short: "Ask the completion service for a suggestion at a cursor",
	Long: `Sends a file of a workspace to the configured completion service and
prints the suggestion. The cursor defaults to the end of the file.`,
	Args: cobra.ExactArgs(2),
	RunE: runComplete,
}

var (
	completeLine   int
	completeColumn int
	completeType   string
)

func init() {
	completeCmd.Flags().IntVar(&completeLine, "line", 0, "Cursor line, 1-based (default: last line)")
	completeCmd.Flags().IntVar(&completeColumn, "column", 0, "Cursor column, 1-based (default: end of line)")
	completeCmd.Flags().StringVar(&completeType, "type", completion.DefaultSuggestionType, "Suggestion type")
	rootCmd.AddCommand(completeCmd)
}

func runComplete(cmd *cobra.Command, args []string) error {
	client, err := app.Default.Completion()
	if err != nil {
		return errors.ConfigError("set [completion] url in config.toml", err)
	}

	root, err := loadWorkspace(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	file, ok := tree.Lookup(root, args[1])
	if !ok {
		return errors.PathNotFound(args[1])
	}

	line, column := cursorAt(file.Content, completeLine, completeColumn)
	suggestion, err := client.Suggest(cmd.Context(), completion.Request{
		FileContent:    file.Content,
		CursorLine:     line,
		CursorColumn:   column,
		SuggestionType: completeType,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.OutOrStdout(), suggestion)
	return nil
}

// cursorAt fills in a missing line or column: the last line and the
// column after its last character.
func cursorAt(content string, line, column int) (int, int) {
	lines := strings.Split(content, "\n")
	if line <= 0 || line > len(lines) {
		line = len(lines)
	}
	if column <= 0 {
		column = len([]rune(lines[line-1])) + 1
	}
	return line, column
}

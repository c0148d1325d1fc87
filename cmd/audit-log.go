package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log <id>",
	Short: "Display the audit trail for a workspace",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

var auditLogJSON bool

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "jsonl", false, "Output events as JSON lines")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	id := args[0]
	out := cmd.OutOrStdout()
	if err := config.ValidateWorkspaceID(id); err != nil {
		return errors.ValidationError(err.Error())
	}

	events, err := app.Default.Audit.Events(id)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for workspace %s", id)
		return nil
	}

	for _, e := range events {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
		} else {
			ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
			if e.Details != "" {
				fmt.Fprintf(out, "[%s] %-11s %s (%s)\n", ts, e.Type, e.Workspace, e.Details)
			} else {
				fmt.Fprintf(out, "[%s] %-11s %s\n", ts, e.Type, e.Workspace)
			}
		}
	}

	return nil
}

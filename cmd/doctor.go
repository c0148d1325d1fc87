package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/health"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/store"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the store, runtime, templates and completion service",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	c := cfg()

	var commands [][]string
	for _, fn := range []func() ([]string, error){c.InstallCommand, c.StartCommand} {
		if argv, err := fn(); err == nil {
			commands = append(commands, argv)
		}
	}

	// A store that fails to open is reported by the store check.
	var s store.Store
	if opened, err := app.Default.Store(); err == nil {
		s = opened
	}

	report := health.Check(cmd.Context(), health.CheckOptions{
		Store:         s,
		Runtime:       app.Default.Runtime,
		Templates:     app.Default.Templates,
		Commands:      commands,
		CompletionURL: c.Completion.URL,
	})

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CHECK\tSTATUS\tDETAIL")
	fmt.Fprintln(w, "-----\t------\t------")
	for _, r := range report.Results {
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Status, r.Detail)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if report.Summary() == health.StatusUnhealthy {
		return errors.New(errors.ExitGeneralError, "environment is unhealthy")
	}
	return nil
}

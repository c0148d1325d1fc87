package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/app"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/config"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/errors"
	"github.com/firefly-engineering/firefly-forage/packages/forage-play/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "forage-play",
	Short: "Coding playground workspaces with live sandboxes",
	Long: `forage-play keeps coding playground workspaces and runs them in sandboxes.

Each workspace is a file tree seeded from a starter template:
  - Saved to a local store (badger, sqlite or postgres)
  - Booted into a sandbox that installs dependencies and starts a dev server
  - Edits are saved to the store and written into the running sandbox`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(verbose, jsonOutput, os.Stderr)
		return configure(configPath)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if err := app.Default.Close(); err != nil {
			logging.Warn("failed to close store", "error", err)
		}
	},
}

// configure loads the config file and installs the application built from
// it. Tests replace it to keep their injected app.
var configure = func(path string) error {
	cfg, err := config.Load(path)
	if err != nil {
		return errors.ConfigError("failed to load config", err)
	}
	app.SetDefault(app.New(app.WithConfig(cfg)))
	return nil
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $FORAGE_PLAY_CONFIG or ~/.config/forage-play/config.toml)")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)

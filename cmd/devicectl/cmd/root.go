// Package cmd implements the devicectl CLI commands.
package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/08star/my-auth-app/config"
	"github.com/08star/my-auth-app/internal/application"
	"github.com/08star/my-auth-app/internal/infrastructure/persistence"
	"github.com/08star/my-auth-app/pkg/logger"
)

var (
	// Version is set at build time
	Version = "0.1.0"

	// Global flags
	outputFormat string
	dbDriver     string
	sqlitePath   string

	// Opened by PersistentPreRunE
	cfg      *config.Config
	repos    *persistence.Repositories
	sessions *persistence.Sessions
	svcs     *application.Services
)

var rootCmd = &cobra.Command{
	Use:   "devicectl",
	Short: "Administer accounts and device bindings",
	Long: `devicectl operates directly on the configured account and device store.

It reads the same environment (and CONFIG_FILE) as the server, so it can
create accounts, toggle them, inspect their devices and approve a device
without going through the HTTP API.`,
	Version:      Version,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "completion" || cmd.Name() == "help" {
			return nil
		}
		return openStore(cmd)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeStore()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "Output format: table, json, yaml")
	rootCmd.PersistentFlags().StringVar(&dbDriver, "db-driver", "", "Store driver: postgres, sqlite, memory (default: DB_DRIVER)")
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite-path", "", "SQLite database file (default: DB_SQLITE_PATH)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func openStore(cmd *cobra.Command) error {
	closeStore()

	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}
	if dbDriver != "" {
		cfg.Database.Driver = dbDriver
	}
	if sqlitePath != "" {
		cfg.Database.SQLitePath = sqlitePath
	}

	repos, err = persistence.Open(cmd.Context(), &cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", cfg.Database.Driver, err)
	}

	sessions, err = persistence.OpenSessions(cmd.Context(), cfg)
	if err != nil {
		_ = repos.Close()
		repos = nil
		return fmt.Errorf("failed to open session registry: %w", err)
	}

	svcs, err = application.NewServices(repos, sessions, application.NewDependencies(cfg), cfg, logger.Nop())
	if err != nil {
		closeStore()
		return err
	}
	return nil
}

func closeStore() {
	if sessions != nil {
		_ = sessions.Close()
		sessions = nil
	}
	if repos != nil {
		_ = repos.Close()
		repos = nil
	}
	svcs = nil
}

// formatOutput handles output formatting based on the --output flag.
func formatOutput(w io.Writer, data interface{}) error {
	switch outputFormat {
	case "json":
		return outputJSON(w, data)
	case "yaml":
		return outputYAML(w, data)
	default:
		// Table format is handled by each command
		return nil
	}
}

func outputJSON(w io.Writer, data interface{}) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func outputYAML(w io.Writer, data interface{}) error {
	out, err := yaml.Marshal(data)
	if err != nil {
		return err
	}
	_, err = w.Write(out)
	return err
}

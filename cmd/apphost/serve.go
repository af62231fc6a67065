package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/bootstrap"
	"github.com/artpar/apphost/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the apphost server",
	Long: `Start the apphost server.

The server will:
  - Load configuration from apphost.yaml (or --config)
  - Or load configuration from APPHOST_* environment variables
  - Open the database and seed the declared app grants
  - Serve health, version, metrics and the admin API
  - Reload grants and policy when the config file changes or on SIGHUP

Environment variables (for container deployments):
  APPHOST_ASSETS_BASE_URL   - Asset root URL (required)
  APPHOST_DATABASE_DSN      - Database path (default: apphost.db)
  APPHOST_SERVER_PORT       - Server port (default: 8080)
  APPHOST_LOG_LEVEL         - Log level: debug, info, warn, error
  APPHOST_ADMIN_ENABLED     - Enable the admin API
  APPHOST_ADMIN_TOKEN_HASH  - bcrypt hash of the admin token

Examples:
  apphost serve
  apphost serve --config /etc/apphost/config.yaml

  # Env vars only:
  APPHOST_ASSETS_BASE_URL=https://assets.example.com apphost serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	// No configuration at all
	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s\n", cfgFile)
		fmt.Fprintf(out, "Option 2: Set %sASSETS_BASE_URL\n", config.EnvPrefix)
		return fmt.Errorf("no configuration")
	}

	app, err := bootstrap.New(cmd.Context(), bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}

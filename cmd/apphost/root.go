package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/bootstrap"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "apphost",
	Short: "Host for platform apps with permission-gated extension modules",
	Long: `apphost lets third-party platform apps call host modules such as
SceneTransitions. Every call is checked against the permissions granted to
the calling app, validated, translated and handed to the host engine.

Quick start:
  apphost validate  # Check the configuration
  apphost serve     # Start the server

Management:
  apphost modules      # List registered modules
  apphost grants       # Manage app permissions
  apphost invoke       # Call a module method as an app
  apphost invocations  # Inspect the invocation audit log`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "apphost.yaml", "config file path")
}

// openApp builds the application for one-shot management commands. Logs
// are discarded so command output stays readable.
func openApp(ctx context.Context) (*bootstrap.App, error) {
	a, err := bootstrap.New(ctx, bootstrap.Options{
		ConfigPath: cfgFile,
		Version:    version,
		LogOutput:  io.Discard,
	})
	if err != nil {
		return nil, fmt.Errorf("open app: %w", err)
	}
	return a, nil
}

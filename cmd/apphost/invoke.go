package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/core/runtime"
	"github.com/artpar/apphost/pkg/apierror"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <module> <method> [args-json]",
	Short: "Call a module method as an app",
	Long: `Dispatch one invocation exactly as the given app would, including the
permission check. The result or the structured error is printed as JSON.

Examples:
  apphost invoke --app app-1 SceneTransitions createTransition \
    '{"type":"stinger","name":"Intro","url":"intro.webm"}'`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runInvoke,
}

var invokeAppID string

func init() {
	rootCmd.AddCommand(invokeCmd)

	invokeCmd.Flags().StringVar(&invokeAppID, "app", "", "calling app ID (required)")
	invokeCmd.MarkFlagRequired("app")
}

func runInvoke(cmd *cobra.Command, args []string) error {
	inv := runtime.Invocation{
		AppID:  invokeAppID,
		Module: args[0],
		Method: args[1],
	}
	if len(args) == 3 {
		dec := json.NewDecoder(strings.NewReader(args[2]))
		dec.UseNumber()
		if err := dec.Decode(&inv.Args); err != nil {
			return fmt.Errorf("args must be JSON: %w", err)
		}
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")

	result, err := app.Dispatcher.Invoke(cmd.Context(), inv)
	if err != nil {
		if ae, ok := apierror.As(err); ok {
			enc.Encode(map[string]any{"error": ae})
			return fmt.Errorf("invocation failed: %s", ae.Kind)
		}
		return err
	}

	return enc.Encode(map[string]any{"result": result})
}

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/core/capability"
)

var grantsCmd = &cobra.Command{
	Use:   "grants",
	Short: "Manage app permissions",
	Long: `Manage the permissions granted to platform apps.

Grants declared in the config file are re-applied on every start, so use
these commands for apps that are not declared there.

Examples:
  apphost grants list
  apphost grants set app-1 SceneTransitions Notifications
  apphost grants revoke app-1`,
}

var grantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List apps and their permissions",
	RunE:  runGrantsList,
}

var grantsSetCmd = &cobra.Command{
	Use:   "set <app-id> <permission>...",
	Short: "Replace an app's permissions",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runGrantsSet,
}

var grantsRevokeCmd = &cobra.Command{
	Use:   "revoke <app-id>",
	Short: "Remove an app and all its permissions",
	Args:  cobra.ExactArgs(1),
	RunE:  runGrantsRevoke,
}

func init() {
	rootCmd.AddCommand(grantsCmd)

	grantsCmd.AddCommand(grantsListCmd)
	grantsCmd.AddCommand(grantsSetCmd)
	grantsCmd.AddCommand(grantsRevokeCmd)
}

func runGrantsList(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	apps, err := app.Grants.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list apps: %w", err)
	}

	out := cmd.OutOrStdout()
	if len(apps) == 0 {
		fmt.Fprintln(out, "No apps have been granted permissions.")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Grant with: apphost grants set <app-id> <permission>...")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tPERMISSIONS\tUPDATED")
	fmt.Fprintln(w, "---\t-----------\t-------")
	for _, a := range apps {
		fmt.Fprintf(w, "%s\t%s\t%s\n", a.ID, joinPermissions(a.Permissions), a.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

func runGrantsSet(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	perms, err := app.Grants.Set(cmd.Context(), args[0], args[1:])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Granted %s: %s\n", checkMark, args[0], joinPermissions(perms))
	return nil
}

func runGrantsRevoke(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if err := app.Grants.Revoke(cmd.Context(), args[0]); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s Revoked %s\n", checkMark, args[0])
	return nil
}

func joinPermissions(perms []capability.Permission) string {
	if len(perms) == 0 {
		return "-"
	}
	names := make([]string, len(perms))
	for i, p := range perms {
		names[i] = string(p)
	}
	return strings.Join(names, ",")
}

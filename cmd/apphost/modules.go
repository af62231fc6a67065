package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var modulesCmd = &cobra.Command{
	Use:   "modules",
	Short: "List registered modules",
	Long: `List every module apps can call, with the permissions it requires
and the methods it exposes.

Examples:
  apphost modules`,
	RunE: runModules,
}

func init() {
	rootCmd.AddCommand(modulesCmd)
}

func runModules(cmd *cobra.Command, args []string) error {
	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MODULE\tPERMISSIONS\tMETHODS")
	fmt.Fprintln(w, "------\t-----------\t-------")

	for _, m := range app.Registry.List() {
		perms := make([]string, len(m.Permissions))
		for i, p := range m.Permissions {
			perms[i] = string(p)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", m.Name, strings.Join(perms, ","), strings.Join(m.MethodNames(), ","))
	}

	return w.Flush()
}

package main

import (
	"fmt"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/apphost/domain/invocation"
)

var invocationsCmd = &cobra.Command{
	Use:   "invocations",
	Short: "Inspect the invocation audit log",
	Long: `List recorded invocations, newest first, or summarize them.

Examples:
  apphost invocations
  apphost invocations --app app-1 --outcome failed
  apphost invocations --since 1h --summary`,
	RunE: runInvocations,
}

var (
	invocationsAppID   string
	invocationsModule  string
	invocationsOutcome string
	invocationsKind    string
	invocationsSince   time.Duration
	invocationsLimit   int
	invocationsSummary bool
)

func init() {
	rootCmd.AddCommand(invocationsCmd)

	f := invocationsCmd.Flags()
	f.StringVar(&invocationsAppID, "app", "", "filter by app ID")
	f.StringVar(&invocationsModule, "module", "", "filter by module")
	f.StringVar(&invocationsOutcome, "outcome", "", "filter by outcome: completed or failed")
	f.StringVar(&invocationsKind, "error-kind", "", "filter by error kind")
	f.DurationVar(&invocationsSince, "since", 0, "only invocations newer than this (e.g. 30m, 24h)")
	f.IntVar(&invocationsLimit, "limit", 50, "maximum number of records (0 for all)")
	f.BoolVar(&invocationsSummary, "summary", false, "print aggregate counts instead of records")
}

func runInvocations(cmd *cobra.Command, args []string) error {
	filter := invocation.Filter{
		AppID:     invocationsAppID,
		Module:    invocationsModule,
		Outcome:   invocation.Outcome(invocationsOutcome),
		ErrorKind: invocationsKind,
		Limit:     invocationsLimit,
	}
	switch filter.Outcome {
	case "", invocation.OutcomeCompleted, invocation.OutcomeFailed:
	default:
		return fmt.Errorf("--outcome must be completed or failed")
	}
	if invocationsSince > 0 {
		filter.Since = time.Now().Add(-invocationsSince)
	}

	app, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	out := cmd.OutOrStdout()

	if invocationsSummary {
		filter.Limit = 0
		s, err := app.Audit.Summary(cmd.Context(), filter)
		if err != nil {
			return fmt.Errorf("failed to summarize invocations: %w", err)
		}
		fmt.Fprintf(out, "Total:     %d\n", s.Total)
		fmt.Fprintf(out, "Completed: %d\n", s.Completed)
		fmt.Fprintf(out, "Failed:    %d\n", s.Failed)
		fmt.Fprintf(out, "Avg:       %s\n", s.AvgDuration)
		fmt.Fprintf(out, "Max:       %s\n", s.MaxDuration)

		kinds := make([]string, 0, len(s.ByErrorKind))
		for k := range s.ByErrorKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(out, "  %-22s %d\n", k, s.ByErrorKind[k])
		}
		return nil
	}

	records, err := app.Audit.Query(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("failed to list invocations: %w", err)
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No invocations recorded.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tAPP\tMODULE.METHOD\tOUTCOME\tERROR\tDURATION")
	fmt.Fprintln(w, "----\t---\t-------------\t-------\t-----\t--------")
	for _, r := range records {
		errKind := r.ErrorKind
		if errKind == "" {
			errKind = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%s.%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(time.DateTime), r.AppID, r.Module, r.Method, r.Outcome, errKind, r.Duration)
	}
	return w.Flush()
}

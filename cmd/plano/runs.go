package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/petrijr/plano/internal/persistence"
)

func newRunsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect stored runs",
	}

	var filter persistence.RunFilter
	var status string
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			filter.Status = persistence.RunStatus(strings.ToUpper(status))
			recs, err := store.ListRuns(cmd.Context(), filter)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tPLAN\tSTATUS\tSTARTED\tDURATION\tSTEPS")
			for _, rec := range recs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\n",
					rec.ID, rec.Plan, rec.Status, rec.Started.Format(time.RFC3339), rec.Duration, len(rec.Trace))
			}
			return tw.Flush()
		},
	}
	lf := list.Flags()
	lf.StringVar(&filter.Plan, "plan", "", "only runs of this plan")
	lf.StringVar(&status, "status", "", "only runs with this status")
	lf.IntVarP(&filter.Limit, "limit", "n", 20, "maximum number of runs, 0 for all")

	show := &cobra.Command{
		Use:   "show <id>",
		Short: "Print a stored run as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeStore, err := a.openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = closeStore() }()

			rec, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(rec)
		},
	}

	cmd.AddCommand(list, show)
	return cmd
}

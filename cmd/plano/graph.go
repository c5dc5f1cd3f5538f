package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrijr/plano/internal/render"
	"github.com/petrijr/plano/pkg/api"
)

func newGraphCmd(a *app) *cobra.Command {
	var runID string
	cmd := &cobra.Command{
		Use:   "graph <plan.yaml>",
		Short: "Print a Mermaid flowchart of a plan document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := a.loadDocument(args[0])
			if err != nil {
				return err
			}

			var trace api.Trace
			if runID != "" {
				store, closeStore, err := a.openStore(cmd.Context())
				if err != nil {
					return err
				}
				defer func() { _ = closeStore() }()
				rec, err := store.GetRun(cmd.Context(), runID)
				if err != nil {
					return fmt.Errorf("run %s: %w", runID, err)
				}
				trace = rec.Trace
			}

			_, err = fmt.Fprint(cmd.OutOrStdout(), render.Mermaid(doc.Plan, trace))
			return err
		},
	}
	cmd.Flags().StringVar(&runID, "run", "", "overlay the trace of a stored run")
	return cmd
}

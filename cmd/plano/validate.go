package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/petrijr/plano/pkg/plan"
)

func newValidateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <plan.yaml>...",
		Short: "Check plan documents without running them",
		Long: "Parses every document and checks that its actions are registered and the\n" +
			"combinators it needs are bound. All problems are reported at once.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				doc, err := a.loadDocument(path)
				if err == nil {
					_, err = doc.Compile(a.actions, a.engineOptions()...)
				}
				if err != nil {
					failed++
					fmt.Fprintf(out, "%s: invalid\n%v\n", path, err)
					continue
				}
				fmt.Fprintf(out, "%s: ok %s\n", path, plan.String(doc.Plan))
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d documents invalid", failed, len(args))
			}
			return nil
		},
	}
}

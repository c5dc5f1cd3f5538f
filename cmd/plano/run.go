package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/pkg/api"
)

type runFlags struct {
	input     string
	inputJSON string
	snapshot  bool
	trace     bool
	noStore   bool
}

func newRunCmd(a *app) *cobra.Command {
	var fl runFlags
	cmd := &cobra.Command{
		Use:   "run <plan.yaml>",
		Short: "Run a plan document and print its output",
		Long: "Runs the plan document once. The input is --input as a string, --input-json\n" +
			"decoded as JSON, or the document's own input. The run is saved in the\n" +
			"configured store unless --no-store is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args[0], fl)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.input, "input", "i", "", "input string")
	f.StringVar(&fl.inputJSON, "input-json", "", "input as a JSON value")
	f.BoolVar(&fl.snapshot, "snapshot", false, "record the state before and after every step")
	f.BoolVar(&fl.trace, "trace", false, "print the step trace")
	f.BoolVar(&fl.noStore, "no-store", false, "do not save the run")
	cmd.MarkFlagsMutuallyExclusive("input", "input-json")
	return cmd
}

func (a *app) run(cmd *cobra.Command, path string, fl runFlags) error {
	ctx := cmd.Context()
	doc, err := a.loadDocument(path)
	if err != nil {
		return err
	}

	var extra []engine.Option
	if fl.snapshot {
		extra = append(extra, engine.WithSnapshots(true))
	}
	runner, err := doc.Compile(a.actions, a.engineOptions(extra...)...)
	if err != nil {
		return err
	}

	input := doc.Input
	switch {
	case cmd.Flags().Changed("input"):
		input = fl.input
	case fl.inputJSON != "":
		if err := json.Unmarshal([]byte(fl.inputJSON), &input); err != nil {
			return fmt.Errorf("--input-json: %w", err)
		}
	}

	res, runErr := runner.Run(ctx, input)

	if !fl.noStore {
		store, closeStore, err := a.openStore(ctx)
		if err != nil {
			return errors.Join(runErr, err)
		}
		defer func() { _ = closeStore() }()
		if err := store.SaveRun(ctx, persistence.NewRunRecord(res, runErr)); err != nil {
			return errors.Join(runErr, fmt.Errorf("save run: %w", err))
		}
	}

	out := cmd.OutOrStdout()
	if fl.trace {
		printTrace(out, res.Trace, fl.snapshot)
	}
	if runErr != nil {
		return fmt.Errorf("run %s failed: %w", res.ID, runErr)
	}
	return printValue(out, res.Output)
}

// printValue prints strings as they are and everything else as JSON.
func printValue(w io.Writer, v any) error {
	if s, ok := v.(string); ok {
		_, err := fmt.Fprintln(w, s)
		return err
	}
	b, err := json.Marshal(v)
	if err != nil {
		_, err = fmt.Fprintf(w, "%v\n", v)
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}

func printTrace(w io.Writer, trace api.Trace, snapshots bool) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if snapshots {
		fmt.Fprintln(tw, "PATH\tSTATUS\tDURATION\tINPUT\tOUTPUT")
	} else {
		fmt.Fprintln(tw, "PATH\tSTATUS\tDURATION")
	}
	for _, rec := range trace {
		status := "ok"
		if !rec.OK {
			status = "failed: " + rec.Err
		}
		if snapshots {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%v\t%v\n", rec.Path, status, rec.Duration, rec.Input, rec.Snapshot)
		} else {
			fmt.Fprintf(tw, "%s\t%s\t%s\n", rec.Path, status, rec.Duration)
		}
	}
	_ = tw.Flush()
}

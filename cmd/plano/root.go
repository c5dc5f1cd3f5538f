package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/petrijr/plano/internal/config"
	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/logging"
	"github.com/petrijr/plano/internal/persistence"
	"github.com/petrijr/plano/internal/planfile"
	"github.com/petrijr/plano/internal/textkit"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/registry"
)

// version is set at build time via -ldflags.
var version = "dev"

// app is the state shared by all subcommands, filled in before any of them
// runs.
type app struct {
	configPath string
	logLevel   string

	cfg     *config.Config
	logger  *slog.Logger
	actions *registry.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "plano",
		Short: "Run plan-algebra workflows",
		Long: "plano compiles plan documents (sequences, parallel fan-outs, choices, focused\n" +
			"sub-plans and loops over named actions) and runs them against the built-in\n" +
			"text actions.",
		Version:           version,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	}
	f := root.PersistentFlags()
	f.StringVarP(&a.configPath, "config", "c", "", "path to plano.toml")
	f.StringVar(&a.logLevel, "log-level", "", "override the configured log level")

	root.AddCommand(
		newRunCmd(a),
		newValidateCmd(a),
		newGraphCmd(a),
		newRunsCmd(a),
		newActionsCmd(a),
		newServeCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg := config.Default()
	if a.configPath != "" {
		var err error
		if cfg, err = config.Load(a.configPath); err != nil {
			return err
		}
	}
	cfg.ApplyEnvOverrides()
	if a.logLevel != "" {
		cfg.Log.Level = a.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	level, err := logging.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	a.actions = textkit.NewRegistry()
	return nil
}

// engineOptions returns the configured runner options plus logging.
func (a *app) engineOptions(extra ...engine.Option) []engine.Option {
	opts := a.cfg.Engine.Options()
	opts = append(opts,
		engine.WithLogger(a.logger),
		engine.WithObserver(api.NewLoggingObserver(a.logger)),
	)
	return append(opts, extra...)
}

func (a *app) openStore(ctx context.Context) (persistence.RunStore, func() error, error) {
	store, closeFn, err := persistence.Open(ctx, a.cfg.Store.Options())
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", a.cfg.Store.Backend, err)
	}
	return store, closeFn, nil
}

func (a *app) loadDocument(path string) (*planfile.Document, error) {
	return planfile.Load(path, textkit.Bindings())
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/petrijr/plano/internal/engine"
	"github.com/petrijr/plano/internal/httpapi"
	"github.com/petrijr/plano/internal/taskqueue"
	"github.com/petrijr/plano/internal/textkit"
	"github.com/petrijr/plano/pkg/api"
	"github.com/petrijr/plano/pkg/metrics"
	"github.com/petrijr/plano/pkg/worker"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with background workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				a.cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.addr")
	return cmd
}

func (a *app) serve(ctx context.Context) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	obs := api.NewCompositeObserver(
		api.NewLoggingObserver(a.logger),
		metrics.NewObserver(prometheus.DefaultRegisterer),
	)
	opts := append(a.cfg.Engine.Options(), engine.WithLogger(a.logger), engine.WithObserver(obs))

	w := worker.New(taskqueue.NewInMemoryQueue(a.cfg.Worker.QueueSize), store, worker.WithLogger(a.logger))
	srv := &http.Server{
		Addr: a.cfg.Server.Addr,
		Handler: (&httpapi.Server{
			Actions:  a.actions,
			Bindings: textkit.Bindings(),
			Store:    store,
			Worker:   w,
			Options:  opts,
			Logger:   a.logger,
		}).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(ctx, a.cfg.Worker.Concurrency)
	})
	g.Go(func() error {
		a.logger.Info("server_listening", "addr", srv.Addr, "store", a.cfg.Store.Backend)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("graceful shutdown incomplete", "error", err)
			return srv.Close()
		}
		a.logger.Info("server_stopped")
		return nil
	})
	return g.Wait()
}

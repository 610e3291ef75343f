package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"skitgen/cfg"
	"skitgen/internal/app/api"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/metrics"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/kv"
	"skitgen/pkg/pubsub"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// events kept per run so late websocket subscribers see the whole run
const eventBacklog = 256

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API that runs posted configs",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, logger, err := loadConfig()
		if err != nil {
			return err
		}

		return serve(cmd.Context(), c, logger)
	},
}

// serveRunner builds collaborators per posted config, since every config
// may pick other providers.
type serveRunner struct {
	logger   *slog.Logger
	ledger   pipeline.Ledger
	observer pipeline.Observer
	caches   *kv.Pool
}

func (s *serveRunner) Run(ctx context.Context, c *cfg.Config, opts ...pipeline.RunOption) (*pipeline.Result, error) {
	deps, closeDeps, err := newDeps(ctx, c, s.logger, s.ledger, s.observer, s.caches)
	defer closeDeps()
	if err != nil {
		p := pipeline.New(pipeline.Deps{Ledger: s.ledger, Observer: s.observer, Logger: s.logger})
		return p.Reject(ctx, c, err, opts...)
	}

	return pipeline.New(*deps).Run(ctx, c, opts...)
}

func serve(ctx context.Context, c *cfg.Config, logger *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	db, err := ledger.New(ctx, &c.Ledger)
	if err != nil {
		return err
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	metrics.RegisterMetrics(reg)

	events := pubsub.New[pipeline.Event](eventBacklog)

	observer := pipeline.Observers(
		pipeline.LogObserver(logger),
		pipeline.ObserverFunc(func(e pipeline.Event) { events.Publish(e.RunID, e) }),
	)

	caches := kv.NewPool(logger.WithGroup("kv"))

	runner := &serveRunner{
		logger:   logger,
		ledger:   db,
		observer: observer,
		caches:   caches,
	}

	apiServer := api.NewAPI(ctx, logger.WithGroup("api"), runner, db, events, reg)

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(c.Api.Port),
		Handler:           apiServer.NewRouter(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	wg := sync.WaitGroup{}

	wg.Add(1)
	go func() {
		defer wg.Done()
		defer cancel()

		logger.Info("Starting server", "addr", srv.Addr)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("ListenAndServe finished", "err", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "err", err)
	}

	wg.Wait()
	apiServer.Wait()

	if err := caches.Close(); err != nil {
		logger.Error("failed to close tts caches", "err", err)
	}

	logger.Info("Server stopped")

	return nil
}

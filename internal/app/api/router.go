package api

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"skitgen/cfg"
	"skitgen/internal/app/ledger"
	"skitgen/internal/app/pipeline"
	"skitgen/pkg/pubsub"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	slogchi "github.com/samber/slog-chi"
)

type Runner interface {
	Run(ctx context.Context, c *cfg.Config, opts ...pipeline.RunOption) (*pipeline.Result, error)
}

type Runs interface {
	GetRun(ctx context.Context, id string) (*ledger.Run, error)
	ListRuns(ctx context.Context, limit int) ([]*ledger.Run, error)
}

type API struct {
	logger *slog.Logger

	// runs outlive the request that started them
	ctx context.Context

	runner Runner
	runs   Runs
	events *pubsub.PubSub[pipeline.Event]
	reg    prometheus.Gatherer

	wg sync.WaitGroup
}

func NewAPI(ctx context.Context, logger *slog.Logger, runner Runner, runs Runs, events *pubsub.PubSub[pipeline.Event], reg prometheus.Gatherer) *API {
	return &API{
		logger: logger,
		ctx:    ctx,
		runner: runner,
		runs:   runs,
		events: events,
		reg:    reg,
	}
}

func (api *API) NewRouter() *chi.Mux {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(slogchi.New(api.logger))

	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	router.Use(middleware.StripSlashes)

	router.Use(middleware.Recoverer)

	router.Handle("/metrics", promhttp.HandlerFor(api.reg, promhttp.HandlerOpts{}))
	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	router.Route("/runs", func(router chi.Router) {
		router.Post("/", api.createRun)
		router.Get("/", api.listRuns)
		router.Get("/{id}", api.getRun)
		router.Get("/{id}/events", api.runEvents)
	})

	return router
}

// Wait blocks until every run started through the API has returned.
func (api *API) Wait() {
	api.wg.Wait()
}

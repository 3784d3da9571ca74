package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	handlers "github.com/tokenatlas/tokenatlas/pkg/handlers/analytics"
	tokenatlasmiddleware "github.com/tokenatlas/tokenatlas/pkg/server/middleware"
	"github.com/tokenatlas/tokenatlas/pkg/services/analytics"
	"github.com/tokenatlas/tokenatlas/pkg/services/ingest"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

type Dependencies struct {
	Analytics analytics.Controller
	Recorder  *ingest.Recorder
	Logger    zerolog.Logger
}

type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	Dependencies    Dependencies
}

// ConfigureRouter builds the API route table. Split from WebAPI so tests
// can drive the router through httptest without a listening socket.
func ConfigureRouter(config Config) *chi.Mux {
	handler := handlers.NewHandler(config.Dependencies.Analytics, config.Dependencies.Recorder)

	router := chi.NewRouter()
	router.Use(tokenatlasmiddleware.Logger(&config.Dependencies.Logger))
	router.Use(middleware.Recoverer)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", handler.Health)
		r.Get("/filters", handler.GetFilterOptions)
		r.Get("/metrics/summary", handler.GetSummary)
		r.Get("/metrics/trend", handler.GetTrend)
		r.Get("/metrics/models", handler.GetModelDistribution)
		r.Get("/metrics/endpoints", handler.GetEndpointDistribution)
		r.Get("/recommendations", handler.GetRecommendations)
		r.Get("/logs", handler.GetLogs)
		r.Post("/log", handler.LogUsage)
	})

	return router
}

type WebAPI struct {
	logger *zerolog.Logger
	server *http.Server
}

func NewWebAPI(config Config) *WebAPI {
	logger := config.Dependencies.Logger
	return &WebAPI{
		logger: &logger,
		server: &http.Server{
			Addr:    config.Addr,
			Handler: ConfigureRouter(config),
		},
	}
}

func (w *WebAPI) Start() error {
	serverErrors := make(chan error, 1)
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		w.logger.Info().Str("addr", w.server.Addr).Msg("starting server")
		serverErrors <- w.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-shutdown:
		w.logger.Info().Msg("shutdown initiated")

		// Give outstanding requests a deadline for completion.
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := w.server.Shutdown(ctx)
		if err != nil {
			w.logger.Error().Err(err).Msg("graceful shutdown failed")
			err = w.server.Close()
		}

		if err != nil {
			return err
		}
	}

	return nil
}

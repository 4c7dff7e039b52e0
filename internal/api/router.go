package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"crisisConnect/internal/api/handlers/http/admin"
	"crisisConnect/internal/api/handlers/http/requests"
	"crisisConnect/internal/api/handlers/http/system"
	"crisisConnect/internal/config"
	"crisisConnect/internal/middleware"
	"crisisConnect/internal/service"
	"crisisConnect/internal/telemetry"
)

const healthPath = "/api/v1/health"

type Server struct {
	logger  *slog.Logger
	handler http.Handler
	cfg     config.Config
}

func NewServer(ctx context.Context, cfg *config.Config, logger *slog.Logger, svc *service.Service, store system.Pinger, metrics *telemetry.Metrics) *Server {
	requestsHandler := requests.NewHandler(logger, svc, svc, svc)
	adminHandler := admin.NewHandler(logger, svc)
	systemHandler := system.NewHandler(logger, store)

	r := InitRouter(ctx, cfg, requestsHandler, adminHandler, systemHandler, metrics, logger)

	return &Server{
		logger:  logger,
		handler: Instrument(r),
		cfg:     *cfg,
	}
}

func InitRouter(ctx context.Context, cfg *config.Config, requestsHandler *requests.Handler, adminHandler *admin.Handler, systemHandler *system.Handler, metrics *telemetry.Metrics, logger *slog.Logger) *chi.Mux {
	r := chi.NewMux()

	// чтобы request_id попал в лог chi.Logger
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Logger)
	r.Use(middleware.HTTPMetrics(metrics))

	r.Route("/api/v1", func(api chi.Router) {
		// SYSTEM
		api.Get("/health", systemHandler.SystemHealth)

		// ADMIN
		api.Route("/admin", func(ar chi.Router) {
			ar.Use(middleware.APIKeyMiddleware(cfg.APIKey))
			ar.Use(middleware.Limit(ctx, 2, 5, 10*time.Minute, logger))

			ar.Delete("/requests/{id}", adminHandler.AdminRequestDelete)
		})

		// PUBLIC
		api.Group(func(pr chi.Router) {
			pr.Use(middleware.Limit(ctx, cfg.RateLimit.RPS, cfg.RateLimit.Burst, 5*time.Minute, logger))
			pr.Use(middleware.RequireIdentity)

			pr.Get("/stats", requestsHandler.StatsGet)
			pr.Get("/users/{ownerId}/requests", requestsHandler.RequestListByOwner)

			pr.Route("/requests", func(rr chi.Router) {
				rr.Post("/", requestsHandler.RequestCreate)
				rr.Get("/", requestsHandler.RequestList)
				rr.Get("/mine", requestsHandler.RequestListMine)
				rr.Post("/nearby", requestsHandler.RequestNearby)

				rr.Route("/{id}", func(ir chi.Router) {
					ir.Get("/", requestsHandler.RequestGet)
					ir.Post("/claim", requestsHandler.RequestClaim)
					ir.Post("/resolve", requestsHandler.RequestResolve)
					ir.Post("/cancel", requestsHandler.RequestCancel)
					ir.Patch("/status", requestsHandler.RequestChangeStatus)
				})
			})
		})
	})

	return r
}

// Instrument wraps the router with OpenTelemetry server spans; health probes
// are not traced.
func Instrument(h http.Handler) http.Handler {
	return otelhttp.NewHandler(h, "http-server",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != healthPath
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
	)
}

func (s *Server) Handler() http.Handler { return s.handler }

func (s *Server) Run(ctx context.Context) error {
	port := s.cfg.Http.Port
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	srv := &http.Server{
		Addr:         port,
		Handler:      s.handler,
		ReadTimeout:  s.cfg.Http.ReadTimeout,
		WriteTimeout: s.cfg.Http.WriteTimeout,
		IdleTimeout:  30 * time.Second,
	}

	errChan := make(chan error, 1)

	go func() {
		s.logger.Info("🚀 Starting HTTP server",
			slog.String("addr", srv.Addr),
			slog.Duration("read_timeout", s.cfg.Http.ReadTimeout),
			slog.Duration("write_timeout", s.cfg.Http.WriteTimeout),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("ListenAndServe error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("🛑 Shutting down HTTP server", slog.String("reason", ctx.Err().Error()))

		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Http.ShutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Server shutdown failed", slog.Any("error", err))
			return err
		}
		return nil

	case err := <-errChan:
		return err
	}
}

// Command server exposes the scheduling search engine over HTTP and JSON-RPC.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/copyleftdev/upmsp/internal/config"
	apperrors "github.com/copyleftdev/upmsp/internal/errors"
	"github.com/copyleftdev/upmsp/internal/logging"
	"github.com/copyleftdev/upmsp/internal/optimization/heuristic"
	"github.com/copyleftdev/upmsp/internal/server"
)

const requestTimeout = 60 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "upmsp-server: load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "upmsp-server: init logger: %v\n", err)
		os.Exit(1)
	}
	logger = logger.WithFields(map[string]interface{}{
		"service": "upmsp-scheduler",
		"env":     cfg.Environment,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, prometheus.DefaultRegisterer); err != nil {
		logger.WithError(err).Fatal("Server stopped with error")
	}
	logger.Info("Server exited properly")
}

// run serves until ctx is cancelled, then drains HTTP requests and stops the
// job queue.
func run(ctx context.Context, cfg *config.Config, logger *logging.Logger, reg prometheus.Registerer) error {
	jobs := server.NewServer(cfg, logger, heuristic.NewMetrics(reg))
	defer func() {
		if err := jobs.Close(); err != nil {
			logger.WithError(err).Error("Closing job queue")
		}
	}()

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:      newRouter(logger, jobs),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Listening", map[string]interface{}{
			"address":  httpServer.Addr,
			"max_jobs": cfg.HTTP.MaxJobs,
		})
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if apperrors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return apperrors.Wrap(err, "listen").WithComponent("server")
	case <-ctx.Done():
	}

	logger.Info("Shutting down", map[string]interface{}{"timeout": cfg.HTTP.ShutdownTimeout.String()})
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return apperrors.Wrap(err, "graceful shutdown").WithComponent("server")
	}
	return nil
}

// newRouter mounts the probes and the job API behind the shared middleware.
func newRouter(logger *logging.Logger, jobs *server.Server) chi.Router {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.Middleware(logger, "/healthz", "/metrics"),
		apperrors.RecoveryMiddleware(logger),
		middleware.Timeout(requestTimeout),
	)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	jobs.RegisterRoutes(r)
	return r
}

// Package server wires the HTTP surface of the fishnet service.
package server

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/udmkit/fishnet/internal/config"
	"github.com/udmkit/fishnet/internal/health"
	imw "github.com/udmkit/fishnet/internal/middleware"
	"github.com/udmkit/fishnet/internal/model"
	"github.com/udmkit/fishnet/internal/pipeline"
	"github.com/udmkit/fishnet/internal/router"
)

// Checks are readiness probes keyed by dependency name.
type Checks map[string]func(context.Context) error

func Handler(cfg config.Config, runner *pipeline.Runner, logger *zerolog.Logger, checks Checks) http.Handler {
	r := chi.NewRouter()
	r.Use(imw.Recover(logger))
	r.Use(imw.Logging(logger))
	r.Use(imw.CORS())

	r.Get("/healthz", health.Liveness())
	r.Get("/readyz", health.Readiness(checks))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	rasterise := func(w http.ResponseWriter, req *http.Request) {
		runReq, err := router.ParseRunRequest(req, cfg)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		// buffer the encoded result so a mid-run failure never leaks a
		// partial body with a 200 status
		var buf bytes.Buffer
		summary, err := runner.Run(req.Context(), runReq, &buf)
		if err != nil {
			http.Error(w, err.Error(), statusFor(err))
			return
		}

		w.Header().Set("Content-Type", summary.ContentType)
		w.WriteHeader(http.StatusOK)
		_, _ = buf.WriteTo(w)
	}
	r.Get("/rasterise", rasterise)
	r.Post("/rasterise", rasterise)

	return r
}

// statusFor maps the run error taxonomy onto HTTP statuses. Bad input is
// 400, a region code that resolves to nothing is 404, a well-formed request
// the engine refuses to run is 422.
func statusFor(err error) int {
	var (
		invalidBounds *model.InvalidBoundsError
		invalidCell   *model.InvalidCellSizeError
		crsMismatch   *model.CRSMismatchError
		unknown       *model.UnknownRegionError
		empty         *model.EmptyRegionError
		tooLarge      *model.GridTooLargeError
		badFeature    *model.InvalidFeatureGeometryError
	)
	switch {
	case errors.Is(err, model.ErrInvalidInput),
		errors.As(err, &invalidBounds), errors.As(err, &invalidCell), errors.As(err, &crsMismatch):
		return http.StatusBadRequest
	case errors.As(err, &unknown):
		return http.StatusNotFound
	case errors.As(err, &empty), errors.As(err, &tooLarge), errors.As(err, &badFeature):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusRequestTimeout
	}
	return http.StatusInternalServerError
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func Run(ctx context.Context, cfg config.Config, runner *pipeline.Runner, logger *zerolog.Logger, checks Checks) error {
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           Handler(cfg, runner, logger, checks),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", cfg.Addr).Msg("http listen")
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}

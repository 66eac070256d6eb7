package main

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	platformmetrics "warranty/internal/platform/metrics"
	"warranty/internal/platform/middleware"
	"warranty/internal/warranty/handler"
	"warranty/pkg/platform/httputil"
)

// pinger is a dependency checked by /readyz.
type pinger interface {
	Ping(ctx context.Context) error
}

type routerDeps struct {
	logger   *slog.Logger
	handler  *handler.Handler
	gatherer prometheus.Gatherer
	http     *platformmetrics.HTTP
	checks   map[string]pinger
}

func newRouter(d routerDeps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(d.logger))
	if d.http != nil {
		r.Use(d.http.Middleware)
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		ctx, cancel := context.WithTimeout(req.Context(), 2*time.Second)
		defer cancel()
		status := http.StatusOK
		result := map[string]string{}
		for name, check := range d.checks {
			if err := check.Ping(ctx); err != nil {
				d.logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
				result[name] = "unavailable"
				status = http.StatusServiceUnavailable
				continue
			}
			result[name] = "ok"
		}
		httputil.WriteJSON(w, status, result)
	})
	if d.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.gatherer, promhttp.HandlerOpts{}))
	}

	d.handler.Register(r)
	return r
}

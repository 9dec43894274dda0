// Package api exposes the database coordinator over HTTP. Routes are
// registered through huma on top of a chi router, so every operation carries
// an OpenAPI description for free.
package api

import (
	"log/slog"
	"net/http"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/quiltdb/quilt/internal/database"
	"github.com/quiltdb/quilt/internal/metrics"
)

// NewServer creates an HTTP server with all routes configured.
func NewServer(logger *slog.Logger, manager *database.Manager) http.Handler {
	mux := chi.NewRouter()

	mux.Use(RequestID)
	mux.Use(Logging(logger))
	mux.Use(Recovery(logger))
	mux.Use(metrics.Metrics)

	mux.Handle("/metrics", promhttp.Handler())
	mux.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	humaAPI := humachi.New(mux, huma.DefaultConfig("quilt", "1.0.0"))

	dbHandler := NewDatabaseHandler(manager, logger)
	rowHandler := NewRowHandler(manager, logger)
	viewHandler := NewViewHandler(manager, logger)
	fieldHandler := NewFieldHandler(manager, logger)

	registerDatabaseRoutes(humaAPI, dbHandler)
	registerRowRoutes(humaAPI, rowHandler)
	registerViewRoutes(humaAPI, viewHandler)
	registerFieldRoutes(humaAPI, fieldHandler)

	return mux
}

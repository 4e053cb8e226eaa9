package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aftersales/internal/platform/middleware"
)

// NewRouter wires all endpoints. The warranty API and the admin surface are
// behind bearer auth; health and metrics are open.
func NewRouter(warranties *WarrantyHandler, admin *AdminHandler, validator middleware.JWTValidator, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recover(logger))
	r.Use(middleware.Logger(logger))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RequireAuth(validator, logger))
		warranties.Register(r)
	})

	if admin != nil {
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireAuth(validator, logger))
			r.Use(middleware.RequireAdmin(logger))
			admin.Register(r)
		})
	}

	return r
}

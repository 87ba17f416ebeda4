package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/ukydev/fleet-console/internal/middleware"
	"github.com/ukydev/fleet-console/internal/models"
)

// RouterConfig wires the console server.
type RouterConfig struct {
	Map       *MapHandler
	Reports   *ReportHandler
	Auth      *AuthHandler
	Session   *middleware.SessionMiddleware
	RateLimit int
	Window    time.Duration
}

// NewRouter builds the local console server.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestLogger)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	limiter := middleware.NewRateLimitMiddleware()

	r.Group(func(r chi.Router) {
		r.Use(cfg.Session.RequireSession)

		r.Get("/", cfg.Map.Index)
		r.Get("/api/session", cfg.Auth.GetProfile)
		r.Post("/api/logout", cfg.Auth.Logout)
		r.Get("/api/routes", cfg.Map.Routes)
		r.With(limiter.RateLimit(cfg.RateLimit, cfg.Window)).Post("/api/routes/refresh", cfg.Map.Refresh)

		r.Group(func(r chi.Router) {
			r.Use(cfg.Session.RequireRole(models.RoleAdmin))
			r.Get("/api/vehicles", cfg.Reports.Vehicles)
			r.Get("/api/vehicles/report.pdf", cfg.Reports.PDF)
		})
	})

	return r
}

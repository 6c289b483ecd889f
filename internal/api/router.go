package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Topsis/internal/config"
	"github.com/MikeSquared-Agency/Topsis/internal/hermes"
	"github.com/MikeSquared-Agency/Topsis/internal/mailer"
	"github.com/MikeSquared-Agency/Topsis/internal/store"
)

func NewRouter(s store.Store, h hermes.Client, m mailer.Sender, wk Waker, cfg *config.Config, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(cfg.Server.RateLimitPerMinute, cfg.Server.RateLimitBurst))

	scores := NewTopsisHandler(s, h, m, cfg.Server.MaxUploadBytes, logger)
	runs := NewRunsHandler(s)
	mashups := NewMashupsHandler(s, h, m, wk, cfg.Mashup, logger)
	admin := NewAdminHandler(s)

	r.Get("/", indexHandler(indexData{
		MailEnabled: m.Enabled(),
		MaxVideos:   cfg.Mashup.MaxVideos,
		MaxDuration: cfg.Mashup.MaxDurationSeconds,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/topsis", scores.Score)
		r.Get("/runs/{id}", runs.Get)

		r.Post("/mashups", mashups.Create)
		r.Get("/mashups/{id}", mashups.Get)
		r.Get("/mashups/{id}/download", mashups.Download)

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.Server.AdminToken))
			r.Get("/stats", admin.Stats)
			r.Get("/runs", runs.List)
		})
	})

	return r
}

func NewMetricsRouter() http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Handle("/metrics", promhttp.Handler())
	return r
}

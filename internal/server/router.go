package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cloo-solutions/sopbot/internal/api/handlers"
	"github.com/cloo-solutions/sopbot/internal/api/middleware"
)

type RouterConfig struct {
	// AuthValidator guards every route except /health; nil disables auth.
	AuthValidator middleware.AuthValidator
	HealthHandler *handlers.HealthHandler
	AnswerHandler *handlers.AnswerHandler
	IndexHandler  *handlers.IndexHandler
	SearchHandler *handlers.SearchHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 1 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", cfg.HealthHandler.Health)

	r.Group(func(r chi.Router) {
		r.Use(middleware.APIKeyAuth(cfg.AuthValidator))

		r.Post("/answer", cfg.AnswerHandler.Answer)

		r.Route("/index", func(r chi.Router) {
			r.Get("/", cfg.IndexHandler.Status)
			r.Post("/", cfg.IndexHandler.Ensure)
		})

		r.Post("/search", cfg.SearchHandler.Search)
	})

	return r
}

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all endpoints and middleware
func NewRouter(svc Service) http.Handler {
	h := &Handler{svc: svc}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/livez", h.handleLivez)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/events", func(r chi.Router) {
			r.Post("/navigation", h.handleNavigation)
			r.Post("/activated", h.handleActivated)
			r.Post("/removed", h.handleRemoved)
			r.Post("/links", h.handleLinks)
		})
		r.Route("/tabs/{tabID}", func(r chi.Router) {
			r.Post("/analyze", h.handleAnalyze)
			r.Get("/analysis", h.handleGetAnalysis)
			r.Get("/badge", h.handleGetBadge)
		})
	})

	return r
}

package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/xavierca1/broccoli-leads/internal/infra/http/handlers"
	"github.com/xavierca1/broccoli-leads/internal/infra/http/middleware"
)

type routeHandlers struct {
	App       *handlers.AppHandler
	Email     *handlers.EmailHandler
	Lead      *handlers.LeadHandler
	Dashboard *handlers.DashboardHandler
	Health    *handlers.HealthHandler
}

func newRouter(frontendURL string, h routeHandlers) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/", h.App.Hello)
	r.Get("/health", h.Health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/clients", h.App.CreateClient)

	r.Route("/emails/agentmail", func(r chi.Router) {
		r.Get("/", h.Email.Test)
		r.Post("/", h.Email.Receive)
	})

	r.Route("/leads", func(r chi.Router) {
		r.Get("/", h.Lead.List)
		r.Get("/{id}", h.Lead.Get)
		r.Patch("/{id}/status", h.Lead.UpdateStatus)
	})

	r.Route("/dashboard/leads", func(r chi.Router) {
		r.Get("/", h.Dashboard.List)
		r.Post("/{id}/status", h.Dashboard.UpdateStatus)
	})

	return r
}

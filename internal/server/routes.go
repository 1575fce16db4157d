package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(s.logRequests)
	if s.metrics != nil {
		r.Use(s.metrics.middleware)
	}
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/recommend", s.handleRecommend)
		r.Get("/analyze", s.handleAnalyze)
		r.Get("/health", s.handleHealth)
		r.Get("/history", s.handleHistory)
	})
	r.Get("/ws/graph", s.handleLive)
	if s.registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))
	}
	r.Get("/", s.handlePage)
	return r
}

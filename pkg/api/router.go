// Package api exposes the remediation core's read-only inspection views
// and reset operations over HTTP (spec.md §6). It deliberately does not
// front process()/feedback() -- those are invoked in-process by the
// Orchestrator's own caller (e.g. a Kubernetes controller watch loop),
// not over the wire, so this router is inspection/administration only.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/learner"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/performance"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
)

// Handler bundles the stores the inspection/reset endpoints read from
// and mutate.
type Handler struct {
	strategies  strategy.Store
	episodic    memory.Store
	performance performance.Tracker
	learner     *learner.Learner
	log         *logrus.Logger
}

// NewHandler builds a Handler.
func NewHandler(strategies strategy.Store, episodic memory.Store, perf performance.Tracker, learn *learner.Learner, log *logrus.Logger) *Handler {
	return &Handler{strategies: strategies, episodic: episodic, performance: perf, learner: learn, log: log}
}

// NewRouter builds the chi.Mux serving Handler's endpoints plus health
// and Prometheus metrics, CORS-enabled for allowedOrigins.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1", func(r chi.Router) {
		r.Get("/strategies", h.listStrategies)
		r.Get("/episodes", h.listEpisodes)
		r.Get("/performance/insights", h.performanceInsights)
		r.Get("/performance/ranking", h.performanceRanking)
		r.Get("/learning/progression", h.learningProgression)
		r.Get("/patterns", h.patterns)
		r.Get("/stats", h.aggregateStatistics)

		r.Post("/reset/strategies", h.clearStrategies)
		r.Post("/reset/episodes", h.clearEpisodes)
		r.Post("/reset/performance", h.clearPerformance)
		r.Post("/reset/all", h.resetAll)
		r.Post("/reset/nuclear", h.nuclearReset)
	})

	return r
}

package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/learner"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]string{"error": err.Error()})
}

func intQueryParam(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func (h *Handler) listStrategies(w http.ResponseWriter, r *http.Request) {
	errClass := types.ErrorClass(r.URL.Query().Get("error_class"))
	strategies, err := h.strategies.List(r.Context(), errClass)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, strategies)
}

func (h *Handler) listEpisodes(w http.ResponseWriter, r *http.Request) {
	errClass := types.ErrorClass(r.URL.Query().Get("error_class"))
	limit := intQueryParam(r, "limit", 50)

	var (
		episodes []*types.Episode
		err      error
	)
	if errClass != "" {
		episodes, err = h.episodic.Similar(r.Context(), errClass, types.Context(nil), limit)
	} else {
		episodes, err = h.episodic.Recent(r.Context(), limit)
	}
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, episodes)
}

func (h *Handler) performanceInsights(w http.ResponseWriter, r *http.Request) {
	days := intQueryParam(r, "days", 7)
	insights, err := h.performance.Insights(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, insights)
}

func (h *Handler) performanceRanking(w http.ResponseWriter, r *http.Request) {
	errClass := types.ErrorClass(r.URL.Query().Get("error_class"))
	ranking, err := h.performance.Ranking(r.Context(), errClass)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, ranking)
}

func (h *Handler) learningProgression(w http.ResponseWriter, r *http.Request) {
	days := intQueryParam(r, "days", 7)
	progression, err := h.episodic.Progression(r.Context(), days)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	trajectory := make([]float64, 0, len(progression))
	for _, p := range progression {
		trajectory = append(trajectory, p.ConfidenceGain)
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"progression":       progression,
		"learning_velocity": learner.LearningVelocity(trajectory),
	})
}

func (h *Handler) patterns(w http.ResponseWriter, r *http.Request) {
	threshold := intQueryParam(r, "threshold", learner.DefaultPatternThreshold)
	patterns, err := h.learner.DetectPatterns(r.Context(), threshold)
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, patterns)
}

func (h *Handler) aggregateStatistics(w http.ResponseWriter, r *http.Request) {
	episodeStats, err := h.episodic.Statistics(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	classStats, err := h.episodic.PerClassStats(r.Context())
	if err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"episodes": episodeStats,
		"by_class": classStats,
	})
}

func (h *Handler) clearStrategies(w http.ResponseWriter, r *http.Request) {
	if err := h.strategies.ClearAll(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) clearEpisodes(w http.ResponseWriter, r *http.Request) {
	if err := h.episodic.ClearAll(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

func (h *Handler) clearPerformance(w http.ResponseWriter, r *http.Request) {
	if err := h.performance.ClearAll(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"cleared": true})
}

// resetAll soft-truncates all three stores -- the rows are deleted but
// schema and connections stay live (spec.md §6's reset_all).
func (h *Handler) resetAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.strategies.ClearAll(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := h.episodic.ClearAll(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	if err := h.performance.ClearAll(ctx); err != nil {
		respondError(w, http.StatusServiceUnavailable, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"reset": true})
}

// nuclearReset is identical to resetAll at the Store-interface level --
// every backend's ClearAll already performs a hard delete, not a
// reversible soft-flag, so spec.md §6's distinct "hard delete+reinit"
// operation has no additional work to do beyond resetAll's three calls.
func (h *Handler) nuclearReset(w http.ResponseWriter, r *http.Request) {
	h.resetAll(w, r)
}

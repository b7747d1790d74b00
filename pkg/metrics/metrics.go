// Package metrics exposes Prometheus collectors for the remediation loop.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EpisodesProcessedTotal counts every loop traversal that reached a
	// terminal state (success, escalation, deep-analysis hand-off).
	EpisodesProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remediation_episodes_processed_total",
		Help: "Total number of incident episodes processed by the orchestrator.",
	})

	// EpisodesByOutcome breaks episodes down by terminal outcome.
	EpisodesByOutcome = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_episodes_by_outcome_total",
		Help: "Episodes processed, labeled by terminal outcome.",
	}, []string{"outcome"})

	// PlanSynthesisDuration measures how long the Plan Synthesiser took,
	// including the LLM round-trip.
	PlanSynthesisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remediation_plan_synthesis_duration_seconds",
		Help:    "Time spent synthesising an execution plan.",
		Buckets: prometheus.DefBuckets,
	})

	// ExecutionDuration measures Safe Executor wall-clock time per plan.
	ExecutionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remediation_execution_duration_seconds",
		Help:    "Time spent executing a command or manifest plan.",
		Buckets: prometheus.DefBuckets,
	})

	// CommandsExecutedTotal counts individual cluster commands, by risk tier.
	CommandsExecutedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_commands_executed_total",
		Help: "Cluster commands executed, labeled by risk tier and phase.",
	}, []string{"risk_tier", "phase"})

	// CommandsRejectedTotal counts commands rejected by validation.
	CommandsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_commands_rejected_total",
		Help: "Cluster commands rejected before execution, labeled by reason.",
	}, []string{"reason"})

	// ReflectionQuality records the meta_quality_score of each reflection.
	ReflectionQuality = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "remediation_reflection_quality",
		Help:    "Distribution of reflection meta_quality_score values.",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 1.0},
	})

	// SelfAwarenessLevel is the current gauge value the Reflector maintains.
	SelfAwarenessLevel = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "remediation_self_awareness_level",
		Help: "Current self-awareness level in [0,1].",
	})

	// StrategyConfidence tracks the dynamic confidence of each known strategy.
	StrategyConfidence = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "remediation_strategy_confidence",
		Help: "Dynamic confidence of a strategy, labeled by strategy_id.",
	}, []string{"strategy_id"})

	// HumanEscalationsTotal counts incidents that required human intervention.
	HumanEscalationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "remediation_human_escalations_total",
		Help: "Total number of incidents escalated to a human.",
	})

	// StoreDegradedTotal counts StoreUnavailable degradations, by store.
	StoreDegradedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "remediation_store_degraded_total",
		Help: "Count of StoreUnavailable degradations, labeled by store.",
	}, []string{"store"})
)

// RecordEpisode increments the episode counters for a terminal outcome.
func RecordEpisode(outcome string) {
	EpisodesProcessedTotal.Inc()
	EpisodesByOutcome.WithLabelValues(outcome).Inc()
}

// RecordPlanSynthesis records the duration of one plan synthesis call.
func RecordPlanSynthesis(d time.Duration) {
	PlanSynthesisDuration.Observe(d.Seconds())
}

// RecordExecution records the duration of one execution report.
func RecordExecution(d time.Duration) {
	ExecutionDuration.Observe(d.Seconds())
}

// RecordCommand increments the executed-command counter for a phase/tier.
func RecordCommand(riskTier, phase string) {
	CommandsExecutedTotal.WithLabelValues(riskTier, phase).Inc()
}

// RecordRejectedCommand increments the rejected-command counter.
func RecordRejectedCommand(reason string) {
	CommandsRejectedTotal.WithLabelValues(reason).Inc()
}

// RecordReflection records a reflection's quality score and refreshes the
// self-awareness gauge.
func RecordReflection(qualityScore, selfAwareness float64) {
	ReflectionQuality.Observe(qualityScore)
	SelfAwarenessLevel.Set(selfAwareness)
}

// RecordStrategyConfidence updates the per-strategy confidence gauge.
func RecordStrategyConfidence(strategyID string, confidence float64) {
	StrategyConfidence.WithLabelValues(strategyID).Set(confidence)
}

// RecordHumanEscalation increments the human-escalation counter.
func RecordHumanEscalation() {
	HumanEscalationsTotal.Inc()
}

// RecordStoreDegraded increments the degraded-store counter.
func RecordStoreDegraded(store string) {
	StoreDegradedTotal.WithLabelValues(store).Inc()
}

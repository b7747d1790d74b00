// Package reflector implements the Reflector (spec.md §4.7): it decides
// when to ask the LLM to reflect on a remediation attempt, extracts
// insights from the free-text response, and tracks a running
// self-awareness level from the quality of those reflections.
package reflector

import (
	"context"
	"math/rand"
	"sync"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/llm"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// successReflectionProbability is the chance a successful attempt still
// triggers a reflection, to keep driving continuous learning
// (spec.md §4.7).
const successReflectionProbability = 0.8

// slowResolutionThresholdSeconds is the resolution time above which a
// reflection is always triggered.
const slowResolutionThresholdSeconds = 60.0

// selfAwarenessWindow bounds how many recent reflections feed the
// "recent meta_quality_score"/"recent insight-count" terms of the
// self-awareness recomputation.
const selfAwarenessWindow = 5

// TriggerInput describes one remediation attempt's outcome, used to
// decide whether a reflection should be triggered.
type TriggerInput struct {
	Success        bool
	RetryCount     int
	IsFirstAttempt bool
	ResolutionTime float64
}

// ShouldReflect applies spec.md §4.7's trigger rules: any failure, any
// retry, the first attempt (bootstrap), slow resolutions, and a random
// 80% of successes.
func ShouldReflect(in TriggerInput) bool {
	if !in.Success {
		return true
	}
	if in.RetryCount > 0 {
		return true
	}
	if in.IsFirstAttempt {
		return true
	}
	if in.ResolutionTime > slowResolutionThresholdSeconds {
		return true
	}
	return rand.Float64() < successReflectionProbability
}

// Reflector produces Reflection Entries and maintains a running
// self-awareness level.
type Reflector struct {
	llm llm.Client

	mu            sync.Mutex
	selfAwareness float64
	recent        []reflectionSummary
}

type reflectionSummary struct {
	metaQualityScore float64
	insightCount     int
}

// New builds a Reflector with a neutral starting self-awareness level.
func New(llmClient llm.Client) *Reflector {
	return &Reflector{llm: llmClient, selfAwareness: 0.5}
}

// SelfAwareness returns the current self-awareness level.
func (r *Reflector) SelfAwareness() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.selfAwareness
}

// Input bundles what the Reflector needs to build its LLM prompt.
type Input struct {
	TriggerAction   string
	OutcomeObserved string
	Prompt          string
	ConfidenceLevel float64
}

// degradedMetaQualityScore is the fallback score on LLM failure
// (spec.md §4.7).
const degradedMetaQualityScore = 0.2

// selfAwarenessPenaltyOnFailure is subtracted from self-awareness when
// the LLM call itself fails.
const selfAwarenessPenaltyOnFailure = 0.1

// Reflect asks the LLM to reflect on in, extracts insights and the
// optional structured block from its response, and updates the running
// self-awareness level. On LLM failure it emits a degraded fallback
// entry instead of propagating the error.
func (r *Reflector) Reflect(ctx context.Context, in Input) types.Reflection {
	text, err := r.llm.Chat(ctx, "You are reflecting on a Kubernetes remediation attempt. Be candid about what worked, what didn't, and why.", in.Prompt)
	if err != nil {
		return r.degradedReflection(in)
	}

	insights := extractInsights(text)
	structured := parseStructuredBlock(text)
	quality := metaQualityScore(text, structured)

	reflection := types.Reflection{
		TriggerAction:   in.TriggerAction,
		OutcomeObserved: in.OutcomeObserved,
		ReflectionText:  text,
		Insights:        insights,
		ConfidenceLevel: in.ConfidenceLevel,
		MetaQualityScore: quality,
		Structured:      structured,
	}
	if structured != nil {
		reflection.StrategyModifications = structured.StrategyModifications
	}

	r.recordAndRecompute(quality, len(insights), in.ConfidenceLevel)
	return reflection
}

func (r *Reflector) degradedReflection(in Input) types.Reflection {
	r.mu.Lock()
	r.selfAwareness = clamp01(r.selfAwareness - selfAwarenessPenaltyOnFailure)
	r.mu.Unlock()

	return types.Reflection{
		TriggerAction:    in.TriggerAction,
		OutcomeObserved:  in.OutcomeObserved,
		ReflectionText:   "reflection unavailable: LLM call failed",
		ConfidenceLevel:  in.ConfidenceLevel,
		MetaQualityScore: degradedMetaQualityScore,
	}
}

// recordAndRecompute appends this reflection's summary to the recent
// window and recomputes self-awareness as the weighted average spec.md
// §4.7 defines: recent mean meta_quality_score (0.4), recent mean
// insight-count normalised to 3 (0.3), current confidence_level (0.3).
func (r *Reflector) recordAndRecompute(quality float64, insightCount int, confidenceLevel float64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.recent = append(r.recent, reflectionSummary{metaQualityScore: quality, insightCount: insightCount})
	if len(r.recent) > selfAwarenessWindow {
		r.recent = r.recent[len(r.recent)-selfAwarenessWindow:]
	}

	var qualitySum float64
	var insightSum int
	for _, s := range r.recent {
		qualitySum += s.metaQualityScore
		insightSum += s.insightCount
	}
	n := float64(len(r.recent))
	meanQuality := qualitySum / n
	meanInsights := clamp01(float64(insightSum) / n / 3)

	r.selfAwareness = clamp01(0.4*meanQuality + 0.3*meanInsights + 0.3*confidenceLevel)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

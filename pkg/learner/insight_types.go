package learner

import "strings"

// InsightType classifies an actionable insight extracted by the
// Reflector (spec.md §4.8).
type InsightType string

const (
	InsightTemporal           InsightType = "temporal"
	InsightResourceManagement InsightType = "resource_management"
	InsightContextAwareness   InsightType = "context_awareness"
	InsightStrategyOptimization InsightType = "strategy_optimization"
	InsightPatternRecognition InsightType = "pattern_recognition"
	InsightGeneral            InsightType = "general"
)

// actionabilityThreshold is the cutoff above which an insight is
// considered actionable (spec.md §4.8).
const actionabilityThreshold = 0.5

var imperativeVerbs = []string{"always", "never", "should", "must", "avoid", "ensure", "check", "retry", "increase", "decrease", "prefer"}
var strategyNouns = []string{"strategy", "confidence", "condition", "plan", "approach", "rollback"}
var contextConditionals = []string{"if", "when", "unless", "in case", "whenever"}

var temporalMarkers = []string{"hour", "time of day", "schedule", "peak", "night", "morning", "weekday", "weekend"}
var resourceMarkers = []string{"memory", "cpu", "limit", "request", "resource", "oom"}
var contextMarkers = []string{"namespace", "environment", "context", "cluster", "production", "staging"}
var strategyMarkers = []string{"strategy", "confidence", "approach", "plan", "tactic"}
var patternMarkers = []string{"pattern", "recurring", "repeatedly", "correlat", "trend"}

// actionabilityScore blends three cue families -- imperative verbs,
// strategy nouns, context conditionals -- into a [0,1] score.
func actionabilityScore(text string) float64 {
	lower := strings.ToLower(text)

	verbHits := countHits(lower, imperativeVerbs)
	nounHits := countHits(lower, strategyNouns)
	condHits := countHits(lower, contextConditionals)

	score := 0.0
	score += cueContribution(verbHits)
	score += cueContribution(nounHits)
	score += cueContribution(condHits)
	return score / 3
}

// cueContribution caps a cue family's contribution at 1 once any hit is
// present, rewarding additional hits only marginally.
func cueContribution(hits int) float64 {
	if hits == 0 {
		return 0
	}
	if hits == 1 {
		return 0.7
	}
	return 1
}

func countHits(lower string, markers []string) int {
	hits := 0
	for _, m := range markers {
		if strings.Contains(lower, m) {
			hits++
		}
	}
	return hits
}

// IsActionable reports whether text clears the actionability threshold.
func IsActionable(text string) bool {
	return actionabilityScore(text) > actionabilityThreshold
}

// ClassifyInsight maps text to the insight type whose marker family has
// the most hits, defaulting to general when no family matches.
func ClassifyInsight(text string) InsightType {
	lower := strings.ToLower(text)

	scores := map[InsightType]int{
		InsightTemporal:             countHits(lower, temporalMarkers),
		InsightResourceManagement:   countHits(lower, resourceMarkers),
		InsightContextAwareness:     countHits(lower, contextMarkers),
		InsightStrategyOptimization: countHits(lower, strategyMarkers),
		InsightPatternRecognition:   countHits(lower, patternMarkers),
	}

	best := InsightGeneral
	bestScore := 0
	for _, t := range []InsightType{InsightTemporal, InsightResourceManagement, InsightContextAwareness, InsightStrategyOptimization, InsightPatternRecognition} {
		if scores[t] > bestScore {
			bestScore = scores[t]
			best = t
		}
	}
	return best
}

// seedConfidence returns the seeded confidence range's midpoint for a
// newly synthesised strategy of the given insight type (spec.md §4.8:
// "seeded confidence 0.5-0.7 depending on type").
func seedConfidence(t InsightType) float64 {
	switch t {
	case InsightStrategyOptimization, InsightPatternRecognition:
		return 0.65
	case InsightResourceManagement:
		return 0.6
	case InsightContextAwareness, InsightTemporal:
		return 0.55
	default:
		return 0.5
	}
}

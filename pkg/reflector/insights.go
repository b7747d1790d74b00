package reflector

import (
	"encoding/json"
	"strings"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// maxInsights bounds how many marker-extracted insights a single
// reflection contributes (spec.md §4.7).
const maxInsights = 5

// insightMarkers are the free-text phrases that mark a sentence as an
// extractable insight.
var insightMarkers = []string{
	"i learned that",
	"i realised that",
	"i realized that",
	"in the future, i will",
	"the key insight is",
}

// metaDiscourseMarkers contribute to meta_quality_score when present in
// the reflection text (spec.md §4.7).
var metaDiscourseMarkers = []string{
	"because", "however", "in hindsight", "pattern", "on reflection", "in contrast", "therefore",
}

// extractInsights splits text into sentences and returns up to
// maxInsights whose lowercased form contains one of insightMarkers.
func extractInsights(text string) []string {
	sentences := splitSentences(text)

	var insights []string
	for _, sentence := range sentences {
		lower := strings.ToLower(sentence)
		for _, marker := range insightMarkers {
			if strings.Contains(lower, marker) {
				insights = append(insights, strings.TrimSpace(sentence))
				break
			}
		}
		if len(insights) >= maxInsights {
			break
		}
	}
	return insights
}

func splitSentences(text string) []string {
	replacer := strings.NewReplacer("!", ".", "?", ".", "\n", ". ")
	normalized := replacer.Replace(text)
	parts := strings.Split(normalized, ".")

	var sentences []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			sentences = append(sentences, trimmed)
		}
	}
	return sentences
}

// parseStructuredBlock looks for a JSON object embedded in the LLM's
// free text and decodes it into a StructuredReflectionBlock. Absence is
// tolerated -- spec.md §4.7 treats the structured block as optional.
func parseStructuredBlock(text string) *types.StructuredReflectionBlock {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return nil
	}

	depth := 0
	for i := start; i < len(text); i++ {
		switch text[i] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				var block types.StructuredReflectionBlock
				if err := json.Unmarshal([]byte(text[start:i+1]), &block); err == nil {
					return &block
				}
				return nil
			}
		}
	}
	return nil
}

// metaQualityScore is the rubric of spec.md §4.7: length bonuses,
// structural-completeness bonuses (capped), and meta-discourse-marker
// bonuses (capped at +0.3), starting from a 0 base.
func metaQualityScore(text string, structured *types.StructuredReflectionBlock) float64 {
	var score float64

	length := len(text)
	if length >= 500 {
		score += 0.2
	}
	if length >= 1000 {
		score += 0.1
	}

	if structured != nil {
		const perField = 0.2
		const cap = 0.6
		present := 0
		if len(structured.MainInsights) > 0 {
			present++
		}
		if len(structured.StrategyModifications) > 0 {
			present++
		}
		if len(structured.ConfidenceUpdates) > 0 {
			present++
		}
		if len(structured.KnowledgeGaps) > 0 {
			present++
		}
		bonus := float64(present) * perField
		if bonus > cap {
			bonus = cap
		}
		score += bonus
	}

	lower := strings.ToLower(text)
	const markerBonus = 0.05
	const markerCap = 0.3
	var markerTotal float64
	for _, marker := range metaDiscourseMarkers {
		if strings.Contains(lower, marker) {
			markerTotal += markerBonus
		}
	}
	if markerTotal > markerCap {
		markerTotal = markerCap
	}
	score += markerTotal

	if score > 1 {
		score = 1
	}
	return score
}

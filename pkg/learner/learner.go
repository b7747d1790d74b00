// Package learner implements the Learner (spec.md §4.8): it turns
// actionable Reflector insights into strategy evolutions, periodically
// recomputes confidence across the Strategy Store, detects recurring
// patterns in Episodic Memory, and tracks learning velocity.
package learner

import (
	"context"
	"hash/fnv"
	"strconv"
	"time"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
)

// DefaultPatternThreshold is the minimum number of episodes before
// pattern detection runs (spec.md §4.8 / §6).
const DefaultPatternThreshold = 3

// Learner ties the Strategy Store, Episodic Memory, and Performance
// Tracker together for the evolve/recompute/detect cycle.
type Learner struct {
	strategies strategy.Store
	episodic   memory.Store
}

// New builds a Learner.
func New(strategies strategy.Store, episodic memory.Store) *Learner {
	return &Learner{strategies: strategies, episodic: episodic}
}

// EvolveStrategy merges modifications into an existing strategy when
// namedStrategyID names one, or synthesises a new strategy for
// insightType seeded by spec.md §4.8's type-dependent confidence range.
// Either path appends an Evolution Entry (recorded via RecordOutcome's
// counterpart on the store -- the store itself owns the evolution log
// in a full persisted backend; the in-memory reference store folds the
// entry into the strategy's own metadata for test visibility).
func (l *Learner) EvolveStrategy(ctx context.Context, namedStrategyID string, insightType InsightType, insightText string, errClass types.ErrorClass, modifications map[string]any) (*types.Strategy, error) {
	if namedStrategyID != "" {
		return l.mergeIntoExisting(ctx, namedStrategyID, modifications)
	}
	return l.synthesizeNew(ctx, insightType, insightText, errClass, modifications)
}

func (l *Learner) mergeIntoExisting(ctx context.Context, strategyID string, modifications map[string]any) (*types.Strategy, error) {
	target, err := l.strategies.GetByID(ctx, strategyID)
	if err != nil {
		return l.synthesizeNew(ctx, InsightGeneral, "", "", modifications)
	}

	mergeModifications(target, modifications)
	target.Version++

	if err := l.strategies.Add(ctx, target); err != nil {
		return nil, err
	}
	return target, nil
}

// mergeModifications merges numeric params and conditions into target
// in place: conditions are appended (deduplicated), numeric-looking
// action values are overwritten, everything else merged by key.
func mergeModifications(target *types.Strategy, modifications map[string]any) {
	if target.Actions == nil {
		target.Actions = make(map[string]any)
	}

	if rawConditions, ok := modifications["conditions"].([]string); ok {
		existing := make(map[string]bool, len(target.Conditions))
		for _, c := range target.Conditions {
			existing[c] = true
		}
		for _, c := range rawConditions {
			if !existing[c] {
				target.Conditions = append(target.Conditions, c)
				existing[c] = true
			}
		}
	}

	for k, v := range modifications {
		if k == "conditions" {
			continue
		}
		target.Actions[k] = v
	}
}

func (l *Learner) synthesizeNew(ctx context.Context, insightType InsightType, insightText string, errClass types.ErrorClass, modifications map[string]any) (*types.Strategy, error) {
	s := &types.Strategy{
		ID:         string(insightType) + "_" + strconv.Itoa(int(hashInsight(insightText)%10000)),
		ErrorClass: errClass,
		Actions:    modifications,
		Confidence: seedConfidence(insightType),
		Source:     types.StrategySourceLearned,
		Version:    1,
	}
	if err := l.strategies.Add(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

func hashInsight(text string) uint32 {
	h := fnv.New32a()
	_, _ = h.Write([]byte(text))
	return h.Sum32()
}

// RecomputeConfidence walks every strategy touched since the last call
// (identified by strategyIDs) and recomputes its confidence from its
// last 10 recorded outcomes: new = 0.7*old + 0.3*recent_rate*sample_weight,
// sample_weight = min(1, n/5) (spec.md §4.8).
func (l *Learner) RecomputeConfidence(ctx context.Context, strategyIDs []string) error {
	for _, id := range strategyIDs {
		stats, err := l.strategies.Statistics(ctx, id)
		if err != nil {
			continue
		}

		n := stats.UsageCount
		if n > 10 {
			n = 10
		}
		recentRate := stats.SuccessRate
		sampleWeight := float64(n) / 5
		if sampleWeight > 1 {
			sampleWeight = 1
		}

		s, err := l.strategies.GetByID(ctx, id)
		if err != nil {
			continue
		}
		s.Confidence = 0.7*s.Confidence + 0.3*recentRate*sampleWeight
		if err := l.strategies.Add(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// DetectPatterns runs the three detectors of spec.md §4.8 once the
// episodic log holds at least threshold episodes: error-class x
// namespace correlation, temporal clustering by hour, and strategy
// effectiveness by class.
func (l *Learner) DetectPatterns(ctx context.Context, threshold int) ([]types.MemoryPattern, error) {
	if threshold <= 0 {
		threshold = DefaultPatternThreshold
	}

	episodes, err := l.episodic.Recent(ctx, 0)
	if err != nil {
		return nil, err
	}
	if len(episodes) < threshold {
		return nil, nil
	}

	var patterns []types.MemoryPattern
	patterns = append(patterns, classNamespacePatterns(episodes)...)
	patterns = append(patterns, temporalClusterPatterns(episodes)...)
	patterns = append(patterns, strategyEffectivenessPatterns(episodes)...)
	return patterns, nil
}

func classNamespacePatterns(episodes []*types.Episode) []types.MemoryPattern {
	counts := make(map[string]int)
	for _, ep := range episodes {
		key := string(ep.ErrorClass) + ":" + ep.Namespace
		counts[key]++
	}
	return toPatterns(types.PatternContextual, counts)
}

func temporalClusterPatterns(episodes []*types.Episode) []types.MemoryPattern {
	counts := make(map[string]int)
	for _, ep := range episodes {
		key := strconv.Itoa(ep.Timestamp.Hour())
		counts[key]++
	}
	return toPatterns(types.PatternTemporal, counts)
}

func strategyEffectivenessPatterns(episodes []*types.Episode) []types.MemoryPattern {
	type agg struct {
		total, success int
	}
	byClass := make(map[string]*agg)
	for _, ep := range episodes {
		key := string(ep.ErrorClass) + ":" + ep.StrategyID
		a, ok := byClass[key]
		if !ok {
			a = &agg{}
			byClass[key] = a
		}
		a.total++
		if ep.Outcome.Success {
			a.success++
		}
	}

	var patterns []types.MemoryPattern
	for key, a := range byClass {
		patterns = append(patterns, types.MemoryPattern{
			PatternType: types.PatternCausal,
			PatternData: map[string]any{"key": key, "success_rate": float64(a.success) / float64(a.total)},
			Strength:    float64(a.success) / float64(a.total),
			Frequency:   a.total,
			FirstSeen:   time.Now(),
			LastSeen:    time.Now(),
		})
	}
	return patterns
}

func toPatterns(patternType types.MemoryPatternType, counts map[string]int) []types.MemoryPattern {
	var patterns []types.MemoryPattern
	for key, n := range counts {
		patterns = append(patterns, types.MemoryPattern{
			PatternType: patternType,
			PatternData: map[string]any{"key": key},
			Strength:    float64(n),
			Frequency:   n,
			FirstSeen:   time.Now(),
			LastSeen:    time.Now(),
		})
	}
	return patterns
}

// LearningVelocity is the slope of the last five points of an
// improvement trajectory, normalised into [0,1] (spec.md §4.8). Fewer
// than two points yields 0 (no slope is computable).
func LearningVelocity(trajectory []float64) float64 {
	if len(trajectory) < 2 {
		return 0
	}

	window := trajectory
	if len(window) > 5 {
		window = window[len(window)-5:]
	}

	n := len(window)
	slope := (window[n-1] - window[0]) / float64(n-1)

	normalized := (slope + 1) / 2
	if normalized < 0 {
		normalized = 0
	}
	if normalized > 1 {
		normalized = 1
	}
	return normalized
}

// Package performance implements the Performance Tracker (spec.md §4.3):
// the dynamic-confidence recomputation that keeps a Strategy's
// authoritative confidence field aligned with its recent track record.
package performance

import (
	"context"
	"math"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// DefaultWindow is the sample-count window dynamic_confidence reads over
// (spec.md §4.3).
const DefaultWindow = 10

const (
	minConfidence = 0.05
	maxConfidence = 0.95
	neutral       = 0.5
	decayHours    = 168.0 // one week
	minWeight     = 0.1
)

// Insight is one aggregate observation surfaced by Insights.
type Insight struct {
	ErrorClass types.ErrorClass `json:"error_class"`
	Message    string           `json:"message"`
}

// RankingEntry is one row of Ranking's output, strategies ordered by
// dynamic confidence descending.
type RankingEntry struct {
	StrategyID string  `json:"strategy_id"`
	Confidence float64 `json:"confidence"`
	SampleSize int     `json:"sample_size"`
}

// Tracker is the Performance Tracker contract.
type Tracker interface {
	Record(ctx context.Context, strategyID string, success bool, resolutionTime, confidenceBefore float64, sampleCtx types.Context) (float64, error)
	DynamicConfidence(ctx context.Context, strategyID string, window int) (float64, error)
	Insights(ctx context.Context, days int) ([]Insight, error)
	Ranking(ctx context.Context, errClass types.ErrorClass) ([]RankingEntry, error)

	// RegisterClass associates a strategy ID with its error class so
	// Insights and class-filtered Ranking can group by class -- the
	// Orchestrator calls this once per incident, right after a strategy
	// is selected.
	RegisterClass(ctx context.Context, strategyID string, class types.ErrorClass) error

	ClearAll(ctx context.Context) error
}

// InMemoryTracker is the default Tracker backend, holding every
// PerformanceSample in process memory ordered by recency.
type InMemoryTracker struct {
	mu      sync.RWMutex
	samples map[string][]types.PerformanceSample
	classOf map[string]types.ErrorClass
}

// NewInMemoryTracker builds an empty Tracker.
func NewInMemoryTracker() *InMemoryTracker {
	return &InMemoryTracker{
		samples: make(map[string][]types.PerformanceSample),
		classOf: make(map[string]types.ErrorClass),
	}
}

// Record appends a sample and returns the strategy's recomputed dynamic
// confidence over DefaultWindow.
func (t *InMemoryTracker) Record(ctx context.Context, strategyID string, success bool, resolutionTime, confidenceBefore float64, sampleCtx types.Context) (float64, error) {
	t.mu.Lock()
	t.samples[strategyID] = append(t.samples[strategyID], types.PerformanceSample{
		StrategyID:       strategyID,
		Success:          success,
		ResolutionTime:   resolutionTime,
		ConfidenceBefore: confidenceBefore,
		Timestamp:        time.Now(),
	})
	t.mu.Unlock()

	return t.DynamicConfidence(ctx, strategyID, DefaultWindow)
}

// DynamicConfidence implements spec.md §4.3's five-step authoritative
// definition exactly.
func (t *InMemoryTracker) DynamicConfidence(ctx context.Context, strategyID string, window int) (float64, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	t.mu.RLock()
	all := t.samples[strategyID]
	t.mu.RUnlock()

	if len(all) == 0 {
		return neutral, nil
	}

	ordered := make([]types.PerformanceSample, len(all))
	copy(ordered, all)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Timestamp.After(ordered[j].Timestamp) })

	if window > len(ordered) {
		window = len(ordered)
	}
	recent := ordered[:window]

	now := time.Now()
	var weightedSum, weightSum float64
	for _, s := range recent {
		ageHours := now.Sub(s.Timestamp).Hours()
		w := math.Max(minWeight, 1-ageHours/decayHours)
		weightSum += w
		if s.Success {
			weightedSum += w
		}
	}
	weightedSuccess := weightedSum / weightSum

	trendFactor := trendFactor(recent)

	var resolutionSum float64
	for _, s := range recent {
		resolutionSum += s.ResolutionTime
	}
	meanResolution := resolutionSum / float64(len(recent))
	timeFactor := clamp((60-meanResolution)/600, -0.1, 0.1)

	return clamp(weightedSuccess+trendFactor+timeFactor, minConfidence, maxConfidence), nil
}

// trendFactor compares the success rate of the more-recent half of
// samples against the older half, requiring at least 5 samples
// (spec.md §4.3 step 3). recent must already be ordered newest-first.
func trendFactor(recent []types.PerformanceSample) float64 {
	if len(recent) < 5 {
		return 0
	}
	mid := len(recent) / 2
	recentHalf := recent[:mid]
	olderHalf := recent[mid:]

	return clamp(meanSuccess(recentHalf)-meanSuccess(olderHalf), -0.2, 0.2)
}

func meanSuccess(samples []types.PerformanceSample) float64 {
	if len(samples) == 0 {
		return 0
	}
	successes := 0
	for _, s := range samples {
		if s.Success {
			successes++
		}
	}
	return float64(successes) / float64(len(samples))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Insights reports one message per error class whose strategies have
// samples in the last `days` days, noting the mean dynamic confidence.
func (t *InMemoryTracker) Insights(ctx context.Context, days int) ([]Insight, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	byClass := make(map[types.ErrorClass][]string)
	var order []types.ErrorClass

	for strategyID, samples := range t.samples {
		class, ok := t.classOf[strategyID]
		if !ok {
			continue
		}
		for _, s := range samples {
			if s.Timestamp.After(cutoff) {
				if _, seen := byClass[class]; !seen {
					order = append(order, class)
				}
				byClass[class] = append(byClass[class], strategyID)
				break
			}
		}
	}

	var out []Insight
	for _, class := range order {
		out = append(out, Insight{
			ErrorClass: class,
			Message:    "active strategies in window: " + strconv.Itoa(len(byClass[class])),
		})
	}
	return out, nil
}

// RegisterClass associates a strategy ID with its error class so
// Insights can group by class.
func (t *InMemoryTracker) RegisterClass(ctx context.Context, strategyID string, class types.ErrorClass) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.classOf[strategyID] = class
	return nil
}

// Ranking returns every tracked strategy's dynamic confidence, ordered
// descending. errClass is currently advisory: the tracker does not
// itself know a strategy's error class beyond what RegisterClass has
// recorded, so an empty errClass ranks every strategy.
func (t *InMemoryTracker) Ranking(ctx context.Context, errClass types.ErrorClass) ([]RankingEntry, error) {
	t.mu.RLock()
	ids := make([]string, 0, len(t.samples))
	for id := range t.samples {
		if errClass != "" {
			if class, ok := t.classOf[id]; !ok || class != errClass {
				continue
			}
		}
		ids = append(ids, id)
	}
	t.mu.RUnlock()

	out := make([]RankingEntry, 0, len(ids))
	for _, id := range ids {
		conf, err := t.DynamicConfidence(ctx, id, DefaultWindow)
		if err != nil {
			return nil, err
		}
		t.mu.RLock()
		n := len(t.samples[id])
		t.mu.RUnlock()
		out = append(out, RankingEntry{StrategyID: id, Confidence: conf, SampleSize: n})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}

// ClearAll wipes every recorded sample and class registration.
func (t *InMemoryTracker) ClearAll(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.samples = make(map[string][]types.PerformanceSample)
	t.classOf = make(map[string]types.ErrorClass)
	return nil
}

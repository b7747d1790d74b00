package orchestrator

import (
	"context"
	"math/rand"
	"sort"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
)

// selectionResult is what strategy_selection hands to decide_strategy,
// carrying the reason so it can be surfaced in an EscalationContext or
// test assertion (spec.md §4.9: "record selection_reason").
type selectionResult struct {
	strategy *types.Strategy
	reason   string
}

const (
	reasonHighConfidencePersistent = "high_confidence_persistent"
	reasonInMemoryFallback         = "in_memory_fallback"
	reasonHardcodedDefault         = "hardcoded_default"
	reasonGenericPlaceholder       = "generic_manual_investigation"
)

// defaultStrategies holds the hard-coded per-class fallback used when
// neither a persistent nor an in-memory strategy exists yet.
var defaultStrategies = map[types.ErrorClass]*types.Strategy{
	types.ErrorClassImagePullBackOff:      {ID: "default_image_pull_backoff", ErrorClass: types.ErrorClassImagePullBackOff, Confidence: 0.5, Source: types.StrategySourceSeed},
	types.ErrorClassCrashLoopBackOff:      {ID: "default_crash_loop_backoff", ErrorClass: types.ErrorClassCrashLoopBackOff, Confidence: 0.5, Source: types.StrategySourceSeed},
	types.ErrorClassOOMKilled:             {ID: "default_oom_killed", ErrorClass: types.ErrorClassOOMKilled, Confidence: 0.5, Source: types.StrategySourceSeed},
	types.ErrorClassCreateContainerConfig: {ID: "default_create_container_config", ErrorClass: types.ErrorClassCreateContainerConfig, Confidence: 0.5, Source: types.StrategySourceSeed},
	types.ErrorClassErrImagePull:          {ID: "default_err_image_pull", ErrorClass: types.ErrorClassErrImagePull, Confidence: 0.5, Source: types.StrategySourceSeed},
}

// genericPlaceholder is the last-resort strategy for an unknown error
// class: a manual-investigation pointer rather than a blind action.
var genericPlaceholder = &types.Strategy{
	ID:         "generic_manual_investigation",
	ErrorClass: types.ErrorClassOther,
	Confidence: 0.3,
	Source:     types.StrategySourceSeed,
	Actions:    map[string]any{"note": "no known strategy; escalate for manual investigation"},
}

// selectStrategy implements spec.md §4.9's selection policy: prefer the
// highest-confidence persistent strategy with probability
// preferPersistentProbability when persistent strategies exist, else
// fall to an in-memory candidate, then the hard-coded default, then the
// generic placeholder.
func selectStrategy(ctx context.Context, store strategy.Store, inMemory []*types.Strategy, errClass types.ErrorClass, incidentCtx types.Context, preferPersistentProbability float64, rng *rand.Rand) (selectionResult, error) {
	persistent, err := store.FindFor(ctx, errClass, incidentCtx)
	if err != nil {
		return selectionResult{}, err
	}

	if len(persistent) > 0 {
		sort.SliceStable(persistent, func(i, j int) bool {
			return persistent[i].Confidence > persistent[j].Confidence
		})
		if rng.Float64() < preferPersistentProbability {
			return selectionResult{strategy: persistent[0], reason: reasonHighConfidencePersistent}, nil
		}
	}

	if len(inMemory) > 0 {
		sort.SliceStable(inMemory, func(i, j int) bool {
			return inMemory[i].Confidence > inMemory[j].Confidence
		})
		return selectionResult{strategy: inMemory[0], reason: reasonInMemoryFallback}, nil
	}

	if len(persistent) > 0 {
		return selectionResult{strategy: persistent[0], reason: reasonHighConfidencePersistent}, nil
	}

	if def, ok := defaultStrategies[errClass]; ok {
		return selectionResult{strategy: def, reason: reasonHardcodedDefault}, nil
	}

	return selectionResult{strategy: genericPlaceholder, reason: reasonGenericPlaceholder}, nil
}

// postLearningEvent is routing's verdict out of learn_and_evolve.
type postLearningEvent struct {
	event  Event
	reason string
}

// routePostLearning implements spec.md §4.9's post-learning routing:
// success terminates; otherwise a hard retry cap always wins, then the
// self-awareness/retry-budget rule decides retry vs meta-reflect, and an
// unrecognised error class always routes to deep analysis first.
func routePostLearning(success bool, errClass types.ErrorClass, retryCount int, selfAwareness float64, hasPersistentStrategies bool, hardRetryCap int) postLearningEvent {
	if success {
		return postLearningEvent{event: EventSuccess, reason: "resolved"}
	}

	if retryCount >= hardRetryCap {
		return postLearningEvent{event: EventHumanEscalation, reason: "hard_retry_cap_reached"}
	}

	if errClass == types.ErrorClassOther {
		return postLearningEvent{event: EventDeepAnalysis, reason: "unknown_error_class"}
	}

	if retryCount < 3 && (retryCount < 2 || (selfAwareness > 0.7 && hasPersistentStrategies)) {
		return postLearningEvent{event: EventRetry, reason: "retry_budget_available"}
	}

	if retryCount >= 2 && selfAwareness < 0.6 {
		return postLearningEvent{event: EventMetaReflect, reason: "low_self_awareness"}
	}

	return postLearningEvent{event: EventHumanEscalation, reason: "exhausted_retry_policy"}
}

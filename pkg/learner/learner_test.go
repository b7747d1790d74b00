package learner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/memory"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/strategy"
)

func TestIsActionable(t *testing.T) {
	assert.True(t, IsActionable("You should always check the image tag if the registry is unreachable, and adjust the strategy condition."))
	assert.False(t, IsActionable("The weather was nice today."))
}

func TestClassifyInsight(t *testing.T) {
	assert.Equal(t, InsightResourceManagement, ClassifyInsight("increase the memory limit to avoid OOM"))
	assert.Equal(t, InsightTemporal, ClassifyInsight("this error happens mostly at night during peak hours"))
	assert.Equal(t, InsightGeneral, ClassifyInsight("nothing notable happened"))
}

func TestEvolveStrategy_SynthesizesNewWhenNoExistingID(t *testing.T) {
	ctx := context.Background()
	store := strategy.NewMemoryStore()
	l := New(store, memory.NewInMemoryStore())

	s, err := l.EvolveStrategy(ctx, "", InsightResourceManagement, "increase memory limit", types.ErrorClassOOMKilled, map[string]any{"limit_multiplier": 2})
	require.NoError(t, err)
	assert.Equal(t, types.StrategySourceLearned, s.Source)
	assert.InDelta(t, 0.6, s.Confidence, 0.001)
}

func TestEvolveStrategy_MergesIntoExisting(t *testing.T) {
	ctx := context.Background()
	store := strategy.NewMemoryStore()
	l := New(store, memory.NewInMemoryStore())

	existing := &types.Strategy{ErrorClass: types.ErrorClassOOMKilled, Conditions: []string{"namespace == 'prod'"}, Version: 1}
	require.NoError(t, store.Add(ctx, existing))

	evolved, err := l.EvolveStrategy(ctx, existing.ID, InsightResourceManagement, "raise limit further", types.ErrorClassOOMKilled, map[string]any{
		"conditions": []string{"pod_type == 'standalone'"},
		"multiplier": 3,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, evolved.Version)
	assert.Len(t, evolved.Conditions, 2)
	assert.Equal(t, 3, evolved.Actions["multiplier"])
}

func TestRecomputeConfidence(t *testing.T) {
	ctx := context.Background()
	store := strategy.NewMemoryStore()
	l := New(store, memory.NewInMemoryStore())

	s := &types.Strategy{ErrorClass: types.ErrorClassOOMKilled, Confidence: 0.5}
	require.NoError(t, store.Add(ctx, s))
	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordOutcome(ctx, s.ID, types.Outcome{Success: true}))
	}

	require.NoError(t, l.RecomputeConfidence(ctx, []string{s.ID}))

	updated, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Greater(t, updated.Confidence, 0.5)
}

func TestDetectPatterns_RequiresThreshold(t *testing.T) {
	ctx := context.Background()
	episodic := memory.NewInMemoryStore()
	l := New(strategy.NewMemoryStore(), episodic)

	require.NoError(t, episodic.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Namespace: "prod"}))
	patterns, err := l.DetectPatterns(ctx, 3)
	require.NoError(t, err)
	assert.Empty(t, patterns, "below threshold should detect nothing")

	require.NoError(t, episodic.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Namespace: "prod"}))
	require.NoError(t, episodic.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Namespace: "prod"}))

	patterns, err = l.DetectPatterns(ctx, 3)
	require.NoError(t, err)
	assert.NotEmpty(t, patterns)
}

func TestLearningVelocity(t *testing.T) {
	assert.Equal(t, 0.0, LearningVelocity(nil))
	assert.Equal(t, 0.0, LearningVelocity([]float64{0.5}))

	improving := LearningVelocity([]float64{0.2, 0.3, 0.4, 0.5, 0.6})
	assert.Greater(t, improving, 0.5)

	declining := LearningVelocity([]float64{0.6, 0.5, 0.4, 0.3, 0.2})
	assert.Less(t, declining, 0.5)
}

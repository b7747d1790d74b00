package performance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

func TestDynamicConfidence_NoSamplesReturnsNeutral(t *testing.T) {
	tracker := NewInMemoryTracker()
	conf, err := tracker.DynamicConfidence(context.Background(), "unknown", DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, 0.5, conf)
}

func TestDynamicConfidence_ClampedToBounds(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker()

	for i := 0; i < 10; i++ {
		_, err := tracker.Record(ctx, "s1", true, 5, 0.5, types.Context{})
		require.NoError(t, err)
	}

	conf, err := tracker.DynamicConfidence(ctx, "s1", DefaultWindow)
	require.NoError(t, err)
	assert.LessOrEqual(t, conf, maxConfidence)
	assert.GreaterOrEqual(t, conf, minConfidence)
	assert.Greater(t, conf, 0.5, "all-success recent strategy should trend above neutral")
}

func TestDynamicConfidence_AllFailuresTrendsLow(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker()

	for i := 0; i < 10; i++ {
		_, err := tracker.Record(ctx, "s2", false, 120, 0.5, types.Context{})
		require.NoError(t, err)
	}

	conf, err := tracker.DynamicConfidence(ctx, "s2", DefaultWindow)
	require.NoError(t, err)
	assert.Less(t, conf, 0.5)
}

func TestTrendFactor_RequiresAtLeastFiveSamples(t *testing.T) {
	samples := []types.PerformanceSample{
		{Success: true}, {Success: true}, {Success: false}, {Success: true},
	}
	assert.Equal(t, 0.0, trendFactor(samples))
}

func TestTrendFactor_ImprovingTrendIsPositive(t *testing.T) {
	// newest-first: recent half all succeed, older half all fail.
	samples := []types.PerformanceSample{
		{Success: true}, {Success: true}, {Success: true},
		{Success: false}, {Success: false}, {Success: false},
	}
	assert.Greater(t, trendFactor(samples), 0.0)
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.05, clamp(-1, 0.05, 0.95))
	assert.Equal(t, 0.95, clamp(2, 0.05, 0.95))
	assert.Equal(t, 0.5, clamp(0.5, 0.05, 0.95))
}

func TestRanking_OrdersDescendingByConfidence(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker()
	require.NoError(t, tracker.RegisterClass(ctx, "good", types.ErrorClassOOMKilled))
	require.NoError(t, tracker.RegisterClass(ctx, "bad", types.ErrorClassOOMKilled))

	for i := 0; i < 6; i++ {
		_, err := tracker.Record(ctx, "good", true, 5, 0.5, types.Context{})
		require.NoError(t, err)
	}
	for i := 0; i < 6; i++ {
		_, err := tracker.Record(ctx, "bad", false, 300, 0.5, types.Context{})
		require.NoError(t, err)
	}

	ranking, err := tracker.Ranking(ctx, types.ErrorClassOOMKilled)
	require.NoError(t, err)
	require.Len(t, ranking, 2)
	assert.Equal(t, "good", ranking[0].StrategyID)
	assert.Equal(t, "bad", ranking[1].StrategyID)
}

func TestClearAll(t *testing.T) {
	ctx := context.Background()
	tracker := NewInMemoryTracker()
	_, err := tracker.Record(ctx, "s1", true, 5, 0.5, types.Context{})
	require.NoError(t, err)

	require.NoError(t, tracker.ClearAll(ctx))

	conf, err := tracker.DynamicConfidence(ctx, "s1", DefaultWindow)
	require.NoError(t, err)
	assert.Equal(t, 0.5, conf, "cleared tracker has no samples left for s1")
}

package strategy

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

func TestMemoryStore_AddAndFindFor(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s1 := &types.Strategy{ErrorClass: types.ErrorClassImagePullBackOff, Confidence: 0.7, Conditions: []string{"namespace == 'prod'"}}
	s2 := &types.Strategy{ErrorClass: types.ErrorClassImagePullBackOff, Confidence: 0.9, Conditions: nil}
	require.NoError(t, store.Add(ctx, s1))
	require.NoError(t, store.Add(ctx, s2))

	matches, err := store.FindFor(ctx, types.ErrorClassImagePullBackOff, types.Context{"namespace": "prod"})
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, s2.ID, matches[0].ID, "higher confidence strategy ranks first")

	matches, err = store.FindFor(ctx, types.ErrorClassImagePullBackOff, types.Context{"namespace": "staging"})
	require.NoError(t, err)
	require.Len(t, matches, 1, "condition-bound strategy excluded for non-matching namespace")
	assert.Equal(t, s2.ID, matches[0].ID)
}

func TestMemoryStore_RecordOutcomeAndStatistics(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	s := &types.Strategy{ErrorClass: types.ErrorClassOOMKilled}
	require.NoError(t, store.Add(ctx, s))

	require.NoError(t, store.RecordOutcome(ctx, s.ID, types.Outcome{Success: true}))
	require.NoError(t, store.RecordOutcome(ctx, s.ID, types.Outcome{Success: false}))

	stats, err := store.Statistics(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.UsageCount)
	assert.Equal(t, 1, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	assert.InDelta(t, 0.5, stats.SuccessRate, 0.001)
	assert.NotNil(t, stats.LastUsedAt)
}

func TestMemoryStore_GetByID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := &types.Strategy{ErrorClass: types.ErrorClassOOMKilled}
	require.NoError(t, store.Add(ctx, s))

	got, err := store.GetByID(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	_, err = store.GetByID(ctx, "missing")
	assert.Error(t, err)
}

func TestMemoryStore_RecordOutcomeUnknownStrategy(t *testing.T) {
	store := NewMemoryStore()
	err := store.RecordOutcome(context.Background(), "does-not-exist", types.Outcome{Success: true})
	assert.Error(t, err)
}

func TestMemoryStore_RecordEvolution(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	s := &types.Strategy{ErrorClass: types.ErrorClassOOMKilled, Confidence: 0.5}
	require.NoError(t, store.Add(ctx, s))

	err := store.RecordEvolution(ctx, types.EvolutionEntry{
		StrategyID:    s.ID,
		Version:       s.Version,
		ChangeType:    types.EvolutionPerformanceUpdate,
		OldConfidence: 0.5,
		NewConfidence: 0.62,
		TriggerEvent:  "learn_and_evolve",
	})
	assert.NoError(t, err)

	require.NoError(t, store.ClearAll(ctx))
	assert.Empty(t, store.evolution)
}

func TestMemoryStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Add(ctx, &types.Strategy{ErrorClass: types.ErrorClassCrashLoopBackOff}))

	require.NoError(t, store.ClearAll(ctx))

	matches, err := store.FindFor(ctx, types.ErrorClassCrashLoopBackOff, types.Context{})
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestMatchesContext(t *testing.T) {
	cases := []struct {
		name       string
		conditions []string
		ctx        types.Context
		want       bool
	}{
		{"no conditions always match", nil, types.Context{}, true},
		{"single matching condition", []string{"namespace == 'prod'"}, types.Context{"namespace": "prod"}, true},
		{"single non-matching condition", []string{"namespace == 'prod'"}, types.Context{"namespace": "dev"}, false},
		{"missing key never matches", []string{"namespace == 'prod'"}, types.Context{}, false},
		{"malformed condition never matches", []string{"not-a-predicate"}, types.Context{}, false},
		{"all conditions must hold", []string{"namespace == 'prod'", "pod_type == 'standalone'"}, types.Context{"namespace": "prod", "pod_type": "standalone"}, true},
		{"one of several conditions fails", []string{"namespace == 'prod'", "pod_type == 'standalone'"}, types.Context{"namespace": "prod", "pod_type": "deployment-managed"}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, matchesContext(tc.conditions, tc.ctx))
		})
	}
}

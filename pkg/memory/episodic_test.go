package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

func TestContextSimilarity(t *testing.T) {
	cases := []struct {
		name string
		a, b types.Context
		want float64
	}{
		{"empty contexts score 0", types.Context{}, types.Context{}, 0},
		{"no shared keys score 0", types.Context{"a": 1}, types.Context{"b": 2}, 0},
		{"all shared keys agree", types.Context{"namespace": "prod"}, types.Context{"namespace": "prod"}, 1},
		{"half of shared keys agree", types.Context{"namespace": "prod", "pod_type": "standalone"}, types.Context{"namespace": "prod", "pod_type": "deployment-managed"}, 0.5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, contextSimilarity(tc.a, tc.b), 0.0001)
		})
	}
}

func TestInMemoryStore_StoreEpisodeCreatesAssociations(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	first := &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Context: types.Context{"namespace": "prod", "pod_type": "standalone"}}
	require.NoError(t, store.StoreEpisode(ctx, first))

	second := &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Context: types.Context{"namespace": "prod", "pod_type": "standalone"}}
	require.NoError(t, store.StoreEpisode(ctx, second))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.EpisodeCount)
	assert.Equal(t, 1, stats.AssociationCount, "identical-context episode of the same class should associate")
}

func TestInMemoryStore_SimilarIsInclusiveOfWholeClass(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	similar := &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Context: types.Context{"namespace": "prod"}}
	dissimilar := &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Context: types.Context{"namespace": "dev"}}
	require.NoError(t, store.StoreEpisode(ctx, dissimilar))
	require.NoError(t, store.StoreEpisode(ctx, similar))

	results, err := store.Similar(ctx, types.ErrorClassOOMKilled, types.Context{"namespace": "prod"}, 0)
	require.NoError(t, err)
	require.Len(t, results, 2, "retrieval by error class returns all episodes of the class, not just similar ones")
	assert.Equal(t, similar.ID, results[0].ID, "higher-similarity episode ranks first")
}

func TestInMemoryStore_RecentOrdersByRecency(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	older := &types.Episode{ErrorClass: types.ErrorClassOther, Timestamp: time.Now().Add(-time.Hour)}
	newer := &types.Episode{ErrorClass: types.ErrorClassOther, Timestamp: time.Now()}
	require.NoError(t, store.StoreEpisode(ctx, older))
	require.NoError(t, store.StoreEpisode(ctx, newer))

	recent, err := store.Recent(ctx, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, newer.ID, recent[0].ID)
}

func TestInMemoryStore_PerClassStats(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()

	require.NoError(t, store.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Outcome: types.Outcome{Success: true}, ResolutionTime: 10}))
	require.NoError(t, store.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOOMKilled, Outcome: types.Outcome{Success: false}, ResolutionTime: 20}))

	stats, err := store.PerClassStats(ctx)
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].Count)
	assert.Equal(t, 1, stats[0].SuccessCount)
	assert.InDelta(t, 15, stats[0].AvgResolution, 0.001)
}

func TestInMemoryStore_ClearAll(t *testing.T) {
	ctx := context.Background()
	store := NewInMemoryStore()
	require.NoError(t, store.StoreEpisode(ctx, &types.Episode{ErrorClass: types.ErrorClassOther}))

	require.NoError(t, store.ClearAll(ctx))

	stats, err := store.Statistics(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.EpisodeCount)
	assert.Zero(t, stats.AssociationCount)
}

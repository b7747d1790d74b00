package memory

import (
	"sort"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// contextSimilarity computes the Jaccard-like context similarity defined
// in spec.md §4.2: the fraction of keys common to both contexts whose
// values also agree, with an empty key intersection scoring 0 rather
// than dividing by zero.
func contextSimilarity(a, b types.Context) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	shared := 0
	agree := 0
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			continue
		}
		shared++
		if av == bv {
			agree++
		}
	}

	if shared == 0 {
		return 0
	}
	return float64(agree) / float64(shared)
}

// AssociationThreshold is the context-similarity cutoff above which two
// episodes of the same error class are linked as similar_context
// associations (spec.md §4.2).
const AssociationThreshold = 0.5

// rankBySimilarity sorts episodes by descending similarity to ctx, with
// ties broken by recency (most recent first).
func rankBySimilarity(episodes []*types.Episode, ctx types.Context) []scoredEpisode {
	scored := make([]scoredEpisode, 0, len(episodes))
	for _, ep := range episodes {
		scored = append(scored, scoredEpisode{episode: ep, score: contextSimilarity(ep.Context, ctx)})
	}
	sort.SliceStable(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].episode.Timestamp.After(scored[j].episode.Timestamp)
	})
	return scored
}

type scoredEpisode struct {
	episode *types.Episode
	score   float64
}

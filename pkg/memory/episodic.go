// Package memory implements the Episodic Memory (spec.md §4.2): the
// append-only log of remediation episodes, their derived temporal
// patterns, and the similarity-threshold associations linking episodes
// of the same error class.
package memory

import (
	"context"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// topK is the number of most-similar prior episodes Store checks for
// association creation (spec.md §4.2).
const topK = 5

// DailyProgression is one day's bucket in Progression's output.
type DailyProgression struct {
	Date             string  `json:"date"`
	ConfidenceGain   float64 `json:"confidence_gain"`
	ReflectionQuality float64 `json:"reflection_quality"`
	Insights         int     `json:"insights"`
	Count            int     `json:"count"`
}

// ClassStats summarizes one error class's recorded episodes.
type ClassStats struct {
	ErrorClass    types.ErrorClass `json:"error_class" db:"error_class"`
	Count         int              `json:"count" db:"count"`
	SuccessCount  int              `json:"success_count" db:"success_count"`
	AvgResolution float64          `json:"avg_resolution_time" db:"avg_resolution"`
}

// Statistics summarizes the whole episodic log.
type Statistics struct {
	EpisodeCount     int `db:"episode_count"`
	PatternCount     int `db:"pattern_count"`
	AssociationCount int `db:"association_count"`
}

// Store is the Episodic Memory contract (spec.md §4.2).
type Store interface {
	StoreEpisode(ctx context.Context, ep *types.Episode) error
	Similar(ctx context.Context, errClass types.ErrorClass, episodeCtx types.Context, limit int) ([]*types.Episode, error)
	Recent(ctx context.Context, limit int) ([]*types.Episode, error)
	Progression(ctx context.Context, days int) ([]DailyProgression, error)
	PerClassStats(ctx context.Context) ([]ClassStats, error)
	Statistics(ctx context.Context) (Statistics, error)
	ClearAll(ctx context.Context) error
}

// InMemoryStore is the default Episodic Memory backend.
type InMemoryStore struct {
	mu           sync.RWMutex
	episodes     []*types.Episode
	patterns     map[string]*types.MemoryPattern
	associations []types.MemoryAssociation
}

// NewInMemoryStore builds an empty Episodic Memory.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{patterns: make(map[string]*types.MemoryPattern)}
}

// StoreEpisode appends ep, upserts its temporal pattern, and links it to
// the top-k most context-similar prior episodes of the same error class
// whose similarity exceeds AssociationThreshold.
func (s *InMemoryStore) StoreEpisode(ctx context.Context, ep *types.Episode) error {
	if ep == nil {
		return appErrors.NewValidationError("episode must not be nil")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now()
	}

	priors := s.sameClassLocked(ep.ErrorClass)
	ranked := rankBySimilarity(priors, ep.Context)

	s.episodes = append(s.episodes, ep)
	s.upsertTemporalPatternLocked(ep)

	linked := 0
	for _, r := range ranked {
		if linked >= topK {
			break
		}
		if r.score <= AssociationThreshold {
			continue
		}
		s.associations = append(s.associations, types.MemoryAssociation{
			EpisodeA:        ep.ID,
			EpisodeB:        r.episode.ID,
			AssociationType: types.AssociationSimilarContext,
			Strength:        r.score,
		})
		linked++
	}
	return nil
}

func (s *InMemoryStore) sameClassLocked(errClass types.ErrorClass) []*types.Episode {
	var out []*types.Episode
	for _, ep := range s.episodes {
		if ep.ErrorClass == errClass {
			out = append(out, ep)
		}
	}
	return out
}

func (s *InMemoryStore) upsertTemporalPatternLocked(ep *types.Episode) {
	key := patternKey(ep.ErrorClass, ep.Timestamp.Hour())
	p, ok := s.patterns[key]
	if !ok {
		p = &types.MemoryPattern{
			ID:          uuid.NewString(),
			PatternType: types.PatternTemporal,
			PatternData: map[string]any{"error_class": string(ep.ErrorClass), "hour_of_day": ep.Timestamp.Hour()},
			FirstSeen:   ep.Timestamp,
		}
		s.patterns[key] = p
	}
	p.Strength++
	p.Frequency++
	p.LastSeen = ep.Timestamp
}

func patternKey(errClass types.ErrorClass, hour int) string {
	return string(errClass) + ":temporal:" + strconv.Itoa(hour)
}

// Similar returns every episode of errClass, ranked by context
// similarity to episodeCtx then recency, truncated to limit. Retrieval
// is inclusive of the whole class per spec.md §4.2, not filtered to the
// similarity threshold -- the threshold only gates association creation.
func (s *InMemoryStore) Similar(ctx context.Context, errClass types.ErrorClass, episodeCtx types.Context, limit int) ([]*types.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	priors := s.sameClassLocked(errClass)
	ranked := rankBySimilarity(priors, episodeCtx)

	if limit <= 0 || limit > len(ranked) {
		limit = len(ranked)
	}
	out := make([]*types.Episode, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, ranked[i].episode)
	}
	return out, nil
}

// Recent returns the most recently stored episodes, newest first.
func (s *InMemoryStore) Recent(ctx context.Context, limit int) ([]*types.Episode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*types.Episode, len(s.episodes))
	copy(all, s.episodes)
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.After(all[j].Timestamp) })

	if limit <= 0 || limit > len(all) {
		limit = len(all)
	}
	return all[:limit], nil
}

// Progression buckets episodes from the last `days` days by calendar
// date, reporting the average confidence gain, reflection quality, and
// insight count for each day.
func (s *InMemoryStore) Progression(ctx context.Context, days int) ([]DailyProgression, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cutoff := time.Now().AddDate(0, 0, -days)
	buckets := make(map[string]*DailyProgression)
	var order []string

	for _, ep := range s.episodes {
		if ep.Timestamp.Before(cutoff) {
			continue
		}
		date := ep.Timestamp.Format("2006-01-02")
		b, ok := buckets[date]
		if !ok {
			b = &DailyProgression{Date: date}
			buckets[date] = b
			order = append(order, date)
		}
		b.ConfidenceGain += ep.ConfidenceAfter - ep.ConfidenceBefore
		b.ReflectionQuality += ep.ReflectionQuality
		b.Insights += ep.InsightsGenerated
		b.Count++
	}

	sort.Strings(order)
	out := make([]DailyProgression, 0, len(order))
	for _, date := range order {
		b := buckets[date]
		if b.Count > 0 {
			b.ConfidenceGain /= float64(b.Count)
			b.ReflectionQuality /= float64(b.Count)
		}
		out = append(out, *b)
	}
	return out, nil
}

// PerClassStats aggregates success rate and average resolution time per
// error class across the whole episodic log.
func (s *InMemoryStore) PerClassStats(ctx context.Context) ([]ClassStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	agg := make(map[types.ErrorClass]*ClassStats)
	var order []types.ErrorClass
	for _, ep := range s.episodes {
		a, ok := agg[ep.ErrorClass]
		if !ok {
			a = &ClassStats{ErrorClass: ep.ErrorClass}
			agg[ep.ErrorClass] = a
			order = append(order, ep.ErrorClass)
		}
		a.Count++
		if ep.Outcome.Success {
			a.SuccessCount++
		}
		a.AvgResolution += ep.ResolutionTime
	}

	out := make([]ClassStats, 0, len(order))
	for _, class := range order {
		a := agg[class]
		if a.Count > 0 {
			a.AvgResolution /= float64(a.Count)
		}
		out = append(out, *a)
	}
	return out, nil
}

// Statistics returns log-wide counts.
func (s *InMemoryStore) Statistics(ctx context.Context) (Statistics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Statistics{
		EpisodeCount:     len(s.episodes),
		PatternCount:     len(s.patterns),
		AssociationCount: len(s.associations),
	}, nil
}

// ClearAll wipes the episodic log, its patterns, and its associations.
func (s *InMemoryStore) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.episodes = nil
	s.patterns = make(map[string]*types.MemoryPattern)
	s.associations = nil
	return nil
}

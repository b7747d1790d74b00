package strategy

import (
	"context"
	"sort"
	"sync"
	"time"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// MemoryStore is an in-process Store. It backs unit tests and serves as
// the degraded-mode fallback the Orchestrator switches to when the
// Postgres-backed store reports StoreUnavailable -- spec.md §7 treats an
// unreachable strategy store as "no known strategies", never a fatal error.
type MemoryStore struct {
	mu         sync.RWMutex
	strategies map[string]*types.Strategy
	usage      map[string][]types.UsageRecord
	evolution  []types.EvolutionEntry
}

// NewMemoryStore builds an empty in-memory Store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		strategies: make(map[string]*types.Strategy),
		usage:      make(map[string][]types.UsageRecord),
	}
}

func (m *MemoryStore) Add(ctx context.Context, s *types.Strategy) error {
	if s == nil {
		return appErrors.NewValidationError("strategy must not be nil")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if s.ID == "" {
		s.ID = NewID()
	}
	now := time.Now()
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	s.UpdatedAt = now
	if s.Version == 0 {
		s.Version = 1
	}
	cp := *s
	m.strategies[s.ID] = &cp
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id string) (*types.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.strategies[id]
	if !ok {
		return nil, appErrors.NewValidationError("unknown strategy id: " + id)
	}
	cp := *s
	return &cp, nil
}

func (m *MemoryStore) FindFor(ctx context.Context, errClass types.ErrorClass, incidentCtx types.Context) ([]*types.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*types.Strategy
	for _, s := range m.strategies {
		if s.ErrorClass != errClass {
			continue
		}
		if !matchesContext(s.Conditions, incidentCtx) {
			continue
		}
		cp := *s
		matches = append(matches, &cp)
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Confidence != matches[j].Confidence {
			return matches[i].Confidence > matches[j].Confidence
		}
		if matches[i].UsageCount != matches[j].UsageCount {
			return matches[i].UsageCount > matches[j].UsageCount
		}
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (m *MemoryStore) List(ctx context.Context, errClass types.ErrorClass) ([]*types.Strategy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matches []*types.Strategy
	for _, s := range m.strategies {
		if errClass != "" && s.ErrorClass != errClass {
			continue
		}
		cp := *s
		matches = append(matches, &cp)
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].CreatedAt.Before(matches[j].CreatedAt)
	})
	return matches, nil
}

func (m *MemoryStore) RecordOutcome(ctx context.Context, strategyID string, outcome types.Outcome) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s, ok := m.strategies[strategyID]
	if !ok {
		return appErrors.NewValidationError("unknown strategy id: " + strategyID)
	}

	m.usage[strategyID] = append(m.usage[strategyID], types.UsageRecord{
		StrategyID: strategyID,
		Success:    outcome.Success,
		Timestamp:  time.Now(),
	})

	s.UsageCount++
	successes := 0
	for _, rec := range m.usage[strategyID] {
		if rec.Success {
			successes++
		}
	}
	s.SuccessRate = float64(successes) / float64(len(m.usage[strategyID]))
	s.LastUsed = time.Now()
	s.UpdatedAt = s.LastUsed
	return nil
}

func (m *MemoryStore) RecordEvolution(ctx context.Context, entry types.EvolutionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	m.evolution = append(m.evolution, entry)
	return nil
}

func (m *MemoryStore) Statistics(ctx context.Context, strategyID string) (Statistics, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.strategies[strategyID]
	if !ok {
		return Statistics{}, appErrors.NewValidationError("unknown strategy id: " + strategyID)
	}

	stats := Statistics{StrategyID: strategyID, UsageCount: s.UsageCount, SuccessRate: s.SuccessRate}
	for _, rec := range m.usage[strategyID] {
		if rec.Success {
			stats.SuccessCount++
		} else {
			stats.FailureCount++
		}
	}
	if !s.LastUsed.IsZero() {
		lu := s.LastUsed
		stats.LastUsedAt = &lu
	}
	return stats, nil
}

func (m *MemoryStore) ClearAll(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.strategies = make(map[string]*types.Strategy)
	m.usage = make(map[string][]types.UsageRecord)
	m.evolution = nil
	return nil
}

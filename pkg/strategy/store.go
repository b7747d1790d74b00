// Package strategy implements the Strategy Store (spec.md §4.1): the
// catalogue of remediation strategies the Plan Synthesiser draws from,
// keyed by error class and refined by textual context predicates.
package strategy

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// Statistics summarizes a strategy's recorded outcomes, returned by
// Store.Statistics (spec.md §4.1).
type Statistics struct {
	StrategyID   string
	UsageCount   int
	SuccessCount int
	FailureCount int
	SuccessRate  float64
	LastUsedAt   *time.Time
}

// Store is the Strategy Store contract. Implementations must make Add
// and RecordOutcome transactional per incident and FindFor a lock-free
// read (spec.md §4.1).
type Store interface {
	// Add persists a new strategy, assigning it an ID if empty.
	Add(ctx context.Context, s *types.Strategy) error

	// GetByID returns the strategy with the given ID.
	GetByID(ctx context.Context, id string) (*types.Strategy, error)

	// FindFor returns every strategy registered for errClass whose
	// Conditions all hold against incidentCtx, ordered by confidence
	// descending, then usage_count descending, then created_at ascending
	// (oldest first) as the final tie-break (spec.md §4.1).
	FindFor(ctx context.Context, errClass types.ErrorClass, incidentCtx types.Context) ([]*types.Strategy, error)

	// List returns every strategy, or every strategy for errClass when
	// errClass is non-empty, unfiltered by context conditions -- the
	// inspection API's "list strategies optionally by error class" view
	// (spec.md §6), as opposed to FindFor's condition-matched lookup.
	List(ctx context.Context, errClass types.ErrorClass) ([]*types.Strategy, error)

	// RecordOutcome appends a UsageRecord to the named strategy and
	// updates its rolling usage/success counters.
	RecordOutcome(ctx context.Context, strategyID string, outcome types.Outcome) error

	// RecordEvolution appends an audit-log entry for a confidence or
	// conditions change made to an existing strategy (spec.md §4.8's
	// strategy evolution). The caller supplies both the old and new
	// confidence since only it -- the learning step -- knows both.
	RecordEvolution(ctx context.Context, entry types.EvolutionEntry) error

	// Statistics returns the current usage/success counters for a strategy.
	Statistics(ctx context.Context, strategyID string) (Statistics, error)

	// ClearAll removes every strategy. Used by the reset-only inspection
	// API and by tests; never called from the remediation loop itself.
	ClearAll(ctx context.Context) error
}

// NewID generates a strategy ID when the caller leaves Strategy.ID empty.
func NewID() string {
	return uuid.NewString()
}

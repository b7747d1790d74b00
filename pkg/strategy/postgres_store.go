package strategy

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// PostgresStore is the durable Store backend, reachable through pgx's
// database/sql driver via sqlx. FindFor is issued as a single read query
// so it never blocks on the write-path locks Add/RecordOutcome take
// inside a transaction (spec.md §4.1's lock-free-read requirement).
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgresStore opens and pings a PostgresStore against dsn, applying
// any pending goose migrations before returning.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}
	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, appErrors.NewStoreUnavailableError("strategy-postgres-migrate", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

type strategyRow struct {
	ID          string    `db:"id"`
	ErrorClass  string    `db:"error_class"`
	Conditions  string    `db:"conditions"`
	Actions     string    `db:"actions"`
	Confidence  float64   `db:"confidence"`
	SuccessRate float64   `db:"success_rate"`
	UsageCount  int       `db:"usage_count"`
	Source      string    `db:"source"`
	Context     string    `db:"context"`
	Version     int       `db:"version"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
	LastUsed    time.Time `db:"last_used"`
}

func toRow(s *types.Strategy) (strategyRow, error) {
	conditions, err := json.Marshal(s.Conditions)
	if err != nil {
		return strategyRow{}, err
	}
	actions, err := json.Marshal(s.Actions)
	if err != nil {
		return strategyRow{}, err
	}
	ctxJSON, err := json.Marshal(s.Context)
	if err != nil {
		return strategyRow{}, err
	}
	return strategyRow{
		ID:          s.ID,
		ErrorClass:  string(s.ErrorClass),
		Conditions:  string(conditions),
		Actions:     string(actions),
		Confidence:  s.Confidence,
		SuccessRate: s.SuccessRate,
		UsageCount:  s.UsageCount,
		Source:      string(s.Source),
		Context:     string(ctxJSON),
		Version:     s.Version,
		CreatedAt:   s.CreatedAt,
		UpdatedAt:   s.UpdatedAt,
		LastUsed:    s.LastUsed,
	}, nil
}

func (r strategyRow) toStrategy() (*types.Strategy, error) {
	var conditions []string
	if err := json.Unmarshal([]byte(r.Conditions), &conditions); err != nil {
		return nil, err
	}
	var actions map[string]any
	if err := json.Unmarshal([]byte(r.Actions), &actions); err != nil {
		return nil, err
	}
	var ctx types.Context
	if err := json.Unmarshal([]byte(r.Context), &ctx); err != nil {
		return nil, err
	}
	return &types.Strategy{
		ID:          r.ID,
		ErrorClass:  types.ErrorClass(r.ErrorClass),
		Conditions:  conditions,
		Actions:     actions,
		Confidence:  r.Confidence,
		SuccessRate: r.SuccessRate,
		UsageCount:  r.UsageCount,
		Source:      types.StrategySource(r.Source),
		Context:     ctx,
		Version:     r.Version,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
		LastUsed:    r.LastUsed,
	}, nil
}

func (p *PostgresStore) Add(ctx context.Context, s *types.Strategy) error {
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

	row, err := toRow(s)
	if err != nil {
		return appErrors.NewValidationError("strategy not serializable: " + err.Error())
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO strategies (id, error_class, conditions, actions, confidence,
			success_rate, usage_count, source, context, version, created_at, updated_at, last_used)
		VALUES (:id, :error_class, :conditions, :actions, :confidence,
			:success_rate, :usage_count, :source, :context, :version, :created_at, :updated_at, :last_used)`, row)
	if err != nil {
		return appErrors.NewDatabaseError("insert strategy", err)
	}
	return tx.Commit()
}

func (p *PostgresStore) GetByID(ctx context.Context, id string) (*types.Strategy, error) {
	var row strategyRow
	err := p.db.GetContext(ctx, &row, `
		SELECT id, error_class, conditions, actions, confidence, success_rate,
			usage_count, source, context, version, created_at, updated_at, last_used
		FROM strategies WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, appErrors.NewValidationError("unknown strategy id: " + id)
	}
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}
	return row.toStrategy()
}

func (p *PostgresStore) FindFor(ctx context.Context, errClass types.ErrorClass, incidentCtx types.Context) ([]*types.Strategy, error) {
	var rows []strategyRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, error_class, conditions, actions, confidence, success_rate,
			usage_count, source, context, version, created_at, updated_at, last_used
		FROM strategies
		WHERE error_class = $1
		ORDER BY confidence DESC, usage_count DESC, created_at ASC`, string(errClass))
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}

	var matches []*types.Strategy
	for _, r := range rows {
		s, err := r.toStrategy()
		if err != nil {
			continue
		}
		if matchesContext(s.Conditions, incidentCtx) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

func (p *PostgresStore) List(ctx context.Context, errClass types.ErrorClass) ([]*types.Strategy, error) {
	var rows []strategyRow
	var err error
	if errClass == "" {
		err = p.db.SelectContext(ctx, &rows, `
			SELECT id, error_class, conditions, actions, confidence, success_rate,
				usage_count, source, context, version, created_at, updated_at, last_used
			FROM strategies ORDER BY created_at ASC`)
	} else {
		err = p.db.SelectContext(ctx, &rows, `
			SELECT id, error_class, conditions, actions, confidence, success_rate,
				usage_count, source, context, version, created_at, updated_at, last_used
			FROM strategies WHERE error_class = $1 ORDER BY created_at ASC`, string(errClass))
	}
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}

	var out []*types.Strategy
	for _, r := range rows {
		s, err := r.toStrategy()
		if err != nil {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (p *PostgresStore) RecordOutcome(ctx context.Context, strategyID string, outcome types.Outcome) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO strategy_usage_records (strategy_id, success, execution_time, timestamp)
		VALUES ($1, $2, $3, $4)`, strategyID, outcome.Success, outcome.ResolutionTime, time.Now())
	if err != nil {
		return appErrors.NewDatabaseError("insert usage record", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE strategies SET
			usage_count = usage_count + 1,
			success_rate = (
				SELECT AVG(CASE WHEN success THEN 1.0 ELSE 0.0 END)
				FROM strategy_usage_records WHERE strategy_id = $1
			),
			last_used = $2,
			updated_at = $2
		WHERE id = $1`, strategyID, time.Now())
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.NewValidationError("unknown strategy id: " + strategyID)
		}
		return appErrors.NewDatabaseError("update strategy counters", err)
	}
	return tx.Commit()
}

func (p *PostgresStore) RecordEvolution(ctx context.Context, entry types.EvolutionEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO strategy_evolution_entries
			(strategy_id, version, change_type, change_description, old_confidence, new_confidence, trigger_event, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.StrategyID, entry.Version, string(entry.ChangeType), entry.ChangeDescription,
		entry.OldConfidence, entry.NewConfidence, entry.TriggerEvent, entry.Timestamp)
	if err != nil {
		return appErrors.NewDatabaseError("insert strategy evolution entry", err)
	}
	return nil
}

func (p *PostgresStore) Statistics(ctx context.Context, strategyID string) (Statistics, error) {
	var s types.Strategy
	err := p.db.GetContext(ctx, &s, `SELECT usage_count, success_rate FROM strategies WHERE id = $1`, strategyID)
	if err == sql.ErrNoRows {
		return Statistics{}, appErrors.NewValidationError("unknown strategy id: " + strategyID)
	}
	if err != nil {
		return Statistics{}, appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}

	var successCount, failureCount int
	err = p.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FILTER (WHERE success), COUNT(*) FILTER (WHERE NOT success)
		FROM strategy_usage_records WHERE strategy_id = $1`, strategyID).Scan(&successCount, &failureCount)
	if err != nil {
		return Statistics{}, appErrors.NewDatabaseError("count usage records", err)
	}

	var lastUsed sql.NullTime
	_ = p.db.GetContext(ctx, &lastUsed, `SELECT last_used FROM strategies WHERE id = $1`, strategyID)

	stats := Statistics{
		StrategyID:   strategyID,
		UsageCount:   s.UsageCount,
		SuccessRate:  s.SuccessRate,
		SuccessCount: successCount,
		FailureCount: failureCount,
	}
	if lastUsed.Valid {
		stats.LastUsedAt = &lastUsed.Time
	}
	return stats, nil
}

func (p *PostgresStore) ClearAll(ctx context.Context) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("strategy-postgres", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM strategy_evolution_entries`); err != nil {
		return appErrors.NewDatabaseError("clear evolution entries", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM strategy_usage_records`); err != nil {
		return appErrors.NewDatabaseError("clear usage records", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM strategies`); err != nil {
		return appErrors.NewDatabaseError("clear strategies", err)
	}
	return tx.Commit()
}

package performance

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// PostgresStore is the durable Performance Tracker backend. The dynamic
// confidence algorithm itself is identical to InMemoryTracker's -- only
// sample storage and windowed retrieval move to SQL.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgresStore opens and pings a PostgresStore against dsn, applying
// any pending goose migrations before returning.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("performance-postgres", err)
	}
	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, appErrors.NewStoreUnavailableError("performance-postgres-migrate", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

type sampleRow struct {
	StrategyID       string    `db:"strategy_id"`
	Success          bool      `db:"success"`
	ResolutionTime   float64   `db:"resolution_time"`
	ConfidenceBefore float64   `db:"confidence_before"`
	ConfidenceAfter  float64   `db:"confidence_after"`
	Context          string    `db:"context"`
	Timestamp        time.Time `db:"timestamp"`
}

func (r sampleRow) toSample() types.PerformanceSample {
	var ctx types.Context
	_ = json.Unmarshal([]byte(r.Context), &ctx)
	return types.PerformanceSample{
		StrategyID:       r.StrategyID,
		Success:          r.Success,
		ResolutionTime:   r.ResolutionTime,
		ConfidenceBefore: r.ConfidenceBefore,
		ConfidenceAfter:  r.ConfidenceAfter,
		Context:          ctx,
		Timestamp:        r.Timestamp,
	}
}

func (p *PostgresStore) Record(ctx context.Context, strategyID string, success bool, resolutionTime, confidenceBefore float64, sampleCtx types.Context) (float64, error) {
	ctxJSON, err := json.Marshal(sampleCtx)
	if err != nil {
		ctxJSON = []byte("{}")
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO performance_samples (strategy_id, success, resolution_time, confidence_before, context, timestamp)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		strategyID, success, resolutionTime, confidenceBefore, string(ctxJSON), time.Now())
	if err != nil {
		return 0, appErrors.NewDatabaseError("insert performance sample", err)
	}
	return p.DynamicConfidence(ctx, strategyID, DefaultWindow)
}

func (p *PostgresStore) recentSamples(ctx context.Context, strategyID string, window int) ([]types.PerformanceSample, error) {
	var rows []sampleRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT strategy_id, success, resolution_time, confidence_before, confidence_after, context, timestamp
		FROM performance_samples WHERE strategy_id = $1
		ORDER BY timestamp DESC LIMIT $2`, strategyID, window)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("performance-postgres", err)
	}
	out := make([]types.PerformanceSample, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toSample())
	}
	return out, nil
}

// DynamicConfidence implements spec.md §4.3's five-step definition,
// identical to InMemoryTracker.DynamicConfidence, over samples loaded
// from Postgres.
func (p *PostgresStore) DynamicConfidence(ctx context.Context, strategyID string, window int) (float64, error) {
	if window <= 0 {
		window = DefaultWindow
	}

	recent, err := p.recentSamples(ctx, strategyID, window)
	if err != nil {
		return 0, err
	}
	if len(recent) == 0 {
		return neutral, nil
	}

	now := time.Now()
	var weightedSum, weightSum float64
	for _, s := range recent {
		ageHours := now.Sub(s.Timestamp).Hours()
		w := math.Max(minWeight, 1-ageHours/decayHours)
		weightSum += w
		if s.Success {
			weightedSum += w
		}
	}
	weightedSuccess := weightedSum / weightSum

	tf := trendFactor(recent)

	var resolutionSum float64
	for _, s := range recent {
		resolutionSum += s.ResolutionTime
	}
	meanResolution := resolutionSum / float64(len(recent))
	timeFactor := clamp((60-meanResolution)/600, -0.1, 0.1)

	return clamp(weightedSuccess+tf+timeFactor, minConfidence, maxConfidence), nil
}

func (p *PostgresStore) Insights(ctx context.Context, days int) ([]Insight, error) {
	cutoff := time.Now().AddDate(0, 0, -days)

	var rows []struct {
		ErrorClass string `db:"error_class"`
		Count      int    `db:"count"`
	}
	err := p.db.SelectContext(ctx, &rows, `
		SELECT tc.error_class AS error_class, COUNT(DISTINCT s.strategy_id) AS count
		FROM performance_samples s
		JOIN tracked_classes tc ON tc.strategy_id = s.strategy_id
		WHERE s.timestamp >= $1
		GROUP BY tc.error_class`, cutoff)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("performance-postgres", err)
	}

	out := make([]Insight, 0, len(rows))
	for _, r := range rows {
		out = append(out, Insight{
			ErrorClass: types.ErrorClass(r.ErrorClass),
			Message:    "active strategies in window: " + strconv.Itoa(r.Count),
		})
	}
	return out, nil
}

func (p *PostgresStore) RegisterClass(ctx context.Context, strategyID string, class types.ErrorClass) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO tracked_classes (strategy_id, error_class) VALUES ($1, $2)
		ON CONFLICT (strategy_id) DO UPDATE SET error_class = $2`, strategyID, string(class))
	if err != nil {
		return appErrors.NewDatabaseError("register tracked class", err)
	}
	return nil
}

func (p *PostgresStore) Ranking(ctx context.Context, errClass types.ErrorClass) ([]RankingEntry, error) {
	var ids []string
	var err error
	if errClass == "" {
		err = p.db.SelectContext(ctx, &ids, `SELECT DISTINCT strategy_id FROM performance_samples`)
	} else {
		err = p.db.SelectContext(ctx, &ids, `
			SELECT DISTINCT s.strategy_id FROM performance_samples s
			JOIN tracked_classes tc ON tc.strategy_id = s.strategy_id
			WHERE tc.error_class = $1`, string(errClass))
	}
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("performance-postgres", err)
	}

	out := make([]RankingEntry, 0, len(ids))
	for _, id := range ids {
		conf, err := p.DynamicConfidence(ctx, id, DefaultWindow)
		if err != nil {
			return nil, err
		}
		var n int
		if err := p.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM performance_samples WHERE strategy_id = $1`, id); err != nil {
			return nil, appErrors.NewStoreUnavailableError("performance-postgres", err)
		}
		out = append(out, RankingEntry{StrategyID: id, Confidence: conf, SampleSize: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	return out, nil
}

func (p *PostgresStore) ClearAll(ctx context.Context) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("performance-postgres", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM performance_samples`); err != nil {
		return appErrors.NewDatabaseError("clear performance samples", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tracked_classes`); err != nil {
		return appErrors.NewDatabaseError("clear tracked classes", err)
	}
	return tx.Commit()
}

package memory

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/jackc/pgx/v5/stdlib"

	appErrors "github.com/mmsuerkan/kubernetes-thesis/internal/errors"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// PostgresStore is the durable Episodic Memory backend. Similarity
// ranking and association creation stay in Go (the same algorithm
// InMemoryStore uses) -- only the same-error-class candidate set is
// narrowed by SQL, since ranking depends on Context equality that isn't
// worth expressing as a query.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgresStore opens and pings a PostgresStore against dsn, applying
// any pending goose migrations before returning.
func OpenPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	db, err := sqlx.ConnectContext(ctx, "pgx", dsn)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	if err := Migrate(db.DB); err != nil {
		_ = db.Close()
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres-migrate", err)
	}
	return &PostgresStore{db: db}, nil
}

func (p *PostgresStore) Close() error { return p.db.Close() }

type episodeRow struct {
	ID                string    `db:"id"`
	PodName           string    `db:"pod_name"`
	Namespace         string    `db:"namespace"`
	ErrorClass        string    `db:"error_class"`
	Context           string    `db:"context"`
	ActionsTaken      string    `db:"actions_taken"`
	Outcome           string    `db:"outcome"`
	LessonsLearned    string    `db:"lessons_learned"`
	ConfidenceBefore  float64   `db:"confidence_before"`
	ConfidenceAfter   float64   `db:"confidence_after"`
	ResolutionTime    float64   `db:"resolution_time"`
	ReflectionQuality float64   `db:"reflection_quality"`
	InsightsGenerated int       `db:"insights_generated"`
	StrategyID        string    `db:"strategy_id"`
	Timestamp         time.Time `db:"timestamp"`
}

func toEpisodeRow(ep *types.Episode) (episodeRow, error) {
	ctxJSON, err := json.Marshal(ep.Context)
	if err != nil {
		return episodeRow{}, err
	}
	actionsJSON, err := json.Marshal(ep.ActionsTaken)
	if err != nil {
		return episodeRow{}, err
	}
	outcomeJSON, err := json.Marshal(ep.Outcome)
	if err != nil {
		return episodeRow{}, err
	}
	lessonsJSON, err := json.Marshal(ep.LessonsLearned)
	if err != nil {
		return episodeRow{}, err
	}
	return episodeRow{
		ID:                ep.ID,
		PodName:           ep.PodName,
		Namespace:         ep.Namespace,
		ErrorClass:        string(ep.ErrorClass),
		Context:           string(ctxJSON),
		ActionsTaken:      string(actionsJSON),
		Outcome:           string(outcomeJSON),
		LessonsLearned:    string(lessonsJSON),
		ConfidenceBefore:  ep.ConfidenceBefore,
		ConfidenceAfter:   ep.ConfidenceAfter,
		ResolutionTime:    ep.ResolutionTime,
		ReflectionQuality: ep.ReflectionQuality,
		InsightsGenerated: ep.InsightsGenerated,
		StrategyID:        ep.StrategyID,
		Timestamp:         ep.Timestamp,
	}, nil
}

func (r episodeRow) toEpisode() (*types.Episode, error) {
	var ctx types.Context
	if err := json.Unmarshal([]byte(r.Context), &ctx); err != nil {
		return nil, err
	}
	var actions []string
	if err := json.Unmarshal([]byte(r.ActionsTaken), &actions); err != nil {
		return nil, err
	}
	var outcome types.Outcome
	if err := json.Unmarshal([]byte(r.Outcome), &outcome); err != nil {
		return nil, err
	}
	var lessons []string
	if err := json.Unmarshal([]byte(r.LessonsLearned), &lessons); err != nil {
		return nil, err
	}
	return &types.Episode{
		ID:                r.ID,
		PodName:           r.PodName,
		Namespace:         r.Namespace,
		ErrorClass:        types.ErrorClass(r.ErrorClass),
		Context:           ctx,
		ActionsTaken:      actions,
		Outcome:           outcome,
		LessonsLearned:    lessons,
		ConfidenceBefore:  r.ConfidenceBefore,
		ConfidenceAfter:   r.ConfidenceAfter,
		ResolutionTime:    r.ResolutionTime,
		ReflectionQuality: r.ReflectionQuality,
		InsightsGenerated: r.InsightsGenerated,
		StrategyID:        r.StrategyID,
		Timestamp:         r.Timestamp,
	}, nil
}

func (p *PostgresStore) sameClass(ctx context.Context, errClass types.ErrorClass) ([]*types.Episode, error) {
	var rows []episodeRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, pod_name, namespace, error_class, context, actions_taken, outcome,
			lessons_learned, confidence_before, confidence_after, resolution_time,
			reflection_quality, insights_generated, strategy_id, timestamp
		FROM episodes WHERE error_class = $1`, string(errClass))
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	out := make([]*types.Episode, 0, len(rows))
	for _, r := range rows {
		ep, err := r.toEpisode()
		if err != nil {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}

func (p *PostgresStore) StoreEpisode(ctx context.Context, ep *types.Episode) error {
	if ep == nil {
		return appErrors.NewValidationError("episode must not be nil")
	}
	if ep.ID == "" {
		ep.ID = uuid.NewString()
	}
	if ep.Timestamp.IsZero() {
		ep.Timestamp = time.Now()
	}

	priors, err := p.sameClass(ctx, ep.ErrorClass)
	if err != nil {
		return err
	}
	ranked := rankBySimilarity(priors, ep.Context)

	row, err := toEpisodeRow(ep)
	if err != nil {
		return appErrors.NewValidationError("episode not serializable: " + err.Error())
	}

	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	defer tx.Rollback()

	_, err = tx.NamedExecContext(ctx, `
		INSERT INTO episodes (id, pod_name, namespace, error_class, context, actions_taken,
			outcome, lessons_learned, confidence_before, confidence_after, resolution_time,
			reflection_quality, insights_generated, strategy_id, timestamp)
		VALUES (:id, :pod_name, :namespace, :error_class, :context, :actions_taken,
			:outcome, :lessons_learned, :confidence_before, :confidence_after, :resolution_time,
			:reflection_quality, :insights_generated, :strategy_id, :timestamp)`, row)
	if err != nil {
		return appErrors.NewDatabaseError("insert episode", err)
	}

	key := patternKey(ep.ErrorClass, ep.Timestamp.Hour())
	patternData, _ := json.Marshal(map[string]any{"error_class": string(ep.ErrorClass), "hour_of_day": ep.Timestamp.Hour()})
	_, err = tx.ExecContext(ctx, `
		INSERT INTO memory_patterns (id, pattern_key, pattern_type, pattern_data, strength, frequency, first_seen, last_seen)
		VALUES ($1, $2, $3, $4, 1, 1, $5, $5)
		ON CONFLICT (pattern_key) DO UPDATE SET
			strength = memory_patterns.strength + 1,
			frequency = memory_patterns.frequency + 1,
			last_seen = $5`,
		uuid.NewString(), key, string(types.PatternTemporal), string(patternData), ep.Timestamp)
	if err != nil {
		return appErrors.NewDatabaseError("upsert memory pattern", err)
	}

	linked := 0
	for _, r := range ranked {
		if linked >= topK {
			break
		}
		if r.score <= AssociationThreshold {
			continue
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO memory_associations (episode_a, episode_b, association_type, strength)
			VALUES ($1, $2, $3, $4)`, ep.ID, r.episode.ID, string(types.AssociationSimilarContext), r.score)
		if err != nil {
			return appErrors.NewDatabaseError("insert memory association", err)
		}
		linked++
	}

	return tx.Commit()
}

func (p *PostgresStore) Similar(ctx context.Context, errClass types.ErrorClass, episodeCtx types.Context, limit int) ([]*types.Episode, error) {
	priors, err := p.sameClass(ctx, errClass)
	if err != nil {
		return nil, err
	}
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

func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]*types.Episode, error) {
	if limit <= 0 {
		limit = 1 << 30
	}
	var rows []episodeRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, pod_name, namespace, error_class, context, actions_taken, outcome,
			lessons_learned, confidence_before, confidence_after, resolution_time,
			reflection_quality, insights_generated, strategy_id, timestamp
		FROM episodes ORDER BY timestamp DESC LIMIT $1`, limit)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	out := make([]*types.Episode, 0, len(rows))
	for _, r := range rows {
		ep, err := r.toEpisode()
		if err != nil {
			continue
		}
		out = append(out, ep)
	}
	return out, nil
}

func (p *PostgresStore) Progression(ctx context.Context, days int) ([]DailyProgression, error) {
	cutoff := time.Now().AddDate(0, 0, -days)
	var rows []episodeRow
	err := p.db.SelectContext(ctx, &rows, `
		SELECT id, pod_name, namespace, error_class, context, actions_taken, outcome,
			lessons_learned, confidence_before, confidence_after, resolution_time,
			reflection_quality, insights_generated, strategy_id, timestamp
		FROM episodes WHERE timestamp >= $1 ORDER BY timestamp ASC`, cutoff)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}

	buckets := make(map[string]*DailyProgression)
	var order []string
	for _, r := range rows {
		date := r.Timestamp.Format("2006-01-02")
		b, ok := buckets[date]
		if !ok {
			b = &DailyProgression{Date: date}
			buckets[date] = b
			order = append(order, date)
		}
		b.ConfidenceGain += r.ConfidenceAfter - r.ConfidenceBefore
		b.ReflectionQuality += r.ReflectionQuality
		b.Insights += r.InsightsGenerated
		b.Count++
	}

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

func (p *PostgresStore) PerClassStats(ctx context.Context) ([]ClassStats, error) {
	var stats []ClassStats
	err := p.db.SelectContext(ctx, &stats, `
		SELECT error_class, COUNT(*) AS count,
			COUNT(*) FILTER (WHERE (outcome->>'success')::boolean) AS success_count,
			COALESCE(AVG(resolution_time), 0) AS avg_resolution
		FROM episodes GROUP BY error_class`)
	if err != nil {
		return nil, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	return stats, nil
}

func (p *PostgresStore) Statistics(ctx context.Context) (Statistics, error) {
	var stats Statistics
	err := p.db.GetContext(ctx, &stats, `
		SELECT
			(SELECT COUNT(*) FROM episodes) AS episode_count,
			(SELECT COUNT(*) FROM memory_patterns) AS pattern_count,
			(SELECT COUNT(*) FROM memory_associations) AS association_count`)
	if err != nil {
		return Statistics{}, appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	return stats, nil
}

func (p *PostgresStore) ClearAll(ctx context.Context) error {
	tx, err := p.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.NewStoreUnavailableError("episodic-postgres", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_associations`); err != nil {
		return appErrors.NewDatabaseError("clear memory associations", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM memory_patterns`); err != nil {
		return appErrors.NewDatabaseError("clear memory patterns", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM episodes`); err != nil {
		return appErrors.NewDatabaseError("clear episodes", err)
	}
	return tx.Commit()
}

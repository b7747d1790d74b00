package strategy

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/logging"
	"github.com/mmsuerkan/kubernetes-thesis/pkg/shared/types"
)

// CachedStore wraps a durable Store with a Redis read-through cache on
// FindFor, the hottest path in the remediation loop (every incident of a
// given error class re-reads the same small strategy set). Writes go
// straight to the inner store and invalidate the cached entry.
type CachedStore struct {
	inner Store
	rdb   *redis.Client
	ttl   time.Duration
	log   *logrus.Logger
}

// NewCachedStore wraps inner with a Redis cache. ttl of zero defaults to
// 30 seconds.
func NewCachedStore(inner Store, rdb *redis.Client, ttl time.Duration, log *logrus.Logger) *CachedStore {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &CachedStore{inner: inner, rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(errClass types.ErrorClass, incidentCtx types.Context) string {
	ctxJSON, _ := json.Marshal(incidentCtx)
	return "strategy:find_for:" + string(errClass) + ":" + string(ctxJSON)
}

func (c *CachedStore) Add(ctx context.Context, s *types.Strategy) error {
	if err := c.inner.Add(ctx, s); err != nil {
		return err
	}
	c.invalidate(ctx, s.ErrorClass)
	return nil
}

// FindFor caches the final, already-context-filtered result set per
// (error class, context) pair -- the inner Store is the only component
// that knows how to evaluate conditions, so caching raw-and-refiltering
// would require duplicating that logic here.
func (c *CachedStore) FindFor(ctx context.Context, errClass types.ErrorClass, incidentCtx types.Context) ([]*types.Strategy, error) {
	key := cacheKey(errClass, incidentCtx)

	if cached, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var matches []*types.Strategy
		if jsonErr := json.Unmarshal([]byte(cached), &matches); jsonErr == nil {
			return matches, nil
		}
	} else if err != redis.Nil {
		c.log.WithFields(logging.NewFields().Component("strategy-cache").Err(err).Logrus()).Warn("redis cache read failed, falling through to store")
	}

	matches, err := c.inner.FindFor(ctx, errClass, incidentCtx)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(matches); err == nil {
		if err := c.rdb.Set(ctx, key, payload, c.ttl).Err(); err != nil {
			c.log.WithFields(logging.NewFields().Component("strategy-cache").Err(err).Logrus()).Warn("redis cache write failed")
		}
	}

	return matches, nil
}

func (c *CachedStore) GetByID(ctx context.Context, id string) (*types.Strategy, error) {
	return c.inner.GetByID(ctx, id)
}

// List is not cached -- it's only used by the low-traffic inspection
// API, unlike FindFor's hot incident-matching path.
func (c *CachedStore) List(ctx context.Context, errClass types.ErrorClass) ([]*types.Strategy, error) {
	return c.inner.List(ctx, errClass)
}

func (c *CachedStore) RecordOutcome(ctx context.Context, strategyID string, outcome types.Outcome) error {
	return c.inner.RecordOutcome(ctx, strategyID, outcome)
}

func (c *CachedStore) RecordEvolution(ctx context.Context, entry types.EvolutionEntry) error {
	return c.inner.RecordEvolution(ctx, entry)
}

func (c *CachedStore) Statistics(ctx context.Context, strategyID string) (Statistics, error) {
	return c.inner.Statistics(ctx, strategyID)
}

func (c *CachedStore) ClearAll(ctx context.Context) error {
	if err := c.inner.ClearAll(ctx); err != nil {
		return err
	}
	return c.rdb.FlushDB(ctx).Err()
}

// invalidate drops every cached FindFor entry for errClass. Context-keyed
// cache entries can't be targeted individually without tracking every
// incidentCtx seen, so Add invalidates by SCAN over the error class's key
// prefix instead.
func (c *CachedStore) invalidate(ctx context.Context, errClass types.ErrorClass) {
	prefix := "strategy:find_for:" + string(errClass) + ":*"
	iter := c.rdb.Scan(ctx, 0, prefix, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.rdb.Del(ctx, iter.Val()).Err(); err != nil {
			c.log.WithFields(logging.NewFields().Component("strategy-cache").Err(err).Logrus()).Warn("redis cache invalidation failed")
		}
	}
	if err := iter.Err(); err != nil {
		c.log.WithFields(logging.NewFields().Component("strategy-cache").Err(err).Logrus()).Warn("redis cache scan failed")
	}
}

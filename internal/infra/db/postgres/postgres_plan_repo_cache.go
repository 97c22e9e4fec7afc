package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/domain/model"
	"gym-membership/internal/domain/ports/repository"
	"gym-membership/internal/infra/metrics"
	red "gym-membership/internal/infra/redis"
)

var _ repository.PlanRepository = (*planRepoCacheDecorator)(nil)

const activePlansKey = "plans:active"

// planRepoCacheDecorator is a read-through cache for the public catalog.
// Reads inside a transaction always go to the database.
type planRepoCacheDecorator struct {
	inner repository.PlanRepository
	cache red.RedisClient
	ttl   time.Duration
	log   *zerolog.Logger
}

func NewPlanRepoCacheDecorator(inner repository.PlanRepository, cache red.RedisClient, ttl time.Duration, log *zerolog.Logger) repository.PlanRepository {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &planRepoCacheDecorator{inner: inner, cache: cache, ttl: ttl, log: log}
}

func planKey(id string) string { return fmt.Sprintf("plan:%s", id) }

func (d *planRepoCacheDecorator) lookup(ctx context.Context, cache, key string, dst interface{}) bool {
	val, err := d.cache.Get(ctx, key)
	if err == nil && json.Unmarshal([]byte(val), dst) == nil {
		metrics.IncCacheRequest(cache, "hit")
		return true
	}
	if err != nil && !errors.Is(err, red.Nil) {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache read failed")
	}
	metrics.IncCacheRequest(cache, "miss")
	return false
}

func (d *planRepoCacheDecorator) store(ctx context.Context, key string, v interface{}) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := d.cache.Set(ctx, key, b, d.ttl); err != nil {
		d.log.Warn().Err(err).Str("key", key).Msg("plan cache write failed")
	}
}

func (d *planRepoCacheDecorator) invalidate(ctx context.Context, id string) {
	if err := d.cache.Del(ctx, planKey(id), activePlansKey); err != nil {
		d.log.Warn().Err(err).Str("plan_id", id).Msg("plan cache invalidation failed")
	}
}

func (d *planRepoCacheDecorator) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Plan, error) {
	if inTx(tx) {
		return d.inner.FindByID(ctx, tx, id)
	}
	var plan model.Plan
	if d.lookup(ctx, "plan", planKey(id), &plan) {
		return &plan, nil
	}
	p, err := d.inner.FindByID(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	d.store(ctx, planKey(id), p)
	return p, nil
}

func (d *planRepoCacheDecorator) ListActive(ctx context.Context, tx repository.Tx) ([]*model.Plan, error) {
	if inTx(tx) {
		return d.inner.ListActive(ctx, tx)
	}
	var plans []*model.Plan
	if d.lookup(ctx, "plan_list", activePlansKey, &plans) {
		return plans, nil
	}
	plans, err := d.inner.ListActive(ctx, tx)
	if err != nil {
		return nil, err
	}
	if len(plans) > 0 {
		d.store(ctx, activePlansKey, plans)
	}
	return plans, nil
}

// Writes go to the database first, then drop the cached copies.
func (d *planRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, p *model.Plan) error {
	if err := d.inner.Save(ctx, tx, p); err != nil {
		return err
	}
	d.invalidate(ctx, p.ID)
	return nil
}

func (d *planRepoCacheDecorator) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	if err := d.inner.Deactivate(ctx, tx, id); err != nil {
		return err
	}
	d.invalidate(ctx, id)
	return nil
}

package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
	"bookshop-access/internal/infra/metrics"
	red "bookshop-access/internal/infra/redis"
)

var _ repository.EntitlementRepository = (*entitlementRepoCacheDecorator)(nil)

// entitlementRepoCacheDecorator caches the per-user entitlement listing for
// display reads (the account page). It is advisory only: gate and grant
// reads go through FindByUserAndService, which always hits the store, and
// every Save drops the user's cached listing.
type entitlementRepoCacheDecorator struct {
	inner repository.EntitlementRepository
	cache red.RedisClient
	ttl   time.Duration
}

func NewEntitlementRepoCacheDecorator(inner repository.EntitlementRepository, cache red.RedisClient) repository.EntitlementRepository {
	return &entitlementRepoCacheDecorator{
		inner: inner,
		cache: cache,
		ttl:   time.Minute,
	}
}

func entitlementListKey(userID string) string {
	return fmt.Sprintf("entitlements:user:%s", userID)
}

// FindByUserAndService is the gate read; it never sees the cache.
func (d *entitlementRepoCacheDecorator) FindByUserAndService(ctx context.Context, tx repository.Tx, userID, service string) (*model.Entitlement, error) {
	return d.inner.FindByUserAndService(ctx, tx, userID, service)
}

func (d *entitlementRepoCacheDecorator) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	_ = d.cache.Del(ctx, entitlementListKey(e.UserID))
	return d.inner.Save(ctx, tx, e)
}

func (d *entitlementRepoCacheDecorator) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	// Transactional reads must see the store.
	if tx != nil {
		return d.inner.ListByUser(ctx, tx, userID)
	}

	key := entitlementListKey(userID)
	if val, err := d.cache.Get(ctx, key); err == nil {
		var list []*model.Entitlement
		if json.Unmarshal([]byte(val), &list) == nil {
			metrics.IncCacheRequest("entitlement_list", "hit")
			return list, nil
		}
	} else if err != redis.Nil {
		// real Redis error: fall through to the store
	}

	metrics.IncCacheRequest("entitlement_list", "miss")
	list, err := d.inner.ListByUser(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(list); err == nil {
		_ = d.cache.Set(ctx, key, b, d.ttl)
	}
	return list, nil
}

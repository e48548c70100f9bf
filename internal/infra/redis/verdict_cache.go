package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"bookshop-access/internal/domain/model"
)

// VerdictCache throttles full session revalidation: a positive verdict is
// cached per session for the revalidation interval, so repeated checks from
// the same tab do not hammer the session store. Only valid verdicts are
// cached; mismatches and expiries always go to the store.
type VerdictCache struct {
	client RedisClient
	ttl    time.Duration
}

func NewVerdictCache(client RedisClient, ttl time.Duration) *VerdictCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &VerdictCache{client: client, ttl: ttl}
}

func verdictKey(sessionID string) string {
	return fmt.Sprintf("session:verdict:%s", sessionID)
}

// Get returns the cached verdict or nil on miss. Redis errors degrade to a
// miss: the validator then does the full check, which is always safe.
func (c *VerdictCache) Get(ctx context.Context, sessionID string) *model.ValidationVerdict {
	val, err := c.client.Get(ctx, verdictKey(sessionID))
	if err != nil {
		return nil
	}
	var v model.ValidationVerdict
	if json.Unmarshal([]byte(val), &v) != nil {
		return nil
	}
	v.Cached = true
	return &v
}

func (c *VerdictCache) Put(ctx context.Context, sessionID string, v *model.ValidationVerdict) {
	if v == nil || !v.IsValid {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, verdictKey(sessionID), b, c.ttl)
}

// Invalidate drops the cached verdict, e.g. after logout or deactivation.
func (c *VerdictCache) Invalidate(ctx context.Context, sessionID string) {
	_ = c.client.Del(ctx, verdictKey(sessionID))
}

package repository

import (
	"context"

	"bookshop-access/internal/domain/model"
)

// SessionVerdictCache throttles repeated session validations. Get returns
// nil on miss; implementations cache only positive verdicts and degrade
// errors to misses so the validator falls back to the full check.
type SessionVerdictCache interface {
	Get(ctx context.Context, sessionID string) *model.ValidationVerdict
	Put(ctx context.Context, sessionID string, v *model.ValidationVerdict)
	Invalidate(ctx context.Context, sessionID string)
}

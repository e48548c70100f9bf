package usecase

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
	"bookshop-access/internal/infra/metrics"
	"bookshop-access/internal/infra/worker"
)

// Compile-time check
var _ AuditUseCase = (*auditUC)(nil)

// AuditUseCase appends security events. Record is fire-and-forget: it never
// returns an error and never blocks the security decision it describes. A
// failed write is logged to the operational channel and counted, nothing more.
type AuditUseCase interface {
	Record(ctx context.Context, action, resource, userID string, details map[string]interface{})
	ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEvent, error)
}

type auditUC struct {
	events repository.AuditRepository
	pool   *worker.Pool // optional; nil means synchronous append
	log    *zerolog.Logger
}

func NewAuditUseCase(events repository.AuditRepository, pool *worker.Pool, logger *zerolog.Logger) *auditUC {
	l := logger.With().Str("component", "AuditUC").Logger()
	return &auditUC{events: events, pool: pool, log: &l}
}

func (u *auditUC) Record(ctx context.Context, action, resource, userID string, details map[string]interface{}) {
	ev := &model.AuditEvent{
		ID:        ulid.Make().String(),
		Action:    action,
		Resource:  resource,
		UserID:    userID,
		Details:   details,
		CreatedAt: time.Now(),
	}

	append := func(ctx context.Context) error {
		if err := u.events.Append(ctx, nil, ev); err != nil {
			metrics.IncAuditWriteFailure()
			u.log.Error().Err(err).Str("action", action).Str("resource", resource).Msg("audit append failed")
			return nil // already reported; the pool must not double-log
		}
		metrics.IncAuditWrite(action)
		return nil
	}

	if u.pool != nil {
		if err := u.pool.Submit(append); err == nil {
			return
		}
		// queue saturated: fall through to a synchronous append rather than drop
	}
	_ = append(ctx)
}

func (u *auditUC) ListByUser(ctx context.Context, userID string, limit int) ([]*model.AuditEvent, error) {
	return u.events.ListByUser(ctx, nil, userID, limit)
}

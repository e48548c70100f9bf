package postgres

import (
	"context"

	"github.com/jackc/pgx/v4/pgxpool"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
)

var _ repository.AuditRepository = (*auditRepo)(nil)

// auditRepo appends security events. There is no update or delete path.
type auditRepo struct{ pool *pgxpool.Pool }

func NewAuditRepo(pool *pgxpool.Pool) *auditRepo {
	return &auditRepo{pool: pool}
}

func (r *auditRepo) Append(ctx context.Context, tx repository.Tx, e *model.AuditEvent) error {
	const q = `
INSERT INTO audit_events (id, action, resource, user_id, details, created_at)
VALUES ($1,$2,$3,NULLIF($4,'')::uuid,$5,$6);`

	_, err := execSQL(ctx, r.pool, tx, q, e.ID, e.Action, e.Resource, e.UserID, e.Details, e.CreatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *auditRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string, limit int) ([]*model.AuditEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT id, action, resource, COALESCE(user_id::text,''), details, created_at FROM audit_events WHERE user_id=$1::uuid ORDER BY id DESC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID, limit)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.AuditEvent
	for rows.Next() {
		e := new(model.AuditEvent)
		if err := rows.Scan(&e.ID, &e.Action, &e.Resource, &e.UserID, &e.Details, &e.CreatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

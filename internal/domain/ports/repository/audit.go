package repository

import (
	"context"

	"bookshop-access/internal/domain/model"
)

// AuditRepository is append-only: there is deliberately no update or delete.
type AuditRepository interface {
	Append(ctx context.Context, tx Tx, e *model.AuditEvent) error
	ListByUser(ctx context.Context, tx Tx, userID string, limit int) ([]*model.AuditEvent, error)
}

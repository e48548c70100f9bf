package repository

import (
	"context"

	"bookshop-access/internal/domain/model"
)

// EntitlementRepository stores per-user, per-service access windows.
type EntitlementRepository interface {
	Save(ctx context.Context, tx Tx, e *model.Entitlement) error
	// FindByUserAndService returns domain.ErrNotFound when the user has never
	// been granted the service.
	FindByUserAndService(ctx context.Context, tx Tx, userID, service string) (*model.Entitlement, error)
	ListByUser(ctx context.Context, tx Tx, userID string) ([]*model.Entitlement, error)
}

package repository

import (
	"context"
	"time"

	"bookshop-access/internal/domain/model"
)

// SessionRepository stores login sessions keyed by session id (the token's
// jti). Only the registrar/validator mutate sessions; all mutations are
// id-keyed updates.
type SessionRepository interface {
	Save(ctx context.Context, tx Tx, s *model.Session) error
	FindByID(ctx context.Context, tx Tx, id string) (*model.Session, error)
	TouchLastActive(ctx context.Context, tx Tx, id string, at time.Time) error
	Deactivate(ctx context.Context, tx Tx, id string) error
	// DeactivateExpired flips all active sessions past their expiry and
	// returns how many were affected.
	DeactivateExpired(ctx context.Context, tx Tx, now time.Time) (int, error)
}

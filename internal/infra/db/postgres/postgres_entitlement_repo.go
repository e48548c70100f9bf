package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
)

var _ repository.EntitlementRepository = (*entitlementRepo)(nil)

type entitlementRepo struct{ pool *pgxpool.Pool }

func NewEntitlementRepo(pool *pgxpool.Pool) *entitlementRepo {
	return &entitlementRepo{pool: pool}
}

const entitlementColumns = `id, user_id, service_name, granted_at, expires_at, cumulative_amount_paid, updated_at`

func (r *entitlementRepo) Save(ctx context.Context, tx repository.Tx, e *model.Entitlement) error {
	const q = `
INSERT INTO entitlements (` + entitlementColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (user_id, service_name) DO UPDATE SET
  expires_at = GREATEST(entitlements.expires_at, $5),
  cumulative_amount_paid = $6,
  updated_at = $7;`

	_, err := execSQL(ctx, r.pool, tx, q,
		e.ID, e.UserID, e.ServiceName, e.GrantedAt, e.ExpiresAt, e.CumulativeAmountPaid, e.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *entitlementRepo) FindByUserAndService(ctx context.Context, tx repository.Tx, userID, service string) (*model.Entitlement, error) {
	q := `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id=$1 AND service_name=$2`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, userID, service)
	if err != nil {
		return nil, err
	}
	return scanEntitlement(row)
}

func (r *entitlementRepo) ListByUser(ctx context.Context, tx repository.Tx, userID string) ([]*model.Entitlement, error) {
	const q = `SELECT ` + entitlementColumns + ` FROM entitlements WHERE user_id=$1 ORDER BY service_name;`
	rows, err := queryRows(ctx, r.pool, tx, q, userID)
	if err != nil {
		switch err {
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.Entitlement
	for rows.Next() {
		e := new(model.Entitlement)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ServiceName, &e.GrantedAt, &e.ExpiresAt, &e.CumulativeAmountPaid, &e.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, e)
	}
	return out, nil
}

func scanEntitlement(row pgx.Row) (*model.Entitlement, error) {
	e := &model.Entitlement{}
	if err := row.Scan(&e.ID, &e.UserID, &e.ServiceName, &e.GrantedAt, &e.ExpiresAt, &e.CumulativeAmountPaid, &e.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return e, nil
}

package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
)

var _ repository.SessionRepository = (*sessionRepo)(nil)

type sessionRepo struct{ pool *pgxpool.Pool }

func NewSessionRepo(pool *pgxpool.Pool) *sessionRepo {
	return &sessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, device_fingerprint, user_agent, created_at, expires_at, last_active_at, is_active`

func (r *sessionRepo) Save(ctx context.Context, tx repository.Tx, s *model.Session) error {
	const q = `
INSERT INTO sessions (` + sessionColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (id) DO UPDATE SET
  last_active_at=$7, is_active=$8;`

	_, err := execSQL(ctx, r.pool, tx, q,
		s.ID, s.UserID, s.DeviceFingerprint, s.UserAgent, s.CreatedAt, s.ExpiresAt, s.LastActiveAt, s.IsActive)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) FindByID(ctx context.Context, tx repository.Tx, id string) (*model.Session, error) {
	const q = `SELECT ` + sessionColumns + ` FROM sessions WHERE id=$1;`
	row, err := pickRow(ctx, r.pool, tx, q, id)
	if err != nil {
		return nil, err
	}
	s := &model.Session{}
	if err := row.Scan(&s.ID, &s.UserID, &s.DeviceFingerprint, &s.UserAgent, &s.CreatedAt, &s.ExpiresAt, &s.LastActiveAt, &s.IsActive); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return s, nil
}

func (r *sessionRepo) TouchLastActive(ctx context.Context, tx repository.Tx, id string, at time.Time) error {
	const q = `UPDATE sessions SET last_active_at=$2 WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id, at)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) Deactivate(ctx context.Context, tx repository.Tx, id string) error {
	const q = `UPDATE sessions SET is_active=FALSE WHERE id=$1;`
	_, err := execSQL(ctx, r.pool, tx, q, id)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return err
		}
		return domain.ErrOperationFailed
	}
	return nil
}

func (r *sessionRepo) DeactivateExpired(ctx context.Context, tx repository.Tx, now time.Time) (int, error) {
	const q = `UPDATE sessions SET is_active=FALSE WHERE is_active AND expires_at <= $1;`
	cmd, err := execSQL(ctx, r.pool, tx, q, now)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return 0, err
		}
		return 0, domain.ErrOperationFailed
	}
	return int(cmd.RowsAffected()), nil
}

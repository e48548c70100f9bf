package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
)

var _ repository.PaymentRepository = (*paymentRepo)(nil)

type paymentRepo struct{ pool *pgxpool.Pool }

func NewPaymentRepo(pool *pgxpool.Pool) *paymentRepo {
	return &paymentRepo{pool: pool}
}

const paymentColumns = `id, provider_transaction_id, user_id, amount, currency, status, payer_email, payer_id, service_type, verified_with_provider, trust_level, verified_at, created_at, updated_at`

// Insert writes a new ledger row. The unique index on
// provider_transaction_id is the concurrency control: when two verifications
// race, exactly one insert lands and the other observes inserted=false.
func (r *paymentRepo) Insert(ctx context.Context, tx repository.Tx, p *model.PaymentRecord) (bool, error) {
	const q = `
INSERT INTO payment_records (` + paymentColumns + `)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
ON CONFLICT (provider_transaction_id) DO NOTHING;`

	cmd, err := execSQL(ctx, r.pool, tx, q,
		p.ID, p.ProviderTransactionID, p.UserID, p.Amount, p.Currency, p.Status,
		p.PayerEmail, p.PayerID, p.ServiceType, p.VerifiedWithProvider, p.TrustLevel,
		p.VerifiedAt, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return false, nil
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) FindByProviderTxID(ctx context.Context, tx repository.Tx, providerTxID string) (*model.PaymentRecord, error) {
	q := `SELECT ` + paymentColumns + ` FROM payment_records WHERE provider_transaction_id=$1`
	if _, ok := tx.(pgx.Tx); ok {
		q += " FOR UPDATE"
	}
	q += ";"
	row, err := pickRow(ctx, r.pool, tx, q, providerTxID)
	if err != nil {
		return nil, err
	}
	return scanPayment(row)
}

func (r *paymentRepo) UpdateStatusIfPending(ctx context.Context, tx repository.Tx, id string, status model.PaymentStatus, verifiedAt *time.Time) (bool, error) {
	const q = `
UPDATE payment_records
   SET status = $2,
       verified_with_provider = (verified_with_provider OR $2 = 'success'),
       verified_at = COALESCE($3, verified_at),
       updated_at = NOW()
 WHERE id = $1
   AND status = 'pending';`

	cmd, err := execSQL(ctx, r.pool, tx, q, id, string(status), verifiedAt)
	if err != nil {
		if err == domain.ErrInvalidArgument || err == domain.ErrInvalidExecContext {
			return false, err
		}
		return false, domain.ErrOperationFailed
	}
	return cmd.RowsAffected() >= 1, nil
}

func (r *paymentRepo) ListPendingOlderThan(ctx context.Context, tx repository.Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	const q = `SELECT ` + paymentColumns + ` FROM payment_records WHERE status='pending' AND created_at < $1 ORDER BY created_at ASC LIMIT $2;`
	rows, err := queryRows(ctx, r.pool, tx, q, olderThan, limit)
	if err != nil {
		switch err {
		case pgx.ErrNoRows:
			return nil, domain.ErrNotFound
		case domain.ErrInvalidArgument, domain.ErrInvalidExecContext:
			return nil, err
		default:
			return nil, domain.ErrOperationFailed
		}
	}
	defer rows.Close()

	var out []*model.PaymentRecord
	for rows.Next() {
		p := new(model.PaymentRecord)
		if err := rows.Scan(&p.ID, &p.ProviderTransactionID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
			&p.PayerEmail, &p.PayerID, &p.ServiceType, &p.VerifiedWithProvider, &p.TrustLevel,
			&p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, domain.ErrReadDatabaseRow
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *paymentRepo) SumVerifiedByPeriod(ctx context.Context, tx repository.Tx, period string) (float64, error) {
	// test_mode records are sandbox checkouts, not revenue
	const q = `SELECT COALESCE(SUM(amount),0) FROM payment_records WHERE status='success' AND trust_level <> 'test_mode' AND verified_at >= DATE_TRUNC($1, NOW());`
	row, err := pickRow(ctx, r.pool, tx, q, period)
	if err != nil {
		return 0, err
	}
	var sum float64
	if err := row.Scan(&sum); err != nil {
		return 0, domain.ErrReadDatabaseRow
	}
	return sum, nil
}

func scanPayment(row pgx.Row) (*model.PaymentRecord, error) {
	p := &model.PaymentRecord{}
	if err := row.Scan(&p.ID, &p.ProviderTransactionID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.PayerEmail, &p.PayerID, &p.ServiceType, &p.VerifiedWithProvider, &p.TrustLevel,
		&p.VerifiedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, domain.ErrReadDatabaseRow
	}
	return p, nil
}

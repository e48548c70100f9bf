package repository

import (
	"context"
	"time"

	"bookshop-access/internal/domain/model"
)

// PaymentRepository is the access-ledger port for payment records.
//
// Insert relies on the store's uniqueness constraint over
// provider_transaction_id as the concurrency control: concurrent duplicate
// verifications collapse to one write, and the loser observes inserted=false.
type PaymentRepository interface {
	Insert(ctx context.Context, tx Tx, p *model.PaymentRecord) (inserted bool, err error)
	FindByProviderTxID(ctx context.Context, tx Tx, providerTxID string) (*model.PaymentRecord, error)
	// UpdateStatusIfPending flips a pending record to its terminal status;
	// it never moves a record out of success.
	UpdateStatusIfPending(ctx context.Context, tx Tx, id string, status model.PaymentStatus, verifiedAt *time.Time) (bool, error)
	ListPendingOlderThan(ctx context.Context, tx Tx, olderThan time.Time, limit int) ([]*model.PaymentRecord, error)
	SumVerifiedByPeriod(ctx context.Context, tx Tx, period string) (float64, error)
}

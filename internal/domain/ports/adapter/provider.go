package adapter

import "context"

// Order statuses as normalized from the provider. Only OrderStatusCompleted
// ever grants access; the mere existence of an order proves nothing.
const (
	OrderStatusCompleted = "completed"
	OrderStatusPending   = "pending"
	OrderStatusCreated   = "created"
	OrderStatusApproved  = "approved"
)

// Order is the authoritative provider-side view of a checkout attempt.
// Amount/payer fields here are the only ones trusted by verification;
// client-supplied values are never written to the ledger.
type Order struct {
	ID         string
	Status     string // lowercase-normalized
	Amount     float64
	Currency   string
	PayerEmail string
	PayerID    string
	RawStatus  string // provider's literal status, kept for the audit trail
}

// PaymentProvider is the hex port for the external payment processor.
// GetAccessToken performs a client-credentials grant; tokens are short-lived
// and must not be persisted. GetOrder fetches order details by transaction id.
//
// Implementations must bound each call with the configured timeout and map
// network failures, timeouts and 5xx responses to domain.ErrProviderUnavailable,
// and an unknown transaction id to domain.ErrNotFound.
type PaymentProvider interface {
	Name() string
	GetAccessToken(ctx context.Context) (string, error)
	GetOrder(ctx context.Context, transactionID, token string) (*Order, error)
}

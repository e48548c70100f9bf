package adapter

import "context"

// Notifier is the boundary to the email subsystem. Calls are fire-and-forget
// from the verifier's perspective: a failed send never rolls back a grant.
type Notifier interface {
	PurchaseConfirmed(ctx context.Context, userID, service string, amount float64, currency string) error
}

package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending" // created; provider confirmation not yet obtained
	PaymentStatusSuccess PaymentStatus = "success" // provider confirmed the order as completed
	PaymentStatusFailed  PaymentStatus = "failed"  // provider rejected or order never completed
)

// TrustLevel marks how a payment record was established. Anything other than
// TrustProviderVerified is a lower-trust signal and must stay visible to
// auditors as such.
type TrustLevel string

const (
	TrustProviderVerified TrustLevel = "provider_verified"
	TrustManualOverride   TrustLevel = "manual_override"
	TrustTestMode         TrustLevel = "test_mode"
)

// AmountEpsilon is the tolerance used when comparing an expected charge
// against the provider-reported amount (one minor currency unit).
const AmountEpsilon = 0.01

// PaymentRecord is the ledger row for a single provider transaction.
// ProviderTransactionID is the idempotency key: the store enforces at most
// one record per id. Records are never deleted.
type PaymentRecord struct {
	ID                    string // UUID
	ProviderTransactionID string // provider order id, unique
	UserID                string // UUID
	Amount                float64
	Currency              string
	Status                PaymentStatus
	PayerEmail            string // from provider response only
	PayerID               string // from provider response only
	ServiceType           string // e.g. "flipbook"
	VerifiedWithProvider  bool
	TrustLevel            TrustLevel
	VerifiedAt            *time.Time // set when status becomes success
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

// AmountMatches reports whether got is within AmountEpsilon of want.
func AmountMatches(want, got float64) bool {
	d := want - got
	if d < 0 {
		d = -d
	}
	return d <= AmountEpsilon+1e-9
}

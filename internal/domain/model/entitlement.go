package model

import "time"

// Pricing tiers. The grant duration is a pure function of the verified
// amount; thresholds are inclusive within AmountEpsilon so a provider-side
// rounding (69.99 against a 70.00 full price) lands in the intended tier.
const (
	FullPriceThreshold  = 70.00
	DiscountThreshold   = 30.00
	FullPriceDuration   = 10 * 365 * 24 * time.Hour
	DiscountDuration    = 30 * 24 * time.Hour
	TrialDuration       = 7 * 24 * time.Hour
	ServiceTypeFlipbook = "flipbook"
	ServiceTypePrint    = "print"
)

// GrantDuration selects the access window for a verified payment amount.
func GrantDuration(amount float64) time.Duration {
	switch {
	case amount+AmountEpsilon >= FullPriceThreshold:
		return FullPriceDuration
	case amount+AmountEpsilon >= DiscountThreshold:
		return DiscountDuration
	default:
		return TrialDuration
	}
}

// Entitlement is a user's time-bounded right to a paid service. ExpiresAt
// only ever moves forward under additional grants.
type Entitlement struct {
	ID                   string // UUID
	UserID               string // UUID
	ServiceName          string
	GrantedAt            time.Time
	ExpiresAt            time.Time
	CumulativeAmountPaid float64
	UpdatedAt            time.Time
}

// HasAccess reports whether the entitlement is current at the given instant.
func (e *Entitlement) HasAccess(now time.Time) bool {
	return now.Before(e.ExpiresAt)
}

// Extend pushes the expiry window out by the tier duration for amount.
// The new expiry is computed from the later of now and the current expiry,
// so extending never shortens remaining access.
func (e *Entitlement) Extend(now time.Time, amount float64) {
	base := e.ExpiresAt
	if base.Before(now) {
		base = now
	}
	e.ExpiresAt = base.Add(GrantDuration(amount))
	e.CumulativeAmountPaid += amount
	e.UpdatedAt = now
}

// NewEntitlement creates a first-grant entitlement for a service.
func NewEntitlement(id, userID, service string, amount float64, now time.Time) *Entitlement {
	return &Entitlement{
		ID:                   id,
		UserID:               userID,
		ServiceName:          service,
		GrantedAt:            now,
		ExpiresAt:            now.Add(GrantDuration(amount)),
		CumulativeAmountPaid: amount,
		UpdatedAt:            now,
	}
}

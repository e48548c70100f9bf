package model

import "time"

// Security-relevant audit actions. The audit trail is append-only;
// application code never mutates or deletes events.
const (
	AuditPaymentVerified       = "payment_verified"
	AuditPaymentVerifyFailed   = "payment_verification_failed"
	AuditManualPaymentOverride = "manual_payment_override"
	AuditTestPaymentRecorded   = "test_payment_recorded"
	AuditEntitlementGranted    = "entitlement_granted"
	AuditSessionCreated        = "session_created"
	AuditSuspiciousSession     = "suspicious_session_detected"
	AuditSessionLogout         = "session_logout"
	AuditSessionExpired        = "session_expired"
)

// AuditEvent records a single security decision.
type AuditEvent struct {
	ID        string // ULID: lexically sortable by creation time
	Action    string
	Resource  string // e.g. "payment:TX123", "session:<id>"
	UserID    string // optional
	Details   map[string]interface{}
	CreatedAt time.Time
}

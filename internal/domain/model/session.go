package model

import "time"

// DefaultSessionTTL is how long a login session stays valid without logout.
const DefaultSessionTTL = 24 * time.Hour

// Session binds a login to the device signature observed at creation time.
// The fingerprint is a best-effort heuristic, not a credential: it is only
// used to detect gross hijacking, never to authenticate by itself.
type Session struct {
	ID                string // UUID; also the token's jti claim
	UserID            string // UUID
	DeviceFingerprint string
	UserAgent         string
	CreatedAt         time.Time
	ExpiresAt         time.Time
	LastActiveAt      time.Time
	IsActive          bool
}

// Expired reports whether the session is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

// MatchesDevice compares the presented signature against the one captured at
// creation. An empty presented fingerprint is tolerated (not all callers can
// compute one); an empty user agent is not.
func (s *Session) MatchesDevice(userAgent, fingerprint string) bool {
	if userAgent != s.UserAgent {
		return false
	}
	if fingerprint != "" && fingerprint != s.DeviceFingerprint {
		return false
	}
	return true
}

// ValidationVerdict is the outcome of a session integrity check.
type ValidationVerdict struct {
	IsValid      bool   `json:"is_valid"`
	Suspicious   bool   `json:"suspicious"`
	ShouldLogout bool   `json:"should_logout"`
	Reason       string `json:"reason,omitempty"`
	Cached       bool   `json:"-"` // true when served from the revalidation cache
}

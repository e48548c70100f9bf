package adapter

import "time"

// SessionTokenCodec mints and parses the opaque session tokens handed to
// clients. The token carries only identifiers; device binding lives in the
// session store and is always re-checked server-side.
type SessionTokenCodec interface {
	Mint(sessionID, userID string, expiresAt time.Time) (string, error)
	// Parse returns domain.ErrTokenInvalid for garbage or badly signed
	// tokens and domain.ErrSessionExpired for well-formed expired ones
	// (with the ids still populated so the session can be deactivated).
	Parse(token string) (sessionID, userID string, err error)
}

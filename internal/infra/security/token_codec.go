package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/ports/adapter"
)

var _ adapter.SessionTokenCodec = (*JWTSessionCodec)(nil)

// JWTSessionCodec mints HS256 session tokens. The token is opaque to the
// client; the jti is the session id and device binding is checked against
// the session store on every validation, never inferred from the token.
type JWTSessionCodec struct {
	secret []byte
}

func NewJWTSessionCodec(secret string) (*JWTSessionCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("session signing secret must be at least 16 bytes")
	}
	return &JWTSessionCodec{secret: []byte(secret)}, nil
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

func (c *JWTSessionCodec) Mint(sessionID, userID string, expiresAt time.Time) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sessionID,
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

func (c *JWTSessionCodec) Parse(token string) (string, string, error) {
	claims := &sessionClaims{}
	tkn, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrTokenInvalid
		}
		return c.secret, nil
	})
	switch {
	case err == nil && tkn.Valid:
		return claims.ID, claims.Subject, nil
	case errors.Is(err, jwt.ErrTokenExpired):
		// ids still usable so the caller can deactivate the session row
		return claims.ID, claims.Subject, domain.ErrSessionExpired
	default:
		return "", "", domain.ErrTokenInvalid
	}
}

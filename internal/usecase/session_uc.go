package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/adapter"
	"bookshop-access/internal/domain/ports/repository"
	"bookshop-access/internal/infra/metrics"
)

// Compile-time check
var _ SessionUseCase = (*sessionUC)(nil)

// SessionUseCase registers and validates login sessions.
//
// Mismatch policy: a device-signature mismatch always forces logout
// (isValid=false, suspicious=true, shouldLogout=true). The warn-only
// variant is deliberately not offered; callers that want a gentler UX should
// send the user through a fresh login instead of trusting a mismatched session.
type SessionUseCase interface {
	Create(ctx context.Context, userID, deviceFingerprint, userAgent string) (token string, s *model.Session, err error)
	// Validate re-checks the presented device signature against the one
	// captured at creation. Without force, a positive verdict is served from
	// cache for the revalidation interval.
	Validate(ctx context.Context, userID, token, userAgent, deviceFingerprint string, force bool) (*model.ValidationVerdict, error)
	Logout(ctx context.Context, token string) error
	CleanupExpired(ctx context.Context) (int, error)
}

type sessionUC struct {
	sessions repository.SessionRepository
	verdicts repository.SessionVerdictCache
	codec    adapter.SessionTokenCodec
	audit    AuditUseCase
	ttl      time.Duration
	log      *zerolog.Logger
}

func NewSessionUseCase(
	sessions repository.SessionRepository,
	verdicts repository.SessionVerdictCache,
	codec adapter.SessionTokenCodec,
	audit AuditUseCase,
	ttl time.Duration,
	logger *zerolog.Logger,
) *sessionUC {
	if ttl <= 0 {
		ttl = model.DefaultSessionTTL
	}
	l := logger.With().Str("component", "SessionUC").Logger()
	return &sessionUC{sessions: sessions, verdicts: verdicts, codec: codec, audit: audit, ttl: ttl, log: &l}
}

func (u *sessionUC) Create(ctx context.Context, userID, deviceFingerprint, userAgent string) (string, *model.Session, error) {
	if userID == "" || userAgent == "" {
		return "", nil, domain.ErrInvalidArgument
	}
	now := time.Now()
	s := &model.Session{
		ID:                uuid.NewString(),
		UserID:            userID,
		DeviceFingerprint: deviceFingerprint,
		UserAgent:         userAgent,
		CreatedAt:         now,
		ExpiresAt:         now.Add(u.ttl),
		LastActiveAt:      now,
		IsActive:          true,
	}
	if err := u.sessions.Save(ctx, nil, s); err != nil {
		return "", nil, err
	}
	token, err := u.codec.Mint(s.ID, userID, s.ExpiresAt)
	if err != nil {
		return "", nil, err
	}
	u.audit.Record(ctx, model.AuditSessionCreated, "session:"+s.ID, userID, map[string]interface{}{
		"user_agent": userAgent,
	})
	return token, s, nil
}

func (u *sessionUC) Validate(ctx context.Context, userID, token, userAgent, deviceFingerprint string, force bool) (*model.ValidationVerdict, error) {
	sessionID, tokenUserID, err := u.codec.Parse(token)
	if err != nil {
		if errors.Is(err, domain.ErrSessionExpired) && sessionID != "" {
			u.expireSession(ctx, sessionID, tokenUserID)
			metrics.IncSessionValidation("expired")
			return &model.ValidationVerdict{ShouldLogout: true, Reason: "session expired"}, nil
		}
		metrics.IncSessionValidation("unknown_token")
		return &model.ValidationVerdict{ShouldLogout: true, Reason: "unknown token"}, nil
	}
	if tokenUserID != userID {
		// A token minted for someone else is as unknown as a garbage one.
		metrics.IncSessionValidation("unknown_token")
		return &model.ValidationVerdict{ShouldLogout: true, Reason: "unknown token"}, nil
	}

	if !force {
		if cached := u.verdicts.Get(ctx, sessionID); cached != nil {
			metrics.IncSessionValidation("cached")
			return cached, nil
		}
	}

	s, err := u.sessions.FindByID(ctx, nil, sessionID)
	if errors.Is(err, domain.ErrNotFound) {
		metrics.IncSessionValidation("unknown_token")
		return &model.ValidationVerdict{ShouldLogout: true, Reason: "unknown session"}, nil
	}
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if !s.IsActive || s.Expired(now) {
		u.expireSession(ctx, s.ID, s.UserID)
		metrics.IncSessionValidation("expired")
		return &model.ValidationVerdict{ShouldLogout: true, Reason: "session expired"}, nil
	}

	if !s.MatchesDevice(userAgent, deviceFingerprint) {
		// Deactivate and audit BEFORE answering: the caller must never act
		// on a suspicious session that is still live server-side.
		if err := u.sessions.Deactivate(ctx, nil, s.ID); err != nil {
			u.log.Error().Err(err).Str("session_id", s.ID).Msg("failed to deactivate suspicious session")
		}
		u.verdicts.Invalidate(ctx, s.ID)
		u.audit.Record(ctx, model.AuditSuspiciousSession, "session:"+s.ID, s.UserID, map[string]interface{}{
			"stored_user_agent":    s.UserAgent,
			"presented_user_agent": userAgent,
			"fingerprint_changed":  deviceFingerprint != "" && deviceFingerprint != s.DeviceFingerprint,
		})
		metrics.IncSessionValidation("suspicious")
		metrics.IncSuspiciousSession()
		u.log.Warn().Str("session_id", s.ID).Str("user_id", s.UserID).Msg("suspicious session detected; forcing logout")
		return &model.ValidationVerdict{Suspicious: true, ShouldLogout: true, Reason: "device signature mismatch"}, nil
	}

	if err := u.sessions.TouchLastActive(ctx, nil, s.ID, now); err != nil {
		u.log.Warn().Err(err).Str("session_id", s.ID).Msg("failed to touch session")
	}
	verdict := &model.ValidationVerdict{IsValid: true}
	u.verdicts.Put(ctx, s.ID, verdict)
	metrics.IncSessionValidation("valid")
	return verdict, nil
}

func (u *sessionUC) Logout(ctx context.Context, token string) error {
	sessionID, userID, err := u.codec.Parse(token)
	if err != nil && sessionID == "" {
		return domain.ErrTokenInvalid
	}
	if err := u.sessions.Deactivate(ctx, nil, sessionID); err != nil {
		return err
	}
	u.verdicts.Invalidate(ctx, sessionID)
	u.audit.Record(ctx, model.AuditSessionLogout, "session:"+sessionID, userID, nil)
	return nil
}

func (u *sessionUC) CleanupExpired(ctx context.Context) (int, error) {
	n, err := u.sessions.DeactivateExpired(ctx, nil, time.Now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		metrics.AddSessionsExpired(n)
	}
	return n, nil
}

func (u *sessionUC) expireSession(ctx context.Context, sessionID, userID string) {
	if err := u.sessions.Deactivate(ctx, nil, sessionID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		u.log.Warn().Err(err).Str("session_id", sessionID).Msg("failed to deactivate expired session")
	}
	u.verdicts.Invalidate(ctx, sessionID)
	u.audit.Record(ctx, model.AuditSessionExpired, "session:"+sessionID, userID, nil)
}

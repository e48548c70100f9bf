//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/infra/security"
	"bookshop-access/internal/usecase"
)

const (
	testUserAgent   = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7)"
	testFingerprint = "fp-abc123"
)

type sessionFixture struct {
	sessions *MockSessionRepo
	verdicts *MockVerdictCache
	audit    *MockAuditRepo
	codec    *security.JWTSessionCodec
	uc       usecase.SessionUseCase
}

func newSessionFixture(t *testing.T, ttl time.Duration) *sessionFixture {
	t.Helper()
	log := newTestLogger()
	codec, err := security.NewJWTSessionCodec("unit-test-signing-secret")
	if err != nil {
		t.Fatalf("NewJWTSessionCodec() failed: %v", err)
	}
	sessions := NewMockSessionRepo()
	verdicts := NewMockVerdictCache()
	audit := NewMockAuditRepo()
	auditUC := usecase.NewAuditUseCase(audit, nil, log)
	uc := usecase.NewSessionUseCase(sessions, verdicts, codec, auditUC, ttl, log)
	return &sessionFixture{sessions: sessions, verdicts: verdicts, audit: audit, codec: codec, uc: uc}
}

func TestSessionUC_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("binds the session to the presenting device", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)

		// --- Act ---
		token, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if token == "" {
			t.Fatal("expected a minted token")
		}
		stored := f.sessions.Get(s.ID)
		if stored == nil || !stored.IsActive {
			t.Fatalf("session not persisted active: %+v", stored)
		}
		if stored.UserAgent != testUserAgent || stored.DeviceFingerprint != testFingerprint {
			t.Errorf("device signature not captured: %+v", stored)
		}
		sessionID, userID, err := f.codec.Parse(token)
		if err != nil || sessionID != s.ID || userID != "user-1" {
			t.Errorf("token round-trip: id=%s user=%s err=%v", sessionID, userID, err)
		}
		if !auditContains(f.audit, model.AuditSessionCreated) {
			t.Errorf("registration must be audited, got %v", f.audit.Actions())
		}
	})

	t.Run("requires a user agent", func(t *testing.T) {
		f := newSessionFixture(t, time.Hour)
		if _, _, err := f.uc.Create(ctx, "user-1", testFingerprint, ""); !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("empty user agent: got %v", err)
		}
	})
}

func TestSessionUC_Validate(t *testing.T) {
	ctx := context.Background()

	t.Run("matching device is valid and touches activity", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		before := f.sessions.Get(s.ID).LastActiveAt

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if !v.IsValid || v.Suspicious || v.ShouldLogout {
			t.Errorf("matching device should be valid, got %+v", v)
		}
		if !f.sessions.Get(s.ID).LastActiveAt.After(before) && !f.sessions.Get(s.ID).LastActiveAt.Equal(before) {
			t.Error("validation should touch last activity")
		}
	})

	t.Run("user agent change forces logout and deactivates server-side", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, "curl/8.0", testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if v.IsValid || !v.Suspicious || !v.ShouldLogout {
			t.Errorf("changed user agent must force logout, got %+v", v)
		}
		if f.sessions.Get(s.ID).IsActive {
			t.Error("suspicious session must be deactivated server-side")
		}
		if !auditContains(f.audit, model.AuditSuspiciousSession) {
			t.Errorf("expected a %s audit event, got %v", model.AuditSuspiciousSession, f.audit.Actions())
		}
	})

	t.Run("fingerprint change forces logout even with the same user agent", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, _, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, "fp-other", false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if !v.Suspicious || !v.ShouldLogout {
			t.Errorf("changed fingerprint must be suspicious, got %+v", v)
		}
	})

	t.Run("missing fingerprint is tolerated when the agent matches", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, _, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, "", false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if !v.IsValid {
			t.Errorf("absent fingerprint should not trip the check, got %+v", v)
		}
	})

	t.Run("repeat validation within the interval is served from cache", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, _, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if _, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false); err != nil {
			t.Fatalf("first Validate() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("second Validate() failed: %v", err)
		}
		if !v.IsValid || !v.Cached {
			t.Errorf("second check should hit the verdict cache, got %+v", v)
		}
		if f.verdicts.Hits != 1 {
			t.Errorf("cache hits = %d, want 1", f.verdicts.Hits)
		}
	})

	t.Run("force bypasses the cached verdict", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if _, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false); err != nil {
			t.Fatalf("priming Validate() failed: %v", err)
		}
		// deactivate behind the cache's back; only force sees it
		if err := f.sessions.Deactivate(ctx, nil, s.ID); err != nil {
			t.Fatalf("Deactivate() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, true)

		// --- Assert ---
		if err != nil {
			t.Fatalf("forced Validate() failed: %v", err)
		}
		if v.IsValid || !v.ShouldLogout {
			t.Errorf("force must consult the store and see the dead session, got %+v", v)
		}
	})

	t.Run("token for another user is treated as unknown", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, _, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-2", token, testUserAgent, testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if v.IsValid || !v.ShouldLogout {
			t.Errorf("someone else's token must not validate, got %+v", v)
		}
	})

	t.Run("garbage token yields a logout verdict, not an error", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", "not-a-jwt", testUserAgent, testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if v.IsValid || !v.ShouldLogout {
			t.Errorf("garbage token should force logout, got %+v", v)
		}
	})

	t.Run("expired token deactivates its session", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		_, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		expired, err := f.codec.Mint(s.ID, "user-1", time.Now().Add(-time.Minute))
		if err != nil {
			t.Fatalf("Mint() failed: %v", err)
		}

		// --- Act ---
		v, err := f.uc.Validate(ctx, "user-1", expired, testUserAgent, testFingerprint, false)

		// --- Assert ---
		if err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}
		if v.IsValid || !v.ShouldLogout {
			t.Errorf("expired token should force logout, got %+v", v)
		}
		if f.sessions.Get(s.ID).IsActive {
			t.Error("expired token must deactivate the session row")
		}
		if !auditContains(f.audit, model.AuditSessionExpired) {
			t.Errorf("expiry must be audited, got %v", f.audit.Actions())
		}
	})
}

func TestSessionUC_Logout(t *testing.T) {
	ctx := context.Background()

	t.Run("deactivates the session and drops the cached verdict", func(t *testing.T) {
		// --- Arrange ---
		f := newSessionFixture(t, time.Hour)
		token, s, err := f.uc.Create(ctx, "user-1", testFingerprint, testUserAgent)
		if err != nil {
			t.Fatalf("Create() failed: %v", err)
		}
		if _, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false); err != nil {
			t.Fatalf("Validate() failed: %v", err)
		}

		// --- Act ---
		if err := f.uc.Logout(ctx, token); err != nil {
			t.Fatalf("Logout() failed: %v", err)
		}

		// --- Assert ---
		if f.sessions.Get(s.ID).IsActive {
			t.Error("logout must deactivate the session")
		}
		v, err := f.uc.Validate(ctx, "user-1", token, testUserAgent, testFingerprint, false)
		if err != nil {
			t.Fatalf("post-logout Validate() failed: %v", err)
		}
		if v.IsValid || v.Cached {
			t.Errorf("post-logout validation must not pass or hit cache, got %+v", v)
		}
		if !auditContains(f.audit, model.AuditSessionLogout) {
			t.Errorf("logout must be audited, got %v", f.audit.Actions())
		}
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		f := newSessionFixture(t, time.Hour)
		if err := f.uc.Logout(ctx, "junk"); !errors.Is(err, domain.ErrTokenInvalid) {
			t.Errorf("got %v, want ErrTokenInvalid", err)
		}
	})
}

func TestSessionUC_CleanupExpired(t *testing.T) {
	// --- Arrange ---
	ctx := context.Background()
	f := newSessionFixture(t, time.Hour)
	now := time.Now()
	live := &model.Session{ID: "live", UserID: "u1", UserAgent: testUserAgent, ExpiresAt: now.Add(time.Hour), IsActive: true}
	dead := &model.Session{ID: "dead", UserID: "u2", UserAgent: testUserAgent, ExpiresAt: now.Add(-time.Hour), IsActive: true}
	for _, s := range []*model.Session{live, dead} {
		if err := f.sessions.Save(ctx, nil, s); err != nil {
			t.Fatalf("seed Save() failed: %v", err)
		}
	}

	// --- Act ---
	n, err := f.uc.CleanupExpired(ctx)

	// --- Assert ---
	if err != nil {
		t.Fatalf("CleanupExpired() failed: %v", err)
	}
	if n != 1 {
		t.Errorf("swept %d sessions, want 1", n)
	}
	if !f.sessions.Get("live").IsActive || f.sessions.Get("dead").IsActive {
		t.Error("sweep must deactivate only expired sessions")
	}
}

package web

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"bookshop-access/internal/infra/redis"
	"bookshop-access/internal/usecase"
)

// Limiter is the throttle consulted before a verification attempt is let
// through. Satisfied by redis.RateLimiter.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

type Server struct {
	verifyUC  usecase.VerificationUseCase
	entUC     usecase.EntitlementUseCase
	sessionUC usecase.SessionUseCase
	auditUC   usecase.AuditUseCase

	limiter     Limiter
	verifyLimit int
	apiKey      string
	log         *zerolog.Logger
}

func NewServer(
	verifyUC usecase.VerificationUseCase,
	entUC usecase.EntitlementUseCase,
	sessionUC usecase.SessionUseCase,
	auditUC usecase.AuditUseCase,
	limiter Limiter,
	verifyLimit int,
	apiKey string,
	logger *zerolog.Logger,
) *Server {
	if verifyLimit <= 0 {
		verifyLimit = 10
	}
	l := logger.With().Str("component", "web").Logger()
	return &Server{
		verifyUC:    verifyUC,
		entUC:       entUC,
		sessionUC:   sessionUC,
		auditUC:     auditUC,
		limiter:     limiter,
		verifyLimit: verifyLimit,
		apiKey:      apiKey,
		log:         &l,
	}
}

// Router builds the full route tree. Admin routes sit behind bearer auth;
// everything shares the request id, logging, recover and timeout chain.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(RequestID())
	r.Use(RequestLog(s.log))
	r.Use(Recover(s.log))
	r.Use(Timeout(30 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/payments/verify", s.rateLimited(paymentVerifyHandler(s.verifyUC)))
		r.Get("/entitlements/{userID}/{service}", entitlementCheckHandler(s.entUC))
		r.Get("/entitlements/{userID}", entitlementListHandler(s.entUC))

		r.Post("/sessions", sessionCreateHandler(s.sessionUC))
		r.Post("/sessions/validate", sessionValidateHandler(s.sessionUC))
		r.Post("/sessions/logout", sessionLogoutHandler(s.sessionUC))

		r.Route("/admin", func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Post("/payments/confirm", manualConfirmHandler(s.verifyUC))
			r.Get("/stats/revenue", revenueHandler(s.verifyUC))
			r.Get("/audit/{userID}", auditListHandler(s.auditUC))
		})
	})

	return r
}

// rateLimited throttles per-user verification attempts so the endpoint
// cannot be used to enumerate provider transaction ids.
func (s *Server) rateLimited(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.limiter == nil {
			next(w, r)
			return
		}
		userID := r.Header.Get("X-User-ID")
		if userID == "" {
			userID = r.RemoteAddr
		}
		ok, err := s.limiter.Allow(r.Context(), redis.VerifyAttemptKey(userID), s.verifyLimit, time.Minute)
		if err != nil {
			// a broken limiter must not take payments down with it
			s.log.Warn().Err(err).Msg("rate limiter unavailable, letting request through")
			next(w, r)
			return
		}
		if !ok {
			http.Error(w, "Too many verification attempts", http.StatusTooManyRequests)
			return
		}
		next(w, r)
	}
}

// authMiddleware provides simple Bearer token authentication for the admin API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.apiKey == "" {
			s.log.Error().Msg("admin API key is not configured")
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		tokenParts := strings.Split(authHeader, " ")
		if len(tokenParts) != 2 || strings.ToLower(tokenParts[0]) != "bearer" {
			http.Error(w, "Unauthorized: Malformed token", http.StatusUnauthorized)
			return
		}

		if tokenParts[1] != s.apiKey {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}

		next.ServeHTTP(w, r)
	})
}

package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/usecase"
)

// A struct to define the expected JSON request body for verifying a payment.
type verifyRequest struct {
	UserID        string `json:"user_id"`
	TransactionID string `json:"transaction_id"`
	Service       string `json:"service"`
	// ExpectedAmount is the price the client believes it paid; when present
	// the provider-reported amount must agree within a cent.
	ExpectedAmount *float64 `json:"expected_amount,omitempty"`
}

// Handler for verifying a claimed purchase against the provider.
func paymentVerifyHandler(verifyUC usecase.VerificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req verifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		res, err := verifyUC.Verify(ctx, req.UserID, req.TransactionID, req.Service, req.ExpectedAmount)
		if err != nil {
			writeVerifyError(w, err)
			return
		}

		response := struct {
			Verified    bool        `json:"verified"`
			Duplicate   bool        `json:"duplicate"`
			Payment     interface{} `json:"payment"`
			Entitlement interface{} `json:"entitlement,omitempty"`
		}{
			Verified:    true,
			Duplicate:   res.Duplicate,
			Payment:     res.Payment,
			Entitlement: res.Entitlement,
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

// writeVerifyError maps verification failures to HTTP statuses. Client
// mistakes are 4xx; the provider or the store being down is 503 so callers
// know to retry rather than treat the purchase as rejected.
func writeVerifyError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		http.Error(w, "Invalid verification request", http.StatusBadRequest)
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "Transaction not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		http.Error(w, "Payment not completed", http.StatusPaymentRequired)
	case errors.Is(err, domain.ErrAmountMismatch):
		http.Error(w, "Payment amount mismatch, flagged for review", http.StatusConflict)
	case errors.Is(err, domain.ErrProviderUnavailable), errors.Is(err, domain.ErrStoreUnavailable):
		http.Error(w, "Verification temporarily unavailable", http.StatusServiceUnavailable)
	case errors.Is(err, domain.ErrManualConfirmDisabled):
		http.Error(w, "Manual confirmation is disabled", http.StatusForbidden)
	default:
		http.Error(w, "Verification failed", http.StatusInternalServerError)
	}
}

// entitlementCheckHandler reports whether a user currently has access to a
// service. Absence of an entitlement is a 200 with has_access=false, not 404.
func entitlementCheckHandler(entUC usecase.EntitlementUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := chi.URLParam(r, "userID")
		service := chi.URLParam(r, "service")
		if userID == "" || service == "" {
			http.Error(w, "User ID and service are required", http.StatusBadRequest)
			return
		}

		status, err := entUC.Check(ctx, userID, service)
		if err != nil {
			http.Error(w, "Failed to check entitlement", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(status)
	}
}

func entitlementListHandler(entUC usecase.EntitlementUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := chi.URLParam(r, "userID")
		if userID == "" {
			http.Error(w, "User ID is required", http.StatusBadRequest)
			return
		}

		ents, err := entUC.ListByUser(ctx, userID)
		if err != nil {
			http.Error(w, "Failed to list entitlements", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data interface{} `json:"data"`
		}{Data: ents}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

type sessionCreateRequest struct {
	UserID            string `json:"user_id"`
	DeviceFingerprint string `json:"device_fingerprint"`
}

// Handler for registering a login session. The user agent is taken from the
// request header, never from the body.
func sessionCreateHandler(sessionUC usecase.SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sessionCreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		token, s, err := sessionUC.Create(ctx, req.UserID, req.DeviceFingerprint, r.UserAgent())
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "User ID and User-Agent are required", http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to create session", http.StatusInternalServerError)
			return
		}

		response := struct {
			Token     string `json:"token"`
			SessionID string `json:"session_id"`
			ExpiresAt string `json:"expires_at"`
		}{
			Token:     token,
			SessionID: s.ID,
			ExpiresAt: s.ExpiresAt.Format("2006-01-02T15:04:05Z07:00"),
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(response)
	}
}

type sessionValidateRequest struct {
	UserID            string `json:"user_id"`
	Token             string `json:"token"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Force             bool   `json:"force"`
}

// sessionValidateHandler answers with a verdict, never a 4xx: a bad token is
// a valid question with a "log out" answer.
func sessionValidateHandler(sessionUC usecase.SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req sessionValidateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		verdict, err := sessionUC.Validate(ctx, req.UserID, req.Token, r.UserAgent(), req.DeviceFingerprint, req.Force)
		if err != nil {
			http.Error(w, "Failed to validate session", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(verdict)
	}
}

func sessionLogoutHandler(sessionUC usecase.SessionUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		if err := sessionUC.Logout(ctx, req.Token); err != nil {
			if errors.Is(err, domain.ErrTokenInvalid) {
				http.Error(w, "Invalid token", http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to log out", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusNoContent)
	}
}

type manualConfirmRequest struct {
	Operator      string  `json:"operator"`
	UserID        string  `json:"user_id"`
	TransactionID string  `json:"transaction_id"`
	Service       string  `json:"service"`
	Amount        float64 `json:"amount"`
}

// Handler for an operator recording a payment the provider could not confirm
// automatically. Admin-only; the record stays marked lower-trust.
func manualConfirmHandler(verifyUC usecase.VerificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req manualConfirmRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}

		res, err := verifyUC.ConfirmManual(ctx, req.Operator, req.UserID, req.TransactionID, req.Service, req.Amount)
		if err != nil {
			writeVerifyError(w, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(res)
	}
}

func revenueHandler(verifyUC usecase.VerificationUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		period := r.URL.Query().Get("period")
		if period == "" {
			period = "month"
		}

		total, err := verifyUC.RevenueByPeriod(ctx, period)
		if err != nil {
			if errors.Is(err, domain.ErrInvalidArgument) {
				http.Error(w, "Period must be week, month or year", http.StatusBadRequest)
				return
			}
			http.Error(w, "Failed to get revenue", http.StatusInternalServerError)
			return
		}

		response := struct {
			Period string  `json:"period"`
			Total  float64 `json:"total"`
		}{Period: period, Total: total}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

func auditListHandler(auditUC usecase.AuditUseCase) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		userID := chi.URLParam(r, "userID")
		if userID == "" {
			http.Error(w, "User ID is required", http.StatusBadRequest)
			return
		}

		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 || limit > 500 {
			limit = 100
		}

		events, err := auditUC.ListByUser(ctx, userID, limit)
		if err != nil {
			http.Error(w, "Failed to list audit events", http.StatusInternalServerError)
			return
		}

		response := struct {
			Data interface{} `json:"data"`
		}{Data: events}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(response)
	}
}

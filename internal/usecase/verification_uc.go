package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
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
var _ VerificationUseCase = (*verificationUC)(nil)

// VerificationResult is returned for both fresh and duplicate verifications.
type VerificationResult struct {
	Payment     *model.PaymentRecord
	Entitlement *model.Entitlement
	// Duplicate is true when the transaction id was already verified; the
	// prior outcome is returned and no second grant happens.
	Duplicate bool
}

type VerificationConfig struct {
	Currency        string
	AllowManual     bool
	AllowTest       bool
	ProviderTimeout time.Duration
}

// VerificationUseCase confirms claimed purchases against the provider before
// any access is granted. Success is only reported after the ledger write
// committed: a provider-confirmed payment that cannot be persisted surfaces
// as ErrStoreUnavailable and grants nothing.
type VerificationUseCase interface {
	Verify(ctx context.Context, userID, transactionID, service string, expectedAmount *float64) (*VerificationResult, error)
	// ConfirmManual records a payment on an operator's say-so when automatic
	// verification is unavailable. The record carries TrustManualOverride and
	// a distinct audit action; it is disabled unless configured on.
	ConfirmManual(ctx context.Context, operator, userID, transactionID, service string, amount float64) (*VerificationResult, error)
	RevenueByPeriod(ctx context.Context, period string) (float64, error)
}

type verificationUC struct {
	payments     repository.PaymentRepository
	entitlements EntitlementUseCase
	provider     adapter.PaymentProvider
	audit        AuditUseCase
	notifier     adapter.Notifier
	cfg          VerificationConfig
	log          *zerolog.Logger
}

func NewVerificationUseCase(
	payments repository.PaymentRepository,
	entitlements EntitlementUseCase,
	provider adapter.PaymentProvider,
	audit AuditUseCase,
	notifier adapter.Notifier,
	cfg VerificationConfig,
	logger *zerolog.Logger,
) *verificationUC {
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	l := logger.With().Str("component", "VerificationUC").Logger()
	return &verificationUC{
		payments:     payments,
		entitlements: entitlements,
		provider:     provider,
		audit:        audit,
		notifier:     notifier,
		cfg:          cfg,
		log:          &l,
	}
}

func (u *verificationUC) Verify(ctx context.Context, userID, transactionID, service string, expectedAmount *float64) (*VerificationResult, error) {
	if userID == "" || transactionID == "" || service == "" {
		return nil, domain.ErrInvalidArgument
	}
	start := time.Now()
	res, err := u.verify(ctx, userID, transactionID, service, expectedAmount)
	result, reason := verifyOutcome(res, err)
	metrics.IncPaymentVerify(result, reason)
	metrics.ObservePaymentVerify(result, time.Since(start).Seconds())
	return res, err
}

func (u *verificationUC) verify(ctx context.Context, userID, transactionID, service string, expectedAmount *float64) (*VerificationResult, error) {
	// Idempotence: a transaction id already verified returns the prior
	// success without touching the provider or the entitlement again.
	var prior *model.PaymentRecord
	if p, err := u.payments.FindByProviderTxID(ctx, nil, transactionID); err == nil {
		if p.Status == model.PaymentStatusSuccess {
			return u.duplicateResult(ctx, p)
		}
		// pending/failed rows fall through and re-verify in place
		prior = p
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if u.cfg.AllowTest && strings.HasPrefix(transactionID, testTxPrefix) {
		return u.recordTestPayment(ctx, userID, transactionID, service, expectedAmount)
	}

	order, err := u.fetchOrder(ctx, transactionID)
	if err != nil {
		u.auditFailure(ctx, userID, transactionID, err, nil)
		return nil, err
	}

	if order.Status != adapter.OrderStatusCompleted {
		// The order existing proves nothing; only "completed" pays.
		err := fmt.Errorf("%w: status %q", domain.ErrPaymentNotCompleted, order.RawStatus)
		u.auditFailure(ctx, userID, transactionID, err, order)
		return nil, err
	}

	if expectedAmount != nil && !model.AmountMatches(*expectedAmount, order.Amount) {
		// Hard failure: never silently grant at an unintended price.
		err := fmt.Errorf("%w: expected %.2f, provider reports %.2f", domain.ErrAmountMismatch, *expectedAmount, order.Amount)
		u.log.Error().
			Str("transaction_id", transactionID).
			Float64("expected", *expectedAmount).
			Float64("reported", order.Amount).
			Msg("amount mismatch requires manual review")
		u.auditFailure(ctx, userID, transactionID, err, order)
		return nil, err
	}

	now := time.Now()
	if prior != nil && prior.Status == model.PaymentStatusPending {
		// A checkout we already knew about: flip the existing row rather
		// than racing our own pending record on the unique constraint.
		return u.promotePending(ctx, prior, order, now)
	}

	rec := &model.PaymentRecord{
		ID:                    uuid.NewString(),
		ProviderTransactionID: transactionID,
		UserID:                userID,
		Amount:                order.Amount, // provider-reported, never client-supplied
		Currency:              order.Currency,
		Status:                model.PaymentStatusSuccess,
		PayerEmail:            order.PayerEmail,
		PayerID:               order.PayerID,
		ServiceType:           service,
		VerifiedWithProvider:  true,
		TrustLevel:            model.TrustProviderVerified,
		VerifiedAt:            &now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	return u.recordAndGrant(ctx, rec, model.AuditPaymentVerified)
}

// testTxPrefix marks sandbox checkouts that skip provider verification.
// The path is dead unless payment.allow_test_mode is on, which config
// restricts to -dev.
const testTxPrefix = "TEST-"

// recordTestPayment records a sandbox checkout without consulting the
// provider. The record carries TrustTestMode so it is never mistaken for
// real revenue, and the caller must state the amount since there is no
// provider to report one.
func (u *verificationUC) recordTestPayment(ctx context.Context, userID, transactionID, service string, expectedAmount *float64) (*VerificationResult, error) {
	if expectedAmount == nil || *expectedAmount <= 0 {
		return nil, fmt.Errorf("%w: test-mode verification requires an expected amount", domain.ErrInvalidArgument)
	}
	now := time.Now()
	rec := &model.PaymentRecord{
		ID:                    uuid.NewString(),
		ProviderTransactionID: transactionID,
		UserID:                userID,
		Amount:                *expectedAmount,
		Currency:              u.cfg.Currency,
		Status:                model.PaymentStatusSuccess,
		ServiceType:           service,
		VerifiedWithProvider:  false,
		TrustLevel:            model.TrustTestMode,
		VerifiedAt:            &now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	u.log.Warn().
		Str("transaction_id", transactionID).
		Str("user_id", userID).
		Msg("recording test-mode payment (no provider verification)")
	return u.recordAndGrant(ctx, rec, model.AuditTestPaymentRecorded)
}

// promotePending finalizes a known pending record after the provider
// confirmed completion. The status flip is conditional on the row still
// being pending, so two concurrent re-verifications grant only once.
func (u *verificationUC) promotePending(ctx context.Context, prior *model.PaymentRecord, order *adapter.Order, now time.Time) (*VerificationResult, error) {
	updated, err := u.payments.UpdateStatusIfPending(ctx, nil, prior.ID, model.PaymentStatusSuccess, &now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !updated {
		cur, err := u.payments.FindByProviderTxID(ctx, nil, prior.ProviderTransactionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return u.duplicateResult(ctx, cur)
	}

	prior.Status = model.PaymentStatusSuccess
	prior.Amount = order.Amount
	prior.Currency = order.Currency
	prior.PayerEmail = order.PayerEmail
	prior.PayerID = order.PayerID
	prior.VerifiedWithProvider = true
	prior.TrustLevel = model.TrustProviderVerified
	prior.VerifiedAt = &now
	prior.UpdatedAt = now
	metrics.IncPaymentRecorded(string(prior.Status), string(prior.TrustLevel))

	return u.grantAndNotify(ctx, prior, model.AuditPaymentVerified)
}

// recordAndGrant persists the record through the uniqueness-checked insert
// and grants the entitlement exactly once per distinct transaction id.
func (u *verificationUC) recordAndGrant(ctx context.Context, rec *model.PaymentRecord, auditAction string) (*VerificationResult, error) {
	inserted, err := u.payments.Insert(ctx, nil, rec)
	if err != nil {
		// The provider may have confirmed, but the operation is only done
		// once persisted; reporting success here would lose the audit trail.
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !inserted {
		// Lost a race with a concurrent verification of the same id.
		prior, err := u.payments.FindByProviderTxID(ctx, nil, rec.ProviderTransactionID)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
		return u.duplicateResult(ctx, prior)
	}
	metrics.IncPaymentRecorded(string(rec.Status), string(rec.TrustLevel))

	return u.grantAndNotify(ctx, rec, auditAction)
}

// grantAndNotify runs the post-persistence half of a successful
// verification: entitlement grant, audit trail, purchase notification.
func (u *verificationUC) grantAndNotify(ctx context.Context, rec *model.PaymentRecord, auditAction string) (*VerificationResult, error) {
	ent, err := u.entitlements.Grant(ctx, rec.UserID, rec.ServiceType, rec.Amount)
	if err != nil {
		// The ledger row is already committed; a retried Verify detects the
		// missing grant in duplicateResult and repairs it.
		return nil, fmt.Errorf("%w: grant: %v", domain.ErrStoreUnavailable, err)
	}

	u.audit.Record(ctx, auditAction, "payment:"+rec.ProviderTransactionID, rec.UserID, map[string]interface{}{
		"amount":      rec.Amount,
		"currency":    rec.Currency,
		"service":     rec.ServiceType,
		"trust_level": string(rec.TrustLevel),
	})
	if err := u.notifier.PurchaseConfirmed(ctx, rec.UserID, rec.ServiceType, rec.Amount, rec.Currency); err != nil {
		u.log.Warn().Err(err).Str("user_id", rec.UserID).Msg("purchase confirmation notify failed")
	}

	return &VerificationResult{Payment: rec, Entitlement: ent}, nil
}

func (u *verificationUC) ConfirmManual(ctx context.Context, operator, userID, transactionID, service string, amount float64) (*VerificationResult, error) {
	if !u.cfg.AllowManual {
		return nil, domain.ErrManualConfirmDisabled
	}
	if operator == "" || userID == "" || transactionID == "" || service == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	if prior, err := u.payments.FindByProviderTxID(ctx, nil, transactionID); err == nil && prior.Status == model.PaymentStatusSuccess {
		return u.duplicateResult(ctx, prior)
	}

	now := time.Now()
	rec := &model.PaymentRecord{
		ID:                    uuid.NewString(),
		ProviderTransactionID: transactionID,
		UserID:                userID,
		Amount:                amount,
		Currency:              u.cfg.Currency,
		Status:                model.PaymentStatusSuccess,
		ServiceType:           service,
		VerifiedWithProvider:  false,
		TrustLevel:            model.TrustManualOverride,
		VerifiedAt:            &now,
		CreatedAt:             now,
		UpdatedAt:             now,
	}
	u.log.Warn().
		Str("operator", operator).
		Str("transaction_id", transactionID).
		Msg("recording manually confirmed payment (lower trust)")
	res, err := u.recordAndGrant(ctx, rec, model.AuditManualPaymentOverride)
	if err != nil {
		return nil, err
	}
	u.audit.Record(ctx, model.AuditManualPaymentOverride, "payment:"+transactionID, userID, map[string]interface{}{
		"operator": operator,
		"amount":   amount,
	})
	return res, nil
}

func (u *verificationUC) RevenueByPeriod(ctx context.Context, period string) (float64, error) {
	switch period {
	case "week", "month", "year":
	default:
		return 0, domain.ErrInvalidArgument
	}
	return u.payments.SumVerifiedByPeriod(ctx, nil, period)
}

// fetchOrder acquires a provider token and looks the order up, both under
// the configured bound. A timeout is the provider being unavailable, not a
// failure to pay.
func (u *verificationUC) fetchOrder(ctx context.Context, transactionID string) (*adapter.Order, error) {
	cctx, cancel := context.WithTimeout(ctx, u.cfg.ProviderTimeout)
	defer cancel()

	token, err := u.provider.GetAccessToken(cctx)
	if err != nil {
		if cctx.Err() != nil {
			return nil, fmt.Errorf("%w: token: %v", domain.ErrProviderUnavailable, err)
		}
		return nil, err
	}
	order, err := u.provider.GetOrder(cctx, transactionID, token)
	if err != nil {
		if cctx.Err() != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("%w: order: %v", domain.ErrProviderUnavailable, err)
		}
		return nil, err
	}
	return order, nil
}

// duplicateResult replays a prior success. The ledger row is authoritative:
// when it says paid but the grant for that row never landed (insert
// committed, grant failed, caller retried), the grant is repaired here so a
// paid user is never stranded without access.
func (u *verificationUC) duplicateResult(ctx context.Context, prior *model.PaymentRecord) (*VerificationResult, error) {
	res := &VerificationResult{Payment: prior, Duplicate: true}

	ent, err := u.entitlements.Find(ctx, prior.UserID, prior.ServiceType)
	switch {
	case err == nil && !grantMissing(ent, prior):
		res.Entitlement = ent
		return res, nil
	case err != nil && !errors.Is(err, domain.ErrNotFound):
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	u.log.Warn().
		Str("transaction_id", prior.ProviderTransactionID).
		Str("user_id", prior.UserID).
		Msg("paid ledger row without a matching grant, repairing")
	ent, err = u.entitlements.Grant(ctx, prior.UserID, prior.ServiceType, prior.Amount)
	if err != nil {
		return nil, fmt.Errorf("%w: grant: %v", domain.ErrStoreUnavailable, err)
	}
	res.Entitlement = ent
	return res, nil
}

// grantMissing reports whether the entitlement was last touched before the
// payment was verified, meaning the grant for this particular ledger row
// never landed. A lapsed entitlement whose grant did land stays lapsed:
// replaying an old transaction id must not buy new access.
func grantMissing(e *model.Entitlement, p *model.PaymentRecord) bool {
	return p.VerifiedAt != nil && e.UpdatedAt.Before(*p.VerifiedAt)
}

// auditFailure retains the raw provider view for operator reconciliation;
// the caller only ever sees the typed error.
func (u *verificationUC) auditFailure(ctx context.Context, userID, transactionID string, verr error, order *adapter.Order) {
	details := map[string]interface{}{"error": verr.Error()}
	if order != nil {
		details["provider_status"] = order.RawStatus
		details["provider_amount"] = order.Amount
		details["provider_currency"] = order.Currency
	}
	u.audit.Record(ctx, model.AuditPaymentVerifyFailed, "payment:"+transactionID, userID, details)
}

func verifyOutcome(res *VerificationResult, err error) (result, reason string) {
	if err == nil {
		if res != nil && res.Duplicate {
			return "duplicate", ""
		}
		return "ok", ""
	}
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "fail", "not_found"
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		return "fail", "not_completed"
	case errors.Is(err, domain.ErrAmountMismatch):
		return "fail", "amount_mismatch"
	case errors.Is(err, domain.ErrProviderUnavailable):
		return "fail", "provider_unavailable"
	case errors.Is(err, domain.ErrStoreUnavailable):
		return "fail", "store_unavailable"
	default:
		return "fail", "unknown"
	}
}

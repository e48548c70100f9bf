package sched

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
	"bookshop-access/internal/usecase"
)

// PaymentReconciler periodically scans for stale pending payment records and
// retries verification against the provider. This covers checkouts where the
// client never called back or the process crashed mid-verify.
type PaymentReconciler struct {
	verifyUC   usecase.VerificationUseCase
	payments   repository.PaymentRepository
	interval   time.Duration // how often to scan
	staleAfter time.Duration // how old a pending record must be to retry
	log        *zerolog.Logger
}

func NewPaymentReconciler(verifyUC usecase.VerificationUseCase, payments repository.PaymentRepository, interval, staleAfter time.Duration, logger *zerolog.Logger) *PaymentReconciler {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 10 * time.Minute
	}
	l := logger.With().Str("component", "PaymentReconciler").Logger()
	return &PaymentReconciler{verifyUC: verifyUC, payments: payments, interval: interval, staleAfter: staleAfter, log: &l}
}

func (w *PaymentReconciler) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *PaymentReconciler) tick(ctx context.Context) {
	cutoff := time.Now().Add(-w.staleAfter)
	pending, err := w.payments.ListPendingOlderThan(ctx, nil, cutoff, 200)
	if err != nil {
		w.log.Error().Err(err).Msg("list pending payments failed")
		return
	}
	for _, p := range pending {
		_, err := w.verifyUC.Verify(ctx, p.UserID, p.ProviderTransactionID, p.ServiceType, nil)
		switch {
		case err == nil:
			w.log.Info().Str("transaction_id", p.ProviderTransactionID).Msg("stale pending payment reconciled")
		case errors.Is(err, domain.ErrPaymentNotCompleted), errors.Is(err, domain.ErrNotFound):
			// the order will never complete; close the record out
			now := time.Now()
			if _, uerr := w.payments.UpdateStatusIfPending(ctx, nil, p.ID, model.PaymentStatusFailed, &now); uerr != nil {
				w.log.Error().Err(uerr).Str("payment_id", p.ID).Msg("failed to mark payment failed")
			}
		default:
			// provider or store hiccup, try again next tick
			w.log.Warn().Err(err).Str("transaction_id", p.ProviderTransactionID).Msg("reconcile attempt failed")
		}
	}
}

package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/rs/zerolog"

	"bookshop-access/internal/domain"
	"bookshop-access/internal/domain/model"
	"bookshop-access/internal/domain/ports/repository"
)

// Compile-time check
var _ EntitlementUseCase = (*entitlementUC)(nil)

// EntitlementStatus is the gate answer handed to the front end.
type EntitlementStatus struct {
	HasAccess bool      `json:"has_access"`
	ExpiresAt time.Time `json:"expires_at"`
}

type EntitlementUseCase interface {
	// Grant extends (or creates) the user's access window for a service by
	// the tier duration for amount. Extending never shortens the window, so
	// a repeated grant for an already-current entitlement is harmless.
	Grant(ctx context.Context, userID, service string, amount float64) (*model.Entitlement, error)
	// Check is the access gate. It always consults the store directly;
	// server- and client-side caches are hints, never the deciding read.
	Check(ctx context.Context, userID, service string) (*EntitlementStatus, error)
	// Find returns the stored entitlement row, or domain.ErrNotFound when
	// the user was never granted the service.
	Find(ctx context.Context, userID, service string) (*model.Entitlement, error)
	// ListByUser is a display read (account page); it may be served from
	// the advisory listing cache.
	ListByUser(ctx context.Context, userID string) ([]*model.Entitlement, error)
}

type entitlementUC struct {
	entitlements repository.EntitlementRepository // authoritative store, gate and grant reads
	listings     repository.EntitlementRepository // cache-decorated, display reads only
	tm           repository.TransactionManager
	audit        AuditUseCase
	log          *zerolog.Logger
}

func NewEntitlementUseCase(entitlements, listings repository.EntitlementRepository, tm repository.TransactionManager, audit AuditUseCase, logger *zerolog.Logger) *entitlementUC {
	l := logger.With().Str("component", "EntitlementUC").Logger()
	return &entitlementUC{entitlements: entitlements, listings: listings, tm: tm, audit: audit, log: &l}
}

func (u *entitlementUC) Grant(ctx context.Context, userID, service string, amount float64) (*model.Entitlement, error) {
	if userID == "" || service == "" || amount <= 0 {
		return nil, domain.ErrInvalidArgument
	}

	var out *model.Entitlement
	err := u.tm.WithTx(ctx, pgx.TxOptions{}, func(ctx context.Context, tx repository.Tx) error {
		now := time.Now()
		e, err := u.entitlements.FindByUserAndService(ctx, tx, userID, service)
		switch {
		case err == nil:
			e.Extend(now, amount)
		case errors.Is(err, domain.ErrNotFound):
			e = model.NewEntitlement(uuid.NewString(), userID, service, amount, now)
		default:
			return err
		}
		if err := u.entitlements.Save(ctx, tx, e); err != nil {
			return err
		}
		out = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	u.audit.Record(ctx, model.AuditEntitlementGranted, "entitlement:"+service, userID, map[string]interface{}{
		"amount":     amount,
		"expires_at": out.ExpiresAt,
	})
	u.log.Info().Str("user_id", userID).Str("service", service).Time("expires_at", out.ExpiresAt).Msg("entitlement granted")
	return out, nil
}

func (u *entitlementUC) Check(ctx context.Context, userID, service string) (*EntitlementStatus, error) {
	e, err := u.entitlements.FindByUserAndService(ctx, nil, userID, service)
	if errors.Is(err, domain.ErrNotFound) {
		return &EntitlementStatus{HasAccess: false}, nil
	}
	if err != nil {
		return nil, err
	}
	return &EntitlementStatus{HasAccess: e.HasAccess(time.Now()), ExpiresAt: e.ExpiresAt}, nil
}

func (u *entitlementUC) Find(ctx context.Context, userID, service string) (*model.Entitlement, error) {
	return u.entitlements.FindByUserAndService(ctx, nil, userID, service)
}

func (u *entitlementUC) ListByUser(ctx context.Context, userID string) ([]*model.Entitlement, error) {
	return u.listings.ListByUser(ctx, nil, userID)
}

package notify

import (
	"context"

	"github.com/rs/zerolog"

	"bookshop-access/internal/domain/ports/adapter"
)

var _ adapter.Notifier = (*LogNotifier)(nil)

// LogNotifier stands in for the email subsystem boundary: it records the
// notification intent and hands off. The caller treats it as fire-and-forget
// either way; a failed send never rolls back a grant.
type LogNotifier struct {
	log *zerolog.Logger
}

func NewLogNotifier(logger *zerolog.Logger) *LogNotifier {
	l := logger.With().Str("component", "Notifier").Logger()
	return &LogNotifier{log: &l}
}

func (n *LogNotifier) PurchaseConfirmed(ctx context.Context, userID, service string, amount float64, currency string) error {
	n.log.Info().
		Str("user_id", userID).
		Str("service", service).
		Float64("amount", amount).
		Str("currency", currency).
		Msg("purchase confirmation requested")
	return nil
}

var _ adapter.Notifier = (*NoopNotifier)(nil)

// NoopNotifier is for tests.
type NoopNotifier struct{}

func (NoopNotifier) PurchaseConfirmed(ctx context.Context, userID, service string, amount float64, currency string) error {
	return nil
}

package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"bookshop-access/internal/usecase"
)

// SessionSweeper periodically deactivates sessions past their expiry so a
// dead session never lingers active in the store.
type SessionSweeper struct {
	interval  time.Duration
	sessionUC usecase.SessionUseCase
	log       *zerolog.Logger
}

func NewSessionSweeper(interval time.Duration, sessionUC usecase.SessionUseCase, logger *zerolog.Logger) *SessionSweeper {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	l := logger.With().Str("component", "SessionSweeper").Logger()
	return &SessionSweeper{interval: interval, sessionUC: sessionUC, log: &l}
}

func (w *SessionSweeper) Run(ctx context.Context) error {
	w.log.Info().Msg("Starting session sweeper")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping session sweeper")
			return ctx.Err()
		case <-ticker.C:
			n, err := w.sessionUC.CleanupExpired(ctx)
			if err != nil {
				w.log.Error().Err(err).Msg("session sweep error")
			}
			if n > 0 {
				w.log.Info().Int("count", n).Msg("expired sessions deactivated")
			}
		}
	}
}

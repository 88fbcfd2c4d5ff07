package worker

// sweeper.go
// Background goroutine that periodically releases expired stock reservations.
// Expiry is declarative (expires_at on the row); this cron plus the passive
// liveness check at read time are the only actors enforcing it — there is no
// per-reservation timer.

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// ExpiredSweeper is implemented by the reservation service.
type ExpiredSweeper interface {
	SweepExpired(ctx context.Context) (int, error)
}

// StartSweeper launches a background goroutine that ticks at the given
// interval and releases expired reservations. Safe to run alongside other
// instances: each reservation row is only ever released once because
// deletion is the completion signal. Respects the context for graceful
// shutdown.
func StartSweeper(ctx context.Context, sweeper ExpiredSweeper, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		log.Info().Dur("interval", interval).Msg("reservation sweeper: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("reservation sweeper: shutting down")
				return
			case <-ticker.C:
				released, err := sweeper.SweepExpired(ctx)
				if err != nil {
					log.Error().Err(err).Msg("reservation sweeper: sweep failed")
					continue
				}
				if released > 0 {
					log.Info().Int("released", released).Msg("reservation sweeper: expired holds released")
				}
			}
		}
	}()
}

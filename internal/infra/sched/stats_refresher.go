package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"gym-membership/internal/usecase"
)

// StatsRefresher periodically recomputes the subscription gauges and runs
// any extra probes (e.g. connection pool stats). It only reads; expiry is
// derived at read time and never written back.
type StatsRefresher struct {
	interval time.Duration
	statsUC  usecase.StatsUseCase
	probes   []func()
	log      *zerolog.Logger
}

func NewStatsRefresher(interval time.Duration, statsUC usecase.StatsUseCase, logger *zerolog.Logger, probes ...func()) *StatsRefresher {
	if interval <= 0 {
		interval = time.Minute
	}
	compLog := logger.With().Str("component", "StatsRefresher").Logger()
	return &StatsRefresher{
		interval: interval,
		statsUC:  statsUC,
		probes:   probes,
		log:      &compLog,
	}
}

func (w *StatsRefresher) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting stats refresher")
	// Run once on startup, then on every tick
	w.refresh(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping stats refresher")
			return ctx.Err()
		case <-ticker.C:
			w.refresh(ctx)
		}
	}
}

func (w *StatsRefresher) refresh(ctx context.Context) {
	if err := w.statsUC.RefreshGauges(ctx); err != nil {
		w.log.Error().Err(err).Msg("gauge refresh failed")
	}
	for _, probe := range w.probes {
		probe()
	}
}

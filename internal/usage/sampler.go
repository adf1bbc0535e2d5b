package usage

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

// DefaultSampleInterval is the default foreground sampling cadence
const DefaultSampleInterval = 5 * time.Second

// Sampler drives an Accumulator on a fixed cadence.
type Sampler struct {
	acc      *Accumulator
	clock    clockwork.Clock
	interval time.Duration
	logger   zerolog.Logger
}

// NewSampler creates a sampler ticking every interval
func NewSampler(acc *Accumulator, clock clockwork.Clock, interval time.Duration, logger zerolog.Logger) *Sampler {
	if interval <= 0 {
		interval = DefaultSampleInterval
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Sampler{
		acc:      acc,
		clock:    clock,
		interval: interval,
		logger:   logger.With().Str("component", "sampler").Logger(),
	}
}

// Run samples until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	ticker := s.clock.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info().Dur("interval", s.interval).Msg("Foreground sampler started")
	defer s.logger.Info().Msg("Foreground sampler stopped")

	degraded := false
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			result := s.acc.Sample(ctx)

			// Log transitions only, a missing display would otherwise log every tick
			switch {
			case result.Degraded && !degraded:
				s.logger.Warn().Str("error", result.Error).Msg("Foreground detection unavailable, keeping last known applications")
			case !result.Degraded && degraded:
				s.logger.Info().Msg("Foreground detection recovered")
			}
			degraded = result.Degraded
		}
	}
}

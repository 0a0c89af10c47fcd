package service

import (
	"context"
	"sync"
	"time"

	"github.com/journal-submission-api/internal/metrics"
	"github.com/journal-submission-api/internal/repository"
	"github.com/rs/zerolog"
)

// SweepResult reports what one housekeeping pass changed
type SweepResult struct {
	Expired int64 `json:"expired"`
	Reset   int64 `json:"reset"`
}

// sweeper expires lapsed subscriptions and resets monthly usage counters
type sweeper struct {
	billing  repository.BillingRepository
	interval time.Duration
	metrics  *metrics.Metrics
	now      func() time.Time
	log      zerolog.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func newSweeper(billing repository.BillingRepository, interval time.Duration, deps Deps, log zerolog.Logger) *sweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &sweeper{
		billing:  billing,
		interval: interval,
		metrics:  deps.Metrics,
		now:      deps.Clock,
		log:      log.With().Str("service", "sweeper").Logger(),
	}
}

// StartProcessor runs a sweep immediately and then on every tick until
// StopProcessor is called or ctx ends. It blocks.
func (s *sweeper) StartProcessor(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	done := s.done
	s.mu.Unlock()

	defer close(done)

	s.log.Info().Dur("interval", s.interval).Msg("Subscription sweeper started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.sweepLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			s.log.Info().Msg("Subscription sweeper stopping")
			return
		case <-ticker.C:
			s.sweepLogged(ctx)
		}
	}
}

// StopProcessor stops the background loop and waits for it to exit
func (s *sweeper) StopProcessor() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.cancel()
	done := s.done
	s.running = false
	s.mu.Unlock()

	<-done
	s.log.Info().Msg("Subscription sweeper stopped")
}

func (s *sweeper) sweepLogged(ctx context.Context) {
	// Panic recovery keeps a bad row from killing the server
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("Subscription sweep panicked - recovered")
		}
	}()

	res, err := s.Sweep(ctx)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Error().Err(err).Msg("Subscription sweep failed")
		}
		return
	}
	if res.Expired > 0 || res.Reset > 0 {
		s.log.Info().Int64("expired", res.Expired).Int64("reset", res.Reset).Msg("Subscription sweep completed")
	}
}

// Sweep performs one housekeeping pass
func (s *sweeper) Sweep(ctx context.Context) (*SweepResult, error) {
	now := s.now()
	expired, err := s.billing.ExpireSubscriptions(ctx, now)
	if err != nil {
		return nil, err
	}
	reset, err := s.billing.ResetMonthlyUsage(ctx, now)
	if err != nil {
		return nil, err
	}
	s.metrics.Swept("expire", expired)
	s.metrics.Swept("reset", reset)
	return &SweepResult{Expired: expired, Reset: reset}, nil
}

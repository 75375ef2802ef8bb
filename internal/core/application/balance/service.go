package balance

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spintrade/orion-broker/internal/core/ports"
	"golang.org/x/time/rate"
)

const opBalance = "balance"

var (
	ErrMissingBalanceSource = fmt.Errorf("missing balance source")
	ErrMissingHub           = fmt.Errorf("missing hub client")
	ErrInvalidRateLimit     = fmt.Errorf("rate limit must be positive")
	ErrInvalidInterval      = fmt.Errorf("push interval must be positive")
)

// Service pushes the broker balances to the hub. Pushes are best-effort and
// throttled so that a burst of triggers can't flood the hub.
type Service struct {
	source  ports.BalanceSource
	hub     ports.Hub
	limiter *rate.Limiter
}

// NewService returns a service allowing at most rateLimit pushes per second.
func NewService(
	source ports.BalanceSource, hub ports.Hub, rateLimit float64,
) (*Service, error) {
	if source == nil {
		return nil, ErrMissingBalanceSource
	}
	if hub == nil {
		return nil, ErrMissingHub
	}
	if rateLimit <= 0 {
		return nil, ErrInvalidRateLimit
	}
	return &Service{
		source:  source,
		hub:     hub,
		limiter: rate.NewLimiter(rate.Limit(rateLimit), 1),
	}, nil
}

// PushBalances reads a fresh snapshot and sends it to the hub. Failures are
// logged and returned for inspection only.
func (s *Service) PushBalances(ctx context.Context) ports.Logged {
	outcome := ports.Logged{Op: opBalance}

	if err := s.limiter.Wait(ctx); err != nil {
		outcome.Err = err
		return outcome
	}

	snapshot, err := s.source.GetBalances(ctx)
	if err != nil {
		log.WithError(err).Warn("failed to read balances")
		outcome.Err = err
		return outcome
	}
	if err := snapshot.Validate(); err != nil {
		log.WithError(err).Warn("skipping invalid balance snapshot")
		outcome.Err = err
		return outcome
	}

	return s.hub.SendBalances(ctx, snapshot)
}

// Start pushes the balances right away and then at every interval until the
// context is canceled.
func (s *Service) Start(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return ErrInvalidInterval
	}

	log.WithField("interval", interval).Debug("balance push loop started")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.PushBalances(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Debug("balance push loop stopped")
			return nil
		case <-ticker.C:
			s.PushBalances(ctx)
		}
	}
}

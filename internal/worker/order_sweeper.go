// Package worker runs background maintenance jobs.
package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// PendingExpirer resolves Pending orders: paid ones are confirmed, stale
// unpaid ones expired.
type PendingExpirer interface {
	ConfirmPaidPending(ctx context.Context) (int64, error)
	ExpireStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

// OrderSweeper periodically confirms Pending orders whose charge is known to
// have succeeded and expires the rest once they stayed Pending longer than
// TTL.
type OrderSweeper struct {
	Orders   PendingExpirer
	Interval time.Duration
	TTL      time.Duration
	Now      func() time.Time
}

// minSweepInterval is used when a non-positive interval is configured.
const minSweepInterval = time.Second

// NewOrderSweeper returns a sweeper with the given interval and TTL.
func NewOrderSweeper(orders PendingExpirer, interval, ttl time.Duration) *OrderSweeper {
	if interval <= 0 {
		interval = minSweepInterval
	}
	return &OrderSweeper{Orders: orders, Interval: interval, TTL: ttl, Now: time.Now}
}

// Run sweeps once immediately and then every Interval until ctx is done.
func (s *OrderSweeper) Run(ctx context.Context) {
	t := time.NewTicker(s.Interval)
	defer t.Stop()
	for {
		s.SweepOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// SweepOnce confirms paid Pending orders, then expires everything unpaid
// created before now-TTL and returns the expired count.
func (s *OrderSweeper) SweepOnce(ctx context.Context) int64 {
	if n, err := s.Orders.ConfirmPaidPending(ctx); err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("order-sweeper: confirm paid orders")
		}
	} else if n > 0 {
		log.Warn().Int64("confirmed", n).Msg("order-sweeper: confirmed paid pending orders")
	}

	cutoff := s.Now().Add(-s.TTL)
	n, err := s.Orders.ExpireStalePending(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			log.Error().Err(err).Msg("order-sweeper: expire stale orders")
		}
		return 0
	}
	if n > 0 {
		log.Info().Int64("expired", n).Time("cutoff", cutoff).Msg("order-sweeper: expired stale pending orders")
	}
	return n
}

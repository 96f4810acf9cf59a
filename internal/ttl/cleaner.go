package ttl

import (
	"context"
	"fmt"
	"time"

	"rul-dashboard/internal/logs"
	"rul-dashboard/internal/metrics"
)

// Store defines the minimal contract required by the TTL cleaner.
type Store interface {
	RemoveExpired(ctx context.Context) (int, error)
}

// Cleaner periodically removes expired trend points from the history.
type Cleaner struct {
	store    Store
	interval time.Duration
	logger   *logs.Logger
	metrics  *metrics.Registry
}

// NewCleaner creates a new instance of TTL Cleaner
func NewCleaner(
	store Store,
	interval time.Duration,
	logger *logs.Logger,
	reg *metrics.Registry,
) *Cleaner {
	return &Cleaner{
		store:    store,
		interval: interval,
		logger:   logger,
		metrics:  reg,
	}
}

// Start runs the cleanup loop until the context is cancelled.
// It blocks and should typically be run in a separate goroutine.
// A non-positive interval disables the loop.
func (c *Cleaner) Start(ctx context.Context) {
	if c.interval <= 0 {
		c.logger.Warn(fmt.Sprintf("ttl cleaner disabled: non-positive interval %s", c.interval))
		return
	}
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.runOnce(ctx)
		case <-ctx.Done():
			c.logger.Debug("ttl cleaner stopped")
			return
		}
	}
}

// runOnce performs a single cleanup cycle
func (c *Cleaner) runOnce(ctx context.Context) {
	c.metrics.Inc(metrics.TTLCleanupRunsTotal)

	removed, err := c.store.RemoveExpired(ctx)
	if removed > 0 {
		c.metrics.Add(metrics.TTLPointsRemovedTotal, int64(removed))
		c.logger.Info(fmt.Sprintf("ttl cleaner removed %d expired history points", removed))
	}
	if err != nil {
		c.logger.Warn("ttl cleanup failed: " + err.Error())
	}
}

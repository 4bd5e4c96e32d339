package ttl

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// runSweeper removes expired entries on every tick until ctx is done.
func (c *Cache) runSweeper(ctx context.Context, ticker *clock.Ticker) {
	defer close(c.done)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-ctx.Done():
			c.logger.Debug("Stopping sweeper due to context cancellation")
			return
		}
	}
}

// Sweep scans every shard once and removes expired entries. Each shard is
// locked only while it is being scanned. It returns the entry count before and
// after the pass.
func (c *Cache) Sweep() (before, after int) {
	before = c.Len()
	now := c.clock.Now()

	for _, s := range c.shards {
		removed := s.removeExpired(now)
		if removed == 0 {
			continue
		}
		c.size.Sub(int64(removed))
		c.stats.Swept.Add(int64(removed))
	}

	after = c.Len()
	c.logger.Debug("vacuum expired keys", zap.Int("before", before), zap.Int("after", after))
	return before, after
}

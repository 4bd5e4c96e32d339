package ttl

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/internal/utils"
)

// View is a read-only look at a live entry.
type View struct {
	Value []byte
	Flag  uint32
}

// Cache is a concurrent key/value map with per-entry expiry.
type Cache struct {
	shards     []*shard
	defaultTTL time.Duration

	clock  clock.Clock
	logger *zap.Logger

	size  *atomic.Int64
	stats *models.Stats

	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a Cache and starts its sweeper. The sweeper runs until ctx is
// cancelled or Close is called; a non-positive cfg.SweepInterval disables it.
func New(ctx context.Context, cfg *config.Config) *Cache {
	shardCount := cfg.ShardCount
	if shardCount == 0 {
		shardCount = 1
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := cfg.Clock
	if clk == nil {
		clk = clock.New()
	}

	c := &Cache{
		shards:     make([]*shard, shardCount),
		defaultTTL: cfg.DefaultExpiration,
		clock:      clk,
		logger:     logger,
		size:       atomic.NewInt64(0),
		stats:      models.NewStats(),
		done:       make(chan struct{}),
	}

	for i := range c.shards {
		c.shards[i] = newShard(
			cfg.BloomFilterSettings.ExpectedItems,
			cfg.BloomFilterSettings.FalsePositiveRate,
		)
	}

	sweepCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	if cfg.SweepInterval > 0 {
		// The ticker is created before the goroutine starts so that a mock
		// clock advanced right after New still fires it.
		ticker := c.clock.Ticker(cfg.SweepInterval)
		go c.runSweeper(sweepCtx, ticker)
	} else {
		close(c.done)
	}

	return c
}

// Get returns the value and flag stored under key if present and not expired.
func (c *Cache) Get(key []byte) (View, bool) {
	s := c.shardFor(key)
	now := c.clock.Now()

	entry, ok := s.lookup(key)
	if !ok {
		c.stats.Misses.Inc()
		return View{}, false
	}

	if entry.IsExpired(now) {
		if s.removeIfExpired(key, now) {
			c.size.Dec()
			c.stats.Expired.Inc()
		}
		c.stats.Misses.Inc()
		return View{}, false
	}

	c.stats.Hits.Inc()
	return View{Value: entry.Value, Flag: entry.Flag}, true
}

// Insert stores value under key using the cache's default TTL. It returns the
// previous value if a live one existed.
func (c *Cache) Insert(key, value []byte, flag uint32) ([]byte, bool) {
	return c.store(key, value, flag, c.defaultTTL)
}

// InsertWithTTL stores value under key, expiring ttlSeconds from now; zero
// means the entry never expires. It returns the previous value if a live one
// existed.
func (c *Cache) InsertWithTTL(key, value []byte, ttlSeconds uint32, flag uint32) ([]byte, bool) {
	return c.store(key, value, flag, time.Duration(ttlSeconds)*time.Second)
}

func (c *Cache) store(key, value []byte, flag uint32, ttl time.Duration) ([]byte, bool) {
	now := c.clock.Now()
	entry := models.NewEntry(value, flag, models.ExpirationFor(now, ttl))

	prev, existed := c.shardFor(key).put(key, entry)
	c.stats.Sets.Inc()

	if !existed {
		c.size.Inc()
		return nil, false
	}
	if prev.IsExpired(now) {
		return nil, false
	}
	return prev.Value, true
}

// Len returns the number of stored entries, including expired entries that
// have not been swept yet.
func (c *Cache) Len() int {
	return int(c.size.Load())
}

// Stats returns a snapshot of the operation counters.
func (c *Cache) Stats() models.StatsSnapshot {
	return c.stats.Snapshot()
}

// Close stops the sweeper and waits for it to exit. It is safe to call more
// than once.
func (c *Cache) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()
		<-c.done
	})
	return nil
}

func (c *Cache) shardFor(key []byte) *shard {
	return c.shards[utils.ShardIndex(uint64(len(c.shards)), key)]
}

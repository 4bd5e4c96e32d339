// Package cinder is an in-memory TTL cache served over the memcached ASCII
// protocol (set, get and version).
package cinder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"goflare.io/cinder/internal/admin"
	"goflare.io/cinder/internal/cache/ttl"
	"goflare.io/cinder/internal/config"
	"goflare.io/cinder/internal/metrics"
	"goflare.io/cinder/internal/models"
	"goflare.io/cinder/internal/server"
)

// Stats 快取操作統計
type Stats = models.StatsSnapshot

// Cinder 定義服務的主要結構體
type Cinder struct {
	cfg    *config.Config
	cache  *ttl.Cache
	sink   *metrics.Prometheus
	server *server.Server
	admin  *admin.Server
	logger *zap.Logger
}

// New 初始化快取與伺服器。快取的後台清理在 ctx 結束或 Close 時停止
func New(ctx context.Context, opts ...Option) (*Cinder, error) {
	cfg, err := config.NewConfig(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create config: %w", err)
	}

	cache := ttl.New(ctx, cfg)
	sink := metrics.NewPrometheus()

	srv, err := server.New(cfg, cache, sink)
	if err != nil {
		_ = cache.Close()
		return nil, fmt.Errorf("failed to initialize server: %w", err)
	}

	c := &Cinder{
		cfg:    cfg,
		cache:  cache,
		sink:   sink,
		server: srv,
		logger: cfg.Logger,
	}
	if cfg.AdminAddr != "" {
		c.admin = admin.New(cfg, cache, sink)
	}
	return c, nil
}

// Run 綁定 ListenAddr 並運行直到 ctx 結束或任一組件失敗
func (c *Cinder) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", c.cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", c.cfg.ListenAddr, err)
	}
	return c.Serve(ctx, ln)
}

// Serve 在 ln 上提供 memcached 協議，同時運行管理端點與大小採樣
func (c *Cinder) Serve(ctx context.Context, ln net.Listener) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		c.logger.Info("Listening for memcached connections", zap.Stringer("addr", ln.Addr()))
		err := c.server.Serve(gctx, ln)
		if errors.Is(err, server.ErrServerClosed) && ctx.Err() != nil {
			return nil
		}
		return err
	})

	if c.admin != nil {
		g.Go(func() error {
			return c.admin.ListenAndServe(gctx)
		})
	}

	g.Go(func() error {
		return metrics.RunSizeSampler(gctx, c.cfg.Clock, c.cfg.SizeSampleInterval, c.cache, c.sink)
	})

	return g.Wait()
}

// Get 讀取未過期的值與 flag
func (c *Cinder) Get(key []byte) ([]byte, uint32, bool) {
	v, ok := c.cache.Get(key)
	return v.Value, v.Flag, ok
}

// Set 寫入值。ttl 為 0 表示永不過期，小於 0 時使用默認過期時間，不足一秒向上取整
func (c *Cinder) Set(key, value []byte, flag uint32, ttl time.Duration) {
	if ttl < 0 {
		c.cache.Insert(key, value, flag)
		return
	}
	seconds := (ttl + time.Second - 1) / time.Second
	if seconds > math.MaxUint32 {
		seconds = math.MaxUint32
	}
	c.cache.InsertWithTTL(key, value, uint32(seconds), flag)
}

// Len 目前的項目數（包含尚未清理的過期項目）
func (c *Cinder) Len() int {
	return c.cache.Len()
}

// Stats 快取操作統計快照
func (c *Cinder) Stats() Stats {
	return c.cache.Stats()
}

// Addr 正在監聽的地址，尚未開始時為 nil
func (c *Cinder) Addr() net.Addr {
	return c.server.Addr()
}

// Close 關閉所有連線並停止後台清理
func (c *Cinder) Close() error {
	return errors.Join(c.server.Close(), c.cache.Close())
}

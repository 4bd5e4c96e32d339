package cinder

import (
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"goflare.io/cinder/internal/config"
)

// Option 定義初始化 Cinder 的選項
type Option = config.Option

// RetryConfig accept 暫時性錯誤的重試策略
type RetryConfig = config.RetryConfig

// WithLogger 設置自定義的日誌記錄器
func WithLogger(logger *zap.Logger) Option {
	return config.WithLogger(logger)
}

// WithClock 設置時鐘
func WithClock(clk clock.Clock) Option {
	return config.WithClock(clk)
}

// WithListenAddr 設置 memcached 監聽地址
func WithListenAddr(addr string) Option {
	return config.WithListenAddr(addr)
}

// WithAdminAddr 設置管理 HTTP 地址，空字串表示關閉
func WithAdminAddr(addr string) Option {
	return config.WithAdminAddr(addr)
}

// WithDefaultExpiration 設置默認的過期時間
func WithDefaultExpiration(ttl time.Duration) Option {
	return config.WithDefaultExpiration(ttl)
}

// WithShardCount 設置分片數量
func WithShardCount(shardCount uint64) Option {
	return config.WithShardCount(shardCount)
}

// WithSweepInterval 設置過期清理間隔
func WithSweepInterval(interval time.Duration) Option {
	return config.WithSweepInterval(interval)
}

// WithSizeSampleInterval 設置 cache_size 採樣間隔
func WithSizeSampleInterval(interval time.Duration) Option {
	return config.WithSizeSampleInterval(interval)
}

// WithFrameLimits 設置連線緩衝區的初始大小與上限（字節）
func WithFrameLimits(initial, max int) Option {
	return config.WithFrameLimits(initial, max)
}

// WithVersion 設置 VERSION 回覆的版本字串
func WithVersion(version string) Option {
	return config.WithVersion(version)
}

// WithBloomFilter 設置每個分片的布隆過濾器
func WithBloomFilter(expectedItems uint, falsePositiveRate float64) Option {
	return config.WithBloomFilter(expectedItems, falsePositiveRate)
}

// WithAcceptRetry 設置 accept 的退避重試
func WithAcceptRetry(retry RetryConfig) Option {
	return config.WithAcceptRetry(retry)
}

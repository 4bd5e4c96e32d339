package config

import (
	"errors"
	"math/bits"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"
)

// Config 用於 cinder 服務的配置
type Config struct {
	ListenAddr        string
	AdminAddr         string
	DefaultExpiration time.Duration
	ShardCount        uint64

	SweepInterval      time.Duration
	SizeSampleInterval time.Duration

	InitialBufferSize int
	MaxFrameSize      int
	Version           string

	BloomFilterSettings BloomFilterConfig
	AcceptRetry         RetryConfig

	Logger *zap.Logger
	Clock  clock.Clock
}

// BloomFilterConfig 每個分片的布隆過濾器配置
type BloomFilterConfig struct {
	ExpectedItems     uint
	FalsePositiveRate float64
}

// RetryConfig 用於 accept 失敗時的退避重試
type RetryConfig struct {
	MaxAttempts int // 0 表示不限次數，只以 MaxDelay 限制等待時間
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Factor      float64
	Jitter      float64
}

// Option 函數類型
type Option func(*Config) error

const (
	defaultListenAddr = "0.0.0.0:6001"
	defaultAdminAddr  = "127.0.0.1:9001"
	defaultVersion    = "0.1.0"

	maxShardCount = 256
)

var (
	ErrShardCountZero     = errors.New("shard count must be at least 1")
	ErrInvalidFrameSize   = errors.New("max frame size must be at least the initial buffer size")
	ErrInvalidBufferSize  = errors.New("initial buffer size must be at least 2 bytes")
	ErrInvalidBloomConfig = errors.New("bloom filter false positive rate must be between 0 and 1")
	ErrEmptyVersion       = errors.New("version string must not be empty")
)

// NewConfig 創建一個默認的 Config，允許覆蓋特定參數
func NewConfig(options ...Option) (*Config, error) {
	defaultLogger, err := zap.NewProduction()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		ListenAddr:         defaultListenAddr,
		AdminAddr:          defaultAdminAddr,
		DefaultExpiration:  time.Hour,
		ShardCount:         CalculateShardCount(runtime.NumCPU()),
		SweepInterval:      10 * time.Second,
		SizeSampleInterval: 5 * time.Second,
		InitialBufferSize:  1024,
		MaxFrameSize:       4096 * 1024,
		Version:            defaultVersion,
		BloomFilterSettings: BloomFilterConfig{
			ExpectedItems:     4096,
			FalsePositiveRate: 0.01,
		},
		AcceptRetry: RetryConfig{
			MaxAttempts: 0,
			BaseDelay:   5 * time.Millisecond,
			MaxDelay:    time.Second,
			Factor:      2,
			Jitter:      0.1,
		},
		Logger: defaultLogger,
		Clock:  clock.New(),
	}

	// 應用所有選項
	for _, option := range options {
		if err := option(cfg); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate 最終檢查
func (c *Config) Validate() error {
	if c.ShardCount == 0 {
		return ErrShardCountZero
	}
	if c.InitialBufferSize < 2 {
		return ErrInvalidBufferSize
	}
	if c.MaxFrameSize < c.InitialBufferSize {
		return ErrInvalidFrameSize
	}
	if r := c.BloomFilterSettings.FalsePositiveRate; r <= 0 || r >= 1 {
		return ErrInvalidBloomConfig
	}
	if c.Version == "" {
		return ErrEmptyVersion
	}
	return nil
}

// WithLogger 設置自定義 Logger
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) error {
		if logger != nil {
			c.Logger = logger
		}
		return nil
	}
}

// WithClock 設置時鐘，測試時注入 clock.NewMock()
func WithClock(clk clock.Clock) Option {
	return func(c *Config) error {
		if clk != nil {
			c.Clock = clk
		}
		return nil
	}
}

// WithListenAddr 設置 memcached 協議監聽地址
func WithListenAddr(addr string) Option {
	return func(c *Config) error {
		if addr == "" {
			return errors.New("listen address must not be empty")
		}
		c.ListenAddr = addr
		return nil
	}
}

// WithAdminAddr 設置管理 HTTP 監聽地址，空字串表示關閉
func WithAdminAddr(addr string) Option {
	return func(c *Config) error {
		c.AdminAddr = addr
		return nil
	}
}

// WithDefaultExpiration 設置默認的過期時間，0 表示永不過期
func WithDefaultExpiration(ttl time.Duration) Option {
	return func(c *Config) error {
		if ttl < 0 {
			return errors.New("default expiration must not be negative")
		}
		c.DefaultExpiration = ttl
		return nil
	}
}

// WithShardCount 設置分片數量
func WithShardCount(count uint64) Option {
	return func(c *Config) error {
		if count == 0 {
			return ErrShardCountZero
		}
		c.ShardCount = count
		return nil
	}
}

// WithSweepInterval 設置過期清理間隔，<= 0 關閉後台清理
func WithSweepInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.SweepInterval = interval
		return nil
	}
}

// WithSizeSampleInterval 設置快取大小採樣間隔
func WithSizeSampleInterval(interval time.Duration) Option {
	return func(c *Config) error {
		c.SizeSampleInterval = interval
		return nil
	}
}

// WithFrameLimits 設置連線緩衝區的初始大小與上限
func WithFrameLimits(initial, max int) Option {
	return func(c *Config) error {
		c.InitialBufferSize = initial
		c.MaxFrameSize = max
		return nil
	}
}

// WithVersion 設置 VERSION 命令回覆的版本字串
func WithVersion(version string) Option {
	return func(c *Config) error {
		c.Version = version
		return nil
	}
}

// WithBloomFilter 設置每個分片的布隆過濾器
func WithBloomFilter(expectedItems uint, falsePositiveRate float64) Option {
	return func(c *Config) error {
		c.BloomFilterSettings = BloomFilterConfig{
			ExpectedItems:     expectedItems,
			FalsePositiveRate: falsePositiveRate,
		}
		return nil
	}
}

// WithAcceptRetry 設置 accept 暫時性錯誤的重試策略
func WithAcceptRetry(retry RetryConfig) Option {
	return func(c *Config) error {
		c.AcceptRetry = retry
		return nil
	}
}

// CalculateShardCount 計算分片數量：CPU 核心數的 4 倍，向上取 2 的冪，不超過 256
func CalculateShardCount(cpuCores int) uint64 {
	if cpuCores < 1 {
		cpuCores = 1
	}

	target := uint64(cpuCores * 4)
	shards := uint64(1) << bits.Len64(target-1)
	if shards > maxShardCount {
		shards = maxShardCount
	}

	return shards
}

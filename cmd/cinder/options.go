package main

import (
	"time"

	"github.com/spf13/viper"

	"goflare.io/cinder"
)

const (
	defaultTTL                = time.Hour
	defaultSweepInterval      = 10 * time.Second
	defaultSizeSampleInterval = 5 * time.Second
	defaultInitialBuffer      = 1024
	defaultMaxFrame           = 4096 * 1024
)

// options maps the resolved flag, env and file values onto cinder options.
func options(v *viper.Viper) []cinder.Option {
	opts := []cinder.Option{
		cinder.WithListenAddr(v.GetString("listen")),
		cinder.WithAdminAddr(v.GetString("admin")),
		cinder.WithDefaultExpiration(v.GetDuration("ttl")),
		cinder.WithSweepInterval(v.GetDuration("sweep-interval")),
		cinder.WithSizeSampleInterval(v.GetDuration("size-sample-interval")),
		cinder.WithFrameLimits(v.GetInt("initial-buffer"), v.GetInt("max-frame")),
	}
	if shards := v.GetUint64("shards"); shards > 0 {
		opts = append(opts, cinder.WithShardCount(shards))
	}
	return opts
}

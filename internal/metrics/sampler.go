package metrics

import (
	"context"
	"time"

	"github.com/benbjohnson/clock"
)

// Sizer reports a current entry count.
type Sizer interface {
	Len() int
}

// RunSizeSampler reports src.Len() to sink once immediately and then on every
// interval tick until ctx is done. A non-positive interval only takes the first
// sample.
func RunSizeSampler(ctx context.Context, clk clock.Clock, interval time.Duration, src Sizer, sink Sink) error {
	if interval <= 0 {
		sink.SetCacheSize(src.Len())
		<-ctx.Done()
		return nil
	}

	ticker := clk.Ticker(interval)
	defer ticker.Stop()

	sink.SetCacheSize(src.Len())
	for {
		select {
		case <-ticker.C:
			sink.SetCacheSize(src.Len())
		case <-ctx.Done():
			return nil
		}
	}
}

package retrier

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"goflare.io/cinder/internal/config"
)

const (
	minMaxAttempts = 0
	minBaseDelay   = time.Millisecond
	minFactor      = 1.0
	maxJitter      = 1.0
	maxDelayCap    = time.Hour
)

var (
	// ErrInvalidMaxAttempts is returned when the max attempts parameter is invalid.
	ErrInvalidMaxAttempts = errors.New("max attempts must not be negative")
	// ErrInvalidBaseDelay is returned when the base delay parameter is invalid.
	ErrInvalidBaseDelay = errors.New("base delay must be at least 1ms")
	// ErrInvalidFactor is returned when the factor parameter is invalid.
	ErrInvalidFactor = errors.New("factor must be at least 1.0")
	// ErrInvalidJitter is returned when the jitter parameter is invalid.
	ErrInvalidJitter = errors.New("jitter must be between 0 and 1")
	// ErrMaxAttempts wraps the last error once every attempt has failed.
	ErrMaxAttempts = errors.New("max retry attempts reached")
)

// Retrier runs a function again after temporary failures, waiting an
// exponentially growing, jittered delay between attempts.
type Retrier struct {
	maxAttempts int // 0 retries until success or a permanent error
	baseDelay   time.Duration
	maxDelay    time.Duration
	factor      float64
	jitter      float64

	clock    clock.Clock
	randPool *sync.Pool

	// TempErrorFunc decides whether an error is worth another attempt.
	// IsTemporary is used when nil.
	TempErrorFunc func(error) bool
	// OnRetry is called before each wait with the failed attempt number
	// (starting at 1), the error and the delay about to be slept.
	OnRetry func(attempt int, err error, delay time.Duration)
}

// Option customizes a Retrier.
type Option func(*Retrier)

// WithClock sets the clock used for waiting between attempts.
func WithClock(clk clock.Clock) Option {
	return func(r *Retrier) {
		if clk != nil {
			r.clock = clk
		}
	}
}

// WithTempErrorFunc overrides temporary error detection.
func WithTempErrorFunc(fn func(error) bool) Option {
	return func(r *Retrier) { r.TempErrorFunc = fn }
}

// WithOnRetry registers a hook invoked before every backoff wait.
func WithOnRetry(fn func(attempt int, err error, delay time.Duration)) Option {
	return func(r *Retrier) { r.OnRetry = fn }
}

// New creates a Retrier from cfg.
func New(cfg config.RetryConfig, opts ...Option) (*Retrier, error) {
	if cfg.MaxAttempts < minMaxAttempts {
		return nil, ErrInvalidMaxAttempts
	}
	if cfg.BaseDelay < minBaseDelay {
		return nil, ErrInvalidBaseDelay
	}
	if cfg.Factor < minFactor {
		return nil, ErrInvalidFactor
	}
	if cfg.Jitter < 0 || cfg.Jitter > maxJitter {
		return nil, ErrInvalidJitter
	}

	maxDelay := cfg.MaxDelay
	if maxDelay < cfg.BaseDelay {
		maxDelay = cfg.BaseDelay
	}

	r := &Retrier{
		maxAttempts: cfg.MaxAttempts,
		baseDelay:   cfg.BaseDelay,
		maxDelay:    maxDelay,
		factor:      cfg.Factor,
		jitter:      cfg.Jitter,
		clock:       clock.New(),
		randPool: &sync.Pool{
			New: func() any {
				return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
			},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run calls fn until it succeeds, returns a non-temporary error, ctx is done
// or the attempts are used up. In the last case the final error is wrapped in
// ErrMaxAttempts. With zero max attempts only the first two conditions end it.
func (r *Retrier) Run(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; r.unlimited() || attempt < r.maxAttempts; attempt++ {
		err = fn()
		if err == nil {
			return nil
		}

		if !r.isTemporary(err) {
			return err
		}

		if !r.unlimited() && attempt == r.maxAttempts-1 {
			break
		}

		delay := r.Delay(attempt)
		if r.OnRetry != nil {
			r.OnRetry(attempt+1, err, delay)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(delay):
		}
	}

	return fmt.Errorf("%w: %w", ErrMaxAttempts, err)
}

// Delay returns the wait after the given zero-based failed attempt: base ×
// factor^attempt capped at the max delay, plus up to jitter × that amount.
func (r *Retrier) Delay(attempt int) time.Duration {
	delay := float64(r.baseDelay) * math.Pow(r.factor, float64(attempt))
	if delay > float64(r.maxDelay) {
		delay = float64(r.maxDelay)
	}

	if r.jitter > 0 {
		rng := r.randPool.Get().(*rand.Rand)
		delay += rng.Float64() * r.jitter * delay
		r.randPool.Put(rng)
	}

	if delay > float64(maxDelayCap) {
		delay = float64(maxDelayCap)
	}
	return time.Duration(delay)
}

func (r *Retrier) unlimited() bool {
	return r.maxAttempts == 0
}

func (r *Retrier) isTemporary(err error) bool {
	if r.TempErrorFunc != nil {
		return r.TempErrorFunc(err)
	}
	return IsTemporary(err)
}

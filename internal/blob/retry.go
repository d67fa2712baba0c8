package blob

import (
	"context"
	"math"
	"math/rand/v2"
	"time"

	"go.uber.org/zap"

	"github.com/stratabase/borecore/internal/fault"
)

// RetryConfig tunes the retry decorator. Zero values fall back to the
// defaults noted per field.
type RetryConfig struct {
	// MaxAttempts is the total number of attempts including the first try.
	// <= 1 disables the decorator. Default: 3 when enabled via config.
	MaxAttempts int `yaml:"max_attempts" mapstructure:"max_attempts"`
	// InitialBackoff is the delay before the first retry. Default: 200ms.
	InitialBackoff time.Duration `yaml:"initial_backoff" mapstructure:"initial_backoff"`
	// MaxBackoff caps the backoff growth. Default: 5s.
	MaxBackoff time.Duration `yaml:"max_backoff" mapstructure:"max_backoff"`
}

// Retried retries store calls that failed with a backend-availability error.
// Domain errors (missing keys, validation) pass through untouched; only
// fault.ErrStoreUnavailable-kinded failures are considered transient.
// Backoff is exponential with ±25% jitter.
type Retried struct {
	next Store
	cfg  RetryConfig
}

// NewRetried wraps next with retry-on-unavailable semantics.
func NewRetried(next Store, cfg RetryConfig) *Retried {
	if cfg.MaxAttempts <= 1 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = 200 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 5 * time.Second
	}
	return &Retried{next: next, cfg: cfg}
}

func (r *Retried) Driver() Driver { return r.next.Driver() }

// do runs op up to MaxAttempts times. Retries stop on success, on a
// non-transient error, or when ctx is done.
func (r *Retried) do(ctx context.Context, name, key string, op func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 0; attempt < r.cfg.MaxAttempts; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil || !fault.IsStoreUnavailable(lastErr) {
			return lastErr
		}
		if attempt >= r.cfg.MaxAttempts-1 {
			break
		}

		zap.L().Warn("retrying store call",
			zap.String("op", name),
			zap.String("key", key),
			zap.Int("attempt", attempt+1),
			zap.Error(lastErr))

		timer := time.NewTimer(r.backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return lastErr
		case <-timer.C:
		}
	}
	return lastErr
}

// backoff computes the delay after the given zero-based attempt with ±25%
// jitter applied.
func (r *Retried) backoff(attempt int) time.Duration {
	delay := float64(r.cfg.InitialBackoff) * math.Pow(2, float64(attempt))
	if delay > float64(r.cfg.MaxBackoff) {
		delay = float64(r.cfg.MaxBackoff)
	}
	delay += (rand.Float64() - 0.5) * delay * 0.5
	if delay < 0 {
		delay = 0
	}
	return time.Duration(delay)
}

func (r *Retried) List(ctx context.Context, prefix string, max int) ([]Info, error) {
	var out []Info
	err := r.do(ctx, "List", prefix, func(ctx context.Context) error {
		var err error
		out, err = r.next.List(ctx, prefix, max)
		return err
	})
	return out, err
}

func (r *Retried) Get(ctx context.Context, key string) ([]byte, error) {
	var out []byte
	err := r.do(ctx, "Get", key, func(ctx context.Context) error {
		var err error
		out, err = r.next.Get(ctx, key)
		return err
	})
	return out, err
}

func (r *Retried) Put(ctx context.Context, key string, body []byte, contentType string) error {
	return r.do(ctx, "Put", key, func(ctx context.Context) error {
		return r.next.Put(ctx, key, body, contentType)
	})
}

func (r *Retried) Exists(ctx context.Context, key string) (bool, error) {
	var out bool
	err := r.do(ctx, "Exists", key, func(ctx context.Context) error {
		var err error
		out, err = r.next.Exists(ctx, key)
		return err
	})
	return out, err
}

func (r *Retried) Delete(ctx context.Context, key string) (bool, error) {
	var out bool
	err := r.do(ctx, "Delete", key, func(ctx context.Context) error {
		var err error
		out, err = r.next.Delete(ctx, key)
		return err
	})
	return out, err
}

package blob

import (
	"context"

	"golang.org/x/time/rate"

	"github.com/stratabase/borecore/internal/fault"
)

// Throttled caps the request rate against the backing store. It sits at the
// storage boundary only; it never retries.
type Throttled struct {
	next    Store
	limiter *rate.Limiter
}

// NewThrottled wraps next with a token-bucket limiter of rps requests per
// second (burst = rps, minimum 1).
func NewThrottled(next Store, rps float64) *Throttled {
	burst := int(rps)
	if burst < 1 {
		burst = 1
	}
	return &Throttled{next: next, limiter: rate.NewLimiter(rate.Limit(rps), burst)}
}

func (t *Throttled) Driver() Driver { return t.next.Driver() }

func (t *Throttled) wait(ctx context.Context) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return fault.StoreUnavailable(err, "blob: rate limiter wait")
	}
	return nil
}

func (t *Throttled) List(ctx context.Context, prefix string, max int) ([]Info, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.List(ctx, prefix, max)
}

func (t *Throttled) Get(ctx context.Context, key string) ([]byte, error) {
	if err := t.wait(ctx); err != nil {
		return nil, err
	}
	return t.next.Get(ctx, key)
}

func (t *Throttled) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := t.wait(ctx); err != nil {
		return err
	}
	return t.next.Put(ctx, key, body, contentType)
}

func (t *Throttled) Exists(ctx context.Context, key string) (bool, error) {
	if err := t.wait(ctx); err != nil {
		return false, err
	}
	return t.next.Exists(ctx, key)
}

func (t *Throttled) Delete(ctx context.Context, key string) (bool, error) {
	if err := t.wait(ctx); err != nil {
		return false, err
	}
	return t.next.Delete(ctx, key)
}

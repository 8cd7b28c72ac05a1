package store

import (
	"context"

	"golang.org/x/time/rate"
)

type throttled struct {
	inner Backend
	lim   *rate.Limiter
}

// Throttle limits the rate of calls made to b. Each call waits for the
// limiter, honoring ctx cancellation.
func Throttle(b Backend, lim *rate.Limiter) Backend {
	return &throttled{inner: b, lim: lim}
}

func (b *throttled) Unwrap() Backend { return b.inner }

func (b *throttled) Get(ctx context.Context, key Key) (*Record, error) {
	if err := b.lim.Wait(ctx); err != nil {
		return nil, err
	}
	return b.inner.Get(ctx, key)
}

func (b *throttled) Upsert(ctx context.Context, key Key, data []byte, updatedAt int64) error {
	if err := b.lim.Wait(ctx); err != nil {
		return err
	}
	return b.inner.Upsert(ctx, key, data, updatedAt)
}

func (b *throttled) Delete(ctx context.Context, key Key) error {
	if err := b.lim.Wait(ctx); err != nil {
		return err
	}
	return b.inner.Delete(ctx, key)
}

package remote

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/arthurljones/sqlite-diff/pkg/types"
)

// Throttled limits the rate of operations against a RemoteStore.
type Throttled struct {
	inner   types.RemoteStore
	limiter *rate.Limiter
}

var _ types.RemoteStore = (*Throttled)(nil)

// NewThrottled allows perSecond operations per second with a burst of one.
func NewThrottled(inner types.RemoteStore, perSecond float64) *Throttled {
	return &Throttled{
		inner:   inner,
		limiter: rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (t *Throttled) List(ctx context.Context) ([]string, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.List(ctx)
}

func (t *Throttled) Get(ctx context.Context, name string) (io.ReadCloser, error) {
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	return t.inner.Get(ctx, name)
}

func (t *Throttled) Put(ctx context.Context, name string, r io.Reader) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.Put(ctx, name, r)
}

func (t *Throttled) Delete(ctx context.Context, name string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.Delete(ctx, name)
}

func (t *Throttled) Rename(ctx context.Context, oldName, newName string) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}
	return t.inner.Rename(ctx, oldName, newName)
}

func (t *Throttled) Close() error { return t.inner.Close() }

package core

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// ErrCacheMiss is returned by Cache.Get when the key is absent or expired.
var ErrCacheMiss = errors.New("cache miss")

// Cache stores JSON encodable values by key; implemented by services/cache.
type Cache interface {
	Get(ctx context.Context, key string, dst interface{}) error
	Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// NopCache never holds anything.
type NopCache struct{}

var _ Cache = NopCache{}

func (NopCache) Get(context.Context, string, interface{}) error {
	return errors.WithStack(ErrCacheMiss)
}

func (NopCache) Set(context.Context, string, interface{}, time.Duration) error {
	return nil
}

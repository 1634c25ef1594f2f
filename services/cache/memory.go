package cachesvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/pkg/errors"

	"github.com/academictoken/registry/core"
)

const (
	memoryCacheSize = 4096
	memoryCacheTTL  = 24 * time.Hour
)

type entry struct {
	data    []byte
	expires time.Time // zero: the cache TTL only
}

// memoryCache keeps JSON copies so cached values cannot be mutated by callers.
// Entries live at most the cache TTL; a shorter ttl given to Set is checked on read.
type memoryCache struct {
	lru *expirable.LRU[string, entry]
}

var _ core.Cache = (*memoryCache)(nil)

func NewMemoryCache() core.Cache {
	return NewBoundedMemoryCache(memoryCacheSize, memoryCacheTTL)
}

// NewBoundedMemoryCache holds at most size entries, evicting the least recently used.
func NewBoundedMemoryCache(size int, ttl time.Duration) core.Cache {
	return &memoryCache{lru: expirable.NewLRU[string, entry](size, nil, ttl)}
}

func (c *memoryCache) Get(_ context.Context, key string, dst interface{}) error {
	e, ok := c.lru.Get(key)
	if !ok {
		return errors.WithStack(core.ErrCacheMiss)
	}
	if !e.expires.IsZero() && !core.NowFunc().Before(e.expires) {
		c.lru.Remove(key)
		return errors.WithStack(core.ErrCacheMiss)
	}
	return errors.Wrapf(json.Unmarshal(e.data, dst), "decoding %s", key)
}

func (c *memoryCache) Set(_ context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	e := entry{data: data}
	if ttl > 0 {
		e.expires = core.NowFunc().Add(ttl)
	}
	c.lru.Add(key, e)
	return nil
}

// New returns a redis cache when address is set, an in-memory cache otherwise.
func New(ctx context.Context, address string) (core.Cache, func() error, error) {
	if address == "" {
		return NewMemoryCache(), func() error { return nil }, nil
	}
	client, err := Connect(ctx, address)
	if err != nil {
		return nil, nil, err
	}
	return NewRedisCache(client), client.Close, nil
}

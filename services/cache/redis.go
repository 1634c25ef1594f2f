package cachesvc

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/academictoken/registry/core"
)

const keyPrefix = "registry:"

type redisCache struct {
	client *redis.Client
}

var _ core.Cache = (*redisCache)(nil)

// Connect accepts either a redis:// URL or a host:port address.
func Connect(ctx context.Context, address string) (*redis.Client, error) {
	var opt *redis.Options
	if strings.HasPrefix(address, "redis://") {
		parsed, err := redis.ParseURL(address)
		if err != nil {
			return nil, errors.Wrap(err, "parsing redis url")
		}
		opt = parsed
	} else {
		opt = &redis.Options{Addr: address}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "pinging redis")
	}
	return client, nil
}

func NewRedisCache(client *redis.Client) core.Cache {
	return &redisCache{client: client}
}

func (c *redisCache) Get(ctx context.Context, key string, dst interface{}) error {
	data, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return errors.WithStack(core.ErrCacheMiss)
		}
		return errors.Wrapf(err, "reading %s", key)
	}
	return errors.Wrapf(json.Unmarshal(data, dst), "decoding %s", key)
}

func (c *redisCache) Set(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encoding %s", key)
	}
	return errors.Wrapf(c.client.Set(ctx, keyPrefix+key, data, ttl).Err(), "writing %s", key)
}

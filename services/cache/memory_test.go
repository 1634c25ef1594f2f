package cachesvc

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/academictoken/registry/core"
)

type item struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	var got item
	err := c.Get(ctx, "missing", &got)
	assert.Equal(t, core.ErrCacheMiss, errors.Cause(err))

	orig := item{Name: "calculus", Items: []string{"limits"}}
	require.NoError(t, c.Set(ctx, "k", orig, 0))
	orig.Items[0] = "changed"

	require.NoError(t, c.Get(ctx, "k", &got))
	assert.Equal(t, item{Name: "calculus", Items: []string{"limits"}}, got)
}

func TestMemoryCacheExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	core.NowFunc = func() time.Time { return now }
	defer func() { core.NowFunc = time.Now }()

	c := NewMemoryCache()
	require.NoError(t, c.Set(ctx, "k", "v", time.Minute))

	var s string
	require.NoError(t, c.Get(ctx, "k", &s))
	assert.Equal(t, "v", s)

	now = now.Add(time.Minute)
	assert.Equal(t, core.ErrCacheMiss, errors.Cause(c.Get(ctx, "k", &s)))
}

func TestMemoryCacheBounded(t *testing.T) {
	ctx := context.Background()
	c := NewBoundedMemoryCache(2, time.Hour)

	for _, k := range []string{"a", "b"} {
		require.NoError(t, c.Set(ctx, k, k, 0))
	}
	var s string
	require.NoError(t, c.Get(ctx, "a", &s)) // a is now the most recently used
	require.NoError(t, c.Set(ctx, "c", "c", 0))

	assert.Equal(t, core.ErrCacheMiss, errors.Cause(c.Get(ctx, "b", &s)))
	for _, k := range []string{"a", "c"} {
		require.NoError(t, c.Get(ctx, k, &s))
		assert.Equal(t, k, s)
	}
}

func TestMemoryCacheTTL(t *testing.T) {
	ctx := context.Background()
	c := NewBoundedMemoryCache(10, 50*time.Millisecond)
	require.NoError(t, c.Set(ctx, "k", "v", 0))

	var s string
	require.NoError(t, c.Get(ctx, "k", &s))
	assert.Eventually(t, func() bool {
		return errors.Cause(c.Get(ctx, "k", &s)) == core.ErrCacheMiss
	}, time.Second, 10*time.Millisecond)
}

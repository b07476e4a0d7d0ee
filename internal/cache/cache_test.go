// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)
	defer func() { _ = cache.Close() }()

	cache.Set(ctx, "key1", []byte("value1"), time.Minute)

	val, ok := cache.Get(ctx, "key1")
	assert.True(t, ok)
	assert.Equal(t, []byte("value1"), val)

	_, ok = cache.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestMemoryCache_Expiration(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "short", []byte("v"), 20*time.Millisecond)
	time.Sleep(40 * time.Millisecond)

	_, ok := cache.Get(ctx, "short")
	assert.False(t, ok, "expired entries are misses")
}

func TestMemoryCache_DeleteClear(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "a", []byte("1"), time.Minute)
	cache.Set(ctx, "b", []byte("2"), time.Minute)
	cache.Delete(ctx, "a")

	_, ok := cache.Get(ctx, "a")
	assert.False(t, ok)

	cache.Clear(ctx)
	assert.Equal(t, 0, cache.Stats().CurrentSize)
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(0)

	cache.Set(ctx, "key1", []byte("v"), time.Minute)
	cache.Set(ctx, "key2", []byte("v"), time.Minute)
	cache.Get(ctx, "key1")
	cache.Get(ctx, "key2")
	cache.Get(ctx, "nonexistent")

	stats := cache.Stats()
	assert.Equal(t, int64(2), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.Equal(t, int64(2), stats.Sets)
	assert.Equal(t, 2, stats.CurrentSize)
}

func TestMemoryCache_Janitor(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	ctx := context.Background()
	cache := NewMemoryCache(20 * time.Millisecond)

	cache.Set(ctx, "key1", []byte("v"), 10*time.Millisecond)
	cache.Set(ctx, "key2", []byte("v"), 10*time.Millisecond)
	cache.Set(ctx, "longLived", []byte("v"), 10*time.Second)

	assert.Eventually(t, func() bool {
		return cache.Stats().CurrentSize == 1
	}, time.Second, 10*time.Millisecond, "janitor should remove expired entries")
	assert.Greater(t, cache.Stats().Evictions, int64(0))

	_, ok := cache.Get(ctx, "longLived")
	assert.True(t, ok)

	assert.NoError(t, cache.Close())
	assert.NoError(t, cache.Close(), "Close is idempotent")
}

func TestMemoryCache_ConcurrentAccess(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache(time.Minute)
	defer func() { _ = cache.Close() }()

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				cache.Set(ctx, "key", []byte{byte(i)}, time.Minute)
			}
		}()
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				cache.Get(ctx, "key")
			}
		}()
	}
	wg.Wait()

	stats := cache.Stats()
	assert.Equal(t, int64(400), stats.Sets)
	assert.Equal(t, int64(400), stats.Hits+stats.Misses)
}

func TestNoOpCache(t *testing.T) {
	ctx := context.Background()
	cache := NewNoOpCache()

	cache.Set(ctx, "key", []byte("value"), time.Minute)
	_, ok := cache.Get(ctx, "key")
	assert.False(t, ok, "NoOpCache should never return values")
	assert.Equal(t, Stats{}, cache.Stats())
	assert.NoError(t, cache.Close())
}

package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "delivery-1", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	t.Run("second mark is rejected", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "delivery-1", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("IsProcessed sees live keys only", func(t *testing.T) {
		seen, err := store.IsProcessed(ctx, "delivery-1")
		require.NoError(t, err)
		assert.True(t, seen)

		seen, err = store.IsProcessed(ctx, "delivery-2")
		require.NoError(t, err)
		assert.False(t, seen)
	})

	t.Run("expired keys can be re-marked", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "short-lived", time.Millisecond)
		require.NoError(t, err)
		assert.True(t, ok)

		time.Sleep(5 * time.Millisecond)

		ok, err = store.MarkProcessed(ctx, "short-lived", time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})
}

func TestRedisIdempotencyStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisIdempotencyStoreWithClient(client, "")
	defer store.Close()
	ctx := context.Background()

	ok, err := store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.MarkProcessed(ctx, "delivery-1", time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	seen, err := store.IsProcessed(ctx, "delivery-1")
	require.NoError(t, err)
	assert.True(t, seen)

	t.Run("keys expire with the TTL", func(t *testing.T) {
		ok, err := store.MarkProcessed(ctx, "delivery-2", time.Second)
		require.NoError(t, err)
		assert.True(t, ok)

		mr.FastForward(2 * time.Second)

		seen, err := store.IsProcessed(ctx, "delivery-2")
		require.NoError(t, err)
		assert.False(t, seen)
	})
}

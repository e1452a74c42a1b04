package redisstore

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RefreshStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, NewRefreshStore(client)
}

func TestRefreshStore_ConsumeOnce(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "jti-1", "subject", time.Hour))
	assert.True(t, mr.Exists("refresh:jti-1"))

	ok, err := store.Consume(ctx, "jti-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Consume(ctx, "jti-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshStore_Expired(t *testing.T) {
	mr, store := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "jti-2", "subject", time.Minute))
	mr.FastForward(2 * time.Minute)

	ok, err := store.Consume(ctx, "jti-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRefreshStore_ConcurrentConsume(t *testing.T) {
	_, store := setupTestRedis(t)
	ctx := context.Background()
	require.NoError(t, store.Save(ctx, "jti-3", "subject", time.Hour))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Consume(ctx, "jti-3")
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

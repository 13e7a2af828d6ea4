package redisstore_test

import (
	"context"
	"testing"

	"github.com/ValdemirJunior2020/churchApp-Saas/apperr"
	"github.com/ValdemirJunior2020/churchApp-Saas/store/redisstore"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *redisstore.Store) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, redisstore.New(client)
}

func TestRedisStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, s := setupTestRedis(t)

	_, ok, err := s.Get(ctx, "congregate:v1:session")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Set(ctx, "congregate:v1:session", "blob"))
	got, err := mr.Get("congregate:v1:session")
	require.NoError(t, err)
	require.Equal(t, "blob", got)

	v, ok, err := s.Get(ctx, "congregate:v1:session")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "blob", v)

	require.NoError(t, s.Remove(ctx, "congregate:v1:session"))
	require.False(t, mr.Exists("congregate:v1:session"))
}

func TestRedisStoreUnavailable(t *testing.T) {
	mr, s := setupTestRedis(t)
	mr.Close()

	err := s.Set(context.Background(), "k", "v")
	require.ErrorIs(t, err, apperr.ErrIO)
}

func TestDialFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := redisstore.Dial(context.Background(), addr)
	require.ErrorIs(t, err, apperr.ErrIO)
}

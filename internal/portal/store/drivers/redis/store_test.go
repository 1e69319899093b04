package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nyaypaksh/memberportal/internal/portal/store"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStoreWithClient(rdb)
}

func TestGetSetRemove(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.Get(ctx, "auth")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Set(ctx, "auth", "true"))

	v, err := s.Get(ctx, "auth")
	require.NoError(t, err)
	require.Equal(t, "true", v)

	require.NoError(t, s.Remove(ctx, "auth"))
	_, err = s.Get(ctx, "auth")
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, s.Remove(ctx, "auth"))
}

func TestKeysArePrefixed(t *testing.T) {
	ctx := context.Background()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	s := NewStoreWithClient(rdb)
	require.NoError(t, s.Set(ctx, "role", "ADMIN"))
	require.True(t, mr.Exists("portal:role"))
}

func TestPing(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Ping(context.Background()))
}

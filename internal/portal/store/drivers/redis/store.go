// Package redis implements the durable KeyValue store on a Redis backend for
// deployments where the portal runs more than one replica.
package redis

import (
	"context"
	"errors"

	"github.com/nyaypaksh/memberportal/internal/portal/store"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "portal:"

type Store struct {
	rdb *redis.Client
}

func NewStore(addr string) *Store {
	return &Store{rdb: redis.NewClient(&redis.Options{Addr: addr})}
}

// NewStoreWithClient wraps an existing client; tests use this with miniredis.
func NewStoreWithClient(rdb *redis.Client) *Store {
	return &Store{rdb: rdb}
}

func (s *Store) key(k string) string { return keyPrefix + k }

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	v, err := s.rdb.Get(ctx, s.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", store.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	// Session expiry is policed by the session service (lazy expiry), so no
	// TTL is attached here.
	return s.rdb.Set(ctx, s.key(key), value, 0).Err()
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, s.key(key)).Err()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *Store) Close() error { return s.rdb.Close() }

package storage

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "churn-countdown/"

type redisStore struct {
	rdb   *redis.Client
	owned bool
}

// NewRedis stores settings through a client owned by the caller; Close leaves it open.
func NewRedis(rdb *redis.Client) Store {
	return &redisStore{rdb: rdb}
}

func NewRedisFromAddr(addr, password string) Store {
	return &redisStore{
		rdb: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		owned: true,
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := s.rdb.Get(ctx, redisKeyPrefix+key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisStore) Set(ctx context.Context, key, value string) error {
	return s.rdb.Set(ctx, redisKeyPrefix+key, value, 0).Err()
}

func (s *redisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

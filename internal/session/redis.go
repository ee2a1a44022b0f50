package session

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RedisStore is the production session store. Keys expire server-side,
// so an inactive session disappears without any sweeper.
type RedisStore struct {
	redisdb *redis.Client
}

func NewRedisStore(cfg RedisConfig) *RedisStore {
	redisdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})

	return &RedisStore{redisdb: redisdb}
}

func sessionKey(id string) string {
	return "session:" + id
}

func (s *RedisStore) Set(ctx context.Context, id string, userID int64, ttl time.Duration) error {
	return s.redisdb.Set(ctx, sessionKey(id), strconv.FormatInt(userID, 10), ttl).Err()
}

func (s *RedisStore) Get(ctx context.Context, id string) (int64, bool, error) {
	val, err := s.redisdb.Get(ctx, sessionKey(id)).Result()

	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, err
	}

	userID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, err
	}
	return userID, true, nil
}

func (s *RedisStore) Refresh(ctx context.Context, id string, ttl time.Duration) error {
	return s.redisdb.Expire(ctx, sessionKey(id), ttl).Err()
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	return s.redisdb.Del(ctx, sessionKey(id)).Err()
}

// Ping checks redis connectivity for the readiness probe.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redisdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.redisdb.Close()
}

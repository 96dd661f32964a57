package repository

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"khadamat/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisCursorRepository keeps the poller cursor and rate-limit windows
// in redis so a dashboard restart does not replay old alerts.
type RedisCursorRepository struct {
	client *redis.Client
}

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
}

func NewRedisCursorRepository(client *redis.Client) *RedisCursorRepository {
	return &RedisCursorRepository{client: client}
}

func (r *RedisCursorRepository) GetCursor(ctx context.Context, name string) (int64, error) {
	if r.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	key := "cursor:" + name
	val, err := r.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get cursor from redis: %w", err)
	}

	cursor, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cursor value %q: %w", val, err)
	}
	return cursor, nil
}

func (r *RedisCursorRepository) SetCursor(ctx context.Context, name string, value int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	key := "cursor:" + name
	if err := r.client.Set(ctx, key, strconv.FormatInt(value, 10), 0).Err(); err != nil {
		return fmt.Errorf("set cursor in redis: %w", err)
	}
	return nil
}

func (r *RedisCursorRepository) CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	rkey := "rate_limit:" + key
	count, err := r.client.Incr(ctx, rkey).Result()
	if err != nil {
		return false, fmt.Errorf("increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, rkey, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	if _, err := client.Ping(ctx).Result(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

// Close closes the redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}

package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type RedisClient struct {
	client *redis.Client
	log    *zap.Logger
}

func NewRedisClient(addr, password string, db int, log *zap.Logger) (*RedisClient, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Info("Redis connected successfully", zap.String("addr", addr))

	return NewFromClient(rdb, log), nil
}

// NewFromClient оборачивает готовый клиент (тесты, общий пул).
func NewFromClient(rdb *redis.Client, log *zap.Logger) *RedisClient {
	return &RedisClient{client: rdb, log: log}
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

// Аренда для фоновых задач: одна реплика на тик
func lockKey(name string) string { return fmt.Sprintf("lock:%s", name) }

// AcquireLock: SET NX с TTL, значение: id реплики-владельца.
func (r *RedisClient) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, lockKey(name), owner, ttl).Result()
}

// Общий кэш
func (r *RedisClient) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *RedisClient) Get(ctx context.Context, key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisClient) Del(ctx context.Context, keys ...string) error {
	return r.client.Del(ctx, keys...).Err()
}

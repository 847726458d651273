package store

import (
	"context"

	"wisefido-vitals/internal/config"

	"github.com/go-redis/redis/v8"
)

// NewRedisClient 创建Redis客户端
func NewRedisClient(cfg *config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}

// PingRedis 测试Redis连接
func PingRedis(ctx context.Context, client *redis.Client) error {
	return client.Ping(ctx).Err()
}

// CloseRedis 关闭Redis连接
func CloseRedis(client *redis.Client) error {
	return client.Close()
}

package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CacheManager Redis 实时缓存管理器
// 缓存只服务新接入 WebSocket 客户端的初始快照；HTTP 查询始终直读数据库
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(
	cfg *config.Config,
	redisClient *redis.Client,
	logger *zap.Logger,
) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// SetLatestReading 写入最新读数
func (c *CacheManager) SetLatestReading(ctx context.Context, event models.SensorUpdateEvent) error {
	jsonData, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal latest reading: %w", err)
	}

	ttl := time.Duration(c.config.Vitals.Cache.TTL) * time.Second
	if err := c.redisClient.Set(ctx, c.config.Vitals.Cache.LatestKey, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// GetLatestReading 读取最新读数；缓存缺失时返回 (nil, nil)
func (c *CacheManager) GetLatestReading(ctx context.Context) (*models.SensorUpdateEvent, error) {
	val, err := c.redisClient.Get(ctx, c.config.Vitals.Cache.LatestKey).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var event models.SensorUpdateEvent
	if err := json.Unmarshal([]byte(val), &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal latest reading: %w", err)
	}

	return &event, nil
}

// SetActiveAlerts 写入活跃报警快照
func (c *CacheManager) SetActiveAlerts(ctx context.Context, alerts []models.Alert) error {
	jsonData, err := json.Marshal(alerts)
	if err != nil {
		return fmt.Errorf("failed to marshal active alerts: %w", err)
	}

	ttl := time.Duration(c.config.Vitals.Cache.TTL) * time.Second
	if err := c.redisClient.Set(ctx, c.config.Vitals.Cache.AlertsKey, jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set cache: %w", err)
	}

	return nil
}

// GetActiveAlerts 读取活跃报警快照；缓存缺失时返回空列表
func (c *CacheManager) GetActiveAlerts(ctx context.Context) ([]models.Alert, error) {
	val, err := c.redisClient.Get(ctx, c.config.Vitals.Cache.AlertsKey).Result()
	if err != nil {
		if err == redis.Nil {
			return []models.Alert{}, nil
		}
		return nil, fmt.Errorf("failed to get cache: %w", err)
	}

	var alerts []models.Alert
	if err := json.Unmarshal([]byte(val), &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal active alerts: %w", err)
	}

	return alerts, nil
}

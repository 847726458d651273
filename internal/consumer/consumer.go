package consumer

import (
	"context"
	"encoding/json"
	"fmt"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/evaluator"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/mqtt"

	"go.uber.org/zap"
)

// ReadingStore 读数存储（由 repository.ReadingsRepository 实现）
type ReadingStore interface {
	CreateReading(ctx context.Context, subjectID int64, reading *models.Reading) error
}

// AlertStore 报警存储（由 repository.AlertsRepository 实现）
type AlertStore interface {
	CreateAlert(ctx context.Context, subjectID int64, alert *models.Alert) error
	GetActiveAlerts(ctx context.Context, subjectID int64) ([]models.Alert, error)
}

// ThresholdStore 阈值存储（由 repository.ThresholdsRepository 实现）
type ThresholdStore interface {
	GetThreshold(ctx context.Context, subjectID int64, name string) (*models.Threshold, error)
}

// Broadcaster 实时推送（由 ws.Hub 实现）
type Broadcaster interface {
	BroadcastSensorUpdate(event models.SensorUpdateEvent)
	BroadcastNewAlert(event models.NewAlertEvent)
}

// Gate 后端存储就绪状态（由 store.Gate 实现）
type Gate interface {
	Ready() bool
}

// Notifier 报警外部通知（由 notifier.WebhookNotifier 实现，可为 nil）
type Notifier interface {
	NotifyAlert(ctx context.Context, alert models.Alert)
}

// Consumer MQTT遥测消费者：整条摄入-评估-广播流水线
// 每条消息按到达顺序串行处理；任何失败只丢弃当前消息，绝不中断订阅
type Consumer struct {
	config     *config.Config
	mqttClient *mqtt.Client
	gate       Gate
	readings   ReadingStore
	alerts     AlertStore
	thresholds ThresholdStore
	hub        Broadcaster
	cache      *CacheManager
	notifier   Notifier
	logger     *zap.Logger
	metrics    *Metrics
}

// NewConsumer 创建遥测消费者
// cache 和 notifier 可为 nil（对应功能不启用）
func NewConsumer(
	cfg *config.Config,
	mqttClient *mqtt.Client,
	gate Gate,
	readings ReadingStore,
	alerts AlertStore,
	thresholds ThresholdStore,
	hub Broadcaster,
	cache *CacheManager,
	notifier Notifier,
	logger *zap.Logger,
) *Consumer {
	return &Consumer{
		config:     cfg,
		mqttClient: mqttClient,
		gate:       gate,
		readings:   readings,
		alerts:     alerts,
		thresholds: thresholds,
		hub:        hub,
		cache:      cache,
		notifier:   notifier,
		logger:     logger,
		metrics:    NewMetrics(),
	}
}

// Metrics 消费者监控指标快照
func (c *Consumer) Metrics() MetricsSnapshot {
	return c.metrics.Snapshot()
}

// Start 启动消费者
func (c *Consumer) Start(ctx context.Context) error {
	if err := c.mqttClient.Subscribe(c.config.MQTT.Topic, c.config.MQTT.QoS, c.HandleMessage); err != nil {
		return fmt.Errorf("failed to subscribe to telemetry topic: %w", err)
	}

	c.logger.Info("Telemetry consumer started",
		zap.String("topic", c.config.MQTT.Topic),
		zap.Int64("subject_id", c.config.Vitals.SubjectID),
	)

	return nil
}

// Stop 停止消费者
func (c *Consumer) Stop(ctx context.Context) error {
	if err := c.mqttClient.Unsubscribe(c.config.MQTT.Topic); err != nil {
		c.logger.Error("Failed to unsubscribe", zap.Error(err))
	}

	c.logger.Info("Telemetry consumer stopped")
	return nil
}

// HandleMessage 处理一条遥测消息
// 语义是 at-most-once：消息失败只记录并丢弃，不重试、不反压
// 步骤顺序固定：落库读数 → 读阈值 → 评估 → (落库报警) → 广播读数 → (广播报警)
func (c *Consumer) HandleMessage(topic string, payload []byte) error {
	ctx := context.Background()
	subjectID := c.config.Vitals.SubjectID
	c.metrics.IncrementProcessed()

	// 1. 存储未就绪：丢弃消息（有意的数据丢失换取不无界缓冲）
	if !c.gate.Ready() {
		c.metrics.IncrementSkipped()
		c.logger.Warn("Database not ready, skipping telemetry message",
			zap.String("topic", topic),
		)
		return nil
	}

	// 2. 解析入站消息；ntc_temp 在这里改名为 ambient_temp
	var sensorPayload models.SensorPayload
	if err := json.Unmarshal(payload, &sensorPayload); err != nil {
		c.metrics.IncrementFailed("parse")
		c.logger.Error("Failed to parse telemetry payload",
			zap.String("topic", topic),
			zap.Error(err),
		)
		return fmt.Errorf("failed to parse telemetry payload: %w", err)
	}

	reading := models.Reading{
		BodyTemp:     sensorPayload.BodyTemp,
		AmbientTemp:  sensorPayload.NTCTemp,
		FallDetected: sensorPayload.FallDetected,
	}

	// 3. 先落库读数；失败则放弃后续步骤（不评估未持久化的读数）
	if err := c.readings.CreateReading(ctx, subjectID, &reading); err != nil {
		c.metrics.IncrementFailed("reading_insert")
		c.logger.Error("Failed to insert reading",
			zap.Error(err),
		)
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	// 4. 读当前体温阈值；行缺失或查询失败时退回默认值，评估不因此中断
	maxBodyTemp := c.config.Vitals.DefaultMaxBodyTemp
	threshold, err := c.thresholds.GetThreshold(ctx, subjectID, models.ThresholdNameMaxBodyTemp)
	if err != nil {
		c.logger.Warn("Failed to read threshold, using default",
			zap.Float64("default", maxBodyTemp),
			zap.Error(err),
		)
	} else if threshold != nil {
		maxBodyTemp = threshold.Value
	}

	// 5. 评估
	candidate := evaluator.Decide(reading, maxBodyTemp)

	// 6. 有报警则落库；失败只抑制 new_alert 广播，不影响读数广播
	var persistedAlert *models.Alert
	if candidate != nil {
		alert := models.Alert{
			Type:    candidate.Type,
			Value:   candidate.Value,
			Message: candidate.Message,
		}
		if err := c.alerts.CreateAlert(ctx, subjectID, &alert); err != nil {
			c.metrics.IncrementFailed("alert_insert")
			c.logger.Error("Failed to insert alert, suppressing alert broadcast",
				zap.String("alert_type", string(candidate.Type)),
				zap.Error(err),
			)
		} else {
			persistedAlert = &alert
			c.logger.Info("Alert raised",
				zap.Int64("alert_id", alert.AlertID),
				zap.String("alert_type", string(alert.Type)),
			)
		}
	}

	// 7. 无条件广播读数；is_alert 反映评估结果，与报警落库是否成功无关
	c.hub.BroadcastSensorUpdate(models.SensorUpdateEvent{
		Timestamp:    reading.Timestamp,
		BodyTemp:     reading.BodyTemp,
		AmbientTemp:  reading.AmbientTemp,
		FallDetected: reading.FallDetected,
		IsAlert:      candidate != nil,
	})

	// 8. 报警成功落库才广播（不广播没有持久化记录的报警）
	if persistedAlert != nil {
		c.hub.BroadcastNewAlert(models.NewAlertEvent{
			ID:         persistedAlert.AlertID,
			Timestamp:  persistedAlert.Timestamp,
			Type:       persistedAlert.Type,
			Value:      persistedAlert.Value,
			Message:    persistedAlert.Message,
			IsResolved: false,
		})

		if c.notifier != nil {
			c.notifier.NotifyAlert(ctx, *persistedAlert)
		}
	}

	// 实时缓存只服务新接入客户端的快照，失败不算消息失败
	c.updateCaches(ctx, reading, candidate != nil, persistedAlert != nil)

	c.metrics.IncrementSucceeded()
	return nil
}

// updateCaches 刷新 Redis 实时缓存（最新读数 + 活跃报警快照）
func (c *Consumer) updateCaches(ctx context.Context, reading models.Reading, isAlert bool, alertPersisted bool) {
	if c.cache == nil {
		return
	}

	if err := c.cache.SetLatestReading(ctx, models.SensorUpdateEvent{
		Timestamp:    reading.Timestamp,
		BodyTemp:     reading.BodyTemp,
		AmbientTemp:  reading.AmbientTemp,
		FallDetected: reading.FallDetected,
		IsAlert:      isAlert,
	}); err != nil {
		c.logger.Warn("Failed to update latest reading cache", zap.Error(err))
	}

	if !alertPersisted {
		return
	}

	alerts, err := c.alerts.GetActiveAlerts(ctx, c.config.Vitals.SubjectID)
	if err != nil {
		c.logger.Warn("Failed to load active alerts for cache", zap.Error(err))
		return
	}
	if err := c.cache.SetActiveAlerts(ctx, alerts); err != nil {
		c.logger.Warn("Failed to update active alerts cache", zap.Error(err))
	}
}

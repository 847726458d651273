package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"wisefido-vitals/internal/config"
	"wisefido-vitals/internal/consumer"
	httpapi "wisefido-vitals/internal/http"
	"wisefido-vitals/internal/models"
	"wisefido-vitals/internal/mqtt"
	"wisefido-vitals/internal/notifier"
	"wisefido-vitals/internal/repository"
	"wisefido-vitals/internal/store"
	"wisefido-vitals/internal/ws"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// VitalsService 健康监测服务
// 组装摄入流水线（MQTT消费者）、查询API（HTTP）和实时推送（WebSocket）
type VitalsService struct {
	config     *config.Config
	logger     *zap.Logger
	db         *sql.DB
	gate       *store.Gate
	redis      *redis.Client
	mqttClient *mqtt.Client
	hub        *ws.Hub
	consumer   *consumer.Consumer
	httpServer *http.Server
}

// NewVitalsService 创建健康监测服务
func NewVitalsService(cfg *config.Config, logger *zap.Logger) (*VitalsService, error) {
	// 初始化数据库
	// 数据库未起不阻止进程启动：Gate 保持未就绪，HTTP返回503、消费者丢弃消息，
	// Monitor 周期性探活直到后端起来
	db, err := store.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	gate := store.NewGate(db, logger)

	// 初始化Redis；连不上只停用快照缓存，不影响主链路
	redisClient := store.NewRedisClient(&cfg.Redis)
	if err := store.PingRedis(context.Background(), redisClient); err != nil {
		logger.Warn("Redis unavailable, snapshot cache disabled", zap.Error(err))
		_ = store.CloseRedis(redisClient)
		redisClient = nil
	}

	// 初始化MQTT
	mqttClient, err := mqtt.NewClient(&cfg.MQTT, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MQTT: %w", err)
	}

	// 创建Repository
	readingsRepo := repository.NewReadingsRepository(db, logger)
	alertsRepo := repository.NewAlertsRepository(db, logger)
	thresholdsRepo := repository.NewThresholdsRepository(db, logger)

	// 创建缓存管理器与WebSocket广播中心
	var cacheManager *consumer.CacheManager
	if redisClient != nil {
		cacheManager = consumer.NewCacheManager(cfg, redisClient, logger)
	}
	hub := ws.NewHub(snapshotFunc(cfg, cacheManager, readingsRepo, alertsRepo, gate, logger), logger)

	// 报警回调（可选）
	var alertNotifier consumer.Notifier
	if cfg.Vitals.AlertWebhookURL != "" {
		alertNotifier = notifier.NewWebhookNotifier(cfg.Vitals.AlertWebhookURL, logger)
	}

	// 创建Consumer
	telemetryConsumer := consumer.NewConsumer(
		cfg, mqttClient, gate,
		readingsRepo, alertsRepo, thresholdsRepo,
		hub, cacheManager, alertNotifier,
		logger,
	)

	// HTTP路由
	router := httpapi.NewRouter(logger)
	router.RegisterSensorDataRoutes(httpapi.NewSensorDataHandler(readingsRepo, gate, cfg.Vitals.SubjectID, logger))
	router.RegisterAlertRoutes(httpapi.NewAlertsHandler(alertsRepo, gate, cfg.Vitals.SubjectID, logger))
	router.RegisterThresholdRoutes(httpapi.NewThresholdsHandler(thresholdsRepo, gate, cfg.Vitals.SubjectID, logger))
	router.RegisterHealthRoute(gate)
	router.Handle("/ws", ws.ServeWS(hub, logger))
	if cfg.HTTP.WebDir != "" {
		router.RegisterStaticRoutes(cfg.HTTP.WebDir)
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler: router,
	}

	return &VitalsService{
		config:     cfg,
		logger:     logger,
		db:         db,
		gate:       gate,
		redis:      redisClient,
		mqttClient: mqttClient,
		hub:        hub,
		consumer:   telemetryConsumer,
		httpServer: httpServer,
	}, nil
}

// Start 启动服务
func (s *VitalsService) Start(ctx context.Context) error {
	s.logger.Info("Starting vitals service components")

	// 数据库探活（整条链路上唯一带重试的环节）
	go s.gate.Monitor(ctx, time.Duration(s.config.Vitals.ReconnectInterval)*time.Second)

	// WebSocket广播中心
	go s.hub.Run(ctx)

	// MQTT消费者
	if err := s.consumer.Start(ctx); err != nil {
		return fmt.Errorf("failed to start telemetry consumer: %w", err)
	}

	// HTTP服务
	go func() {
		s.logger.Info("HTTP server listening",
			zap.Int("port", s.config.HTTP.Port),
		)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	s.logger.Info("Vitals service started successfully")
	return nil
}

// Stop 停止服务
func (s *VitalsService) Stop(ctx context.Context) error {
	s.logger.Info("Stopping vitals service")

	// 先停HTTP，避免关闭存储后继续接请求
	if s.httpServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Error shutting down HTTP server", zap.Error(err))
		}
	}

	// 停止Consumer
	if s.consumer != nil {
		if err := s.consumer.Stop(ctx); err != nil {
			s.logger.Error("Error stopping consumer", zap.Error(err))
		}
	}

	// 断开MQTT
	if s.mqttClient != nil {
		s.mqttClient.Disconnect()
	}

	// 关闭Redis
	if s.redis != nil {
		if err := store.CloseRedis(s.redis); err != nil {
			s.logger.Error("Error closing redis", zap.Error(err))
		}
	}

	// 关闭数据库
	if s.db != nil {
		if err := store.Close(s.db); err != nil {
			s.logger.Error("Error closing database", zap.Error(err))
		}
	}

	s.logger.Info("Vitals service stopped")
	return nil
}

// snapshotFunc 构造新WebSocket客户端的初始快照
// 优先走Redis缓存，缓存未命中（冷启动或TTL过期）时回落到数据库；
// 数据库也不可用时跳过快照，客户端等后续广播即可
func snapshotFunc(
	cfg *config.Config,
	cache *consumer.CacheManager,
	readings *repository.ReadingsRepository,
	alerts *repository.AlertsRepository,
	gate *store.Gate,
	logger *zap.Logger,
) ws.SnapshotFunc {
	subjectID := cfg.Vitals.SubjectID

	return func(ctx context.Context) [][]byte {
		// 先取活跃报警：数据库回落路径用它推导 is_alert
		alertMsgs, activeCount := alertSnapshots(ctx, cache, alerts, gate, subjectID, logger)

		var messages [][]byte
		if msg := latestSnapshot(ctx, cache, readings, gate, subjectID, activeCount > 0, logger); msg != nil {
			messages = append(messages, msg)
		}
		return append(messages, alertMsgs...)
	}
}

func latestSnapshot(
	ctx context.Context,
	cache *consumer.CacheManager,
	readings *repository.ReadingsRepository,
	gate *store.Gate,
	subjectID int64,
	hasActiveAlerts bool,
	logger *zap.Logger,
) []byte {
	var event *models.SensorUpdateEvent

	if cache != nil {
		cached, err := cache.GetLatestReading(ctx)
		if err != nil {
			logger.Warn("Failed to read latest reading from cache", zap.Error(err))
		}
		event = cached
	}

	if event == nil && gate.Ready() {
		reading, err := readings.GetLatestReading(ctx, subjectID)
		if err != nil {
			logger.Warn("Failed to read latest reading from database", zap.Error(err))
		} else if reading != nil {
			event = &models.SensorUpdateEvent{
				Timestamp:    reading.Timestamp,
				BodyTemp:     reading.BodyTemp,
				AmbientTemp:  reading.AmbientTemp,
				FallDetected: reading.FallDetected,
				IsAlert:      hasActiveAlerts,
			}
		}
	}

	if event == nil {
		return nil
	}
	return marshalEnvelope(models.EventSensorUpdate, event, logger)
}

func alertSnapshots(
	ctx context.Context,
	cache *consumer.CacheManager,
	alerts *repository.AlertsRepository,
	gate *store.Gate,
	subjectID int64,
	logger *zap.Logger,
) ([][]byte, int) {
	var active []models.Alert

	if cache != nil {
		cached, err := cache.GetActiveAlerts(ctx)
		if err != nil {
			logger.Warn("Failed to read active alerts from cache", zap.Error(err))
		}
		active = cached
	}

	if len(active) == 0 && gate.Ready() {
		fromDB, err := alerts.GetActiveAlerts(ctx, subjectID)
		if err != nil {
			logger.Warn("Failed to read active alerts from database", zap.Error(err))
			return nil, 0
		}
		active = fromDB
	}

	var messages [][]byte
	for _, alert := range active {
		event := models.NewAlertEvent{
			ID:         alert.AlertID,
			Timestamp:  alert.Timestamp,
			Type:       alert.Type,
			Value:      alert.Value,
			Message:    alert.Message,
			IsResolved: alert.IsResolved,
		}
		if msg := marshalEnvelope(models.EventNewAlert, event, logger); msg != nil {
			messages = append(messages, msg)
		}
	}
	return messages, len(active)
}

func marshalEnvelope(event string, payload interface{}, logger *zap.Logger) []byte {
	data, err := json.Marshal(ws.Envelope{Event: event, Payload: payload})
	if err != nil {
		logger.Error("Failed to marshal snapshot event",
			zap.String("event", event),
			zap.Error(err),
		)
		return nil
	}
	return data
}

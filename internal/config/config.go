package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
	MaxConns int
	MaxIdle  int
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT配置
type MQTTConfig struct {
	Broker   string
	Username string
	Password string
	Topic    string
	QoS      byte
	// ClientIDPrefix 客户端ID前缀（启动时追加随机后缀，避免broker踢掉重复ID）
	ClientIDPrefix string
}

// Config 健康监测服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig

	HTTP struct {
		Port   int
		WebDir string // 静态页面目录（dashboard前端）
	}

	Vitals struct {
		// SubjectID 监测对象ID（当前部署固定单人，但所有查询都显式带上）
		SubjectID int64

		// DefaultMaxBodyTemp 体温阈值缺省值（°C），阈值行缺失时使用
		DefaultMaxBodyTemp float64

		// ReconnectInterval 数据库重连/探活间隔（秒）
		ReconnectInterval int

		// Cache Redis 实时缓存配置
		Cache struct {
			LatestKey    string // 最新读数缓存键
			AlertsKey    string // 活跃报警快照缓存键
			TTL          int    // 缓存 TTL（秒）
		}

		// AlertWebhookURL 报警回调地址（为空则不启用）
		AlertWebhookURL string
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "vitals")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")
	cfg.Database.MaxConns = getEnvInt("DB_MAX_CONNS", 10)
	cfg.Database.MaxIdle = getEnvInt("DB_MAX_IDLE", 5)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "health/sensor")
	cfg.MQTT.QoS = byte(getEnvInt("MQTT_QOS", 1))
	cfg.MQTT.ClientIDPrefix = getEnv("MQTT_CLIENT_ID_PREFIX", "wisefido-vitals-")

	cfg.HTTP.Port = getEnvInt("HTTP_PORT", 3000)
	cfg.HTTP.WebDir = getEnv("HTTP_WEB_DIR", "./web")

	cfg.Vitals.SubjectID = int64(getEnvInt("SUBJECT_ID", 1))
	cfg.Vitals.DefaultMaxBodyTemp = getEnvFloat("DEFAULT_MAX_BODY_TEMP", 38.0)
	cfg.Vitals.ReconnectInterval = getEnvInt("DB_RECONNECT_INTERVAL", 5)

	cfg.Vitals.Cache.LatestKey = getEnv("CACHE_LATEST_KEY", "vitals:latest")
	cfg.Vitals.Cache.AlertsKey = getEnv("CACHE_ALERTS_KEY", "vitals:alerts:active")
	cfg.Vitals.Cache.TTL = getEnvInt("CACHE_TTL", 300)

	cfg.Vitals.AlertWebhookURL = getEnv("ALERT_WEBHOOK_URL", "")

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultValues(t *testing.T) {
	// 清除环境变量
	os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)
	assert.NotNil(t, cfg)

	// 验证默认值
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "postgres", cfg.Database.User)
	assert.Equal(t, "postgres", cfg.Database.Password)
	assert.Equal(t, "vitals", cfg.Database.Database)
	assert.Equal(t, "disable", cfg.Database.SSLMode)

	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "", cfg.Redis.Password)
	assert.Equal(t, 0, cfg.Redis.DB)

	assert.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	assert.Equal(t, "health/sensor", cfg.MQTT.Topic)
	assert.Equal(t, byte(1), cfg.MQTT.QoS)
	assert.Equal(t, "wisefido-vitals-", cfg.MQTT.ClientIDPrefix)

	assert.Equal(t, 3000, cfg.HTTP.Port)

	assert.Equal(t, int64(1), cfg.Vitals.SubjectID)
	assert.Equal(t, 38.0, cfg.Vitals.DefaultMaxBodyTemp)
	assert.Equal(t, 5, cfg.Vitals.ReconnectInterval)
	assert.Equal(t, "vitals:latest", cfg.Vitals.Cache.LatestKey)
	assert.Equal(t, "vitals:alerts:active", cfg.Vitals.Cache.AlertsKey)
	assert.Equal(t, 300, cfg.Vitals.Cache.TTL)
	assert.Equal(t, "", cfg.Vitals.AlertWebhookURL)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_EnvironmentVariables(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_HOST", "test-host")
	os.Setenv("DB_PORT", "15432")
	os.Setenv("DB_NAME", "test-db")
	os.Setenv("REDIS_ADDR", "test-redis:6380")
	os.Setenv("MQTT_BROKER", "ssl://broker.example.com:8883")
	os.Setenv("MQTT_TOPIC", "health/sensor/test")
	os.Setenv("HTTP_PORT", "8080")
	os.Setenv("SUBJECT_ID", "7")
	os.Setenv("DEFAULT_MAX_BODY_TEMP", "37.5")
	os.Setenv("ALERT_WEBHOOK_URL", "http://hooks.example.com/alerts")
	os.Setenv("LOG_LEVEL", "debug")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "test-host", cfg.Database.Host)
	assert.Equal(t, 15432, cfg.Database.Port)
	assert.Equal(t, "test-db", cfg.Database.Database)
	assert.Equal(t, "test-redis:6380", cfg.Redis.Addr)
	assert.Equal(t, "ssl://broker.example.com:8883", cfg.MQTT.Broker)
	assert.Equal(t, "health/sensor/test", cfg.MQTT.Topic)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, int64(7), cfg.Vitals.SubjectID)
	assert.Equal(t, 37.5, cfg.Vitals.DefaultMaxBodyTemp)
	assert.Equal(t, "http://hooks.example.com/alerts", cfg.Vitals.AlertWebhookURL)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_InvalidNumericEnvFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("DB_PORT", "not-a-number")
	os.Setenv("DEFAULT_MAX_BODY_TEMP", "abc")
	defer os.Clearenv()

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, 38.0, cfg.Vitals.DefaultMaxBodyTemp)
}

func TestGetDSN(t *testing.T) {
	cfg := &DatabaseConfig{
		Host:     "db.local",
		Port:     5432,
		User:     "vitals",
		Password: "secret",
		Database: "vitals",
		SSLMode:  "disable",
	}

	dsn := cfg.GetDSN()
	assert.Equal(t, "host=db.local port=5432 user=vitals password=secret dbname=vitals sslmode=disable", dsn)
}

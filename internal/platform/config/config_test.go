package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"SOJOURN_ADDR", "SHUTDOWN_TIMEOUT", "DASHBOARD_CONCURRENCY",
	"DATABASE_URL", "DATABASE_MAX_OPEN_CONNS", "DATABASE_MAX_IDLE_CONNS", "DATABASE_CONN_MAX_LIFETIME", "DATABASE_TX_TIMEOUT",
	"REDIS_URL", "REDIS_POOL_SIZE", "REDIS_MIN_IDLE_CONNS", "REDIS_DIAL_TIMEOUT", "REDIS_READ_TIMEOUT", "REDIS_WRITE_TIMEOUT",
	"STATUS_CACHE_TTL", "KAFKA_BROKERS", "ALERTS_TOPIC", "ALERTS_INTERVAL", "ALERTS_HORIZON_DAYS",
	"UNKNOWN_ZONE_POLICY", "EXTRA_COUNTING_ZONES", "EXTRA_EXCLUDED_ZONES", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
	}
}

func TestFromEnv(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		clearEnv(t)
		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":8080", cfg.Server.Addr)
		assert.Equal(t, 8, cfg.Server.DashboardConcurrency)
		assert.Empty(t, cfg.Database.URL)
		assert.Empty(t, cfg.Redis.URL)
		assert.Empty(t, cfg.Kafka.Brokers)
		assert.Equal(t, "sojourn.alerts", cfg.Kafka.Topic)
		assert.Equal(t, 10*time.Minute, cfg.Cache.StatusTTL)
		assert.Equal(t, time.Hour, cfg.Alerts.Interval)
		assert.Equal(t, 30, cfg.Alerts.HorizonDays)
		assert.Equal(t, "reject", cfg.Zones.UnknownPolicy)
		assert.Equal(t, "info", cfg.LogLevel)
	})

	t.Run("overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SOJOURN_ADDR", ":9090")
		t.Setenv("DATABASE_URL", "postgres://sojourn@db/sojourn?sslmode=disable")
		t.Setenv("REDIS_URL", "redis://cache:6379/0")
		t.Setenv("REDIS_POOL_SIZE", "32")
		t.Setenv("STATUS_CACHE_TTL", "90s")
		t.Setenv("KAFKA_BROKERS", " k1:9092, k2:9092 ,")
		t.Setenv("ALERTS_INTERVAL", "0s")
		t.Setenv("ALERTS_HORIZON_DAYS", "60")
		t.Setenv("UNKNOWN_ZONE_POLICY", "non_counting")
		t.Setenv("EXTRA_COUNTING_ZONES", "MC,SM")
		t.Setenv("LOG_LEVEL", "debug")

		cfg, err := FromEnv()
		require.NoError(t, err)
		assert.Equal(t, ":9090", cfg.Server.Addr)
		assert.Equal(t, "postgres://sojourn@db/sojourn?sslmode=disable", cfg.Database.URL)
		assert.Equal(t, 32, cfg.Redis.PoolSize)
		assert.Equal(t, 90*time.Second, cfg.Cache.StatusTTL)
		assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
		assert.Zero(t, cfg.Alerts.Interval)
		assert.Equal(t, 60, cfg.Alerts.HorizonDays)
		assert.Equal(t, "non_counting", cfg.Zones.UnknownPolicy)
		assert.Equal(t, "MC,SM", cfg.Zones.ExtraCounting)
		assert.Equal(t, "debug", cfg.LogLevel)
	})

	t.Run("invalid values are reported", func(t *testing.T) {
		for key, value := range map[string]string{
			"REDIS_POOL_SIZE":     "many",
			"STATUS_CACHE_TTL":    "forever",
			"ALERTS_HORIZON_DAYS": "0",
		} {
			t.Run(key, func(t *testing.T) {
				clearEnv(t)
				t.Setenv(key, value)
				_, err := FromEnv()
				assert.ErrorContains(t, err, key)
			})
		}
	})
}

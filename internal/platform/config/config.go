package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	platformstrings "sojourn/pkg/platform/strings"
)

// Config captures process level configuration.
type Config struct {
	Server   Server
	Database DatabaseConfig
	Redis    RedisConfig
	Cache    CacheConfig
	Kafka    KafkaConfig
	Alerts   AlertsConfig
	Zones    ZonesConfig
	LogLevel string
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr                 string
	ShutdownTimeout      time.Duration
	DashboardConcurrency int
}

// DatabaseConfig selects the Postgres trip store. An empty URL keeps trips in memory.
type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	TxTimeout       time.Duration
}

// RedisConfig selects the Redis status cache. An empty URL uses the in-process cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// CacheConfig tunes the status cache.
type CacheConfig struct {
	StatusTTL time.Duration
}

// KafkaConfig selects the Kafka alert publisher. No brokers means alerts are logged.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// AlertsConfig tunes the future-risk scanner. A zero interval disables it.
type AlertsConfig struct {
	Interval    time.Duration
	HorizonDays int
}

// ZonesConfig extends the zone table and sets the unknown-zone policy.
type ZonesConfig struct {
	UnknownPolicy string
	ExtraCounting string
	ExtraExcluded string
}

// FromEnv builds a Config from environment variables so main stays lean.
func FromEnv() (Config, error) {
	var p parser
	cfg := Config{
		Server: Server{
			Addr:                 p.str("SOJOURN_ADDR", ":8080"),
			ShutdownTimeout:      p.duration("SHUTDOWN_TIMEOUT", 10*time.Second),
			DashboardConcurrency: p.integer("DASHBOARD_CONCURRENCY", 8),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    p.integer("DATABASE_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    p.integer("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("DATABASE_CONN_MAX_LIFETIME", 30*time.Minute),
			TxTimeout:       p.duration("DATABASE_TX_TIMEOUT", 5*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     p.integer("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.integer("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Cache: CacheConfig{
			StatusTTL: p.duration("STATUS_CACHE_TTL", 10*time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers: platformstrings.SplitList(os.Getenv("KAFKA_BROKERS")),
			Topic:   p.str("ALERTS_TOPIC", "sojourn.alerts"),
		},
		Alerts: AlertsConfig{
			Interval:    p.duration("ALERTS_INTERVAL", time.Hour),
			HorizonDays: p.integer("ALERTS_HORIZON_DAYS", 30),
		},
		Zones: ZonesConfig{
			UnknownPolicy: p.str("UNKNOWN_ZONE_POLICY", "reject"),
			ExtraCounting: os.Getenv("EXTRA_COUNTING_ZONES"),
			ExtraExcluded: os.Getenv("EXTRA_EXCLUDED_ZONES"),
		},
		LogLevel: p.str("LOG_LEVEL", "info"),
	}
	if p.err != nil {
		return Config{}, p.err
	}
	if cfg.Cache.StatusTTL <= 0 {
		return Config{}, fmt.Errorf("STATUS_CACHE_TTL must be positive")
	}
	if cfg.Alerts.HorizonDays < 1 {
		return Config{}, fmt.Errorf("ALERTS_HORIZON_DAYS must be at least 1")
	}
	return cfg, nil
}

// parser keeps the first parse error so FromEnv can report it once.
type parser struct {
	err error
}

func (p *parser) str(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func (p *parser) integer(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: invalid integer %q", key, raw))
		return def
	}
	return n
}

func (p *parser) duration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.fail(fmt.Errorf("%s: invalid duration %q", key, raw))
		return def
	}
	return d
}

func (p *parser) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

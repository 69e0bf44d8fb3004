package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/uma-arai/sbcntr-booking/internal/common/database"
)

const (
	BackendAPI = "api"
	BackendDB  = "db"
)

type APIConfig struct {
	BaseURL string        `env:"BASE_URL" envDefault:"http://localhost:8080/api"`
	User    string        `env:"USER"`
	Pass    string        `env:"PASSWORD"`
	Timeout time.Duration `env:"TIMEOUT" envDefault:"25s"`
}

type StoreConfig struct {
	Timezone     string `env:"TIMEZONE" envDefault:"Australia/Sydney"`
	MaxGroupSize int    `env:"MAX_GROUP_SIZE" envDefault:"4"`
}

type RedisConfig struct {
	URL      string        `env:"URL"`
	StaffTTL time.Duration `env:"STAFF_TTL" envDefault:"5m"`
}

type AMQPConfig struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"booking.events"`
}

type Config struct {
	DB       database.Config `envPrefix:"DB_"`
	API      APIConfig       `envPrefix:"BOOKING_API_"`
	Store    StoreConfig     `envPrefix:"STORE_"`
	Backend  string          `env:"BOOKING_BACKEND" envDefault:"api"`
	Redis    RedisConfig     `envPrefix:"REDIS_"`
	AMQP     AMQPConfig      `envPrefix:"AMQP_"`
	LogLevel string          `env:"LOG_LEVEL" envDefault:"info"`

	PushgatewayURL string `env:"PROMETHEUS_PUSHGATEWAY_URL"`

	SFN struct {
		TaskToken string
	}
	EnableTracing bool

	location *time.Location
}

// LoadConfig は.envファイルと環境変数から設定を読み込みます
func LoadConfig(taskToken string) (*Config, error) {
	if err := loadDotEnv(".env", ".env.local"); err != nil {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}
	cfg.SFN.TaskToken = taskToken

	if cfg.Backend != BackendAPI && cfg.Backend != BackendDB {
		return nil, fmt.Errorf("unknown BOOKING_BACKEND %q (want %s or %s)", cfg.Backend, BackendAPI, BackendDB)
	}
	if cfg.Store.MaxGroupSize < 1 {
		return nil, errors.New("STORE_MAX_GROUP_SIZE must be at least 1")
	}
	loc, err := time.LoadLocation(cfg.Store.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid STORE_TIMEZONE: %w", err)
	}
	cfg.location = loc

	// 環境変数[SBCNTR_ENABLE_TRACING]を見てトレースを有効にする。対応しているTracingはAWS_XRAYのみ。
	// 環境変数[AWS_XRAY_SDK_DISABLED]がtrueの場合は必ずトレースを無効にする。
	enableKey := os.Getenv("SBCNTR_ENABLE_TRACING")
	if !sdkDisabled() && (strings.ToLower(enableKey) == "true" || enableKey == "1") {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "FALSE")
		cfg.EnableTracing = true
	} else {
		os.Setenv("AWS_XRAY_SDK_DISABLED", "TRUE")
		cfg.EnableTracing = false
	}

	return cfg, nil
}

// Location は店舗のタイムゾーンを返します
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

func loadDotEnv(files ...string) error {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	return godotenv.Load(existing...)
}

// Check if SDK is disabled
func sdkDisabled() bool {
	disableKey := os.Getenv("AWS_XRAY_SDK_DISABLED")
	return strings.ToLower(disableKey) == "true"
}

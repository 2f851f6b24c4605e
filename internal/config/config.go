package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/kfp-startpage/internal/constants"
)

type Config struct {
	Server   ServerConfig
	Pipeline PipelineConfig
	Samples  SamplesConfig
	Redis    RedisConfig
	Logging  LoggingConfig
}

type ServerConfig struct {
	Addr string
}

type PipelineConfig struct {
	BaseURL   string
	Namespace string
	AuthToken string
	Timeout   time.Duration
}

// SamplesConfig points at an optional JSON/YAML list of sample pipeline names.
// An empty File means the embedded list is used.
type SamplesConfig struct {
	File string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	Channel  string
}

type LoggingConfig struct {
	Level string
	File  string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr: getEnv("STARTPAGE_ADDR", ":8080"),
		},
		Pipeline: PipelineConfig{
			BaseURL:   strings.TrimRight(getEnv("KFP_API_BASE_URL", "http://localhost:8888"), "/"),
			Namespace: getEnv("KFP_NAMESPACE", ""),
			AuthToken: getEnv("KFP_AUTH_TOKEN", ""),
			Timeout:   getEnvDuration("KFP_API_TIMEOUT", constants.APIConfig.DefaultTimeout),
		},
		Samples: SamplesConfig{
			File: getEnv("SAMPLES_FILE", ""),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			Channel:  getEnv("REDIS_REFRESH_CHANNEL", constants.BroadcastConfig.Channel),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("STARTPAGE_ADDR is required")
	}
	if c.Pipeline.BaseURL == "" {
		return fmt.Errorf("KFP_API_BASE_URL is required")
	}
	u, err := url.Parse(c.Pipeline.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("KFP_API_BASE_URL must be an absolute URL: %q", c.Pipeline.BaseURL)
	}
	if c.Pipeline.Timeout <= 0 {
		return fmt.Errorf("KFP_API_TIMEOUT must be positive")
	}
	if c.Redis.Enabled && c.Redis.Channel == "" {
		return fmt.Errorf("REDIS_REFRESH_CHANNEL is required when REDIS_ENABLED is set")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go duration strings ("15s") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

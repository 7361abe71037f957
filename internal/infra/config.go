package infra

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv      string
	Port        string
	DatabaseURL string

	RedisAddr     string
	RedisPassword string

	JobRequestQueue string
	JobEventQueue   string
	NotifyChannel   string

	WorkerConcurrency int
	BillingCron       string

	PaymentPrefix string

	StorageInternalURL string
	StoragePublicURL   string

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		Port:               getEnv("PORT", "8080"),
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      os.Getenv("REDIS_PASSWORD"),
		JobRequestQueue:    getEnv("JOB_REQUEST_QUEUE", "job-requests"),
		JobEventQueue:      getEnv("JOB_EVENT_QUEUE", "job-events"),
		NotifyChannel:      getEnv("NOTIFY_CHANNEL_PREFIX", "notify:user:"),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),
		BillingCron:        getEnv("BILLING_CRON", "0 2 * * *"),
		PaymentPrefix:      getEnv("PAYMENT_PREFIX", "RENDERHUB"),
		StorageInternalURL: getEnv("STORAGE_INTERNAL_URL", "http://minio:9000"),
		StoragePublicURL:   os.Getenv("STORAGE_PUBLIC_URL"),
		HTTPReadTimeout:    time.Second * time.Duration(getEnvInt("HTTP_READ_TIMEOUT_SECONDS", 15)),
		HTTPWriteTimeout:   time.Second * time.Duration(getEnvInt("HTTP_WRITE_TIMEOUT_SECONDS", 30)),
		HTTPIdleTimeout:    time.Second * time.Duration(getEnvInt("HTTP_IDLE_TIMEOUT_SECONDS", 60)),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.WorkerConcurrency < 1 {
		cfg.WorkerConcurrency = 1
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

package config

import (
	"os"
	"strconv"
	"time"
)

type EnvConfig struct {
	Postgres struct {
		Host     string
		Database string
		Username string
		Password string
		Port     string
	}
	JWT struct {
		SecretKey string
		Expire    int
	}
	CORS struct {
		AllowDomains string
	}
	Redis struct {
		Host     string
		Port     string
		Password string
		Database int
		CacheTTL time.Duration
	}
	RabbitMQ struct {
		Host     string
		Port     string
		Username string
		Password string
		VHost    string
	}
	Minio struct {
		Endpoint  string
		AccessKey string
		SecretKey string
		Bucket    string
		UseSSL    bool
	}
	Scrape struct {
		Timeout       time.Duration
		Retries       int
		BackoffFactor float64
	}
	Worker struct {
		Concurrency   int
		HardTimeLimit time.Duration
		SoftTimeLimit time.Duration
		MaxRetries    int
		RetryDelay    time.Duration
	}
	SuperUser struct {
		LoginKey string
	}
	PrivateKey string
	Grafana    struct {
		OTLPEndpoint string
		ServiceName  string
	}
	Environment struct {
		Mode string
	}
	DownloadDir string
}

func LoadEnvConfig() *EnvConfig {
	var config EnvConfig

	// Postgres
	config.Postgres.Host = getEnv("POSTGRES_HOST", "localhost")
	config.Postgres.Database = getEnv("POSTGRES_DB", "tri")
	config.Postgres.Username = getEnv("POSTGRES_USER", "postgres")
	config.Postgres.Password = os.Getenv("POSTGRES_PASSWORD")
	config.Postgres.Port = getEnv("POSTGRES_PORT", "5432")

	// JWT
	config.JWT.SecretKey = os.Getenv("JWT_SECRET_KEY")
	config.JWT.Expire = getEnvInt("JWT_EXPIRE", 3600*24*7)

	config.CORS.AllowDomains = os.Getenv("ALLOWED_DOMAINS")

	// Redis
	config.Redis.Host = getEnv("REDIS_HOST", "localhost")
	config.Redis.Port = getEnv("REDIS_PORT", "6379")
	config.Redis.Password = os.Getenv("REDIS_PASSWORD")
	config.Redis.Database = getEnvInt("REDIS_DB", 0)
	config.Redis.CacheTTL = time.Duration(getEnvInt("REDIS_CACHE_TTL", 3600)) * time.Second

	// RabbitMQ
	config.RabbitMQ.Host = getEnv("RABBITMQ_HOST", "localhost")
	config.RabbitMQ.Port = getEnv("RABBITMQ_PORT", "5672")
	config.RabbitMQ.Username = getEnv("RABBITMQ_USER", "guest")
	config.RabbitMQ.Password = getEnv("RABBITMQ_PASSWORD", "guest")
	config.RabbitMQ.VHost = getEnv("RABBITMQ_VHOST", "/")

	// MinIO / S3-compatible object store holding the trove archives
	config.Minio.Endpoint = getEnv("MINIO_ENDPOINT", "localhost:9000")
	config.Minio.AccessKey = os.Getenv("MINIO_ACCESS_KEY")
	config.Minio.SecretKey = os.Getenv("MINIO_SECRET_KEY")
	config.Minio.Bucket = getEnv("MINIO_TROVE_BUCKET", "tri-db")
	config.Minio.UseSSL = getEnv("MINIO_USE_SSL", "false") == "true"

	// Archive download behaviour
	config.Scrape.Timeout = time.Duration(getEnvInt("SCRAPE_TIMEOUT", 10)) * time.Second
	config.Scrape.Retries = getEnvInt("SCRAPE_RETRIES", 5)
	config.Scrape.BackoffFactor = 1.0
	if val := os.Getenv("SCRAPE_BACKOFF_FACTOR"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			config.Scrape.BackoffFactor = f
		}
	}

	// Queue worker behaviour
	config.Worker.Concurrency = getEnvInt("WORKER_CONCURRENCY", 4)
	config.Worker.HardTimeLimit = time.Duration(getEnvInt("TASK_TIME_LIMIT", 900)) * time.Second
	config.Worker.SoftTimeLimit = time.Duration(getEnvInt("TASK_SOFT_TIME_LIMIT", 600)) * time.Second
	config.Worker.MaxRetries = getEnvInt("TASK_MAX_RETRIES", 3)
	config.Worker.RetryDelay = time.Duration(getEnvInt("TASK_RETRY_DELAY", 180)) * time.Second

	config.SuperUser.LoginKey = os.Getenv("SUPER_USER_LOGIN_KEY")
	config.PrivateKey = os.Getenv("PRIVATE_KEY")

	// Grafana/OpenTelemetry
	config.Grafana.OTLPEndpoint = os.Getenv("GRAFANA_OTLP_ENDPOINT")
	config.Grafana.ServiceName = getEnv("SERVICE_NAME", "tri-api")

	config.Environment.Mode = getEnv("DEPLOY_ENV", "development")

	config.DownloadDir = getEnv("TROVE_DOWNLOAD_DIR", os.TempDir())

	return &config
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}

package infra

import (
	"context"

	"github.com/trintel/tri-api/config"
	"github.com/trintel/tri-api/infra/produce"
)

type Infra struct {
	Logger    *LoggerClient
	Telemetry *TelemetryClient
	Postgres  *PostgresClient
	Redis     *RedisClient
	RabbitMQ  *RabbitMQClient
	Minio     *MinioClient
	Produce   *produce.Produce
}

// InitInfra constructs every external-facing client. Clients are passed
// down explicitly; there is no package-level instance.
func InitInfra(cfg *config.Config) *Infra {
	logger := InitLoggerClient(cfg.EnvConfig)
	telemetry := InitTelemetryClient(cfg.EnvConfig)

	postgres := InitPostgresClient(cfg.EnvConfig)
	if postgres == nil {
		panic("Failed to initialize Postgres service")
	}

	redis := InitRedisClient(cfg.EnvConfig)
	if redis == nil {
		panic("Failed to initialize Redis service")
	}

	rabbitMQ := InitRabbitMQClient(cfg.EnvConfig)
	if rabbitMQ == nil {
		panic("Failed to initialize RabbitMQ service")
	}

	minio := InitMinioClient(cfg.EnvConfig)
	if minio == nil {
		panic("Failed to initialize MinIO service")
	}

	produceService := produce.InitProduce(rabbitMQ.Channel)
	if produceService == nil {
		panic("Failed to initialize Produce service")
	}

	return &Infra{
		Logger:    logger,
		Telemetry: telemetry,
		Postgres:  postgres,
		Redis:     redis,
		RabbitMQ:  rabbitMQ,
		Minio:     minio,
		Produce:   produceService,
	}
}

// Close releases every client in reverse construction order.
func (i *Infra) Close(ctx context.Context) {
	if i.RabbitMQ != nil {
		_ = i.RabbitMQ.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
	if i.Postgres != nil {
		_ = i.Postgres.Close()
	}
	if i.Telemetry != nil {
		_ = i.Telemetry.Close(ctx)
	}
	if i.Logger != nil {
		_ = i.Logger.Close(ctx)
	}
}

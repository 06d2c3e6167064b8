package main

import (
	"context"
	"os"
	"time"

	"github.com/foltz-ar/checkout-service/internal/config"
	"github.com/foltz-ar/checkout-service/internal/conversions/application"
	convkafka "github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/kafka"
	"github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/meta"
	"github.com/foltz-ar/checkout-service/pkg/idempotency"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/foltz-ar/checkout-service/pkg/shutdown"
	"github.com/foltz-ar/checkout-service/pkg/tracing"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		logging.New("info").Error("config load failed", "err", err)
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	ctx, cancel := shutdown.WithSignals(context.Background())
	defer cancel()

	stopTracing, err := tracing.Setup(ctx, "conversions-service", cfg.OTLPEndpoint)
	if err != nil {
		log.Error("otel init failed", "err", err)
		os.Exit(1)
	}
	defer func() { _ = stopTracing(context.WithoutCancel(ctx)) }()

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()

	svc := application.NewService(log, meta.NewClient(log, meta.Config{
		PixelID:     cfg.Meta.PixelID,
		AccessToken: cfg.Meta.AccessToken,
		Timeout:     cfg.UpstreamTimeout,
	}))
	reader := convkafka.NewReader(cfg.KafkaBrokers, cfg.OutboxTopic, cfg.ConsumerGroup)
	consumer := convkafka.NewConsumer(log, reader, svc, idempotency.NewStore(rdb, 7*24*time.Hour))

	log.Info("conversions-service consuming", "topic", cfg.OutboxTopic, "group", cfg.ConsumerGroup)
	if err := consumer.Run(ctx); err != nil {
		log.Error("consumer stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("conversions-service shutdown complete")
}

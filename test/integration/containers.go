//go:build integration

package integration

import (
	"context"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

type Env struct {
	PG        *postgres.PostgresContainer
	Redis     *tcredis.RedisContainer
	Kafka     *kafka.KafkaContainer
	PGURL     string
	RedisAddr string
	KAddr     []string
}

// Setup starts Postgres, Redis and Kafka. Startup is bounded by a few minutes
// since image pulls dominate on a cold machine.
func Setup(ctx context.Context) (*Env, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Minute)
	defer cancel()

	env := &Env{}
	var err error

	env.PG, err = postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("checkout"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		return nil, err
	}
	env.PGURL, err = env.PG.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		env.Teardown(context.Background())
		return nil, err
	}

	env.Redis, err = tcredis.Run(ctx, "redis:7-alpine")
	if err != nil {
		env.Teardown(context.Background())
		return nil, err
	}
	uri, err := env.Redis.ConnectionString(ctx)
	if err != nil {
		env.Teardown(context.Background())
		return nil, err
	}
	env.RedisAddr = uri[len("redis://"):]

	env.Kafka, err = kafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		kafka.WithClusterID("checkout-test"),
	)
	if err != nil {
		env.Teardown(context.Background())
		return nil, err
	}
	env.KAddr, err = env.Kafka.Brokers(ctx)
	if err != nil {
		env.Teardown(context.Background())
		return nil, err
	}
	return env, nil
}

func (e *Env) Teardown(ctx context.Context) {
	for _, c := range []testcontainers.Container{e.Kafka, e.Redis, e.PG} {
		_ = testcontainers.TerminateContainer(c)
	}
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/foltz-ar/checkout-service/internal/config"
	orderapp "github.com/foltz-ar/checkout-service/internal/order/application"
	orderpg "github.com/foltz-ar/checkout-service/internal/order/infrastructure/postgres"
	"github.com/foltz-ar/checkout-service/internal/order/infrastructure/shopify"
	paymentapp "github.com/foltz-ar/checkout-service/internal/payment/application"
	"github.com/foltz-ar/checkout-service/internal/payment/infrastructure/dlocal"
	"github.com/foltz-ar/checkout-service/internal/reconcile/application"
	"github.com/foltz-ar/checkout-service/pkg/idempotency"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

// app holds the wired services shared by the subcommands.
type app struct {
	cfg  config.Config
	log  *slog.Logger
	pool *pgxpool.Pool
	rdb  *redis.Client

	ledger  *orderpg.Ledger
	idem    *idempotency.Store
	dlocal  *dlocal.Client
	shopify *shopify.Client

	payments   *paymentapp.Service
	registrar  *orderapp.Registrar
	confirmer  *orderapp.Confirmer
	reconciler *application.Reconciler
}

func loadConfig(opts *options) (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return cfg, logging.New(cfg.LogLevel), nil
}

func connectPostgres(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("pg connect: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg ping: %w", err)
	}
	return pool, nil
}

func newApp(ctx context.Context, opts *options) (*app, error) {
	cfg, log, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	pool, err := connectPostgres(ctx, cfg.PGURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})

	a := &app{cfg: cfg, log: log, pool: pool, rdb: rdb}
	a.ledger = orderpg.NewLedger(log, pool)
	a.idem = idempotency.NewStore(rdb, 24*time.Hour)
	a.dlocal = dlocal.NewClient(log, dlocal.Config{
		BaseURL:   dlocal.BaseURLFor(cfg.DLocal.Environment),
		APIKey:    cfg.DLocal.APIKey,
		SecretKey: cfg.DLocal.SecretKey,
		Timeout:   cfg.UpstreamTimeout,
	})
	a.shopify = shopify.NewClient(log, shopify.Config{
		StoreDomain: cfg.Shopify.StoreDomain,
		AccessToken: cfg.Shopify.AdminToken,
		APIVersion:  cfg.Shopify.APIVersion,
		Timeout:     cfg.UpstreamTimeout,
		MinInterval: cfg.Shopify.MinInterval,
	})

	a.payments = paymentapp.NewService(log, a.dlocal, a.ledger, a.idem, paymentapp.URLs{Base: cfg.BaseURL, Webhook: cfg.DLocal.WebhookURL})
	a.registrar = orderapp.NewRegistrar(log, a.shopify, a.ledger, a.idem, cfg.ARSRate)
	a.confirmer = orderapp.NewConfirmer(log, a.shopify, a.dlocal, a.ledger, cfg.ConfirmMaxElapsed)
	a.reconciler = application.NewReconciler(log, a.ledger, a.dlocal, a.registrar, a.confirmer, application.Config{
		Grace:        cfg.Reconcile.Grace,
		AbandonAfter: cfg.Reconcile.AbandonAfter,
	})
	return a, nil
}

func (a *app) Close() {
	_ = a.rdb.Close()
	a.pool.Close()
}

package main

import (
	"context"
	"net/http"
	"time"

	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	convapp "github.com/foltz-ar/checkout-service/internal/conversions/application"
	convhttp "github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/meta"
	"github.com/foltz-ar/checkout-service/internal/health"
	healthgrpc "github.com/foltz-ar/checkout-service/internal/health/grpc"
	healthhttp "github.com/foltz-ar/checkout-service/internal/health/http"
	orderhttp "github.com/foltz-ar/checkout-service/internal/order/infrastructure/http"
	orderkafka "github.com/foltz-ar/checkout-service/internal/order/infrastructure/kafka"
	orderpg "github.com/foltz-ar/checkout-service/internal/order/infrastructure/postgres"
	paymenthttp "github.com/foltz-ar/checkout-service/internal/payment/infrastructure/http"
	pricing "github.com/foltz-ar/checkout-service/internal/pricing/domain"
	pricinghttp "github.com/foltz-ar/checkout-service/internal/pricing/infrastructure/http"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"github.com/foltz-ar/checkout-service/pkg/shutdown"
	"github.com/foltz-ar/checkout-service/pkg/tracing"
	"github.com/go-chi/chi/v5"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/sync/errgroup"
)

func serveCmd(opts *options) *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the outbox relay and the reconciliation loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts, skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "do not apply migrations at start")
	return cmd
}

func runServe(parent context.Context, opts *options, skipMigrate bool) error {
	ctx, cancel := shutdown.WithSignals(parent)
	defer cancel()

	a, err := newApp(ctx, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	log, cfg := a.log, a.cfg

	stopTracing, err := tracing.Setup(ctx, "checkout-service", cfg.OTLPEndpoint)
	if err != nil {
		return err
	}
	defer func() { _ = stopTracing(context.WithoutCancel(ctx)) }()

	if !skipMigrate {
		if err := orderpg.Migrate(ctx, log, a.pool); err != nil {
			return err
		}
	}

	writer := orderkafka.NewWriter(cfg.KafkaBrokers)
	defer writer.Close()
	relay := outbox.NewRelay(log, orderpg.NewOutboxStore(log, a.pool), outbox.NewDispatcher(log, writer, cfg.OutboxTopic), "checkout-service-relay")

	checks := health.NewChecks(map[string]health.Pinger{
		"postgres": a.ledger,
		"redis":    a.idem,
	})
	responder := checkouthttp.NewResponder(log, cfg.Production())
	conversions := convapp.NewService(log, meta.NewClient(log, meta.Config{
		PixelID:     cfg.Meta.PixelID,
		AccessToken: cfg.Meta.AccessToken,
		Timeout:     cfg.UpstreamTimeout,
	}))

	r := httpx.Router(log, 60*time.Second)
	healthhttp.NewHandler(checks).Register(r)
	r.Route("/api", func(api chi.Router) {
		api.Mount("/dlocal", paymenthttp.NewHandler(log, a.payments, a.confirmer, a.dlocal, a.idem, responder).Routes())
		api.Mount("/shopify", orderhttp.NewHandler(log, a.registrar, a.confirmer, responder).Routes())
		api.Mount("/pricing", pricinghttp.NewHandler(log, pricing.NewEngine(cfg.Pricing), responder).Routes())
		convhttp.NewHandler(log, conversions, cfg.Shopify.WebhookSecret, responder).Register(api)
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           otelhttp.NewHandler(r, "checkout-service"),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      70 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return shutdown.ServeHTTP(gctx, log, srv, 10*time.Second) })
	g.Go(func() error { return healthgrpc.NewServer(log, checks, "checkout-service").Run(gctx, cfg.GRPCAddr) })
	g.Go(func() error { return relay.Run(gctx) })
	g.Go(func() error { return a.reconciler.Run(gctx, cfg.Reconcile.Interval) })

	err = g.Wait()
	log.Info("checkout-service shutdown complete")
	return err
}

package application

import (
	"context"
	"log/slog"
	"sync"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	orderdomain "github.com/foltz-ar/checkout-service/internal/order/domain"
	payment "github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"golang.org/x/sync/errgroup"
)

type Ledger interface {
	ListStale(ctx context.Context, statuses []checkout.AttemptStatus, before time.Time, limit int) ([]checkout.Attempt, error)
	Save(ctx context.Context, a checkout.Attempt, events ...outbox.Event) error
}

type Payments interface {
	RetrievePayment(ctx context.Context, id string) (payment.Payment, error)
}

type Registrar interface {
	CreatePending(ctx context.Context, data checkout.CheckoutData, paymentID string) (orderdomain.Registration, error)
}

type Settler interface {
	Settle(ctx context.Context, orderID int64, p payment.Payment) (orderdomain.Confirmation, error)
}

type Config struct {
	Grace        time.Duration
	AbandonAfter time.Duration
	BatchSize    int
	Concurrency  int
}

// Summary counts what one pass did.
type Summary struct {
	Scanned   int
	Recovered int
	Confirmed int
	Abandoned int
	Waiting   int
	Failed    int
}

// Reconciler finishes checkouts left half done: payments without an order and
// paid payments whose order was never marked paid.
type Reconciler struct {
	log       *slog.Logger
	ledger    Ledger
	payments  Payments
	registrar Registrar
	settler   Settler
	cfg       Config
	now       func() time.Time
}

func NewReconciler(log *slog.Logger, ledger Ledger, payments Payments, registrar Registrar, settler Settler, cfg Config) *Reconciler {
	if cfg.Grace <= 0 {
		cfg.Grace = 15 * time.Minute
	}
	if cfg.AbandonAfter <= 0 {
		cfg.AbandonAfter = 72 * time.Hour
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Reconciler{
		log:       log,
		ledger:    ledger,
		payments:  payments,
		registrar: registrar,
		settler:   settler,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Run reconciles every interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context, interval time.Duration) error {
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if _, err := r.Pass(ctx); err != nil {
				r.log.Error("reconcile pass failed", "err", err)
			}
		}
	}
}

type outcome int

const (
	outcomeWaiting outcome = iota
	outcomeRecovered
	outcomeConfirmed
	outcomeAbandoned
	outcomeFailed
)

// Pass runs one reconciliation over the stale attempts. Per-attempt failures
// are logged and counted; only a ledger listing failure is returned.
func (r *Reconciler) Pass(ctx context.Context) (Summary, error) {
	before := r.now().Add(-r.cfg.Grace)

	orphans, err := r.ledger.ListStale(ctx, []checkout.AttemptStatus{checkout.AttemptPaymentCreated, checkout.AttemptOrderFailed}, before, r.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}
	unsettled, err := r.ledger.ListStale(ctx, []checkout.AttemptStatus{checkout.AttemptOrderPending, checkout.AttemptConfirmFailed}, before, r.cfg.BatchSize)
	if err != nil {
		return Summary{}, err
	}

	var (
		mu  sync.Mutex
		sum Summary
	)
	count := func(o outcome) {
		mu.Lock()
		defer mu.Unlock()
		switch o {
		case outcomeRecovered:
			sum.Recovered++
		case outcomeConfirmed:
			sum.Confirmed++
		case outcomeAbandoned:
			sum.Abandoned++
		case outcomeFailed:
			sum.Failed++
		default:
			sum.Waiting++
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)
	for _, a := range orphans {
		g.Go(func() error {
			count(r.recover(gctx, a))
			return nil
		})
	}
	for _, a := range unsettled {
		g.Go(func() error {
			count(r.settle(gctx, a))
			return nil
		})
	}
	_ = g.Wait()

	sum.Scanned = len(orphans) + len(unsettled)
	r.log.Info("reconcile pass done",
		"scanned", sum.Scanned,
		"recovered", sum.Recovered,
		"confirmed", sum.Confirmed,
		"abandoned", sum.Abandoned,
		"waiting", sum.Waiting,
		"failed", sum.Failed,
	)
	return sum, nil
}

// recover handles a payment that never got an order.
func (r *Reconciler) recover(ctx context.Context, a checkout.Attempt) outcome {
	log := r.log.With("payment_id", a.PaymentID, "idempotency_key", a.IdempotencyKey)

	p, err := r.payments.RetrievePayment(ctx, a.PaymentID)
	if err != nil {
		log.Error("reconcile: payment lookup failed", "err", err)
		return outcomeFailed
	}
	if !p.Status.IsPaid() {
		if p.Status.IsTerminalFailure() || r.now().Sub(a.CreatedAt) > r.cfg.AbandonAfter {
			return r.abandon(ctx, log, a, p)
		}
		return outcomeWaiting
	}

	reg, err := r.registrar.CreatePending(ctx, a.Checkout, a.PaymentID)
	if err != nil {
		log.Error("reconcile: order creation failed", "err", err)
		return outcomeFailed
	}
	if _, err := r.settler.Settle(ctx, reg.Order.ID, p); err != nil {
		log.Error("reconcile: order created but not confirmed", "order_id", reg.Order.ID, "err", err)
		return outcomeFailed
	}
	log.Info("reconcile: order recovered for paid payment", "order_id", reg.Order.ID, "order_name", reg.Order.Name)
	return outcomeRecovered
}

// settle handles an order that exists but was not marked paid.
func (r *Reconciler) settle(ctx context.Context, a checkout.Attempt) outcome {
	log := r.log.With("payment_id", a.PaymentID, "order_id", a.OrderID)

	p, err := r.payments.RetrievePayment(ctx, a.PaymentID)
	if err != nil {
		log.Error("reconcile: payment lookup failed", "err", err)
		return outcomeFailed
	}
	switch {
	case p.Status.IsPaid():
		if _, err := r.settler.Settle(ctx, a.OrderID, p); err != nil {
			log.Error("reconcile: order confirmation failed", "err", err)
			return outcomeFailed
		}
		log.Info("reconcile: order confirmed")
		return outcomeConfirmed
	case p.Status.IsTerminalFailure():
		return r.abandon(ctx, log, a, p)
	default:
		return outcomeWaiting
	}
}

func (r *Reconciler) abandon(ctx context.Context, log *slog.Logger, a checkout.Attempt, p payment.Payment) outcome {
	a.Status = checkout.AttemptAbandoned
	a.PaymentStatus = string(p.Status)
	ev, err := outbox.NewEvent(ctx, checkout.AggregateCheckout, a.PaymentID, checkout.EventCheckoutAbandoned, a.Event(r.now()))
	if err == nil {
		err = r.ledger.Save(ctx, a, ev)
	}
	if err != nil {
		log.Error("reconcile: abandon not recorded", "err", err)
		return outcomeFailed
	}
	log.Info("reconcile: checkout abandoned", "payment_status", p.Status)
	return outcomeAbandoned
}

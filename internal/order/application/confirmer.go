package application

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	payment "github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
)

const recentOrdersScan = 50

// Confirmer moves a pending order to paid once the provider reports the
// payment PAID. Polling and the webhook both end up here, so every step
// tolerates being repeated.
type Confirmer struct {
	log        *slog.Logger
	backend    Backend
	payments   PaymentReader
	ledger     Ledger
	maxElapsed time.Duration
	now        func() time.Time
}

func NewConfirmer(log *slog.Logger, backend Backend, payments PaymentReader, ledger Ledger, maxElapsed time.Duration) *Confirmer {
	if maxElapsed <= 0 {
		maxElapsed = 30 * time.Second
	}
	return &Confirmer{
		log:        log,
		backend:    backend,
		payments:   payments,
		ledger:     ledger,
		maxElapsed: maxElapsed,
		now:        time.Now,
	}
}

// Confirm checks the payment and, when PAID, marks the order paid. A payment
// that is not PAID yet yields a *checkout.PendingPaymentError and leaves the
// order untouched.
func (c *Confirmer) Confirm(ctx context.Context, orderID int64, paymentID string) (domain.Confirmation, error) {
	paymentID = strings.TrimSpace(paymentID)
	if orderID <= 0 || paymentID == "" {
		return domain.Confirmation{}, checkout.NewValidationError("order_id", "Missing order_id or payment_id")
	}

	p, err := c.payments.RetrievePayment(ctx, paymentID)
	if err != nil {
		return domain.Confirmation{}, err
	}
	if !p.Status.IsPaid() {
		return domain.Confirmation{}, &checkout.PendingPaymentError{Status: string(p.Status)}
	}
	return c.Settle(ctx, orderID, p)
}

// Settle applies a PAID payment to the order. p must already be PAID.
func (c *Confirmer) Settle(ctx context.Context, orderID int64, p payment.Payment) (domain.Confirmation, error) {
	log := c.log.With("payment_id", p.ID, "order_id", orderID)

	current, err := retry(ctx, c.maxElapsed, func() (domain.Order, error) {
		return c.backend.GetOrder(ctx, orderID)
	})
	if err != nil {
		return domain.Confirmation{}, c.unrecorded(ctx, log, orderID, p, err)
	}

	if current.Status() == domain.StatusPaid {
		log.Info("order already paid")
		c.markPaid(ctx, log, current, p)
		return domain.Confirmation{Order: current, PaymentID: p.ID, AlreadyPaid: true}, nil
	}

	update := domain.Update{
		Status: domain.StatusPaid,
		Tags:   domain.PaidTags(current.Tags),
		Note:   current.Note + domain.ConfirmationNote(c.now(), p.ID, string(payment.StatusPaid), p.MethodOrDefault()),
	}
	order, err := retry(ctx, c.maxElapsed, func() (domain.Order, error) {
		return c.backend.UpdateOrder(ctx, orderID, update)
	})
	if err != nil {
		return domain.Confirmation{}, c.unrecorded(ctx, log, orderID, p, err)
	}

	c.markPaid(ctx, log, order, p)
	log.Info("order updated to paid", "order_name", order.Name)
	return domain.Confirmation{Order: order, PaymentID: p.ID}, nil
}

// Notice is what a provider notification led to.
type Notice struct {
	Payment      payment.Payment
	Confirmation *domain.Confirmation
	OrderMissing bool
}

// HandleNotification reacts to a provider notification for paymentID. Only a
// PAID payment touches the order; the order is looked up in the ledger first
// and then among the most recent backend orders by the payment id in its note.
func (c *Confirmer) HandleNotification(ctx context.Context, paymentID string) (Notice, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return Notice{}, checkout.NewValidationError("payment_id", "Missing payment ID")
	}

	p, err := c.payments.RetrievePayment(ctx, paymentID)
	if err != nil {
		return Notice{}, err
	}
	notice := Notice{Payment: p}
	if !p.Status.IsPaid() {
		return notice, nil
	}

	orderID, err := c.FindOrder(ctx, paymentID)
	if err != nil {
		return notice, err
	}
	if orderID == 0 {
		c.log.Error("payment PAID but no order found", "alert", true, "payment_id", paymentID, "amount", p.Amount)
		notice.OrderMissing = true
		return notice, nil
	}

	conf, err := c.Settle(ctx, orderID, p)
	if err != nil {
		return notice, err
	}
	notice.Confirmation = &conf
	return notice, nil
}

// FindOrder returns the order id registered for paymentID, or 0.
func (c *Confirmer) FindOrder(ctx context.Context, paymentID string) (int64, error) {
	a, err := c.ledger.FindByPaymentID(ctx, paymentID)
	switch {
	case err == nil && a.HasOrder():
		return a.OrderID, nil
	case err != nil && !errors.Is(err, checkout.ErrNotFound):
		c.log.Warn("ledger lookup failed, scanning backend", "payment_id", paymentID, "err", err)
	}

	orders, err := c.backend.RecentOrders(ctx, recentOrdersScan)
	if err != nil {
		return 0, err
	}
	for _, o := range orders {
		if domain.ReferencesPayment(o.Note, paymentID) {
			return o.ID, nil
		}
	}
	return 0, nil
}

func (c *Confirmer) markPaid(ctx context.Context, log *slog.Logger, o domain.Order, p payment.Payment) {
	a := c.attempt(ctx, log, o.ID, p)
	if a.Status == checkout.AttemptPaid {
		return
	}
	a.OrderName = o.Name
	a.OrderNumber = o.OrderNumber
	a.Status = checkout.AttemptPaid
	a.LastError = ""
	c.record(ctx, log, a, checkout.EventOrderPaid)
}

func (c *Confirmer) unrecorded(ctx context.Context, log *slog.Logger, orderID int64, p payment.Payment, err error) error {
	log.Error("payment PAID but order update failed", "alert", true, "err", err)

	a := c.attempt(ctx, log, orderID, p)
	a.Status = checkout.AttemptConfirmFailed
	a.LastError = err.Error()
	c.record(ctx, log, a, checkout.EventOrderConfirmFailed)

	return &checkout.UnrecordedPaymentError{PaymentID: p.ID, OrderID: orderID, Err: err}
}

func (c *Confirmer) attempt(ctx context.Context, log *slog.Logger, orderID int64, p payment.Payment) checkout.Attempt {
	a, err := c.ledger.FindByPaymentID(ctx, p.ID)
	if err != nil {
		if !errors.Is(err, checkout.ErrNotFound) {
			log.Warn("ledger lookup failed", "err", err)
		}
		a = checkout.Attempt{IdempotencyKey: p.ID, PaymentID: p.ID, OrderToken: p.OrderToken, Amount: int64(p.Amount)}
	}
	a.OrderID = orderID
	a.PaymentStatus = string(p.Status)
	return a
}

func (c *Confirmer) record(ctx context.Context, log *slog.Logger, a checkout.Attempt, eventType string) {
	ev, err := outbox.NewEvent(ctx, checkout.AggregateCheckout, a.PaymentID, eventType, a.Event(c.now()))
	if err == nil {
		err = c.ledger.Save(ctx, a, ev)
	}
	if err != nil {
		log.Error("checkout attempt not recorded in ledger", "alert", true, "status", a.Status, "err", err)
	}
}

// retry repeats fn with exponential backoff while it fails with a retriable
// order backend error.
func retry[T any](ctx context.Context, maxElapsed time.Duration, fn func() (T, error)) (T, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 250 * time.Millisecond
	b.MaxElapsedTime = maxElapsed

	return backoff.RetryWithData(func() (T, error) {
		v, err := fn()
		if err != nil && !retriable(err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}, backoff.WithContext(b, ctx))
}

func retriable(err error) bool {
	if !errors.Is(err, checkout.ErrUpstreamOrder) {
		return false
	}
	var ue *checkout.UpstreamError
	if errors.As(err, &ue) {
		return ue.Retriable()
	}
	return true
}

package application

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
)

// Registrar creates the pending order right after the payment is opened so the
// cart survives an abandoned payment page.
type Registrar struct {
	log     *slog.Logger
	backend Backend
	ledger  Ledger
	locks   Locker
	arsRate float64
	now     func() time.Time
}

func NewRegistrar(log *slog.Logger, backend Backend, ledger Ledger, locks Locker, arsRate float64) *Registrar {
	if arsRate <= 0 || math.IsNaN(arsRate) {
		arsRate = 1
	}
	return &Registrar{
		log:     log,
		backend: backend,
		ledger:  ledger,
		locks:   locks,
		arsRate: arsRate,
		now:     time.Now,
	}
}

// CreatePending registers a pending order for paymentID. A payment that
// already has an order gets that order back with Deduplicated set.
func (r *Registrar) CreatePending(ctx context.Context, data checkout.CheckoutData, paymentID string) (domain.Registration, error) {
	paymentID = strings.TrimSpace(paymentID)
	if paymentID == "" {
		return domain.Registration{}, checkout.NewValidationError("dlocal_payment_id", "Missing required fields: checkout_data and dlocal_payment_id")
	}
	if err := data.Validate(); err != nil {
		return domain.Registration{}, err
	}

	log := r.log.With("payment_id", paymentID)
	reg := r.amounts(data)
	reg.PaymentID = paymentID

	lockKey := "order:" + paymentID
	if ok, err := r.locks.Acquire(ctx, lockKey); err != nil {
		log.Warn("order lock unavailable, continuing without it", "err", err)
	} else if !ok {
		return domain.Registration{}, checkout.ErrInProgress
	} else {
		defer func() {
			if err := r.locks.Release(context.WithoutCancel(ctx), lockKey); err != nil {
				log.Warn("order lock release failed", "err", err)
			}
		}()
	}

	attempt, err := r.ledger.FindByPaymentID(ctx, paymentID)
	switch {
	case err == nil && attempt.HasOrder():
		log.Info("pending order already registered", "order_id", attempt.OrderID)
		reg.Order = domain.Order{
			ID:          attempt.OrderID,
			Name:        attempt.OrderName,
			OrderNumber: attempt.OrderNumber,
			Email:       data.Customer.Email,
			TotalPrice:  strconv.FormatFloat(reg.TotalArs, 'f', 2, 64),
			CreatedAt:   attempt.CreatedAt.UTC().Format(time.RFC3339),
		}
		reg.Deduplicated = true
		return reg, nil
	case err == nil:
	case errors.Is(err, checkout.ErrNotFound):
		attempt = checkout.Attempt{PaymentID: paymentID, PaymentStatus: "PENDING", Amount: data.TotalDue()}
	default:
		log.Warn("ledger lookup failed, continuing", "err", err)
		attempt = checkout.Attempt{PaymentID: paymentID, PaymentStatus: "PENDING", Amount: data.TotalDue()}
	}
	if attempt.IdempotencyKey == "" {
		attempt.IdempotencyKey = data.IdempotencyKey
	}
	if attempt.IdempotencyKey == "" {
		attempt.IdempotencyKey = paymentID
	}
	attempt.Checkout = data

	order, err := r.backend.CreateOrder(ctx, r.NewOrder(data, paymentID, reg.DiscountArs))
	if err != nil {
		log.Error("payment created but pending order failed", "alert", true, "email", data.Customer.Email, "amount", reg.TotalArs, "err", err)
		attempt.Status = checkout.AttemptOrderFailed
		attempt.LastError = err.Error()
		r.record(ctx, log, attempt, checkout.EventPendingOrderFailed)
		return domain.Registration{}, err
	}

	attempt.OrderID = order.ID
	attempt.OrderName = order.Name
	attempt.OrderNumber = order.OrderNumber
	attempt.Status = checkout.AttemptOrderPending
	attempt.LastError = ""
	r.record(ctx, log, attempt, checkout.EventPendingOrderCreated)

	log.Info("pending order created", "order_id", order.ID, "order_name", order.Name)
	reg.Order = order
	return reg, nil
}

func (r *Registrar) amounts(data checkout.CheckoutData) domain.Registration {
	reg := domain.Registration{
		SubtotalArs: data.SubtotalArs(),
		ShippingArs: data.ShippingCostArs(),
	}
	reg.TotalArs = reg.SubtotalArs + reg.ShippingArs
	if data.HasPack {
		reg.DiscountArs = int64(math.Round(data.SavingsArs() * r.arsRate))
	}
	return reg
}

// NewOrder builds the pending order command for data.
func (r *Registrar) NewOrder(data checkout.CheckoutData, paymentID string, discountArs int64) domain.NewOrder {
	return domain.NewOrder{
		Email:              data.Customer.Email,
		Items:              data.Items,
		Shipping:           domain.AddressFrom(data.Shipping),
		Status:             domain.StatusPending,
		PaymentID:          paymentID,
		PaymentStatus:      "PENDING",
		TotalAmount:        data.SubtotalArs() + data.ShippingCostArs(),
		ShippingCost:       data.ShippingCostArs(),
		ShippingMethod:     data.ShippingMethodOrDefault(),
		ShippingMethodName: data.ShippingMethodNameOrDefault(),
		Note:               domain.PendingNote(data, paymentID, discountArs),
		Tags:               domain.PendingTags(data.HasPack),
		Tracking:           data.TrackingData,
		IdempotencyKey:     data.IdempotencyKey,
	}
}

func (r *Registrar) record(ctx context.Context, log *slog.Logger, a checkout.Attempt, eventType string) {
	ev, err := outbox.NewEvent(ctx, checkout.AggregateCheckout, a.PaymentID, eventType, a.Event(r.now()))
	if err == nil {
		err = r.ledger.Save(ctx, a, ev)
	}
	if err != nil {
		log.Error("checkout attempt not recorded in ledger", "alert", true, "status", a.Status, "err", err)
	}
}

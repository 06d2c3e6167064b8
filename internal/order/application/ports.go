package application

import (
	"context"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	payment "github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
)

// Backend is the commerce backend's admin API.
type Backend interface {
	CreateOrder(ctx context.Context, o domain.NewOrder) (domain.Order, error)
	GetOrder(ctx context.Context, id int64) (domain.Order, error)
	UpdateOrder(ctx context.Context, id int64, u domain.Update) (domain.Order, error)
	RecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
}

type PaymentReader interface {
	RetrievePayment(ctx context.Context, id string) (payment.Payment, error)
}

type Ledger interface {
	FindByPaymentID(ctx context.Context, paymentID string) (checkout.Attempt, error)
	Save(ctx context.Context, a checkout.Attempt, events ...outbox.Event) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

package application

import (
	"context"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
)

type Gateway interface {
	CreatePayment(ctx context.Context, req domain.CreateRequest) (domain.Payment, error)
	RetrievePayment(ctx context.Context, id string) (domain.Payment, error)
}

// Ledger records checkout attempts. Find methods return checkout.ErrNotFound.
type Ledger interface {
	FindByIdempotencyKey(ctx context.Context, key string) (checkout.Attempt, error)
	Save(ctx context.Context, a checkout.Attempt, events ...outbox.Event) error
}

type Locker interface {
	Acquire(ctx context.Context, key string) (bool, error)
	Release(ctx context.Context, key string) error
}

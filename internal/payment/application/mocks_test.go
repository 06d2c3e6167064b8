package application

import (
	"context"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"github.com/stretchr/testify/mock"
)

type GatewayMock struct {
	mock.Mock
}

func (m *GatewayMock) CreatePayment(ctx context.Context, req domain.CreateRequest) (domain.Payment, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(domain.Payment), args.Error(1)
}

func (m *GatewayMock) RetrievePayment(ctx context.Context, id string) (domain.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Payment), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) FindByIdempotencyKey(ctx context.Context, key string) (checkout.Attempt, error) {
	args := m.Called(ctx, key)
	return args.Get(0).(checkout.Attempt), args.Error(1)
}

func (m *LedgerMock) Save(ctx context.Context, a checkout.Attempt, events ...outbox.Event) error {
	return m.Called(ctx, a, events).Error(0)
}

type LockerMock struct {
	mock.Mock
}

func (m *LockerMock) Acquire(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

func (m *LockerMock) Release(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

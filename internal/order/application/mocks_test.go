package application

import (
	"context"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	payment "github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/outbox"
	"github.com/stretchr/testify/mock"
)

type BackendMock struct {
	mock.Mock
}

func (m *BackendMock) CreateOrder(ctx context.Context, o domain.NewOrder) (domain.Order, error) {
	args := m.Called(ctx, o)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *BackendMock) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *BackendMock) UpdateOrder(ctx context.Context, id int64, u domain.Update) (domain.Order, error) {
	args := m.Called(ctx, id, u)
	return args.Get(0).(domain.Order), args.Error(1)
}

func (m *BackendMock) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	args := m.Called(ctx, limit)
	return args.Get(0).([]domain.Order), args.Error(1)
}

type PaymentsMock struct {
	mock.Mock
}

func (m *PaymentsMock) RetrievePayment(ctx context.Context, id string) (payment.Payment, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(payment.Payment), args.Error(1)
}

type LedgerMock struct {
	mock.Mock
}

func (m *LedgerMock) FindByPaymentID(ctx context.Context, id string) (checkout.Attempt, error) {
	args := m.Called(ctx, id)
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

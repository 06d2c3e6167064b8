package application

import (
	"context"
	"errors"
	"testing"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/conversions/domain"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type senderMock struct{ mock.Mock }

func (m *senderMock) Send(ctx context.Context, events ...domain.Event) (domain.Result, error) {
	args := m.Called(ctx, events)
	return args.Get(0).(domain.Result), args.Error(1)
}

func newService(s *senderMock) *Service {
	svc := NewService(logging.Discard(), s)
	svc.now = func() time.Time { return time.Unix(1732874400, 0) }
	return svc
}

func TestService_Relay(t *testing.T) {
	t.Parallel()

	t.Run("missing fields", func(t *testing.T) {
		t.Parallel()
		s := &senderMock{}
		_, err := newService(s).Relay(context.Background(), ClientEvent{EventName: "PageView"}, "")
		require.ErrorIs(t, err, checkout.ErrValidation)
		s.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	})

	t.Run("fills server side fields", func(t *testing.T) {
		t.Parallel()
		s := &senderMock{}
		var sent []domain.Event
		s.On("Send", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
			sent = args.Get(1).([]domain.Event)
		}).Return(domain.Result{EventsReceived: 1, FbtraceID: "tr"}, nil)

		res, err := newService(s).Relay(context.Background(), ClientEvent{
			EventName: "AddToCart",
			EventID:   "atc-1",
			UserAgent: "Mozilla/5.0",
			Fbp:       "fb.1.123",
			EventData: map[string]any{"value": 32900},
			UserData:  domain.UserData{Em: domain.StringList{"hashed"}, ClientIPAddress: "6.6.6.6"},
		}, "1.2.3.4")
		require.NoError(t, err)
		assert.Equal(t, "tr", res.FbtraceID)

		require.Len(t, sent, 1)
		ev := sent[0]
		assert.Equal(t, int64(1732874400), ev.EventTime)
		assert.Equal(t, domain.DefaultSourceURL, ev.EventSourceURL)
		assert.Equal(t, "website", ev.ActionSource)
		assert.Equal(t, "1.2.3.4", ev.UserData.ClientIPAddress)
		assert.Equal(t, "Mozilla/5.0", ev.UserData.ClientUserAgent)
		assert.Equal(t, "fb.1.123", ev.UserData.Fbp)
		assert.Equal(t, domain.StringList{"hashed"}, ev.UserData.Em)
		assert.NotNil(t, ev.CustomData)
	})

	t.Run("upstream error", func(t *testing.T) {
		t.Parallel()
		s := &senderMock{}
		s.On("Send", mock.Anything, mock.Anything).Return(domain.Result{}, errors.New("boom"))
		_, err := newService(s).Relay(context.Background(), ClientEvent{EventName: "Lead", EventID: "l1"}, "")
		require.Error(t, err)
	})
}

func TestService_CheckoutPaid(t *testing.T) {
	t.Parallel()

	s := &senderMock{}
	s.On("Send", mock.Anything, mock.MatchedBy(func(evs []domain.Event) bool {
		return len(evs) == 1 && evs[0].EventID == "Purchase_DP-1"
	})).Return(domain.Result{EventsReceived: 1}, nil).Once()

	svc := newService(s)
	require.NoError(t, svc.CheckoutPaid(context.Background(), checkout.AttemptEvent{PaymentID: "DP-1", Status: checkout.AttemptPaid, Amount: 40900}))
	require.NoError(t, svc.CheckoutPaid(context.Background(), checkout.AttemptEvent{PaymentID: "DP-2", Status: checkout.AttemptOrderPending}))
	s.AssertExpectations(t)
}

func TestService_OrderCreated(t *testing.T) {
	t.Parallel()

	s := &senderMock{}
	s.On("Send", mock.Anything, mock.Anything).Return(domain.Result{EventsReceived: 1, FbtraceID: "x"}, nil)

	id, res, err := newService(s).OrderCreated(context.Background(), domain.ShopifyOrder{ID: 9, TotalPrice: "100", FinancialStatus: "paid"})
	require.NoError(t, err)
	assert.Equal(t, "Purchase_9_1732874400000", id)
	assert.Equal(t, 1, res.EventsReceived)
}

func TestService_OrderCreated_SkipsUnpaidOrders(t *testing.T) {
	t.Parallel()

	orders := []domain.ShopifyOrder{
		{ID: 10, FinancialStatus: "pending", Tags: "dlocal, foltz, pending_payment, awaiting_payment"},
		{ID: 11, FinancialStatus: "paid", Tags: "dlocal, pending_payment"},
		{ID: 12},
	}
	for _, o := range orders {
		s := &senderMock{}
		id, res, err := newService(s).OrderCreated(context.Background(), o)
		require.NoError(t, err)
		assert.Empty(t, id)
		assert.True(t, res.Skipped)
		s.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
	}
}

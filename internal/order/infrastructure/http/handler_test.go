package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	"github.com/foltz-ar/checkout-service/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type registrarMock struct{ mock.Mock }

func (m *registrarMock) CreatePending(ctx context.Context, data checkout.CheckoutData, paymentID string) (domain.Registration, error) {
	args := m.Called(ctx, data, paymentID)
	return args.Get(0).(domain.Registration), args.Error(1)
}

type confirmerMock struct{ mock.Mock }

func (m *confirmerMock) Confirm(ctx context.Context, orderID int64, paymentID string) (domain.Confirmation, error) {
	args := m.Called(ctx, orderID, paymentID)
	return args.Get(0).(domain.Confirmation), args.Error(1)
}

func post(t *testing.T, h http.Handler, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, path, &buf))
	out := map[string]any{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return rec, out
}

func routes(reg *registrarMock, conf *confirmerMock, production bool) http.Handler {
	return NewHandler(logging.Discard(), reg, conf, checkouthttp.NewResponder(logging.Discard(), production)).Routes()
}

func TestCreatePendingOrder(t *testing.T) {
	t.Parallel()

	t.Run("missing payment id makes no call", func(t *testing.T) {
		t.Parallel()
		reg := &registrarMock{}
		rec, body := post(t, routes(reg, &confirmerMock{}, true), "/create-pending-order", map[string]any{"checkout_data": map[string]any{}})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Missing required fields: checkout_data and dlocal_payment_id", body["error"])
		assert.Empty(t, reg.Calls)
	})

	t.Run("success", func(t *testing.T) {
		t.Parallel()
		reg := &registrarMock{}
		reg.On("CreatePending", mock.Anything, mock.Anything, "DP-1").Return(domain.Registration{
			Order:       domain.Order{ID: 9001, Name: "#1042", OrderNumber: 1042, Email: "a@b.c", TotalPrice: "67900.00"},
			SubtotalArs: 59900, ShippingArs: 8000, TotalArs: 67900, DiscountArs: 35100,
		}, nil)
		rec, body := post(t, routes(reg, &confirmerMock{}, true), "/create-pending-order",
			map[string]any{"checkout_data": map[string]any{"hasPack": true}, "dlocal_payment_id": "DP-1"})
		require.Equal(t, http.StatusOK, rec.Code)
		order := body["shopify_order"].(map[string]any)
		assert.Equal(t, 9001.0, order["id"])
		assert.Equal(t, 1042.0, order["orderNumber"])
		amounts := body["amounts"].(map[string]any)
		assert.Equal(t, 67900.0, amounts["totalArs"])
		assert.Equal(t, 35100.0, amounts["discountArs"])
		assert.Equal(t, false, body["deduplicated"])
	})

	t.Run("backend failure", func(t *testing.T) {
		t.Parallel()
		reg := &registrarMock{}
		reg.On("CreatePending", mock.Anything, mock.Anything, "DP-1").Return(domain.Registration{},
			&checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: "Shopify Admin", StatusCode: 422, Body: "invalid"})
		rec, body := post(t, routes(reg, &confirmerMock{}, false), "/create-pending-order",
			map[string]any{"checkout_data": map[string]any{}, "dlocal_payment_id": "DP-1"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "Failed to create PENDING Shopify order", body["error"])
		assert.Equal(t, "Shopify Admin API error: 422 - invalid", body["details"])
	})
}

func TestUpdateOrderStatus(t *testing.T) {
	t.Parallel()

	t.Run("not yet paid", func(t *testing.T) {
		t.Parallel()
		conf := &confirmerMock{}
		conf.On("Confirm", mock.Anything, int64(9001), "DP-1").Return(domain.Confirmation{}, &checkout.PendingPaymentError{Status: "PENDING"})
		rec, body := post(t, routes(&registrarMock{}, conf, true), "/update-order-status", map[string]any{"order_id": 9001, "payment_id": "DP-1"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Payment not yet confirmed", body["message"])
		assert.Equal(t, "PENDING", body["status"])
	})

	t.Run("paid, string order id", func(t *testing.T) {
		t.Parallel()
		conf := &confirmerMock{}
		conf.On("Confirm", mock.Anything, int64(9001), "DP-1").Return(domain.Confirmation{
			Order: domain.Order{ID: 9001, Name: "#1042", OrderNumber: 1042, FinancialStatus: "paid", StatusURL: "https://status"},
		}, nil)
		rec, body := post(t, routes(&registrarMock{}, conf, true), "/update-order-status", map[string]any{"order_id": "gid://shopify/Order/9001", "payment_id": "DP-1"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Order updated successfully", body["message"])
		order := body["order"].(map[string]any)
		assert.Equal(t, "paid", order["financialStatus"])
		assert.Equal(t, "https://status", order["statusUrl"])
	})

	t.Run("paid but not recorded", func(t *testing.T) {
		t.Parallel()
		conf := &confirmerMock{}
		conf.On("Confirm", mock.Anything, int64(9001), "DP-1").Return(domain.Confirmation{}, &checkout.UnrecordedPaymentError{
			PaymentID: "DP-1", OrderID: 9001, Err: &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: "Shopify Admin", StatusCode: 503},
		})
		rec, body := post(t, routes(&registrarMock{}, conf, true), "/update-order-status", map[string]any{"order_id": 9001, "payment_id": "DP-1"})
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, true, body["payment_confirmed"])
		assert.Equal(t, true, body["retriable"])
		assert.NotContains(t, body, "details")
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		conf := &confirmerMock{}
		conf.On("Confirm", mock.Anything, int64(0), "").Return(domain.Confirmation{}, checkout.NewValidationError("order_id", "Missing order_id or payment_id"))
		rec, _ := post(t, routes(&registrarMock{}, conf, true), "/update-order-status", map[string]any{})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Registrar interface {
	CreatePending(ctx context.Context, data checkout.CheckoutData, paymentID string) (domain.Registration, error)
}

type Confirmer interface {
	Confirm(ctx context.Context, orderID int64, paymentID string) (domain.Confirmation, error)
}

type Handler struct {
	log       *slog.Logger
	registrar Registrar
	confirmer Confirmer
	responder *checkouthttp.Responder
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, registrar Registrar, confirmer Confirmer, responder *checkouthttp.Responder) *Handler {
	return &Handler{
		log:       log,
		registrar: registrar,
		confirmer: confirmer,
		responder: responder,
		tracer:    otel.Tracer("order-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/create-pending-order", h.createPendingOrder)
	r.Post("/update-order-status", h.updateOrderStatus)
	return r
}

type createPendingReq struct {
	CheckoutData    *checkout.CheckoutData `json:"checkout_data"`
	DlocalPaymentID string                 `json:"dlocal_payment_id"`
}

func (h *Handler) createPendingOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePendingOrder")
	defer span.End()

	var req createPendingReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err, "")
		return
	}
	if req.CheckoutData == nil || strings.TrimSpace(req.DlocalPaymentID) == "" {
		h.responder.Error(w, r, checkout.NewValidationError("checkout_data", "Missing required fields: checkout_data and dlocal_payment_id"), "")
		return
	}
	span.SetAttributes(attribute.String("payment.id", req.DlocalPaymentID))

	reg, err := h.registrar.CreatePending(ctx, *req.CheckoutData, req.DlocalPaymentID)
	if err != nil {
		h.responder.Error(w, r, err, "Failed to create PENDING Shopify order")
		return
	}

	o := reg.Order
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"shopify_order": map[string]any{
			"id":          o.ID,
			"orderNumber": o.OrderNumber,
			"name":        o.Name,
			"email":       o.Email,
			"totalPrice":  o.TotalPrice,
			"createdAt":   o.CreatedAt,
		},
		"amounts": map[string]any{
			"subtotalArs":     reg.SubtotalArs,
			"shippingCostArs": reg.ShippingArs,
			"totalArs":        reg.TotalArs,
			"discountArs":     reg.DiscountArs,
		},
		"message":      "PENDING order created successfully. Will be updated to PAID after payment confirmation.",
		"deduplicated": reg.Deduplicated,
	})
}

type updateStatusReq struct {
	OrderID   checkout.NumericID `json:"order_id"`
	PaymentID string             `json:"payment_id"`
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "UpdateOrderStatus")
	defer span.End()

	var req updateStatusReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err, "")
		return
	}
	span.SetAttributes(attribute.Int64("order.id", int64(req.OrderID)), attribute.String("payment.id", req.PaymentID))

	conf, err := h.confirmer.Confirm(ctx, int64(req.OrderID), req.PaymentID)
	var pending *checkout.PendingPaymentError
	switch {
	case errors.As(err, &pending):
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": "Payment not yet confirmed",
			"status":  pending.Status,
		})
		return
	case err != nil:
		if !h.responder.Unrecorded(w, r, err) {
			h.responder.Error(w, r, err, "Failed to update order")
		}
		return
	}

	o := conf.Order
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Order updated successfully",
		"order": map[string]any{
			"id":              o.ID,
			"name":            o.Name,
			"orderNumber":     o.OrderNumber,
			"financialStatus": o.FinancialStatus,
			"statusUrl":       o.StatusURL,
		},
		"alreadyPaid": conf.AlreadyPaid,
	})
}

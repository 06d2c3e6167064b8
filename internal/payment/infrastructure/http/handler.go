package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	orderapp "github.com/foltz-ar/checkout-service/internal/order/application"
	"github.com/foltz-ar/checkout-service/internal/payment/application"
	"github.com/foltz-ar/checkout-service/internal/payment/domain"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Payments interface {
	Initiate(ctx context.Context, data checkout.CheckoutData) (application.Initiated, error)
	Retrieve(ctx context.Context, paymentID string) (domain.Payment, error)
}

type Notifications interface {
	HandleNotification(ctx context.Context, paymentID string) (orderapp.Notice, error)
}

type Verifier interface {
	VerifySignature(body []byte, signature string) bool
}

// Deduper marks webhook deliveries already handled.
type Deduper interface {
	Seen(ctx context.Context, key string) (bool, error)
	Forget(ctx context.Context, key string) error
	Scoped(scope, id string) string
}

type Handler struct {
	log       *slog.Logger
	payments  Payments
	notices   Notifications
	verifier  Verifier
	dedupe    Deduper
	responder *checkouthttp.Responder
	tracer    trace.Tracer
	now       func() time.Time
}

func NewHandler(log *slog.Logger, payments Payments, notices Notifications, verifier Verifier, dedupe Deduper, responder *checkouthttp.Responder) *Handler {
	return &Handler{
		log:       log,
		payments:  payments,
		notices:   notices,
		verifier:  verifier,
		dedupe:    dedupe,
		responder: responder,
		tracer:    otel.Tracer("payment-http"),
		now:       time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/create-payment", h.createPayment)
	r.Get("/retrieve-payment", h.retrievePayment)
	r.Post("/webhook", h.webhook)
	r.Get("/webhook", h.webhookPing)
	return r
}

type createPaymentReq struct {
	CheckoutData json.RawMessage `json:"checkout_data"`
}

func (h *Handler) createPayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "CreatePayment")
	defer span.End()

	var req createPaymentReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err, "Failed to create payment")
		return
	}
	if len(req.CheckoutData) == 0 || string(req.CheckoutData) == "null" {
		h.responder.Error(w, r, checkout.NewValidationError("checkout_data", "checkout_data is required"), "")
		return
	}
	var data checkout.CheckoutData
	if err := json.Unmarshal(req.CheckoutData, &data); err != nil {
		h.responder.Error(w, r, fmt.Errorf("%w: %v", httpx.ErrBadBody, err), "Failed to create payment")
		return
	}
	data.Raw = req.CheckoutData
	if data.IdempotencyKey == "" {
		data.IdempotencyKey = strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	}

	res, err := h.payments.Initiate(ctx, data)
	if err != nil {
		h.responder.Error(w, r, err, "Failed to create payment")
		return
	}
	span.SetAttributes(attribute.String("payment.id", res.PaymentID), attribute.Bool("payment.replayed", res.Replayed))

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":         true,
		"payment_id":      res.PaymentID,
		"redirect_url":    res.RedirectURL,
		"status":          res.Status,
		"amount":          map[string]any{"ars": res.Amount, "decimal": res.Amount},
		"metadata":        map[string]any{"hasPack": data.HasPack, "shippingMethod": data.ShippingMethod},
		"idempotency_key": res.IdempotencyKey,
		"order_token":     res.OrderToken,
		"replayed":        res.Replayed,
	})
}

func (h *Handler) retrievePayment(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RetrievePayment")
	defer span.End()

	p, err := h.payments.Retrieve(ctx, r.URL.Query().Get("payment_id"))
	if err != nil {
		h.responder.Error(w, r, err, "Failed to retrieve payment")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"id":                  p.ID,
		"status":              p.Status,
		"status_detail":       p.StatusDetail,
		"amount":              p.Amount,
		"currency":            p.Currency,
		"country":             p.Country,
		"payment_method_type": p.PaymentMethodType,
		"created_date":        p.CreatedDate,
		"updated_date":        p.UpdatedDate,
	})
}

func (h *Handler) webhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "PaymentWebhook")
	defer span.End()

	body, err := httpx.ReadBody(r)
	if err != nil {
		h.responder.Error(w, r, err, "")
		return
	}
	sig := r.Header.Get("X-Signature")
	if sig == "" {
		h.log.Warn("webhook without signature")
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Missing signature"})
		return
	}
	if !h.verifier.VerifySignature(body, sig) {
		h.log.Warn("webhook signature mismatch")
		httpx.WriteJSON(w, http.StatusForbidden, map[string]any{"error": "Invalid signature"})
		return
	}

	var n domain.Notification
	if err := json.Unmarshal(body, &n); err != nil || n.ID() == "" {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Missing payment ID"})
		return
	}
	paymentID := n.ID()
	span.SetAttributes(attribute.String("payment.id", paymentID))
	log := h.log.With("payment_id", paymentID)

	// Only a delivery that settled the order stays marked.
	key := h.dedupe.Scoped("webhook", paymentID)
	if seen, err := h.dedupe.Seen(ctx, key); err != nil {
		log.Warn("webhook dedupe unavailable", "err", err)
	} else if seen {
		log.Info("duplicate webhook delivery skipped")
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Webhook already processed", "payment_id": paymentID})
		return
	}

	notice, err := h.notices.HandleNotification(ctx, paymentID)
	if err != nil || notice.Confirmation == nil {
		if fErr := h.dedupe.Forget(context.WithoutCancel(ctx), key); fErr != nil {
			log.Warn("webhook dedupe release failed", "err", fErr)
		}
	}
	if err != nil {
		if !h.responder.Unrecorded(w, r, err) {
			h.responder.Error(w, r, err, "Webhook processing failed")
		}
		return
	}

	p := notice.Payment
	switch {
	case notice.Confirmation != nil:
		o := notice.Confirmation.Order
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success":          true,
			"message":          "Order updated from PENDING to PAID",
			"payment_id":       paymentID,
			"shopify_order_id": o.ID,
			"order_number":     o.OrderNumber,
			"order_name":       o.Name,
			"financial_status": o.FinancialStatus,
			"alreadyPaid":      notice.Confirmation.AlreadyPaid,
		})
	case notice.OrderMissing:
		email := ""
		if p.Payer != nil {
			email = p.Payer.Email
		}
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success":         false,
			"warning":         "Payment PAID but order not found in Shopify",
			"payment_id":      paymentID,
			"status":          p.Status,
			"action_required": "MANUAL ORDER CREATION",
			"customer_email":  email,
			"amount":          p.Amount,
			"currency":        p.Currency,
		})
	default:
		log.Info("webhook received", "status", p.Status)
		httpx.WriteJSON(w, http.StatusOK, map[string]any{
			"success":    true,
			"message":    "Webhook received",
			"payment_id": paymentID,
			"status":     p.Status,
		})
	}
}

func (h *Handler) webhookPing(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"message":   "dLocal Go webhook endpoint is ready",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

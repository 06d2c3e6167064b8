package http

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/conversions/application"
	"github.com/foltz-ar/checkout-service/internal/conversions/domain"
	"github.com/foltz-ar/checkout-service/internal/conversions/infrastructure/meta"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Conversions interface {
	Relay(ctx context.Context, ev application.ClientEvent, ip string) (domain.Result, error)
	OrderCreated(ctx context.Context, o domain.ShopifyOrder) (string, domain.Result, error)
}

type Handler struct {
	log           *slog.Logger
	svc           Conversions
	webhookSecret string
	responder     *checkouthttp.Responder
	tracer        trace.Tracer
}

func NewHandler(log *slog.Logger, svc Conversions, webhookSecret string, responder *checkouthttp.Responder) *Handler {
	return &Handler{
		log:           log,
		svc:           svc,
		webhookSecret: webhookSecret,
		responder:     responder,
		tracer:        otel.Tracer("conversions-http"),
	}
}

// Register mounts the relay at /meta-conversions and the order webhook at
// /shopify/webhook on r.
func (h *Handler) Register(r chi.Router) {
	r.Post("/meta-conversions", h.relay)
	r.Post("/shopify/webhook", h.orderWebhook)
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if ip := strings.TrimSpace(strings.Split(fwd, ",")[0]); ip != "" {
			return ip
		}
	}
	return r.Header.Get("X-Real-Ip")
}

func (h *Handler) relay(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RelayConversion")
	defer span.End()

	var ev application.ClientEvent
	if err := httpx.DecodeJSON(r, &ev); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid JSON body"})
		return
	}
	span.SetAttributes(attribute.String("conversion.event_name", ev.EventName), attribute.String("conversion.event_id", ev.EventID))

	res, err := h.svc.Relay(ctx, ev, clientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"eventsReceived": res.EventsReceived,
		"fbtrace_id":     res.FbtraceID,
	})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *meta.APIError
	if errors.As(err, &apiErr) {
		httpx.WriteJSON(w, apiErr.StatusCode, map[string]any{"error": "Conversions API error", "details": apiErr.Body})
		return
	}
	status := checkouthttp.StatusFor(err)
	if status < http.StatusInternalServerError {
		httpx.WriteJSON(w, status, map[string]any{"error": err.Error()})
		return
	}
	h.responder.Write(w, r, status, err, map[string]any{"error": "Server error"})
}

// VerifyShopifyHMAC checks a base64 HMAC-SHA256 of body keyed with secret.
func VerifyShopifyHMAC(secret string, body []byte, header string) bool {
	if secret == "" || header == "" {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(header))
}

func (h *Handler) orderWebhook(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ShopifyOrderWebhook")
	defer span.End()

	body, err := httpx.ReadBody(r)
	if err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid body"})
		return
	}
	if !VerifyShopifyHMAC(h.webhookSecret, body, r.Header.Get("X-Shopify-Hmac-Sha256")) {
		h.log.Warn("shopify webhook hmac verification failed")
		httpx.WriteJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}

	var o domain.ShopifyOrder
	if err := json.Unmarshal(body, &o); err != nil {
		httpx.WriteJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid order payload"})
		return
	}
	span.SetAttributes(attribute.Int64("shopify.order_id", o.ID))

	eventID, res, err := h.svc.OrderCreated(ctx, o)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"eventId":        eventID,
		"orderId":        o.OrderNumber,
		"eventsReceived": res.EventsReceived,
		"fbtrace_id":     res.FbtraceID,
		"skipped":        res.Skipped,
	})
}

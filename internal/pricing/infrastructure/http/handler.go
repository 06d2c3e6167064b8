package http

import (
	"log/slog"
	"net/http"

	checkouthttp "github.com/foltz-ar/checkout-service/internal/checkout/infrastructure/http"
	"github.com/foltz-ar/checkout-service/internal/pricing/domain"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Handler struct {
	log       *slog.Logger
	engine    *domain.Engine
	responder *checkouthttp.Responder
	tracer    trace.Tracer
}

func NewHandler(log *slog.Logger, engine *domain.Engine, responder *checkouthttp.Responder) *Handler {
	return &Handler{
		log:       log,
		engine:    engine,
		responder: responder,
		tracer:    otel.Tracer("pricing-http"),
	}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Post("/quote", h.quote)
	return r
}

type quoteLine struct {
	ID       string  `json:"id"`
	Size     string  `json:"size"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type quoteReq struct {
	Items  []quoteLine         `json:"items"`
	Bundle []domain.BundleItem `json:"bundle"`
}

type quoteResp struct {
	domain.Quote
	Lines []domain.Allocation `json:"lines"`
}

func (h *Handler) quote(w http.ResponseWriter, r *http.Request) {
	_, span := h.tracer.Start(r.Context(), "Quote")
	defer span.End()

	var req quoteReq
	if err := httpx.DecodeJSON(r, &req); err != nil {
		h.responder.Error(w, r, err, "")
		return
	}

	cart := make(domain.Cart, 0, len(req.Items))
	for _, it := range req.Items {
		cart = append(cart, domain.NewLine(it.ID, it.Size, it.Price, it.Quantity))
	}

	q := h.engine.Quote(cart, req.Bundle)
	span.SetAttributes(attribute.String("pricing.scheme", string(q.Scheme.Kind)), attribute.Int64("pricing.amount_due", q.AmountDue))

	httpx.WriteJSON(w, http.StatusOK, quoteResp{
		Quote: q,
		Lines: domain.Apportion(cart, q.AmountDue),
	})
}

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
)

// Responder writes error bodies shared by every checkout endpoint. Outside
// production the body carries the underlying error under "details".
type Responder struct {
	log        *slog.Logger
	production bool
}

func NewResponder(log *slog.Logger, production bool) *Responder {
	return &Responder{log: log, production: production}
}

func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, httpx.ErrBadBody), errors.Is(err, domain.ErrNotYetConfirmed):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrInProgress):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Error maps err to a status and writes {success:false, error}. Client errors
// show their own message; everything else shows fallback.
func (rs *Responder) Error(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	status := StatusFor(err)
	msg := fallback
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		msg = ve.Message
	case status < http.StatusInternalServerError:
		msg = err.Error()
	}
	rs.Write(w, r, status, err, map[string]any{"success": false, "error": msg})
}

// Write sends body with status, adding details outside production.
func (rs *Responder) Write(w http.ResponseWriter, r *http.Request, status int, err error, body map[string]any) {
	if status >= http.StatusInternalServerError {
		rs.log.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	if err != nil && !rs.production {
		body["details"] = err.Error()
	}
	httpx.WriteJSON(w, status, body)
}

// Unrecorded writes the response for a PAID payment whose order could not be
// updated and reports whether err was that case. The caller should retry the
// order update only.
func (rs *Responder) Unrecorded(w http.ResponseWriter, r *http.Request, err error) bool {
	var ue *domain.UnrecordedPaymentError
	if !errors.As(err, &ue) {
		return false
	}
	rs.log.ErrorContext(r.Context(), "payment confirmed but order not updated", "alert", true, "payment_id", ue.PaymentID, "order_id", ue.OrderID)
	rs.Write(w, r, http.StatusInternalServerError, err, map[string]any{
		"success":           false,
		"payment_confirmed": true,
		"retriable":         true,
		"error":             "Payment confirmed but order update failed",
		"payment_id":        ue.PaymentID,
		"order_id":          ue.OrderID,
	})
	return true
}

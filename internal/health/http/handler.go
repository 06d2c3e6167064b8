package http

import (
	"net/http"

	"github.com/foltz-ar/checkout-service/internal/health"
	"github.com/foltz-ar/checkout-service/pkg/httpx"
	"github.com/go-chi/chi/v5"
)

type Handler struct {
	checks *health.Checks
}

func NewHandler(checks *health.Checks) *Handler {
	return &Handler{checks: checks}
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	h.Register(r)
	return r
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/health", h.live)
	r.Get("/ready", h.ready)
}

func (h *Handler) live(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) ready(w http.ResponseWriter, r *http.Request) {
	results := h.checks.Run(r.Context())
	deps := make(map[string]string, len(results))
	for name, err := range results {
		deps[name] = "ok"
		if err != nil {
			deps[name] = err.Error()
		}
	}
	if !health.Healthy(results) {
		httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "dependencies": deps})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready", "dependencies": deps})
}

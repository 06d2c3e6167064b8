package dlocal

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/payment/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	ProductionURL = "https://api.dlocalgo.com"
	SandboxURL    = "https://api-sbx.dlocalgo.com"

	serviceName = "dlocal"
)

func BaseURLFor(environment string) string {
	if environment == "production" {
		return ProductionURL
	}
	return SandboxURL
}

type Config struct {
	BaseURL   string
	APIKey    string
	SecretKey string
	Timeout   time.Duration
}

// Client talks to the dLocal Go payments API.
type Client struct {
	log     *slog.Logger
	baseURL string
	apiKey  string
	secret  string
	http    *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		secret:  cfg.SecretKey,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

type createPaymentRequest struct {
	Amount          int64          `json:"amount"`
	Currency        string         `json:"currency"`
	Country         string         `json:"country"`
	OrderID         string         `json:"order_id"`
	Description     string         `json:"description"`
	NotificationURL string         `json:"notification_url,omitempty"`
	SuccessURL      string         `json:"success_url,omitempty"`
	BackURL         string         `json:"back_url,omitempty"`
	Payer           *domain.Payer  `json:"payer,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type paymentResponse struct {
	ID                string        `json:"id"`
	Status            string        `json:"status"`
	StatusDetail      string        `json:"status_detail"`
	Amount            float64       `json:"amount"`
	Currency          string        `json:"currency"`
	Country           string        `json:"country"`
	PaymentMethodType string        `json:"payment_method_type"`
	CreatedDate       string        `json:"created_date"`
	UpdatedDate       string        `json:"updated_date"`
	RedirectURL       string        `json:"redirect_url"`
	OrderID           string        `json:"order_id"`
	Payer             *domain.Payer `json:"payer"`
}

func (p paymentResponse) toDomain() domain.Payment {
	return domain.Payment{
		ID:                p.ID,
		Status:            domain.Status(p.Status),
		StatusDetail:      p.StatusDetail,
		Amount:            p.Amount,
		Currency:          p.Currency,
		Country:           p.Country,
		PaymentMethodType: p.PaymentMethodType,
		CreatedDate:       p.CreatedDate,
		UpdatedDate:       p.UpdatedDate,
		RedirectURL:       p.RedirectURL,
		OrderToken:        p.OrderID,
		Payer:             p.Payer,
	}
}

func (c *Client) CreatePayment(ctx context.Context, req domain.CreateRequest) (domain.Payment, error) {
	body := createPaymentRequest{
		Amount:          req.Amount,
		Currency:        req.Currency,
		Country:         req.Country,
		OrderID:         req.OrderToken,
		Description:     req.Description,
		NotificationURL: req.NotificationURL,
		SuccessURL:      req.SuccessURL,
		BackURL:         req.BackURL,
		Metadata:        req.Metadata,
	}
	if body.Currency == "" {
		body.Currency = domain.CurrencyARS
	}
	if body.Country == "" {
		body.Country = domain.CountryAR
	}
	if body.Description == "" {
		body.Description = "FOLTZ Purchase"
	}
	if req.Payer != (domain.Payer{}) {
		payer := req.Payer
		body.Payer = &payer
	}

	var resp paymentResponse
	if err := c.do(ctx, http.MethodPost, "/v1/payments", body, req.IdempotencyKey, &resp); err != nil {
		return domain.Payment{}, err
	}
	c.log.Info("dlocal payment created", "payment_id", resp.ID, "status", resp.Status, "order_token", req.OrderToken)
	return resp.toDomain(), nil
}

func (c *Client) RetrievePayment(ctx context.Context, id string) (domain.Payment, error) {
	var resp paymentResponse
	if err := c.do(ctx, http.MethodGet, "/v1/payments/"+url.PathEscape(id), nil, "", &resp); err != nil {
		return domain.Payment{}, err
	}
	return resp.toDomain(), nil
}

func (c *Client) authHeader() string {
	return "Bearer " + c.apiKey + ":" + c.secret
}

func (c *Client) do(ctx context.Context, method, path string, body any, idemKey string, out any) error {
	if c.apiKey == "" || c.secret == "" {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamPayment, Service: serviceName, Err: errors.New("credentials not configured")}
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.authHeader())
	if idemKey != "" {
		req.Header.Set("X-Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamPayment, Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamPayment, Service: serviceName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("dlocal error response", "method", method, "path", path, "status", resp.StatusCode, "body", string(raw))
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamPayment, Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamPayment, Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

// Sign computes the webhook signature: hex HMAC-SHA256 keyed with the secret
// over the API key followed by the raw body.
func Sign(apiKey, secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(apiKey))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) VerifySignature(body []byte, signature string) bool {
	if c.apiKey == "" || c.secret == "" || signature == "" {
		return false
	}
	expected := Sign(c.apiKey, c.secret, body)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(strings.TrimSpace(signature))))
}

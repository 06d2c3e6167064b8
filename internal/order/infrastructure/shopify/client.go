package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	checkout "github.com/foltz-ar/checkout-service/internal/checkout/domain"
	"github.com/foltz-ar/checkout-service/internal/order/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/time/rate"
)

const serviceName = "Shopify Admin"

type Config struct {
	StoreDomain string
	AccessToken string
	APIVersion  string
	Timeout     time.Duration
	// MinInterval is the minimum spacing between two admin calls.
	MinInterval time.Duration
	// BaseURL overrides https://{StoreDomain}; tests point it at httptest.
	BaseURL string
}

// Client is a thin REST client for the Shopify Admin orders API.
type Client struct {
	log     *slog.Logger
	baseURL string
	token   string
	http    *http.Client
	limiter *rate.Limiter
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	version := cfg.APIVersion
	if version == "" {
		version = "2024-10"
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://" + cfg.StoreDomain
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Client{
		log:     log,
		baseURL: strings.TrimRight(base, "/") + "/admin/api/" + version,
		token:   cfg.AccessToken,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

type orderEnvelope struct {
	Order orderPayload `json:"order"`
}

type ordersEnvelope struct {
	Orders []orderPayload `json:"orders"`
}

type orderPayload struct {
	ID                     int64          `json:"id,omitempty"`
	Name                   string         `json:"name,omitempty"`
	OrderNumber            int64          `json:"order_number,omitempty"`
	Email                  string         `json:"email,omitempty"`
	TotalPrice             string         `json:"total_price,omitempty"`
	FinancialStatus        string         `json:"financial_status,omitempty"`
	FulfillmentStatus      string         `json:"fulfillment_status,omitempty"`
	Tags                   string         `json:"tags,omitempty"`
	Note                   string         `json:"note,omitempty"`
	OrderStatusURL         string         `json:"order_status_url,omitempty"`
	CreatedAt              string         `json:"created_at,omitempty"`
	UpdatedAt              string         `json:"updated_at,omitempty"`
	LineItems              []lineItem     `json:"line_items,omitempty"`
	ShippingAddress        *address       `json:"shipping_address,omitempty"`
	BillingAddress         *address       `json:"billing_address,omitempty"`
	ShippingLines          []shippingLine `json:"shipping_lines,omitempty"`
	Transactions           []transaction  `json:"transactions,omitempty"`
	SendReceipt            *bool          `json:"send_receipt,omitempty"`
	SendFulfillmentReceipt *bool          `json:"send_fulfillment_receipt,omitempty"`
	Customer               *customer      `json:"customer,omitempty"`
	NoteAttributes         []nameValue    `json:"note_attributes,omitempty"`
}

func (o orderPayload) toDomain() domain.Order {
	return domain.Order{
		ID:                o.ID,
		Name:              o.Name,
		OrderNumber:       o.OrderNumber,
		Email:             o.Email,
		TotalPrice:        o.TotalPrice,
		FinancialStatus:   o.FinancialStatus,
		FulfillmentStatus: o.FulfillmentStatus,
		Tags:              o.Tags,
		Note:              o.Note,
		StatusURL:         o.OrderStatusURL,
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}

func (c *Client) CreateOrder(ctx context.Context, o domain.NewOrder) (domain.Order, error) {
	var resp orderEnvelope
	if err := c.do(ctx, http.MethodPost, "/orders.json", orderEnvelope{Order: createPayload(o)}, &resp); err != nil {
		return domain.Order{}, err
	}
	c.log.Info("shopify order created", "order_id", resp.Order.ID, "order_name", resp.Order.Name, "payment_id", o.PaymentID, "financial_status", resp.Order.FinancialStatus)
	return resp.Order.toDomain(), nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (domain.Order, error) {
	var resp orderEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders/"+strconv.FormatInt(id, 10)+".json", nil, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.toDomain(), nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, u domain.Update) (domain.Order, error) {
	body := orderEnvelope{Order: orderPayload{
		ID:              id,
		FinancialStatus: u.Status.Financial(),
		Tags:            u.Tags,
		Note:            u.Note,
	}}
	var resp orderEnvelope
	if err := c.do(ctx, http.MethodPut, "/orders/"+strconv.FormatInt(id, 10)+".json", body, &resp); err != nil {
		return domain.Order{}, err
	}
	return resp.Order.toDomain(), nil
}

// RecentOrders lists the most recent orders in any status.
func (c *Client) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if limit <= 0 || limit > 250 {
		limit = 50
	}
	var resp ordersEnvelope
	if err := c.do(ctx, http.MethodGet, "/orders.json?status=any&limit="+strconv.Itoa(limit), nil, &resp); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(resp.Orders))
	for _, o := range resp.Orders {
		out = append(out, o.toDomain())
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, Err: errors.New("admin API not configured")}
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, Err: err}
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
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.http.Do(req)
	if err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("shopify error response", "method", method, "path", path, "status", resp.StatusCode, "body", string(raw))
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &checkout.UpstreamError{Kind: checkout.ErrUpstreamOrder, Service: serviceName, StatusCode: resp.StatusCode, Err: fmt.Errorf("decoding response: %w", err)}
	}
	return nil
}

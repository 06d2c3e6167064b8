package meta

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/foltz-ar/checkout-service/internal/conversions/domain"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	DefaultBaseURL    = "https://graph.facebook.com"
	DefaultAPIVersion = "v21.0"
)

type Config struct {
	PixelID     string
	AccessToken string
	APIVersion  string
	BaseURL     string
	Timeout     time.Duration
}

// APIError is a non-2xx answer from the Conversions API. Body is the raw
// response so callers can relay it.
type APIError struct {
	StatusCode int
	Body       json.RawMessage
}

func (e *APIError) Error() string {
	return fmt.Sprintf("conversions API error: %d - %s", e.StatusCode, string(e.Body))
}

// Client sends server events to a Meta pixel.
type Client struct {
	log      *slog.Logger
	endpoint string
	pixel    string
	token    string
	http     *http.Client
}

func NewClient(log *slog.Logger, cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	version := cfg.APIVersion
	if version == "" {
		version = DefaultAPIVersion
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		log:      log,
		endpoint: base + "/" + version + "/" + url.PathEscape(cfg.PixelID) + "/events",
		pixel:    cfg.PixelID,
		token:    cfg.AccessToken,
		http: &http.Client{
			Timeout:   timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

func (c *Client) Configured() bool { return c.pixel != "" && c.token != "" }

type sendRequest struct {
	Data        []domain.Event `json:"data"`
	AccessToken string         `json:"access_token"`
}

// Send posts the events. Without a pixel or token it logs and reports the
// batch as skipped.
func (c *Client) Send(ctx context.Context, events ...domain.Event) (domain.Result, error) {
	if !c.Configured() {
		c.log.Warn("meta conversions not configured, dropping events", "count", len(events))
		return domain.Result{Skipped: true}, nil
	}

	b, err := json.Marshal(sendRequest{Data: events, AccessToken: c.token})
	if err != nil {
		return domain.Result{}, fmt.Errorf("marshaling events: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(b))
	if err != nil {
		return domain.Result{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Result{}, fmt.Errorf("sending events: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.Result{}, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if !json.Valid(raw) {
			raw, _ = json.Marshal(string(raw))
		}
		c.log.Error("meta conversions error response", "status", resp.StatusCode, "body", string(raw))
		return domain.Result{}, &APIError{StatusCode: resp.StatusCode, Body: raw}
	}

	var out domain.Result
	if err := json.Unmarshal(raw, &out); err != nil {
		return domain.Result{}, fmt.Errorf("decoding response: %w", err)
	}
	c.log.Debug("meta conversions sent", "events_received", out.EventsReceived, "fbtrace_id", out.FbtraceID)
	return out, nil
}
